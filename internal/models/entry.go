// Package models defines the domain types for Raido.
package models

// EntrySource records where an entry came from during reconciliation.
type EntrySource int

const (
	// SourceDeclared means the entry was read from the order file.
	SourceDeclared EntrySource = iota
	// SourceDiscovered means the folder exists on disk but is not declared.
	// Discovered-only entries are never written back to the order file.
	SourceDiscovered
)

// Tile is the SW corner of a 1x1 degree scenery tile.
type Tile struct {
	Lat int `json:"lat"`
	Lon int `json:"lon"`
}

// Descriptor summarises what a deep content probe found inside a pack.
// All counts come from a bounded peek, not a full parse.
type Descriptor struct {
	ObjectCount    int      `json:"object_count,omitempty"`
	FacadeCount    int      `json:"facade_count,omitempty"`
	ForestCount    int      `json:"forest_count,omitempty"`
	PolygonCount   int      `json:"polygon_count,omitempty"`
	MeshPatchCount int      `json:"mesh_patch_count,omitempty"`
	HasAirportData bool     `json:"has_airport_data,omitempty"`
	LibraryRefs    []string `json:"library_refs,omitempty"`
}

// Empty reports whether the probe produced no usable evidence.
func (d Descriptor) Empty() bool {
	return d.ObjectCount == 0 && d.FacadeCount == 0 && d.ForestCount == 0 &&
		d.PolygonCount == 0 && d.MeshPatchCount == 0 &&
		!d.HasAirportData && len(d.LibraryRefs) == 0
}

// Entry is one scenery pack tracked by the engine: the pairing of a
// declared-order line and (usually) a folder on disk.
type Entry struct {
	// Name is the display name derived from the pack path.
	Name string `json:"name"`
	// Path is the resolved absolute folder path. Empty for virtual entries.
	Path string `json:"path"`
	// RawLine is the literal order-file line this entry was parsed from.
	// It is written back byte-for-byte while the entry is unchanged.
	RawLine string `json:"-"`
	// RawPath is the literal path token from the order file.
	RawPath string `json:"raw_path,omitempty"`

	Enabled  bool        `json:"enabled"`
	Source   EntrySource `json:"-"`
	Category Category    `json:"category"`

	// Score and RuleName are assigned by the scorer. Lower score loads
	// earlier (higher priority).
	Score    int    `json:"score"`
	RuleName string `json:"rule_name"`
	// Pinned marks an explicit user override; Score then holds the pin value.
	Pinned bool `json:"pinned"`

	Region string   `json:"region,omitempty"`
	Tags   []string `json:"tags,omitempty"`

	// Populated only by deep content discovery.
	Tiles      []Tile     `json:"tiles,omitempty"`
	AirportIDs []string   `json:"airport_ids,omitempty"`
	Descriptor Descriptor `json:"descriptor,omitempty"`
	// Health is a derived 0-100 structural score (100 = fully well-formed).
	Health int `json:"health"`

	// Dirty marks entries whose enable state or order changed since load;
	// the writer regenerates dirty entries instead of emitting RawLine.
	Dirty bool `json:"-"`
}

// Virtual reports whether the entry is the built-in aggregate dataset,
// which has no backing folder and is never content-scanned.
func (e *Entry) Virtual() bool {
	return e.Category == CategoryGlobalAirports && e.Path == ""
}

// HasTiles reports whether deep discovery found any mesh tiles.
func (e *Entry) HasTiles() bool { return len(e.Tiles) > 0 }

// HasAirports reports whether deep discovery found airport data.
func (e *Entry) HasAirports() bool {
	return len(e.AirportIDs) > 0 || e.Descriptor.HasAirportData
}
