package models

// Category is the resolved kind of a scenery pack. It drives scoring,
// section headers, and the ordering rules the validator enforces.
type Category int

const (
	// CategoryUnknown is the default when no pattern matched.
	CategoryUnknown Category = iota
	// CategoryCustomAirport is a payware/freeware airport pack.
	CategoryCustomAirport
	// CategoryPremiumAirport is a branded top-tier airport (Orbx A line).
	CategoryPremiumAirport
	// CategoryGlobalAirports is the built-in aggregate airport dataset.
	// It is virtual: a reserved token in the order file, no backing folder.
	CategoryGlobalAirports
	// CategoryLandmark is an official city landmark pack.
	CategoryLandmark
	// CategoryCityEnhancement is a third-party city detail overlay.
	CategoryCityEnhancement
	// CategoryAirportOverlay supplements an airport (statics, overlays).
	CategoryAirportOverlay
	// CategoryRegionalOverlay is a branded regional overlay layer.
	CategoryRegionalOverlay
	// CategoryAmbientEnhancement is a world/ambient enhancement layer
	// (simHeaven X-World style). Must load below the aggregate airports.
	CategoryAmbientEnhancement
	// CategoryFluff covers forests, birds, sealanes and similar dressing.
	CategoryFluff
	// CategoryLibrary is a shared asset library; position-independent.
	CategoryLibrary
	// CategoryAutoOrthoOverlay is the AutoOrtho correction overlay.
	CategoryAutoOrthoOverlay
	// CategorySpecificMesh is airport-specific terrain/mesh.
	CategorySpecificMesh
	// CategoryOrthoBase is photo scenery base.
	CategoryOrthoBase
	// CategoryMesh is a terrain/elevation mesh. Loads last.
	CategoryMesh
	// CategoryExclusion is an exclusion-zone tweak pack.
	CategoryExclusion
	// CategoryAutoOrthoBase is the AutoOrtho base imagery tile store.
	CategoryAutoOrthoBase
)

var categoryNames = map[Category]string{
	CategoryUnknown:            "unknown",
	CategoryCustomAirport:      "custom_airport",
	CategoryPremiumAirport:     "premium_airport",
	CategoryGlobalAirports:     "global_airports",
	CategoryLandmark:           "landmark",
	CategoryCityEnhancement:    "city_enhancement",
	CategoryAirportOverlay:     "airport_overlay",
	CategoryRegionalOverlay:    "regional_overlay",
	CategoryAmbientEnhancement: "ambient_enhancement",
	CategoryFluff:              "fluff",
	CategoryLibrary:            "library",
	CategoryAutoOrthoOverlay:   "autoortho_overlay",
	CategorySpecificMesh:       "specific_mesh",
	CategoryOrthoBase:          "ortho_base",
	CategoryMesh:               "mesh",
	CategoryExclusion:          "exclusion",
	CategoryAutoOrthoBase:      "autoortho_base",
}

var categoryValues = func() map[string]Category {
	m := make(map[string]Category, len(categoryNames))
	for c, n := range categoryNames {
		m[n] = c
	}
	return m
}()

// String returns the stable identifier used in rule files and side files.
func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "unknown"
}

// ParseCategory maps a stable identifier back to a Category.
// Unrecognised identifiers map to CategoryUnknown.
func ParseCategory(s string) Category {
	if c, ok := categoryValues[s]; ok {
		return c
	}
	return CategoryUnknown
}

// IsTerrain reports whether the category is a terrain-layer kind that the
// validator expects at the bottom of the order.
func (c Category) IsTerrain() bool {
	switch c {
	case CategoryMesh, CategorySpecificMesh, CategoryOrthoBase, CategoryAutoOrthoBase:
		return true
	}
	return false
}

// IsMesh reports whether the category participates in shadowing checks.
func (c Category) IsMesh() bool {
	return c == CategoryMesh || c == CategorySpecificMesh
}

// MarshalYAML implements yaml.Marshaler using the stable identifier.
func (c Category) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Category) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}
