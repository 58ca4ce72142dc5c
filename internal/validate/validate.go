// Package validate inspects a sorted entry sequence for domain ordering
// violations. Validation is purely advisory: it never mutates entries
// and never blocks a commit.
package validate

import (
	"fmt"
	"sort"

	"github.com/starford/raido/internal/models"
)

// Severity grades an issue.
type Severity int

const (
	// SeverityWarning flags an order that wastes resources or risks
	// minor visual artifacts.
	SeverityWarning Severity = iota
	// SeverityCritical flags an order that actively breaks rendering.
	SeverityCritical
)

func (s Severity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "warning"
}

// Issue describes one ordering violation between two entries.
type Issue struct {
	Severity  Severity `json:"severity"`
	Type      string   `json:"type"`
	EntryName string   `json:"entry"`
	OtherName string   `json:"other,omitempty"`
	Message   string   `json:"message"`
	Fix       string   `json:"fix,omitempty"`
}

// Validate checks the ordered sequence top-to-bottom (index 0 = highest
// load priority) and returns all issues found.
func Validate(entries []models.Entry) []Issue {
	var issues []Issue
	issues = append(issues, checkAnchorPrecedence(entries)...)
	issues = append(issues, checkTerrainPrecedence(entries)...)
	issues = append(issues, checkMeshShadowing(entries)...)
	return issues
}

// checkAnchorPrecedence enforces that the built-in aggregate airport
// dataset appears strictly before any ambient enhancement layer. An
// ambient layer above the aggregate hides the aggregate's features via
// its exclusion logic.
func checkAnchorPrecedence(entries []models.Entry) []Issue {
	anchorIdx := -1
	for i := range entries {
		if entries[i].Enabled && entries[i].Category == models.CategoryGlobalAirports {
			anchorIdx = i
			break
		}
	}
	if anchorIdx < 0 {
		return nil
	}

	var issues []Issue
	for i := range entries[:anchorIdx] {
		e := &entries[i]
		if !e.Enabled || e.Category != models.CategoryAmbientEnhancement {
			continue
		}
		issues = append(issues, Issue{
			Severity:  SeverityCritical,
			Type:      "ambient_above_aggregate",
			EntryName: e.Name,
			OtherName: entries[anchorIdx].Name,
			Message:   fmt.Sprintf("'%s' loads before '%s'", e.Name, entries[anchorIdx].Name),
			Fix:       "Move ambient enhancement layers below the aggregate airport dataset.",
		})
	}
	return issues
}

// checkTerrainPrecedence warns when base terrain loads before overlay or
// airport content. Airport-specific terrain and libraries are exempt:
// the former belongs near its airport, the latter is position-independent.
func checkTerrainPrecedence(entries []models.Entry) []Issue {
	isBaseTerrain := func(c models.Category) bool {
		return c == models.CategoryMesh || c == models.CategoryOrthoBase ||
			c == models.CategoryAutoOrthoBase
	}
	isSurface := func(c models.Category) bool {
		switch c {
		case models.CategoryCustomAirport, models.CategoryPremiumAirport,
			models.CategoryAirportOverlay, models.CategoryGlobalAirports,
			models.CategoryLandmark, models.CategoryCityEnhancement,
			models.CategoryRegionalOverlay, models.CategoryAmbientEnhancement:
			return true
		}
		return false
	}

	firstTerrain, lastSurface := -1, -1
	for i := range entries {
		if !entries[i].Enabled {
			continue
		}
		if firstTerrain < 0 && isBaseTerrain(entries[i].Category) {
			firstTerrain = i
		}
		if isSurface(entries[i].Category) {
			lastSurface = i
		}
	}
	if firstTerrain < 0 || lastSurface < 0 || firstTerrain > lastSurface {
		return nil
	}
	return []Issue{{
		Severity:  SeverityWarning,
		Type:      "terrain_above_surface",
		EntryName: entries[firstTerrain].Name,
		OtherName: entries[lastSurface].Name,
		Message: fmt.Sprintf("terrain pack '%s' loads before '%s'",
			entries[firstTerrain].Name, entries[lastSurface].Name),
		Fix: "Move mesh and ortho packs to the bottom of the list.",
	}}
}

// checkMeshShadowing flags an enabled mesh whose tile extent is fully
// contained in a higher-priority mesh: only the highest-priority mesh
// for a tile is ever rendered, so the shadowed pack is dead weight.
// Disabled entries, non-mesh categories, and libraries never shadow.
func checkMeshShadowing(entries []models.Entry) []Issue {
	var meshes []*models.Entry
	for i := range entries {
		e := &entries[i]
		if e.Enabled && e.Category.IsMesh() && len(e.Tiles) > 0 {
			meshes = append(meshes, e)
		}
	}

	var issues []Issue
	for i, high := range meshes {
		for _, low := range meshes[i+1:] {
			if !tileSubset(low.Tiles, high.Tiles) {
				continue
			}
			issues = append(issues, Issue{
				Severity:  SeverityWarning,
				Type:      "shadowed_mesh",
				EntryName: low.Name,
				OtherName: high.Name,
				Message:   fmt.Sprintf("mesh '%s' is completely shadowed by '%s'", low.Name, high.Name),
				Fix:       "Disable or remove the shadowed mesh; it will never be rendered.",
			})
		}
	}
	return issues
}

// tileSubset reports whether every tile of small is present in big.
// Inputs are not assumed sorted; the check works on copies.
func tileSubset(small, big []models.Tile) bool {
	if len(small) == 0 || len(small) > len(big) {
		return false
	}
	s := append([]models.Tile(nil), small...)
	b := append([]models.Tile(nil), big...)
	less := func(t []models.Tile) func(i, j int) bool {
		return func(i, j int) bool {
			if t[i].Lat != t[j].Lat {
				return t[i].Lat < t[j].Lat
			}
			return t[i].Lon < t[j].Lon
		}
	}
	sort.Slice(s, less(s))
	sort.Slice(b, less(b))

	j := 0
	for _, st := range s {
		for j < len(b) && (b[j].Lat < st.Lat || (b[j].Lat == st.Lat && b[j].Lon < st.Lon)) {
			j++
		}
		if j >= len(b) || b[j] != st {
			return false
		}
		j++
	}
	return true
}
