package validate

import (
	"testing"

	"github.com/starford/raido/internal/models"
)

func tiles(pairs ...int) []models.Tile {
	out := make([]models.Tile, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Tile{Lat: pairs[i], Lon: pairs[i+1]})
	}
	return out
}

func TestValidate_CleanOrder(t *testing.T) {
	entries := []models.Entry{
		{Name: "EGLL", Enabled: true, Category: models.CategoryCustomAirport},
		{Name: "Global Airports", Enabled: true, Category: models.CategoryGlobalAirports},
		{Name: "simHeaven Europe", Enabled: true, Category: models.CategoryAmbientEnhancement},
		{Name: "UHD Mesh", Enabled: true, Category: models.CategoryMesh},
	}
	if issues := Validate(entries); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidate_AmbientAboveAggregateIsCritical(t *testing.T) {
	entries := []models.Entry{
		{Name: "simHeaven Europe", Enabled: true, Category: models.CategoryAmbientEnhancement},
		{Name: "Global Airports", Enabled: true, Category: models.CategoryGlobalAirports},
	}
	issues := Validate(entries)
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d, want 1", len(issues))
	}
	is := issues[0]
	if is.Severity != SeverityCritical || is.Type != "ambient_above_aggregate" {
		t.Errorf("issue = %+v", is)
	}
	if is.EntryName != "simHeaven Europe" || is.OtherName != "Global Airports" {
		t.Errorf("issue names = %q / %q", is.EntryName, is.OtherName)
	}
}

func TestValidate_DisabledAmbientIgnored(t *testing.T) {
	entries := []models.Entry{
		{Name: "simHeaven Europe", Enabled: false, Category: models.CategoryAmbientEnhancement},
		{Name: "Global Airports", Enabled: true, Category: models.CategoryGlobalAirports},
	}
	if issues := Validate(entries); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidate_TerrainAboveSurfaceIsWarning(t *testing.T) {
	entries := []models.Entry{
		{Name: "UHD Mesh", Enabled: true, Category: models.CategoryMesh},
		{Name: "EGLL", Enabled: true, Category: models.CategoryCustomAirport},
	}
	issues := Validate(entries)
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d, want 1", len(issues))
	}
	is := issues[0]
	if is.Severity != SeverityWarning || is.Type != "terrain_above_surface" {
		t.Errorf("issue = %+v", is)
	}
}

func TestValidate_TerrainWarningReportedOnce(t *testing.T) {
	// Three meshes above two airports is still one structural problem.
	entries := []models.Entry{
		{Name: "Mesh A", Enabled: true, Category: models.CategoryMesh},
		{Name: "Mesh B", Enabled: true, Category: models.CategoryOrthoBase},
		{Name: "Mesh C", Enabled: true, Category: models.CategoryAutoOrthoBase},
		{Name: "EGLL", Enabled: true, Category: models.CategoryCustomAirport},
		{Name: "LFPG", Enabled: true, Category: models.CategoryCustomAirport},
	}
	issues := Validate(entries)
	count := 0
	for _, is := range issues {
		if is.Type == "terrain_above_surface" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("terrain warnings = %d, want 1", count)
	}
}

func TestValidate_AirportTerrainExempt(t *testing.T) {
	// Airport-specific terrain belongs next to its airport; no warning.
	entries := []models.Entry{
		{Name: "EGLL Terrain", Enabled: true, Category: models.CategorySpecificMesh},
		{Name: "EGLL", Enabled: true, Category: models.CategoryCustomAirport},
	}
	if issues := Validate(entries); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidate_ShadowedMesh(t *testing.T) {
	entries := []models.Entry{
		{Name: "Big Mesh", Enabled: true, Category: models.CategoryMesh, Tiles: tiles(37, -8, 37, -7, 38, -8, 38, -7)},
		{Name: "Small Mesh", Enabled: true, Category: models.CategoryMesh, Tiles: tiles(37, -8, 37, -7)},
	}
	issues := Validate(entries)
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d, want 1", len(issues))
	}
	is := issues[0]
	if is.Type != "shadowed_mesh" || is.EntryName != "Small Mesh" || is.OtherName != "Big Mesh" {
		t.Errorf("issue = %+v", is)
	}
}

func TestValidate_PartialOverlapNotShadowed(t *testing.T) {
	entries := []models.Entry{
		{Name: "Big Mesh", Enabled: true, Category: models.CategoryMesh, Tiles: tiles(37, -8, 37, -7)},
		{Name: "Other Mesh", Enabled: true, Category: models.CategoryMesh, Tiles: tiles(37, -8, 40, 2)},
	}
	if issues := Validate(entries); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidate_DisabledMeshNeverShadows(t *testing.T) {
	entries := []models.Entry{
		{Name: "Big Mesh", Enabled: false, Category: models.CategoryMesh, Tiles: tiles(37, -8, 37, -7)},
		{Name: "Small Mesh", Enabled: true, Category: models.CategoryMesh, Tiles: tiles(37, -8)},
	}
	if issues := Validate(entries); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestTileSubset(t *testing.T) {
	big := tiles(37, -8, 37, -7, 38, -8)
	if !tileSubset(tiles(37, -7), big) {
		t.Error("single contained tile not detected as subset")
	}
	if tileSubset(tiles(37, -7, 50, 10), big) {
		t.Error("tile outside big reported as subset")
	}
	if tileSubset(nil, big) {
		t.Error("empty set must not count as subset")
	}
	if tileSubset(big, tiles(37, -7)) {
		t.Error("larger set reported as subset of smaller")
	}
}
