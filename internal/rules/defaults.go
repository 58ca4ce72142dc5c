package rules

import "github.com/starford/raido/internal/models"

// icaoPattern roughly matches a standalone 4-letter ICAO code (KLAX,
// EGLL) inside a pack name.
const icaoPattern = `(^|[^A-Z])[A-Z]{4}([^A-Z]|$)`

// Default returns the built-in rule table.
//
// The tier ladder is part of the engine's contract with the host: the
// aggregate airport dataset sits at its anchor score, ambient layers
// below it, terrain at the bottom. Changing any score here is a breaking
// change and must go through a schema version bump; the full ladder is
// pinned by a regression test.
func Default() *Table {
	t := &Table{
		SchemaVersion: CurrentSchemaVersion,
		Classify: []ClassifyRule{
			// Ambient vegetation must be caught before the generic
			// library keywords below.
			{Category: models.CategoryAmbientEnhancement, Keywords: []string{
				"vegetation_library", "simheaven", "x-world", "w2xp",
			}},
			{Category: models.CategoryMesh, Keywords: []string{"mesh", "zzz", "uhd"}},
			{Category: models.CategoryLibrary, Keywords: []string{
				"library", "lib", "zdp", "3d_people", "aa_sam", "sam_library",
				"misterx", "opensceneryx", "worldjetways",
			}},
			{Category: models.CategoryGlobalAirports, Keywords: []string{
				"global_airports", "global airports",
			}},
			{Category: models.CategoryPremiumAirport, Keywords: []string{"orbx_a_"}},
			{Category: models.CategoryLandmark, Keywords: []string{"landmark"}},
			// Branded regional overlays before the generic overlay rule.
			{Category: models.CategoryRegionalOverlay, Pattern: `(?i)orbx_[bc]_.*overlay`},
			{Category: models.CategoryRegionalOverlay, Keywords: []string{"trueearth_overlay"}},
			{Category: models.CategoryFluff, Keywords: []string{
				"forest", "birds", "seagulls", "sealanes", "network",
			}},
			{Category: models.CategoryAutoOrthoOverlay, Keywords: []string{
				"yautoortho", "y_autoortho",
			}},
			{Category: models.CategoryExclusion, Keywords: []string{"exclude", "exclusion"}},
			{Category: models.CategoryAirportOverlay, Keywords: []string{
				"overlay", "static", "followme", "groundservice", "airportvehicles", "aep",
			}},
			{Category: models.CategoryCityEnhancement, Keywords: []string{"enhanced", "detailed"}},
			{Category: models.CategoryCustomAirport, Keywords: []string{
				"airport", "airfield", "heliport", "seaplane",
				"flytampa", "aerosoft", "justsim", "nimbus", "axonos",
				"taimodels", "boundless", "skyline", "x-scenery", "darkblue",
			}},
			{Category: models.CategoryCustomAirport, Pattern: icaoPattern},
			{Category: models.CategoryAutoOrthoBase, Keywords: []string{
				"z_autoortho", "z_ao_",
			}},
			{Category: models.CategoryOrthoBase, Keywords: []string{
				"ortho", "photoscenery",
			}},
			{Category: models.CategoryOrthoBase, Pattern: `(?i)^[yz]_`},
		},
		Tiers: []Tier{
			{Category: models.CategoryCustomAirport, Score: 10, Rule: "Airports"},
			{Category: models.CategoryPremiumAirport, Score: 11, Rule: "Premium Airports"},
			{Category: models.CategoryAirportOverlay, Score: 12, Rule: "Airport Overlays"},
			{Category: models.CategoryGlobalAirports, Score: 13, Rule: "Global Airports"},
			{Category: models.CategoryLandmark, Score: 14, Rule: "Landmarks"},
			{Category: models.CategoryCityEnhancement, Score: 16, Rule: "City Enhancements"},
			{Category: models.CategoryRegionalOverlay, Score: 18, Rule: "Regional Overlays"},
			{Category: models.CategoryAmbientEnhancement, Score: 20, Rule: "Ambient Enhancements"},
			{Category: models.CategoryFluff, Score: 22, Rule: "Forests & Wildlife"},
			{Category: models.CategoryUnknown, Score: 30, Rule: "Other Scenery"},
			{Category: models.CategoryLibrary, Score: 35, Rule: "Libraries"},
			{Category: models.CategoryAutoOrthoOverlay, Score: 48, Rule: "AutoOrtho Overlays"},
			{Category: models.CategorySpecificMesh, Score: 50, Rule: "Airport Terrain"},
			{Category: models.CategoryOrthoBase, Score: 58, Rule: "Ortho Scenery"},
			{Category: models.CategoryMesh, Score: 60, Rule: "Meshes"},
			{Category: models.CategoryExclusion, Score: 61, Rule: "Exclusion Zones"},
			{Category: models.CategoryAutoOrthoBase, Score: 95, Rule: "AutoOrtho Base"},
		},
		// Categories a user commonly corrects by hand, or whose placement
		// is layout-critical. Healing never demotes these to mesh/airport
		// tiers on content evidence alone.
		Protected: []models.Category{
			models.CategoryGlobalAirports,
			models.CategoryAmbientEnhancement,
			models.CategoryRegionalOverlay,
			models.CategoryAutoOrthoOverlay,
			models.CategoryAutoOrthoBase,
			models.CategoryLibrary,
			models.CategoryExclusion,
		},
		FallbackScore: 30,
		FallbackRule:  "Other Scenery",
	}
	if err := t.compile(); err != nil {
		// The built-in table is covered by tests; a compile failure here
		// is a programming error.
		panic(err)
	}
	return t
}
