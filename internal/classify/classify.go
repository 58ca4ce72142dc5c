// Package classify resolves an entry's category in two stages: a name
// pattern match against the rule table, then an optional content-based
// healing pass that can override the guess with evidence from the pack's
// actual files.
package classify

import (
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/rules"
)

// Evidence is the read-only result of a content probe. Healing consumes
// evidence only; it never touches the filesystem itself.
type Evidence struct {
	HasAirports bool
	HasTiles    bool
	Descriptor  models.Descriptor
}

// Heuristic is stage A: first-match-wins over the table's ordered name
// rules. Unmatched names get CategoryUnknown.
func Heuristic(t *rules.Table, name string) models.Category {
	return t.Match(name)
}

// predicate inspects evidence and proposes a category with a confidence
// in (0,1]. Predicates are ordered; Heal picks the highest confidence.
type predicate struct {
	name string
	eval func(ev Evidence) (models.Category, float64)
}

var healPredicates = []predicate{
	{name: "airport-data", eval: func(ev Evidence) (models.Category, float64) {
		if ev.HasAirports {
			return models.CategoryCustomAirport, 0.9
		}
		return models.CategoryUnknown, 0
	}},
	{name: "bare-tiles", eval: func(ev Evidence) (models.Category, float64) {
		// Tiles without airport data is the signature of a mesh pack.
		if ev.HasTiles && !ev.HasAirports {
			return models.CategoryMesh, 0.7
		}
		return models.CategoryUnknown, 0
	}},
	{name: "mesh-patches", eval: func(ev Evidence) (models.Category, float64) {
		d := ev.Descriptor
		if d.MeshPatchCount > 0 && d.ObjectCount == 0 && d.FacadeCount == 0 {
			return models.CategoryMesh, 0.6
		}
		return models.CategoryUnknown, 0
	}},
	{name: "forest-heavy", eval: func(ev Evidence) (models.Category, float64) {
		d := ev.Descriptor
		if d.ForestCount > 0 && d.ForestCount >= d.ObjectCount && d.MeshPatchCount == 0 {
			return models.CategoryFluff, 0.5
		}
		return models.CategoryUnknown, 0
	}},
}

// Heal is stage B: corrects a name-based guess using probe evidence.
// Protected categories are returned unchanged regardless of evidence,
// so a placement the user (or the ladder) depends on is never destabilised.
// Callers that failed to gather evidence should pass the stage-A result
// through unchanged instead of calling Heal with zero Evidence.
func Heal(t *rules.Table, cat models.Category, ev Evidence) models.Category {
	if t.IsProtected(cat) {
		return cat
	}

	best := models.CategoryUnknown
	bestConf := 0.0
	for _, p := range healPredicates {
		if c, conf := p.eval(ev); conf > bestConf {
			best, bestConf = c, conf
		}
	}
	if bestConf == 0 || best == cat {
		return cat
	}

	// Airport evidence never demotes the aggregate dataset or libraries;
	// those keyword matches are more reliable than a stray apt.dat.
	if best == models.CategoryCustomAirport {
		switch cat {
		case models.CategoryGlobalAirports, models.CategoryLibrary:
			return cat
		}
	}
	return best
}
