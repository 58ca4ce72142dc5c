// Package sorter produces the final load order.
package sorter

import (
	"sort"

	"github.com/starford/raido/internal/models"
)

// Sort orders entries ascending by (score, rule name) with a stable
// sort: entries the comparator considers equal keep their pre-sort
// relative order. That stability is what lets a pinned entry survive
// repeated automatic re-sorts.
//
// The sort keys are an int and a string, so the comparator is a strict
// total order by construction; no reachable pair of entries compares
// inconsistently.
func Sort(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		// Grouping equal scores by rule name keeps each section of the
		// order file contiguous across rewrites.
		return a.RuleName < b.RuleName
	})
}
