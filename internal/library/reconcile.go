package library

import (
	"strings"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/scan"
)

// normalizeKey folds a pack name into a case- and whitespace-tolerant
// identity key used for matching declared entries to folders on disk.
func normalizeKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// reconcile joins the declared entries against the folders discovered on
// disk. The two sides are kept in independent identity-keyed maps joined
// only here; no cross-pointers survive.
//
//   - A declared entry whose folder was found under a different path has
//     its Path re-synced to the real one.
//   - A discovered folder with no declared entry is returned as
//     unmanaged: known, reported, but never inserted into the declared
//     order.
//   - A declared entry with no folder stays in the order untouched (the
//     folder may live outside the root, or be temporarily missing).
func reconcile(declared []models.Entry, discovered []scan.DiscoveredPack) (entries, unmanaged []models.Entry) {
	declaredByKey := make(map[string]int, len(declared))
	for i := range declared {
		declaredByKey[normalizeKey(declared[i].Name)] = i
	}

	discoveredByKey := make(map[string]scan.DiscoveredPack, len(discovered))
	order := make([]string, 0, len(discovered))
	for _, d := range discovered {
		key := normalizeKey(d.Name)
		if _, dup := discoveredByKey[key]; !dup {
			discoveredByKey[key] = d
			order = append(order, key)
		}
	}

	entries = append([]models.Entry(nil), declared...)
	for i := range entries {
		e := &entries[i]
		if e.Virtual() {
			continue
		}
		if d, ok := discoveredByKey[normalizeKey(e.Name)]; ok && e.Path != d.Path {
			e.Path = d.Path
		}
	}

	for _, key := range order {
		if _, ok := declaredByKey[key]; ok {
			continue
		}
		d := discoveredByKey[key]
		unmanaged = append(unmanaged, models.Entry{
			Name:    d.Name,
			Path:    d.Path,
			Enabled: true,
			Source:  models.SourceDiscovered,
		})
	}
	return entries, unmanaged
}

// Reorder rearranges the declared entries into the given name sequence.
// Names absent from the sequence keep their relative order at the end.
// Entries that actually moved relative to the stable backbone of the old
// order are pinned at the score of their new predecessor, so the new
// position survives subsequent automatic re-sorts.
func (m *Manager) Reorder(names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldIndex := make(map[string]int, len(m.entries))
	for i := range m.entries {
		oldIndex[normalizeKey(m.entries[i].Name)] = i
	}

	var reordered []models.Entry
	taken := make(map[string]bool, len(names))
	for _, name := range names {
		key := normalizeKey(name)
		if i, ok := oldIndex[key]; ok && !taken[key] {
			reordered = append(reordered, m.entries[i])
			taken[key] = true
		}
	}
	for i := range m.entries {
		if !taken[normalizeKey(m.entries[i].Name)] {
			reordered = append(reordered, m.entries[i])
		}
	}

	// Entries outside the longest increasing run of old positions are
	// the ones the user actually moved.
	oldPositions := make([]int, len(reordered))
	for i := range reordered {
		oldPositions[i] = oldIndex[normalizeKey(reordered[i].Name)]
	}
	stable := longestIncreasingRun(oldPositions)

	for i := range reordered {
		if stable[i] {
			continue
		}
		e := &reordered[i]
		pin := e.Score
		if i > 0 {
			pin = reordered[i-1].Score
		} else if len(reordered) > 1 {
			pin = reordered[1].Score
		}
		m.pins[e.Name] = pin
		e.Score = pin
		e.RuleName = rules.PinnedRuleName
		e.Pinned = true
		e.Dirty = true
	}

	m.entries = reordered
	return m.savePinsLocked()
}

// longestIncreasingRun marks the indices belonging to a longest strictly
// increasing subsequence of xs.
func longestIncreasingRun(xs []int) []bool {
	n := len(xs)
	mark := make([]bool, n)
	if n == 0 {
		return mark
	}
	best := make([]int, n) // length of LIS ending at i
	prev := make([]int, n)
	for i := range xs {
		best[i], prev[i] = 1, -1
		for j := 0; j < i; j++ {
			if xs[j] < xs[i] && best[j]+1 > best[i] {
				best[i] = best[j] + 1
				prev[i] = j
			}
		}
	}
	// Among equal-length runs prefer the one ending latest: the dragged
	// entry sits out of place early, the undisturbed backbone runs to the
	// end of the list.
	end := 0
	for i := range best {
		if best[i] >= best[end] {
			end = i
		}
	}
	for i := end; i >= 0; i = prev[i] {
		mark[i] = true
		if prev[i] < 0 {
			break
		}
	}
	return mark
}
