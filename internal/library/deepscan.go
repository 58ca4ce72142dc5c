package library

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/scan"
	"github.com/starford/raido/internal/sorter"
)

// probeTarget is one pack queued for a deep scan.
type probeTarget struct {
	name  string
	path  string
	mtime time.Time
}

// probeResult pairs a target with what the probe learned. A nil result
// means the probe failed outright and the entry keeps its phase 1 state.
type probeResult struct {
	target probeTarget
	res    *scan.Result
}

// staleTargetsLocked lists the entries whose cached probe data is
// missing or out of date. Caller holds m.mu.
func (m *Manager) staleTargetsLocked() []probeTarget {
	var targets []probeTarget
	for i := range m.entries {
		e := &m.entries[i]
		if e.Virtual() || e.Path == "" {
			continue
		}
		info, err := os.Stat(e.Path)
		if err != nil {
			continue
		}
		if _, ok, err := m.cache.Get(e.Path, info.ModTime()); err == nil && ok {
			continue
		}
		targets = append(targets, probeTarget{name: e.Name, path: e.Path, mtime: info.ModTime()})
	}
	return targets
}

// probeAll runs the deep scan over targets with a bounded worker pool.
// Progress is reported in batches; the final callback always carries
// done == total. Probe failures are logged and degrade to whatever the
// probe gathered, they never abort the pass.
func (m *Manager) probeAll(ctx context.Context, targets []probeTarget, cb ProgressFunc) []probeResult {
	total := len(targets)
	if total == 0 {
		if cb != nil {
			cb(0, 0)
		}
		return nil
	}

	workers := m.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Report at most ~50 times per pass so huge libraries do not flood
	// the callback.
	batch := total / 50
	if batch < 1 {
		batch = 1
	}

	var (
		mu      sync.Mutex
		done    int
		results []probeResult
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res, err := scan.Probe(t.path)
			if err != nil {
				m.logger.Warn("scan: probe degraded",
					slog.String("pack", t.name), slog.String("error", err.Error()))
			}

			mu.Lock()
			done++
			if res != nil {
				results = append(results, probeResult{target: t, res: res})
			}
			report := cb != nil && (done%batch == 0 || done == total)
			d := done
			mu.Unlock()
			if report {
				cb(d, total)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// mergeDeepResults folds probe results into the entry list, persists
// them to the cache, re-sorts, and moves to StateReady. Results from a
// superseded load are discarded and ErrStale is returned.
func (m *Manager) mergeDeepResults(gen int, results []probeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		m.logger.Info("scan: results superseded by newer load", slog.Int("gen", gen))
		return apperr.ErrStale
	}

	for _, r := range results {
		e := m.findLocked(r.target.name)
		if e == nil {
			continue
		}
		m.applyProbeLocked(e, r.res)
		m.scoreLocked(e)
		if err := m.cache.Put(r.target.path, r.target.mtime, r.res); err != nil {
			m.logger.Warn("scan: cache write failed",
				slog.String("pack", r.target.name), slog.String("error", err.Error()))
		}
	}

	sorter.Sort(m.entries)
	m.state = StateReady
	m.logger.Info("scan: deep pass complete", slog.Int("scanned", len(results)))
	return nil
}
