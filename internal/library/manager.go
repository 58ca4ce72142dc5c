// Package library is the load orchestrator: it reconciles the declared
// order file with the filesystem, classifies and scores entries, runs
// the deep content scan off the interactive path, and commits the final
// order back to disk on explicit request.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/cache"
	"github.com/starford/raido/internal/classify"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/orderfile"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/scan"
	"github.com/starford/raido/internal/sorter"
	"github.com/starford/raido/internal/validate"
)

// State is the load lifecycle of a Manager.
type State int

const (
	// StateUnloaded means no load pass has run yet.
	StateUnloaded State = iota
	// StateQuickLoaded means phase 1 (reconcile + name classification +
	// cached probe data) has produced a usable order.
	StateQuickLoaded
	// StateDeepScanning means phase 2 content discovery runs in the
	// background.
	StateDeepScanning
	// StateReady means deep results are merged and the order is final.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateQuickLoaded:
		return "quick_loaded"
	case StateDeepScanning:
		return "deep_scanning"
	case StateReady:
		return "ready"
	default:
		return "unloaded"
	}
}

// ProgressFunc receives batched deep-scan progress. done == total on the
// final call.
type ProgressFunc func(done, total int)

// Options configures a Manager.
type Options struct {
	// OrderFile is the path to the declared-order file.
	OrderFile string
	// Root is the scenery library directory holding one folder per pack.
	Root string
	// Table is the immutable scoring rule table.
	Table *rules.Table
	// Cache persists deep probe results. Required; use cache.Open.
	Cache cache.ProbeCache
	// Workers bounds the deep-scan pool. Zero means GOMAXPROCS.
	Workers int
	// Backups is the number of prior order-file versions to retain.
	Backups int
	Logger  *slog.Logger
}

// Manager owns the in-memory entry list and its load state machine.
// All exported methods are safe for concurrent use.
type Manager struct {
	orderPath string
	root      string
	table     *rules.Table
	cache     cache.ProbeCache
	workers   int
	backups   int
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	gen       int // bumped by every load; stale deep scans check it
	entries   []models.Entry
	unmanaged []models.Entry // discovered on disk, not declared; never written
	parseErrs []*orderfile.ParseError

	pins       map[string]int
	tags       map[string][]string
	exclusions []string
}

// New creates a Manager and loads the per-library side files (pins,
// tags, scan exclusions). It does not touch the order file yet.
func New(opts Options) (*Manager, error) {
	if opts.OrderFile == "" || opts.Root == "" {
		return nil, fmt.Errorf("library: order file and root are required")
	}
	if opts.Table == nil {
		return nil, fmt.Errorf("library: rule table is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("library: probe cache is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		orderPath: opts.OrderFile,
		root:      opts.Root,
		table:     opts.Table,
		cache:     opts.Cache,
		workers:   opts.Workers,
		backups:   opts.Backups,
		logger:    logger,
		pins:      make(map[string]int),
		tags:      make(map[string][]string),
	}
	if err := m.loadSideFiles(); err != nil {
		return nil, err
	}
	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Entries returns a snapshot of the declared entries in current order.
func (m *Manager) Entries() []models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.entries)
}

// Unmanaged returns folders discovered on disk but absent from the
// declared order. They are reported, never auto-added.
func (m *Manager) Unmanaged() []models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.unmanaged)
}

// ParseErrors returns the malformed lines skipped by the last load.
func (m *Manager) ParseErrors() []*orderfile.ParseError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*orderfile.ParseError(nil), m.parseErrs...)
}

// LoadQuick runs phase 1: reconcile the declared order with the
// filesystem, classify by name, apply any fresh cached probe data,
// score and sort. It completes in bounded time regardless of library
// size because it never opens pack contents.
func (m *Manager) LoadQuick(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadQuickLocked(ctx)
}

// Load runs a full synchronous pass: phase 1 plus inline deep scanning
// of every entry whose cached probe data is stale.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	if err := m.loadQuickLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	gen := m.gen
	targets := m.staleTargetsLocked()
	m.state = StateDeepScanning
	m.mu.Unlock()

	results := m.probeAll(ctx, targets, nil)
	return m.mergeDeepResults(gen, results)
}

// LoadWithProgress runs phase 1 synchronously, then phase 2 in the
// background, reporting batched progress through cb. The returned
// channel yields the deep scan's final error (nil on success, including
// the no-op case) and is closed afterwards. A newer load supersedes the
// scan; its results are discarded and the channel yields ErrStale.
func (m *Manager) LoadWithProgress(ctx context.Context, cb ProgressFunc) (<-chan error, error) {
	m.mu.Lock()
	if err := m.loadQuickLocked(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	gen := m.gen
	targets := m.staleTargetsLocked()
	m.state = StateDeepScanning
	m.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer close(done)
		results := m.probeAll(ctx, targets, cb)
		done <- m.mergeDeepResults(gen, results)
	}()
	return done, nil
}

// loadQuickLocked is the phase 1 body. Caller holds m.mu.
func (m *Manager) loadQuickLocked(_ context.Context) error {
	m.gen++ // supersede any in-flight deep scan

	res, err := orderfile.Read(m.orderPath, m.root)
	if err != nil {
		return err
	}
	m.parseErrs = res.ParseErrors
	for _, pe := range res.ParseErrors {
		m.logger.Warn("load: skipped malformed line",
			slog.Int("line", pe.Line), slog.String("reason", pe.Reason))
	}

	discovered, err := scan.ListPacks(m.root, m.exclusions, m.logger)
	if err != nil {
		// Only a root-level failure is hard; the declared list alone is
		// still a usable (if unverified) result.
		m.logger.Warn("load: library scan failed", slog.String("error", err.Error()))
	}

	m.entries, m.unmanaged = reconcile(res.Entries, discovered)

	for i := range m.entries {
		e := &m.entries[i]
		if e.Category == models.CategoryUnknown {
			e.Category = classify.Heuristic(m.table, e.Name)
		}
		m.applyCachedProbeLocked(e)
		m.applyTagsLocked(e)
		m.scoreLocked(e)
	}
	sorter.Sort(m.entries)

	m.state = StateQuickLoaded
	m.logger.Info("load: quick pass complete",
		slog.Int("declared", len(m.entries)),
		slog.Int("unmanaged", len(m.unmanaged)))
	return nil
}

// applyCachedProbeLocked merges fresh cached deep-scan data into e.
func (m *Manager) applyCachedProbeLocked(e *models.Entry) {
	if e.Virtual() || e.Path == "" {
		return
	}
	info, err := os.Stat(e.Path)
	if err != nil {
		return
	}
	res, ok, err := m.cache.Get(e.Path, info.ModTime())
	if err != nil {
		m.logger.Warn("load: cache read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}
	m.applyProbeLocked(e, res)
}

// applyProbeLocked writes probe-derived fields onto e and heals its
// category. It never touches Enabled, Tags, or pin state, which is what
// makes merging background results safe against concurrent user edits.
func (m *Manager) applyProbeLocked(e *models.Entry, res *scan.Result) {
	e.Tiles = res.Tiles
	e.AirportIDs = res.AirportIDs
	e.Descriptor = res.Descriptor
	e.Health = res.Health
	e.Category = classify.Heal(m.table, e.Category, classify.Evidence{
		HasAirports: e.HasAirports(),
		HasTiles:    e.HasTiles(),
		Descriptor:  e.Descriptor,
	})
}

// scoreLocked assigns Score and RuleName: an explicit pin wins over the
// category tier.
func (m *Manager) scoreLocked(e *models.Entry) {
	if pin, ok := m.pins[e.Name]; ok {
		e.Score = pin
		e.RuleName = rules.PinnedRuleName
		e.Pinned = true
		return
	}
	e.Pinned = false
	e.Score, e.RuleName = m.table.Score(e.Category)
}

func (m *Manager) applyTagsLocked(e *models.Entry) {
	if t, ok := m.tags[e.Name]; ok {
		e.Tags = append([]string(nil), t...)
	}
}

// Sort re-sorts the current entries. Safe to call repeatedly; the sort
// is stable and idempotent.
func (m *Manager) Sort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorter.Sort(m.entries)
}

// Validate returns the advisory report for the current order. It never
// mutates entries and never blocks a commit.
func (m *Manager) Validate() []validate.Issue {
	m.mu.Lock()
	entries := snapshot(m.entries)
	m.mu.Unlock()
	return validate.Validate(entries)
}

// Commit writes the current order back to the order file. It is the
// only operation that writes the file; classification, scoring and
// sorting never do. A failed commit leaves in-memory state unchanged so
// the caller can retry.
func (m *Manager) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateUnloaded {
		return fmt.Errorf("library: commit before load: %w", apperr.ErrBadState)
	}

	headerFor := func(e *models.Entry) string { return e.RuleName }
	if err := orderfile.Write(m.orderPath, m.entries, headerFor, m.backups); err != nil {
		return err
	}

	// The regenerated lines are now the literal on-disk text.
	for i := range m.entries {
		e := &m.entries[i]
		if e.Dirty {
			e.RawLine = orderfile.FormatLine(e)
			e.Dirty = false
		}
	}
	m.logger.Info("commit: order file written", slog.String("path", m.orderPath))
	return nil
}

// findLocked locates a declared entry by tolerant name match.
func (m *Manager) findLocked(name string) *models.Entry {
	key := normalizeKey(name)
	for i := range m.entries {
		if normalizeKey(m.entries[i].Name) == key {
			return &m.entries[i]
		}
	}
	return nil
}

// SetEnabled toggles an entry's enabled flag.
func (m *Manager) SetEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findLocked(name)
	if e == nil {
		return fmt.Errorf("library: entry %q: %w", name, apperr.ErrNotFound)
	}
	if e.Enabled != enabled {
		e.Enabled = enabled
		e.Dirty = true
	}
	return nil
}

// SetTags replaces an entry's tags and persists the tag side file.
func (m *Manager) SetTags(name string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findLocked(name)
	if e == nil {
		return fmt.Errorf("library: entry %q: %w", name, apperr.ErrNotFound)
	}
	e.Tags = append([]string(nil), tags...)
	if len(tags) == 0 {
		delete(m.tags, e.Name)
	} else {
		m.tags[e.Name] = append([]string(nil), tags...)
	}
	return m.saveTagsLocked()
}

// SetOverride pins an entry to an explicit score. The pin survives
// re-sorts and reloads until explicitly cleared.
func (m *Manager) SetOverride(name string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findLocked(name)
	if e == nil {
		return fmt.Errorf("library: entry %q: %w", name, apperr.ErrNotFound)
	}
	m.pins[e.Name] = score
	m.scoreLocked(e)
	return m.savePinsLocked()
}

// ClearOverride removes an entry's pin.
func (m *Manager) ClearOverride(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findLocked(name)
	if e == nil {
		return fmt.Errorf("library: entry %q: %w", name, apperr.ErrNotFound)
	}
	delete(m.pins, e.Name)
	m.scoreLocked(e)
	return m.savePinsLocked()
}

// ClearAllOverrides removes every pin.
func (m *Manager) ClearAllOverrides() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins = make(map[string]int)
	for i := range m.entries {
		m.scoreLocked(&m.entries[i])
	}
	return m.savePinsLocked()
}

// Delete removes an entry from the order, deletes its folder from disk,
// and drops its side-file records. Virtual entries cannot be deleted.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findLocked(name)
	if e == nil {
		return fmt.Errorf("library: entry %q: %w", name, apperr.ErrNotFound)
	}
	if e.Virtual() {
		return fmt.Errorf("library: cannot delete built-in entry %q: %w", name, apperr.ErrBadState)
	}

	if e.Path != "" {
		if err := os.RemoveAll(e.Path); err != nil {
			return fmt.Errorf("library: delete %s: %w", e.Path, err)
		}
		if err := m.cache.Delete(e.Path); err != nil {
			m.logger.Warn("delete: cache cleanup failed", slog.String("error", err.Error()))
		}
	}
	delete(m.pins, e.Name)
	delete(m.tags, e.Name)

	for i := range m.entries {
		if &m.entries[i] == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	if err := m.savePinsLocked(); err != nil {
		return err
	}
	return m.saveTagsLocked()
}

func snapshot(entries []models.Entry) []models.Entry {
	return append([]models.Entry(nil), entries...)
}
