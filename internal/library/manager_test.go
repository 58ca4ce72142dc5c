package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/scan"
	"github.com/starford/raido/internal/testutil"
)

// memCache is an in-memory ProbeCache for tests.
type memCache struct {
	mu sync.Mutex
	m  map[string]memRecord
}

type memRecord struct {
	mtime int64
	res   scan.Result
}

func newMemCache() *memCache {
	return &memCache{m: make(map[string]memRecord)}
}

func (c *memCache) Get(path string, mtime time.Time) (*scan.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.m[path]
	if !ok || rec.mtime != mtime.UnixNano() {
		return nil, false, nil
	}
	res := rec.res
	return &res, true, nil
}

func (c *memCache) Put(path string, mtime time.Time, res *scan.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[path] = memRecord{mtime: mtime.UnixNano(), res: *res}
	return nil
}

func (c *memCache) Delete(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, path)
	return nil
}

func (c *memCache) Close() error { return nil }

func writeOrder(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	content := "I\n1000 Version\nSCENERY\n\n" + strings.Join(lines, "\n") + "\n"
	path := filepath.Join(dir, "scenery_packs.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mkPacks(t *testing.T, root string, packs ...string) {
	t.Helper()
	for _, p := range packs {
		if err := os.MkdirAll(filepath.Join(root, p), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func newManager(t *testing.T, orderPath, root string) *Manager {
	t.Helper()
	m, err := New(Options{
		OrderFile: orderPath,
		Root:      root,
		Table:     rules.Default(),
		Cache:     newMemCache(),
		Backups:   2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func entryByName(t *testing.T, m *Manager, name string) models.Entry {
	t.Helper()
	for _, e := range m.Entries() {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entry %q not found", name)
	return models.Entry{}
}

func TestLoadQuick_ClassifiesAndSorts(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "EGLL Airport", "simHeaven_X-World_Europe", "UHD Mesh v4")
	orderPath := writeOrder(t, root,
		"SCENERY_PACK Custom Scenery/UHD Mesh v4/",
		"SCENERY_PACK Custom Scenery/simHeaven_X-World_Europe/",
		"SCENERY_PACK *GLOBAL_AIRPORTS*",
		"SCENERY_PACK Custom Scenery/EGLL Airport/",
	)

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.State() != StateQuickLoaded {
		t.Errorf("state = %v, want quick_loaded", m.State())
	}

	entries := m.Entries()
	want := []string{"EGLL Airport", "Global Airports", "simHeaven_X-World_Europe", "UHD Mesh v4"}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i].Name != want[i] {
			t.Fatalf("order = %v, want %v", entries, want)
		}
	}
	if entries[0].Score != 10 || entries[1].Score != 13 || entries[2].Score != 20 || entries[3].Score != 60 {
		t.Errorf("scores = %d %d %d %d", entries[0].Score, entries[1].Score, entries[2].Score, entries[3].Score)
	}
}

func TestLoadQuick_ReportsUnmanaged(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "Declared", "Undeclared")
	orderPath := writeOrder(t, root, "SCENERY_PACK Custom Scenery/Declared/")

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(m.Entries()) != 1 {
		t.Errorf("entries = %v", m.Entries())
	}
	un := m.Unmanaged()
	if len(un) != 1 || un[0].Name != "Undeclared" {
		t.Fatalf("unmanaged = %v", un)
	}

	// Committing must not promote the undeclared folder into the file.
	if err := m.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(orderPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Undeclared") {
		t.Errorf("undeclared folder written to order file:\n%s", data)
	}
}

func TestLoadQuick_MissingOrderFile(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "Only On Disk")
	m := newManager(t, filepath.Join(root, "scenery_packs.ini"), root)

	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(m.Entries()) != 0 {
		t.Errorf("entries = %v, want none", m.Entries())
	}
	if len(m.Unmanaged()) != 1 {
		t.Errorf("unmanaged = %v, want one", m.Unmanaged())
	}
}

func TestLoad_DeepScanHealsAndCaches(t *testing.T) {
	root := testutil.TestLibrary(t, "Mystery Pack")
	testutil.WritePackTile(t, root, "Mystery Pack", "+37-008")
	orderPath := testutil.WriteOrderFile(t, root, "Mystery Pack")

	db := testutil.TestCache(t)
	m, err := New(Options{
		OrderFile: orderPath,
		Root:      root,
		Table:     rules.Default(),
		Cache:     db,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.State() != StateReady {
		t.Errorf("state = %v, want ready", m.State())
	}

	e := entryByName(t, m, "Mystery Pack")
	if len(e.Tiles) != 1 {
		t.Fatalf("tiles = %v", e.Tiles)
	}
	// Bare tiles without airport data heal the unknown guess to a mesh.
	if e.Category != models.CategoryMesh {
		t.Errorf("category = %v, want mesh", e.Category)
	}
	if e.Score != 60 {
		t.Errorf("score = %d, want 60", e.Score)
	}

	// A second manager on the same cache gets the tiles from phase 1.
	m2, err := New(Options{OrderFile: orderPath, Root: root, Table: rules.Default(), Cache: db})
	if err != nil {
		t.Fatal(err)
	}
	if err := m2.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	e2 := entryByName(t, m2, "Mystery Pack")
	if len(e2.Tiles) != 1 || e2.Category != models.CategoryMesh {
		t.Errorf("cached probe not applied in quick load: %+v", e2)
	}
}

func TestLoadWithProgress_ReportsAndFinishes(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "A", "B", "C")
	orderPath := writeOrder(t, root,
		"SCENERY_PACK Custom Scenery/A/",
		"SCENERY_PACK Custom Scenery/B/",
		"SCENERY_PACK Custom Scenery/C/",
	)

	m := newManager(t, orderPath, root)
	var mu sync.Mutex
	var last [2]int
	done, err := m.LoadWithProgress(context.Background(), func(d, total int) {
		mu.Lock()
		last = [2]int{d, total}
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatalf("deep scan error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if last[0] != last[1] {
		t.Errorf("final progress = %d/%d, want done == total", last[0], last[1])
	}
	if m.State() != StateReady {
		t.Errorf("state = %v, want ready", m.State())
	}
}

func TestMergeDeepResults_StaleGenerationDiscarded(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "A")
	orderPath := writeOrder(t, root, "SCENERY_PACK Custom Scenery/A/")

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	stale := m.gen
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := m.mergeDeepResults(stale, []probeResult{
		{target: probeTarget{name: "A", path: filepath.Join(root, "A")}, res: &scan.Result{Health: 99}},
	})
	if !errors.Is(err, apperr.ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if e := entryByName(t, m, "A"); e.Health == 99 {
		t.Error("stale result was merged")
	}
}

func TestMergeDeepResults_PreservesUserEdits(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "A")
	orderPath := writeOrder(t, root, "SCENERY_PACK Custom Scenery/A/")

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	gen := m.gen
	targets := m.staleTargetsLocked()

	// User disables the pack while the background scan is in flight.
	if err := m.SetEnabled("A", false); err != nil {
		t.Fatal(err)
	}

	results := m.probeAll(context.Background(), targets, nil)
	if err := m.mergeDeepResults(gen, results); err != nil {
		t.Fatal(err)
	}

	e := entryByName(t, m, "A")
	if e.Enabled {
		t.Error("deep merge clobbered the user's disable")
	}
	if e.Health == 0 {
		t.Error("probe data was not merged")
	}
}

func TestCommit_DisabledStatePersists(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "A", "B")
	orderPath := writeOrder(t, root,
		"SCENERY_PACK Custom Scenery/A/",
		"SCENERY_PACK Custom Scenery/B/",
	)

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.SetEnabled("B", false); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	m2 := newManager(t, orderPath, root)
	if err := m2.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e := entryByName(t, m2, "B"); e.Enabled {
		t.Error("disabled state lost across commit and reload")
	}
}

func TestCommit_BeforeLoadFails(t *testing.T) {
	root := t.TempDir()
	orderPath := writeOrder(t, root)
	m := newManager(t, orderPath, root)
	if err := m.Commit(context.Background()); !errors.Is(err, apperr.ErrBadState) {
		t.Errorf("err = %v, want ErrBadState", err)
	}
}

func TestSetOverride_PinSurvivesReload(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "EGLL Airport")
	orderPath := writeOrder(t, root, "SCENERY_PACK Custom Scenery/EGLL Airport/")

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.SetOverride("EGLL Airport", 42); err != nil {
		t.Fatal(err)
	}
	e := entryByName(t, m, "EGLL Airport")
	if e.Score != 42 || !e.Pinned || e.RuleName != rules.PinnedRuleName {
		t.Errorf("pinned entry = %+v", e)
	}

	// A reload from scratch picks the pin up from the side file.
	m2 := newManager(t, orderPath, root)
	if err := m2.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e := entryByName(t, m2, "EGLL Airport"); e.Score != 42 || !e.Pinned {
		t.Errorf("pin lost across reload: %+v", e)
	}

	if err := m2.ClearOverride("EGLL Airport"); err != nil {
		t.Fatal(err)
	}
	if e := entryByName(t, m2, "EGLL Airport"); e.Score != 10 || e.Pinned {
		t.Errorf("cleared pin = %+v", e)
	}
}

func TestSetTags_Persisted(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "A")
	orderPath := writeOrder(t, root, "SCENERY_PACK Custom Scenery/A/")

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.SetTags("A", []string{"europe", "payware"}); err != nil {
		t.Fatal(err)
	}

	m2 := newManager(t, orderPath, root)
	if err := m2.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	e := entryByName(t, m2, "A")
	if len(e.Tags) != 2 || e.Tags[0] != "europe" {
		t.Errorf("tags = %v", e.Tags)
	}
}

func TestExclusions_SkipDiscovery(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "Keep", "Skip")
	orderPath := writeOrder(t, root, "SCENERY_PACK Custom Scenery/Keep/")

	sideDir := filepath.Join(root, sideDirName)
	if err := os.MkdirAll(sideDir, 0o755); err != nil {
		t.Fatal(err)
	}
	ex := "exclude:\n  - " + filepath.Join(root, "Skip") + "\n"
	if err := os.WriteFile(filepath.Join(sideDir, exclusionsFileName), []byte(ex), 0o644); err != nil {
		t.Fatal(err)
	}

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, e := range m.Unmanaged() {
		if e.Name == "Skip" {
			t.Error("excluded folder reported as unmanaged")
		}
	}
}

func TestReorder_MovedEntryGetsPinned(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "EGLL Airport", "simHeaven_X-World_Europe", "UHD Mesh v4")
	orderPath := writeOrder(t, root,
		"SCENERY_PACK Custom Scenery/EGLL Airport/",
		"SCENERY_PACK Custom Scenery/simHeaven_X-World_Europe/",
		"SCENERY_PACK Custom Scenery/UHD Mesh v4/",
	)

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Pull the mesh up between the airport and the ambient layer.
	if err := m.Reorder([]string{"EGLL Airport", "UHD Mesh v4", "simHeaven_X-World_Europe"}); err != nil {
		t.Fatal(err)
	}

	e := entryByName(t, m, "UHD Mesh v4")
	if !e.Pinned {
		t.Fatal("moved entry not pinned")
	}
	if e.Score != 10 {
		t.Errorf("pin score = %d, want predecessor's 10", e.Score)
	}

	// The new position survives an automatic re-sort.
	m.Sort()
	entries := m.Entries()
	idxMesh, idxAmbient := -1, -1
	for i, e := range entries {
		switch e.Name {
		case "UHD Mesh v4":
			idxMesh = i
		case "simHeaven_X-World_Europe":
			idxAmbient = i
		}
	}
	if idxMesh < 0 || idxAmbient < 0 || idxMesh > idxAmbient {
		t.Errorf("order after re-sort = %v", entries)
	}
}

func TestDelete_RemovesEntryAndFolder(t *testing.T) {
	root := t.TempDir()
	mkPacks(t, root, "Doomed", "Keeper")
	orderPath := writeOrder(t, root,
		"SCENERY_PACK Custom Scenery/Doomed/",
		"SCENERY_PACK Custom Scenery/Keeper/",
	)

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("Doomed"); err != nil {
		t.Fatal(err)
	}

	if len(m.Entries()) != 1 {
		t.Errorf("entries = %v", m.Entries())
	}
	if _, err := os.Stat(filepath.Join(root, "Doomed")); !os.IsNotExist(err) {
		t.Error("folder not removed from disk")
	}
}

func TestDelete_VirtualEntryRefused(t *testing.T) {
	root := t.TempDir()
	orderPath := writeOrder(t, root, "SCENERY_PACK *GLOBAL_AIRPORTS*")

	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("Global Airports"); !errors.Is(err, apperr.ErrBadState) {
		t.Errorf("err = %v, want ErrBadState", err)
	}
}

func TestSetEnabled_UnknownEntry(t *testing.T) {
	root := t.TempDir()
	orderPath := writeOrder(t, root)
	m := newManager(t, orderPath, root)
	if err := m.LoadQuick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.SetEnabled("No Such Pack", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	orderPath := writeOrder(t, root)
	m := newManager(t, orderPath, root)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}
