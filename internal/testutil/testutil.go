// Package testutil provides shared test helpers for setting up scenery
// libraries, order files and probe caches.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/cache"
)

// TestCache creates a temporary SQLite probe cache that is automatically
// cleaned up.
func TestCache(t *testing.T) *cache.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := cache.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary scenery root with one folder per pack
// name and returns the root path.
func TestLibrary(t *testing.T, packs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range packs {
		if err := os.MkdirAll(filepath.Join(root, p), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// WriteOrderFile writes an order file with the standard preamble and one
// active data line per pack name.
func WriteOrderFile(t *testing.T, dir string, packs ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("I\n1000 Version\nSCENERY\n\n")
	for _, p := range packs {
		b.WriteString("SCENERY_PACK Custom Scenery/" + p + "/\n")
	}
	path := filepath.Join(dir, "scenery_packs.ini")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// WritePackTile drops a minimal nav-data tree with one tile file into a
// pack folder so probes find something to collect.
func WritePackTile(t *testing.T, root, pack, tile string) {
	t.Helper()
	grid := filepath.Join(root, pack, "Earth nav data", "+30-010")
	if err := os.MkdirAll(grid, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(grid, tile+".dsf"), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
}
