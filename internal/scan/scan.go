// Package scan enumerates the scenery library on disk and performs the
// deep per-pack content probe.
package scan

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DiscoveredPack is one subfolder of the library root.
type DiscoveredPack struct {
	Name string
	Path string
}

// ListPacks enumerates the immediate subfolders of root in native OS
// traversal order. The order is deliberately not sorted: the host
// application scans the directory the same way, and ordering parity
// with that scan is part of the engine's contract.
//
// Hidden folders and excluded paths are skipped. A stat failure on one
// entry is logged and skipped; only failure to read root itself is an
// error.
func ListPacks(root string, exclusions []string, logger *slog.Logger) ([]DiscoveredPack, error) {
	f, err := os.Open(root)
	if err != nil {
		return nil, fmt.Errorf("scan: open root %s: %w", root, err)
	}
	defer f.Close()

	// Readdirnames returns directory order, unlike os.ReadDir which sorts.
	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("scan: read root %s: %w", root, err)
	}

	var out []DiscoveredPack
	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(root, name)
		if excluded(p, exclusions) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if logger != nil {
				logger.Warn("scan: stat failed", slog.String("path", p), slog.String("error", err.Error()))
			}
			continue
		}
		if !info.IsDir() {
			continue
		}
		out = append(out, DiscoveredPack{Name: name, Path: p})
	}
	return out, nil
}

func excluded(path string, exclusions []string) bool {
	for _, ex := range exclusions {
		if ex == "" {
			continue
		}
		if path == ex || strings.HasPrefix(path, ex+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
