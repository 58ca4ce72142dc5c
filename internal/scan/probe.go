package scan

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/raido/internal/models"
)

// Result holds everything a deep probe learned about one pack.
type Result struct {
	Tiles      []models.Tile
	AirportIDs []string
	Descriptor models.Descriptor
	Health     int
}

// tileCap drops tile lists of massive regional packs; past this size the
// extent carries no shadowing signal worth keeping.
const tileCap = 100

// rootMarkers identify a folder as an actual scenery root.
var rootMarkers = []string{
	"earth nav data",
	"library.txt",
	"earth.wed.xml",
	"earth.wed.bak.xml",
}

// Probe inspects a pack folder: locates its scenery roots, collects the
// tile grid from data file names, detects airport data, and peeks into a
// data file for a content descriptor. Partial failures degrade to
// whatever was gathered; the error reports the first problem seen.
func Probe(path string) (*Result, error) {
	res := &Result{}
	var firstErr error

	roots := findRoots(path)
	for _, root := range roots {
		navDir, ok := findChild(root, "earth nav data")
		if !ok {
			continue
		}
		if err := collectTiles(navDir, res); err != nil && firstErr == nil {
			firstErr = err
		}
		if aptPath, ok := findChild(navDir, "apt.dat"); ok {
			ids, err := readAirportIDs(aptPath)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			res.AirportIDs = append(res.AirportIDs, ids...)
		}
	}

	sort.Slice(res.Tiles, func(i, j int) bool {
		if res.Tiles[i].Lat != res.Tiles[j].Lat {
			return res.Tiles[i].Lat < res.Tiles[j].Lat
		}
		return res.Tiles[i].Lon < res.Tiles[j].Lon
	})
	res.Tiles = dedupTiles(res.Tiles)
	if len(res.Tiles) > tileCap {
		res.Tiles = nil
	}
	sort.Strings(res.AirportIDs)
	res.AirportIDs = dedupStrings(res.AirportIDs)

	res.Health = healthScore(path, roots, res, firstErr)
	if firstErr != nil {
		return res, fmt.Errorf("scan: probe %s: %w", path, firstErr)
	}
	return res, nil
}

// findRoots returns every directory under path (up to two levels deep)
// that carries a root marker. Packs wrapped in an extra folder level are
// common; falling back to path itself keeps name-only packs probeable.
func findRoots(path string) []string {
	var roots []string
	if hasRootMarker(path) {
		roots = append(roots, path)
	}
	level1, _ := os.ReadDir(path)
	for _, d := range level1 {
		if !d.IsDir() {
			continue
		}
		p1 := filepath.Join(path, d.Name())
		if hasRootMarker(p1) {
			roots = append(roots, p1)
			continue
		}
		level2, _ := os.ReadDir(p1)
		for _, d2 := range level2 {
			if !d2.IsDir() {
				continue
			}
			p2 := filepath.Join(p1, d2.Name())
			if hasRootMarker(p2) {
				roots = append(roots, p2)
			}
		}
	}
	if len(roots) == 0 {
		roots = append(roots, path)
	}
	return roots
}

func hasRootMarker(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		for _, m := range rootMarkers {
			if name == m {
				return true
			}
		}
	}
	return false
}

// findChild locates a directory entry by case-insensitive name.
func findChild(dir, name string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// collectTiles walks the nav data grid folders for .dsf files and parses
// their SW-corner coordinates from the file names. The first readable
// data file also feeds the content descriptor.
func collectTiles(navDir string, res *Result) error {
	grids, err := os.ReadDir(navDir)
	if err != nil {
		return err
	}
	for _, grid := range grids {
		if !grid.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(navDir, grid.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if !strings.HasSuffix(strings.ToLower(f.Name()), ".dsf") {
				continue
			}
			if tile, ok := parseTileName(f.Name()); ok {
				res.Tiles = append(res.Tiles, tile)
			}
			if res.Descriptor.Empty() {
				if d, err := peekDescriptor(filepath.Join(navDir, grid.Name(), f.Name())); err == nil {
					res.Descriptor = d
				}
			}
		}
	}
	return nil
}

// parseTileName parses "+37-008.dsf" style names into a tile.
func parseTileName(name string) (models.Tile, bool) {
	name = strings.TrimSuffix(strings.ToLower(name), ".dsf")
	if len(name) < 6 {
		return models.Tile{}, false
	}
	lat, err := strconv.Atoi(name[:3])
	if err != nil {
		return models.Tile{}, false
	}
	lon, err := strconv.Atoi(name[3:])
	if err != nil {
		return models.Tile{}, false
	}
	return models.Tile{Lat: lat, Lon: lon}, true
}

// dsfSignature opens every standard scenery data file.
var dsfSignature = []byte("XPLNEDSF")

// peekDescriptor reads the head of a data file and counts asset
// references in the string table. Compressed files cannot be peeked
// cheaply and yield an empty descriptor rather than blocking I/O.
func peekDescriptor(path string) (models.Descriptor, error) {
	var d models.Descriptor
	f, err := os.Open(path)
	if err != nil {
		return d, err
	}
	defer f.Close()

	header := make([]byte, 12)
	if _, err := f.Read(header); err != nil {
		return d, err
	}
	if !bytes.HasPrefix(header, dsfSignature) {
		return d, nil
	}

	atom := make([]byte, 4)
	if _, err := f.Read(atom); err != nil {
		return d, nil
	}
	// "NFED" marks a deflate-compressed body; nothing to scan.
	if bytes.Equal(atom, []byte("NFED")) {
		return d, nil
	}

	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	content := string(buf[:n])

	d.ObjectCount = strings.Count(content, ".obj")
	d.FacadeCount = strings.Count(content, ".fac")
	d.ForestCount = strings.Count(content, ".for")
	d.PolygonCount = strings.Count(content, ".pol")
	d.MeshPatchCount = strings.Count(content, "PATCH")
	if strings.Contains(content, "lib/airport/") || strings.Contains(content, "apt_id") {
		d.HasAirportData = true
	}
	for _, lib := range []string{"simheaven", "opensceneryx", "misterx"} {
		if strings.Contains(strings.ToLower(content), lib) {
			d.LibraryRefs = append(d.LibraryRefs, lib)
		}
	}
	return d, nil
}

// readAirportIDs extracts airport identifiers from an apt.dat file.
// Only land/sea/heli header rows are read, and only a bounded number of
// lines, so a malformed multi-gigabyte file cannot stall a scan worker.
func readAirportIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	const maxLines = 200000
	for lines := 0; sc.Scan() && lines < maxLines; lines++ {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 {
			continue
		}
		switch fields[0] {
		case "1", "16", "17": // land airport, seaplane base, heliport
			ids = append(ids, fields[4])
		}
	}
	return ids, sc.Err()
}

// healthScore derives the 0-100 structural health of a pack.
func healthScore(path string, roots []string, res *Result, probeErr error) int {
	score := 0
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		score += 20
	}
	for _, r := range roots {
		if hasRootMarker(r) {
			score += 30
			break
		}
	}
	if len(res.Tiles) > 0 || len(res.AirportIDs) > 0 {
		score += 30
	}
	if !res.Descriptor.Empty() {
		score += 10
	}
	if probeErr == nil {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func dedupTiles(tiles []models.Tile) []models.Tile {
	if len(tiles) < 2 {
		return tiles
	}
	out := tiles[:1]
	for _, t := range tiles[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}

func dedupStrings(s []string) []string {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
