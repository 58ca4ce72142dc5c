// Package orderfile reads and regenerates the scenery_packs.ini order file.
//
// The file is line-oriented: each data line is a path token prefixed with
// an enabled/disabled keyword. Lines starting with '#' are regenerable
// section headers the host ignores. Data lines of unchanged entries are
// preserved byte-for-byte on write.
package orderfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/models"
)

const (
	tokenActive   = "SCENERY_PACK "
	tokenDisabled = "SCENERY_PACK_DISABLED "

	// TokenGlobalAirports is the reserved token for the built-in aggregate
	// airport dataset. It has no backing folder.
	TokenGlobalAirports = "*GLOBAL_AIRPORTS*"

	// GlobalAirportsName is the display name of the virtual aggregate entry.
	GlobalAirportsName = "Global Airports"

	customSceneryPrefix = "Custom Scenery/"
)

// ParseError describes a malformed data line. The line is skipped; the
// rest of the file still parses.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("orderfile: line %d: %s", e.Line, e.Reason)
}

// Result holds the parsed order file.
type Result struct {
	// Entries in declared order. Top of file = highest load priority.
	Entries []models.Entry
	// ParseErrors collects malformed lines that were skipped.
	ParseErrors []*ParseError
}

// Read parses the order file at path. Pack paths are resolved against
// sceneryRoot (the Custom Scenery directory). A missing file yields an
// empty Result and no error.
func Read(path, sceneryRoot string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("orderfile: open %s: %w", path, err)
	}
	defer f.Close()

	res := &Result{}
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		// Header block and section comments carry no state.
		if trimmed == "" || strings.HasPrefix(trimmed, "#") ||
			trimmed == "I" || trimmed == "SCENERY" || strings.Contains(trimmed, "Version") {
			continue
		}

		if !strings.HasPrefix(line, "SCENERY_PACK") {
			res.ParseErrors = append(res.ParseErrors, &ParseError{
				Line: lineNo, Text: line, Reason: "unrecognized keyword",
			})
			continue
		}

		var enabled bool
		var rawPath string
		switch {
		case strings.HasPrefix(line, tokenDisabled):
			enabled, rawPath = false, line[len(tokenDisabled):]
		case strings.HasPrefix(line, tokenActive):
			enabled, rawPath = true, line[len(tokenActive):]
		default:
			res.ParseErrors = append(res.ParseErrors, &ParseError{
				Line: lineNo, Text: line, Reason: "malformed pack keyword",
			})
			continue
		}
		if rawPath == "" {
			res.ParseErrors = append(res.ParseErrors, &ParseError{
				Line: lineNo, Text: line, Reason: "empty pack path",
			})
			continue
		}

		e := entryFromRaw(line, rawPath, enabled, sceneryRoot)

		// Duplicate declared paths keep only the first occurrence.
		key := e.Path
		if key == "" {
			key = e.Name
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		res.Entries = append(res.Entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("orderfile: read %s: %w", path, err)
	}
	return res, nil
}

// entryFromRaw builds an Entry from the literal path token of a data line.
func entryFromRaw(line, rawPath string, enabled bool, sceneryRoot string) models.Entry {
	if rawPath == TokenGlobalAirports {
		return models.Entry{
			Name:     GlobalAirportsName,
			RawLine:  line,
			RawPath:  rawPath,
			Enabled:  enabled,
			Source:   models.SourceDeclared,
			Category: models.CategoryGlobalAirports,
		}
	}

	// Backslashes are normalised for resolution only; RawPath keeps the
	// literal text for byte-exact write-back.
	normalized := strings.ReplaceAll(rawPath, `\`, "/")
	normalized = strings.TrimSuffix(normalized, "/")

	name := normalized
	if i := strings.LastIndex(normalized, "/"); i >= 0 {
		name = normalized[i+1:]
	}

	var full string
	switch {
	case filepath.IsAbs(normalized):
		full = filepath.Clean(normalized)
	case strings.HasPrefix(normalized, customSceneryPrefix):
		full = filepath.Join(sceneryRoot, normalized[len(customSceneryPrefix):])
	default:
		// Relative to the install root (parent of the scenery root).
		full = filepath.Join(filepath.Dir(sceneryRoot), filepath.FromSlash(normalized))
	}

	return models.Entry{
		Name:    name,
		Path:    full,
		RawLine: line,
		RawPath: rawPath,
		Enabled: enabled,
		Source:  models.SourceDeclared,
	}
}
