package orderfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// HeaderFunc maps an entry to its section header text (without the '#').
// Headers are recomputed on every write, never hand-maintained.
type HeaderFunc func(e *models.Entry) string

// FallbackSection is used when no specific rule matched an entry.
const FallbackSection = "Other Scenery"

// Write regenerates the order file from entries, preserving the literal
// data line of every unchanged entry. Discovered-but-undeclared entries
// are never emitted. The write is an atomic full-file rewrite; up to
// backups prior versions are retained next to the file.
func Write(path string, entries []models.Entry, headerFor HeaderFunc, backups int) error {
	var buf bytes.Buffer
	buf.WriteString("I\n1000 Version\nSCENERY\n")

	lastSection := ""
	for i := range entries {
		e := &entries[i]
		if e.Source == models.SourceDiscovered {
			continue
		}

		section := FallbackSection
		if headerFor != nil {
			if s := headerFor(e); s != "" {
				section = s
			}
		}
		if section != lastSection {
			buf.WriteString("\n# ")
			buf.WriteString(section)
			buf.WriteByte('\n')
			lastSection = section
		}

		if !e.Dirty && e.RawLine != "" {
			buf.WriteString(e.RawLine)
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(FormatLine(e))
		buf.WriteByte('\n')
	}

	if err := rotateBackups(path, backups); err != nil {
		return err
	}
	if err := atomicWrite(path, buf.Bytes()); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("orderfile: write %s: %w: %v", path, apperr.ErrLocked, err)
		}
		return err
	}
	return nil
}

// FormatLine regenerates a data line from entry state. After a commit
// the regenerated line becomes the entry's literal text.
func FormatLine(e *models.Entry) string {
	token := pathToken(e)
	if e.Enabled {
		return "SCENERY_PACK " + token
	}
	return "SCENERY_PACK_DISABLED " + token
}

// pathToken returns the path portion of a regenerated data line. The
// literal declared token is preferred so enable/disable toggles touch
// only the keyword.
func pathToken(e *models.Entry) string {
	if e.RawPath != "" {
		return e.RawPath
	}
	if e.Virtual() {
		return TokenGlobalAirports
	}
	return customSceneryPrefix + e.Name + "/"
}

// atomicWrite writes content via tmp file, fsync, rename.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".raido-tmp-*")
	if err != nil {
		return fmt.Errorf("orderfile: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("orderfile: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("orderfile: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("orderfile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("orderfile: rename: %w", err)
	}
	success = true
	return nil
}

// rotateBackups shifts path.bak.1..N-1 up by one and copies the current
// file to path.bak.1. Nothing happens when the file does not exist yet.
func rotateBackups(path string, keep int) error {
	if keep <= 0 {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	bak := func(i int) string { return fmt.Sprintf("%s.bak.%d", path, i) }

	_ = os.Remove(bak(keep))
	for i := keep - 1; i >= 1; i-- {
		if _, err := os.Stat(bak(i)); err == nil {
			_ = os.Rename(bak(i), bak(i+1))
		}
	}
	if err := copyFile(path, bak(1)); err != nil {
		return fmt.Errorf("orderfile: backup: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
