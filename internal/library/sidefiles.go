package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Side files live in a dot-directory inside the library root so they
// travel with the library and the scanner skips them as hidden.
const sideDirName = ".raido"

const (
	pinsFileName       = "overrides.json"
	tagsFileName       = "tags.json"
	exclusionsFileName = "exclusions.yaml"
)

func (m *Manager) sideDir() string {
	return filepath.Join(m.root, sideDirName)
}

// loadSideFiles reads pins, tags and scan exclusions. Missing files are
// a clean slate; a corrupt file is an error rather than silent loss of
// the user's pins.
func (m *Manager) loadSideFiles() error {
	if err := readJSONFile(filepath.Join(m.sideDir(), pinsFileName), &m.pins); err != nil {
		return fmt.Errorf("library: load pins: %w", err)
	}
	if err := readJSONFile(filepath.Join(m.sideDir(), tagsFileName), &m.tags); err != nil {
		return fmt.Errorf("library: load tags: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(m.sideDir(), exclusionsFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("library: load exclusions: %w", err)
	}
	var ex struct {
		Exclude []string `yaml:"exclude"`
	}
	if err := yaml.Unmarshal(raw, &ex); err != nil {
		return fmt.Errorf("library: parse exclusions: %w", err)
	}
	m.exclusions = ex.Exclude
	return nil
}

// savePinsLocked persists the pin map. Caller holds m.mu.
func (m *Manager) savePinsLocked() error {
	if err := writeJSONFile(filepath.Join(m.sideDir(), pinsFileName), m.pins); err != nil {
		return fmt.Errorf("library: save pins: %w", err)
	}
	return nil
}

// saveTagsLocked persists the tag map. Caller holds m.mu.
func (m *Manager) saveTagsLocked() error {
	if err := writeJSONFile(filepath.Join(m.sideDir(), tagsFileName), m.tags); err != nil {
		return fmt.Errorf("library: save tags: %w", err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
