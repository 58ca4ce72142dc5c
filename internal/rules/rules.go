// Package rules defines the versioned scoring rule table: name patterns
// for classification, the category tier ladder for scoring, and the
// protected-category set the healing stage must not override.
//
// A Table is loaded once and treated as immutable; Classifier and Scorer
// receive it explicitly. User edits travel through the YAML artifact
// (export/import), never through compiled-in state.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/models"
)

// CurrentSchemaVersion is bumped whenever the default ladder changes in a
// breaking way. Older files are migrated on load.
const CurrentSchemaVersion = 3

// PinnedRuleName is reported for entries whose score comes from an
// explicit user pin instead of the tier ladder.
const PinnedRuleName = "Pinned / Manual Override"

// ClassifyRule maps a name pattern to a category. Rules are evaluated in
// order; the first match wins.
type ClassifyRule struct {
	Category models.Category `yaml:"category"`
	// Keywords are case-insensitive substrings.
	Keywords []string `yaml:"keywords,omitempty"`
	// Pattern is an optional case-insensitive regular expression.
	Pattern string `yaml:"pattern,omitempty"`

	re *regexp.Regexp
}

// Tier maps a category to its numeric score and rule name. Lower score =
// higher priority (nearer the top of the order file).
type Tier struct {
	Category models.Category `yaml:"category"`
	Score    int             `yaml:"score"`
	Rule     string          `yaml:"rule"`
}

// Table is the complete, versioned rule artifact.
type Table struct {
	SchemaVersion int            `yaml:"schema_version"`
	Classify      []ClassifyRule `yaml:"classify"`
	Tiers         []Tier         `yaml:"tiers"`
	// Protected categories are never overridden by content healing.
	Protected     []models.Category `yaml:"protected"`
	FallbackScore int               `yaml:"fallback_score"`
	FallbackRule  string            `yaml:"fallback_rule"`

	tierByCat map[models.Category]Tier
	protected map[models.Category]bool
}

// Match runs the ordered classification rules against a display name.
func (t *Table) Match(name string) models.Category {
	lower := strings.ToLower(name)
	for i := range t.Classify {
		r := &t.Classify[i]
		for _, k := range r.Keywords {
			if strings.Contains(lower, k) {
				return r.Category
			}
		}
		if r.re != nil && r.re.MatchString(name) {
			return r.Category
		}
	}
	return models.CategoryUnknown
}

// Score returns the tier score and rule name for a category.
func (t *Table) Score(c models.Category) (int, string) {
	if tier, ok := t.tierByCat[c]; ok {
		return tier.Score, tier.Rule
	}
	return t.FallbackScore, t.FallbackRule
}

// IsProtected reports whether healing may not override the category.
func (t *Table) IsProtected(c models.Category) bool {
	return t.protected[c]
}

// compile builds lookup maps and regexes. Invalid patterns are an error:
// a rule that can never match is a broken artifact, not a soft fallback.
func (t *Table) compile() error {
	t.tierByCat = make(map[models.Category]Tier, len(t.Tiers))
	for _, tier := range t.Tiers {
		if _, dup := t.tierByCat[tier.Category]; dup {
			return fmt.Errorf("rules: duplicate tier for category %s", tier.Category)
		}
		t.tierByCat[tier.Category] = tier
	}
	t.protected = make(map[models.Category]bool, len(t.Protected))
	for _, c := range t.Protected {
		t.protected[c] = true
	}
	for i := range t.Classify {
		r := &t.Classify[i]
		if r.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rules: compile pattern %q: %w", r.Pattern, err)
		}
		r.re = re
	}
	return nil
}

// Load reads the rule table from path. A missing file yields the default
// table. Files with an older schema version are migrated: the ladder is
// reset to current defaults and the file is rewritten in place.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}

	if t.SchemaVersion < CurrentSchemaVersion {
		t = *migrate(&t)
		if err := t.Save(path); err != nil {
			return nil, err
		}
	}

	if err := t.compile(); err != nil {
		return nil, err
	}
	return &t, nil
}

// migrate upgrades an older table. Breaking ladder changes reset the
// classification rules, tiers and protected set to current defaults;
// only the schema version survives from the old file.
func migrate(old *Table) *Table {
	t := Default()
	t.SchemaVersion = CurrentSchemaVersion
	_ = old
	return t
}

// Save writes the table as YAML. Parent directories are created.
func (t *Table) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("rules: mkdir: %w", err)
		}
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("rules: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("rules: write %s: %w", path, err)
	}
	return nil
}
