package orderfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/models"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenery_packs.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead_Basic(t *testing.T) {
	content := "I\n1000 Version\nSCENERY\n\n" +
		"# Airports\n" +
		"SCENERY_PACK Custom Scenery/EGLL Heathrow/\n" +
		"SCENERY_PACK_DISABLED Custom Scenery/Old Mesh/\n" +
		"SCENERY_PACK *GLOBAL_AIRPORTS*\n"
	root := t.TempDir()
	path := writeFile(t, root, content)

	res, err := Read(path, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(res.Entries))
	}
	if len(res.ParseErrors) != 0 {
		t.Errorf("parse errors = %v, want none", res.ParseErrors)
	}

	e := res.Entries[0]
	if e.Name != "EGLL Heathrow" || !e.Enabled {
		t.Errorf("entry 0 = %+v", e)
	}
	if e.Path != filepath.Join(root, "EGLL Heathrow") {
		t.Errorf("path = %q", e.Path)
	}
	if e.RawLine != "SCENERY_PACK Custom Scenery/EGLL Heathrow/" {
		t.Errorf("raw line = %q", e.RawLine)
	}

	if res.Entries[1].Enabled {
		t.Error("disabled entry parsed as enabled")
	}

	ga := res.Entries[2]
	if !ga.Virtual() {
		t.Errorf("aggregate entry not virtual: %+v", ga)
	}
	if ga.Name != GlobalAirportsName || ga.Category != models.CategoryGlobalAirports {
		t.Errorf("aggregate entry = %+v", ga)
	}
}

func TestRead_MissingFile(t *testing.T) {
	res, err := Read(filepath.Join(t.TempDir(), "nope.ini"), t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("entries = %v, want none", res.Entries)
	}
}

func TestRead_MalformedLinesSkipped(t *testing.T) {
	content := "I\n1000 Version\nSCENERY\n" +
		"SCENERY_PACK Custom Scenery/Good/\n" +
		"GARBAGE LINE\n" +
		"SCENERY_PACK \n" +
		"SCENERY_PACK Custom Scenery/Also Good/\n"
	root := t.TempDir()
	path := writeFile(t, root, content)

	res, err := Read(path, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(res.Entries))
	}
	if len(res.ParseErrors) != 2 {
		t.Fatalf("len(parse errors) = %d, want 2", len(res.ParseErrors))
	}
	if res.ParseErrors[0].Line != 5 {
		t.Errorf("first error line = %d, want 5", res.ParseErrors[0].Line)
	}
}

func TestRead_DuplicateKeepsFirst(t *testing.T) {
	content := "I\n1000 Version\nSCENERY\n" +
		"SCENERY_PACK Custom Scenery/Dup/\n" +
		"SCENERY_PACK_DISABLED Custom Scenery/Dup/\n"
	root := t.TempDir()
	path := writeFile(t, root, content)

	res, err := Read(path, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(res.Entries))
	}
	if !res.Entries[0].Enabled {
		t.Error("first occurrence was enabled, survivor is not")
	}
}

func TestRead_BackslashPaths(t *testing.T) {
	content := "I\n1000 Version\nSCENERY\n" +
		`SCENERY_PACK Custom Scenery\Winding Pack\` + "\n"
	root := t.TempDir()
	path := writeFile(t, root, content)

	res, err := Read(path, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(res.Entries))
	}
	e := res.Entries[0]
	if e.Name != "Winding Pack" {
		t.Errorf("name = %q", e.Name)
	}
	if e.RawPath != `Custom Scenery\Winding Pack\` {
		t.Errorf("raw path not preserved: %q", e.RawPath)
	}
}

func TestWrite_RoundTripIdempotent(t *testing.T) {
	content := "I\n1000 Version\nSCENERY\n" +
		"SCENERY_PACK Custom Scenery/Alpha/\n" +
		"SCENERY_PACK_DISABLED Custom Scenery/Beta/\n"
	root := t.TempDir()
	path := writeFile(t, root, content)

	res, err := Read(path, root)
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(path, res.Entries, nil, 0); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	res2, err := Read(path, root)
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(path, res2.Entries, nil, 0); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Errorf("write not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if !strings.Contains(string(first), "SCENERY_PACK_DISABLED Custom Scenery/Beta/") {
		t.Errorf("data line not preserved:\n%s", first)
	}
}

func TestWrite_PreservesRawLineUnlessDirty(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "scenery_packs.ini")

	odd := "SCENERY_PACK Custom Scenery/Odd Spacing/  "
	entries := []models.Entry{
		{Name: "Odd Spacing", RawLine: odd, RawPath: "Custom Scenery/Odd Spacing/  ", Enabled: true, Source: models.SourceDeclared},
		{Name: "Toggled", RawLine: "SCENERY_PACK Custom Scenery/Toggled/", RawPath: "Custom Scenery/Toggled/", Enabled: false, Dirty: true, Source: models.SourceDeclared},
	}
	if err := Write(path, entries, nil, 0); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), odd+"\n") {
		t.Errorf("unchanged line rewritten:\n%s", got)
	}
	if !strings.Contains(string(got), "SCENERY_PACK_DISABLED Custom Scenery/Toggled/\n") {
		t.Errorf("dirty line not regenerated:\n%s", got)
	}
}

func TestWrite_SkipsDiscoveredAndEmitsSections(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "scenery_packs.ini")

	entries := []models.Entry{
		{Name: "A", RawPath: "Custom Scenery/A/", Enabled: true, Dirty: true, RuleName: "Airports", Source: models.SourceDeclared},
		{Name: "B", RawPath: "Custom Scenery/B/", Enabled: true, Dirty: true, RuleName: "Airports", Source: models.SourceDeclared},
		{Name: "Ghost", Enabled: true, Source: models.SourceDiscovered},
		{Name: "C", RawPath: "Custom Scenery/C/", Enabled: true, Dirty: true, RuleName: "Ortho", Source: models.SourceDeclared},
	}
	headerFor := func(e *models.Entry) string { return e.RuleName }
	if err := Write(path, entries, headerFor, 0); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(got)
	if strings.Contains(s, "Ghost") {
		t.Errorf("discovered entry written:\n%s", s)
	}
	if strings.Count(s, "# Airports") != 1 || strings.Count(s, "# Ortho") != 1 {
		t.Errorf("section headers wrong:\n%s", s)
	}
}

func TestWrite_RotatesBackups(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "scenery_packs.ini")
	entries := []models.Entry{
		{Name: "A", RawPath: "Custom Scenery/A/", Enabled: true, Dirty: true, Source: models.SourceDeclared},
	}

	for i := 0; i < 4; i++ {
		if err := Write(path, entries, nil, 2); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := os.Stat(path + ".bak.1"); err != nil {
		t.Errorf("bak.1 missing: %v", err)
	}
	if _, err := os.Stat(path + ".bak.2"); err != nil {
		t.Errorf("bak.2 missing: %v", err)
	}
	if _, err := os.Stat(path + ".bak.3"); !os.IsNotExist(err) {
		t.Errorf("bak.3 exists past the retention limit")
	}
}

func TestFormatLine_Toggle(t *testing.T) {
	e := &models.Entry{Name: "X", RawPath: "Custom Scenery/X/", Enabled: true}
	if got := FormatLine(e); got != "SCENERY_PACK Custom Scenery/X/" {
		t.Errorf("enabled line = %q", got)
	}
	e.Enabled = false
	if got := FormatLine(e); got != "SCENERY_PACK_DISABLED Custom Scenery/X/" {
		t.Errorf("disabled line = %q", got)
	}
}
