package catalogimporter

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/storage/sqlite"
)

const validImport = `{
  "characters": [
    {"id": "washerwoman", "name": "Washerwoman", "type": "townsfolk", "when": "night", "ability_summary": "Learn that one of two players is a particular townsfolk."},
    {"id": "poisoner", "name": "Poisoner", "type": "minion", "when": "night", "target": "any"},
    {"id": "imp", "name": "Imp", "type": "demon", "when": "night", "target": "any", "precedence": 410}
  ],
  "scripts": [
    {
      "id": "tiny-brew",
      "name": "Tiny Brew",
      "version": "1.0",
      "min_players": 3,
      "max_players": 3,
      "distribution": {"townsfolk": 1, "minion": 1, "demon": 1},
      "roles": ["washerwoman", "poisoner", "imp"]
    }
  ]
}`

func writeImportFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadAssemblesCatalog(t *testing.T) {
	result, err := Load(writeImportFixture(t, "import.json", validImport))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none", result.Warnings)
	}

	roles := result.Catalog.Roles()
	if len(roles) != 3 {
		t.Fatalf("len(Roles) = %d, want 3", len(roles))
	}
	washerwoman, ok := result.Catalog.Role("washerwoman")
	if !ok {
		t.Fatal("washerwoman missing from catalog")
	}
	if washerwoman.Precedence != catalog.DefaultPrecedence(catalog.TypeTownsfolk) {
		t.Fatalf("Precedence = %d, want type default", washerwoman.Precedence)
	}
	imp, _ := result.Catalog.Role("imp")
	if imp.Precedence != 410 {
		t.Fatalf("imp Precedence = %d, want the import override 410", imp.Precedence)
	}

	script, err := result.Catalog.Resolve("tiny-brew")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(script.Roles) != 3 || script.Roles[1].Name != "Poisoner" {
		t.Fatalf("script roles = %v, want the resolved characters", script.Roles)
	}
	if !script.SupportsPlayerCount(3) {
		t.Fatal("script should support 3 players")
	}
}

func TestLoadSkipsUnknownCategory(t *testing.T) {
	src := `{"characters": [{"id": "wizard", "type": "arcane"}]}`
	result, err := Load(writeImportFixture(t, "import.json", src))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(result.Catalog.Roles()) != 0 {
		t.Fatalf("Roles = %v, want none", result.Catalog.Roles())
	}
	if len(result.SkippedIDs) != 1 || result.SkippedIDs[0] != "wizard" {
		t.Fatalf("SkippedIDs = %v, want [wizard]", result.SkippedIDs)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "unsupported category") {
		t.Fatalf("Warnings = %v, want unsupported category warning", result.Warnings)
	}
}

func TestLoadReadsDirectory(t *testing.T) {
	dir := t.TempDir()
	characters := `{"characters": [{"id": "imp", "type": "demon"}]}`
	scripts := `{"scripts": [{"id": "solo", "min_players": 1, "max_players": 1, "distribution": {"demon": 1}, "roles": ["imp"]}]}`
	if err := os.WriteFile(filepath.Join(dir, "a_scripts.json"), []byte(scripts), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b_characters.json"), []byte(characters), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	result, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	script, err := result.Catalog.Resolve("solo")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(script.Roles) != 1 || script.Roles[0].Type != catalog.TypeDemon {
		t.Fatalf("script roles = %v, want the imp resolved across files", script.Roles)
	}
}

func TestRunDryRunValidatesOnly(t *testing.T) {
	path := writeImportFixture(t, "import.json", validImport)
	dbPath := filepath.Join(t.TempDir(), "grimoire.db")

	var out bytes.Buffer
	cfg := Config{Input: path, DBPath: dbPath, DryRun: true}
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "validated 3 character(s) and 1 script(s)") {
		t.Fatalf("out = %q, want validation summary", out.String())
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("dry run should not create the database")
	}
}

func TestRunImportsIntoStore(t *testing.T) {
	path := writeImportFixture(t, "import.json", validImport)
	dbPath := filepath.Join(t.TempDir(), "grimoire.db")

	var out bytes.Buffer
	cfg := Config{Input: path, DBPath: dbPath}
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "imported 3 character(s) and 1 script(s)") {
		t.Fatalf("out = %q, want import summary", out.String())
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	cat, err := store.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(cat.Roles()) != 3 {
		t.Fatalf("len(Roles) = %d, want 3", len(cat.Roles()))
	}
	if _, err := cat.Resolve("tiny-brew"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
}

func TestRunFailsOnLintViolations(t *testing.T) {
	src := `{"scripts": [{"id": "broken", "min_players": 3, "max_players": 3, "distribution": {"demon": 1, "townsfolk": 2}, "roles": ["ghost"]}]}`
	path := writeImportFixture(t, "import.json", src)

	var out bytes.Buffer
	err := Run(context.Background(), Config{Input: path, DryRun: true}, &out)
	if err == nil || !strings.Contains(err.Error(), "lint violation") {
		t.Fatalf("Run() error = %v, want lint failure", err)
	}
	if !strings.Contains(out.String(), `role "ghost" not in catalog`) {
		t.Fatalf("out = %q, want the missing role violation", out.String())
	}
}

func TestParseConfigRequiresInput(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if _, err := ParseConfig(fs, []string{}); err == nil {
		t.Fatal("ParseConfig() error = nil, want missing input failure")
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-input", "data.json", "-dry-run"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Input != "data.json" || !cfg.DryRun {
		t.Fatalf("cfg = %+v, want parsed flags", cfg)
	}
}
