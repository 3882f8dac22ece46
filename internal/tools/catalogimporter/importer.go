// Package catalogimporter loads character and script import files,
// assembles them into a catalog, and persists the result.
package catalogimporter

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/storage/sqlite"
)

// Config holds configuration for the catalog importer.
type Config struct {
	Input  string
	DBPath string
	DryRun bool
}

// ParseConfig parses CLI flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		DBPath: filepath.Join("data", "grimoire.db"),
	}

	fs.StringVar(&cfg.Input, "input", "", "import file or directory of .json files")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "catalog database path")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate without writing to the database")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.Input) == "" {
		return Config{}, errors.New("input is required")
	}
	return cfg, nil
}

// Result is an assembled catalog plus everything the assembly skipped.
type Result struct {
	Catalog *catalog.Catalog
	// SkippedIDs lists character ids whose records were dropped, so the
	// linter can still account for them.
	SkippedIDs []string
	Warnings   []string
}

// knownTypes lists distribution keys an import file may use.
var knownTypes = map[string]catalog.RoleType{
	"townsfolk": catalog.TypeTownsfolk,
	"outsider":  catalog.TypeOutsider,
	"minion":    catalog.TypeMinion,
	"demon":     catalog.TypeDemon,
	"traveller": catalog.TypeTraveller,
	"fabled":    catalog.TypeFabled,
}

// Load reads one import file, or every .json file in a directory, and
// assembles the records into a catalog. Malformed records produce
// warnings, not errors; only unreadable input fails the load.
func Load(input string) (*Result, error) {
	paths, err := importPaths(input)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .json import files in %s", input)
	}

	result := &Result{Catalog: catalog.New()}
	var scripts []ScriptPayload
	for _, path := range paths {
		doc, err := readDocument(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for _, raw := range doc.Characters {
			role, warnings := catalog.BuildRoleDefinition(raw)
			result.Warnings = append(result.Warnings, warnings...)
			if role == nil {
				if id := rawID(raw); id != "" {
					result.SkippedIDs = append(result.SkippedIDs, id)
				}
				continue
			}
			if err := result.Catalog.AddRole(*role); err != nil {
				result.Warnings = append(result.Warnings, err.Error())
				result.SkippedIDs = append(result.SkippedIDs, role.ID)
			}
		}
		scripts = append(scripts, doc.Scripts...)
	}

	// Scripts resolve after every file is read, so a script may reference
	// characters defined in a sibling file.
	for _, payload := range scripts {
		script, warnings := buildScript(result.Catalog, payload)
		result.Warnings = append(result.Warnings, warnings...)
		if err := result.Catalog.AddScript(script); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
	}
	return result, nil
}

// Run executes the importer using the provided Config.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}

	result, err := Load(cfg.Input)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}

	violations := catalog.Lint(result.Catalog, result.SkippedIDs)
	for _, violation := range violations {
		fmt.Fprintln(out, violation.String())
	}
	if len(violations) > 0 {
		return fmt.Errorf("%d lint violation(s)", len(violations))
	}

	roles := result.Catalog.Roles()
	scripts := result.Catalog.Scripts()
	if cfg.DryRun {
		_, err = fmt.Fprintf(out, "validated %d character(s) and %d script(s)\n", len(roles), len(scripts))
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer store.Close()

	for _, role := range roles {
		if err := store.SaveRole(ctx, role); err != nil {
			return fmt.Errorf("save character %s: %w", role.ID, err)
		}
	}
	for _, script := range scripts {
		if err := store.SaveScript(ctx, script); err != nil {
			return fmt.Errorf("save script %s: %w", script.ID, err)
		}
	}

	_, err = fmt.Fprintf(out, "imported %d character(s) and %d script(s) into %s\n", len(roles), len(scripts), cfg.DBPath)
	return err
}

// buildScript resolves a script payload against the assembled roles.
// Unresolved references stay in the script as bare ids so the linter can
// report them.
func buildScript(cat *catalog.Catalog, payload ScriptPayload) (catalog.Script, []string) {
	var warnings []string

	script := catalog.Script{
		ID:      payload.ID,
		Name:    payload.Name,
		Version: payload.Version,
		Setup: catalog.Setup{
			PlayerCount:  catalog.PlayerBounds{Min: payload.MinPlayers, Max: payload.MaxPlayers},
			Distribution: catalog.Distribution{},
		},
	}
	if script.Name == "" {
		script.Name = script.ID
	}

	for key, count := range payload.Distribution {
		roleType, ok := knownTypes[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			warnings = append(warnings,
				fmt.Sprintf("script %q distribution names unknown type %q", payload.ID, key))
			continue
		}
		script.Setup.Distribution[roleType] = count
	}

	for _, roleID := range payload.Roles {
		role, ok := cat.Role(roleID)
		if !ok {
			role = catalog.RoleDefinition{ID: roleID, Name: roleID}
		}
		script.Roles = append(script.Roles, role)
	}
	return script, warnings
}

func importPaths(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(input, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func readDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// rawID extracts the id of a record that failed normalization.
func rawID(raw catalog.RawCharacter) string {
	for _, key := range []string{"id", "slug", "character_id"} {
		if value, ok := raw[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
