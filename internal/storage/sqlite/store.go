// Package sqlite persists the catalog, archived games, and the journal
// in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/journal"
	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
	"github.com/louisbranch/grimoire/internal/platform/id"
	sqlitemigrate "github.com/louisbranch/grimoire/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/grimoire/internal/scoring"
	"github.com/louisbranch/grimoire/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed durable store. It implements
// journal.Store and game.Archiver.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRole upserts one role definition.
func (s *Store) SaveRole(ctx context.Context, role catalog.RoleDefinition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if role.ID == "" {
		return fmt.Errorf("role id is required")
	}

	privateTo, err := json.Marshal(role.Visibility.PrivateTo)
	if err != nil {
		return fmt.Errorf("encode private_to: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO roles (id, name, alignment, role_type, precedence, ability_when, ability_target, rules_text, public_visibility, private_to)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    alignment = excluded.alignment,
    role_type = excluded.role_type,
    precedence = excluded.precedence,
    ability_when = excluded.ability_when,
    ability_target = excluded.ability_target,
    rules_text = excluded.rules_text,
    public_visibility = excluded.public_visibility,
    private_to = excluded.private_to
`, role.ID, role.Name, string(role.Alignment), string(role.Type), role.Precedence,
		string(role.Ability.When), string(role.Ability.Target), role.RulesText(),
		string(role.Visibility.Public), string(privateTo))
	if err != nil {
		return fmt.Errorf("save role %s: %w", role.ID, err)
	}
	return nil
}

// SaveScript upserts one script and its role list.
func (s *Store) SaveScript(ctx context.Context, script catalog.Script) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if script.ID == "" {
		return fmt.Errorf("script id is required")
	}

	distribution, err := json.Marshal(script.Setup.Distribution)
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO scripts (id, name, version, min_players, max_players, distribution)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    version = excluded.version,
    min_players = excluded.min_players,
    max_players = excluded.max_players,
    distribution = excluded.distribution
`, script.ID, script.Name, script.Version,
		script.Setup.PlayerCount.Min, script.Setup.PlayerCount.Max, string(distribution))
	if err != nil {
		return fmt.Errorf("save script %s: %w", script.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM script_roles WHERE script_id = ?`, script.ID); err != nil {
		return fmt.Errorf("clear script roles: %w", err)
	}
	for position, role := range script.Roles {
		_, err := tx.ExecContext(ctx, `
INSERT INTO script_roles (script_id, position, role_id) VALUES (?, ?, ?)
`, script.ID, position, role.ID)
		if err != nil {
			return fmt.Errorf("save script role %s: %w", role.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit script %s: %w", script.ID, err)
	}
	return nil
}

// LoadCatalog rebuilds a catalog from the stored roles and scripts.
// Role insertion order follows precedence, then id, which keeps script
// tie-breaks stable across restarts.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, alignment, role_type, precedence, ability_when, ability_target, rules_text, public_visibility, private_to
FROM roles ORDER BY precedence, id
`)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	cat := catalog.New()
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		if err := cat.AddRole(role); err != nil {
			return nil, fmt.Errorf("add role %s: %w", role.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	scripts, err := s.loadScripts(ctx, cat)
	if err != nil {
		return nil, err
	}
	for _, script := range scripts {
		if err := cat.AddScript(script); err != nil {
			return nil, fmt.Errorf("add script %s: %w", script.ID, err)
		}
	}
	return cat, nil
}

func (s *Store) loadScripts(ctx context.Context, cat *catalog.Catalog) ([]catalog.Script, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, version, min_players, max_players, distribution FROM scripts ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	var scripts []catalog.Script
	for rows.Next() {
		var script catalog.Script
		var distribution string
		if err := rows.Scan(&script.ID, &script.Name, &script.Version,
			&script.Setup.PlayerCount.Min, &script.Setup.PlayerCount.Max, &distribution); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		if err := json.Unmarshal([]byte(distribution), &script.Setup.Distribution); err != nil {
			return nil, fmt.Errorf("decode distribution for %s: %w", script.ID, err)
		}
		scripts = append(scripts, script)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}

	for i := range scripts {
		roleRows, err := s.sqlDB.QueryContext(ctx, `
SELECT role_id FROM script_roles WHERE script_id = ? ORDER BY position
`, scripts[i].ID)
		if err != nil {
			return nil, fmt.Errorf("query script roles: %w", err)
		}
		for roleRows.Next() {
			var roleID string
			if err := roleRows.Scan(&roleID); err != nil {
				roleRows.Close()
				return nil, fmt.Errorf("scan script role: %w", err)
			}
			if role, ok := cat.Role(roleID); ok {
				scripts[i].Roles = append(scripts[i].Roles, role)
			}
		}
		if err := roleRows.Err(); err != nil {
			roleRows.Close()
			return nil, fmt.Errorf("iterate script roles: %w", err)
		}
		roleRows.Close()
	}
	return scripts, nil
}

func scanRole(rows *sql.Rows) (catalog.RoleDefinition, error) {
	var role catalog.RoleDefinition
	var alignment, roleType, when, target, rulesText, public, privateTo string
	if err := rows.Scan(&role.ID, &role.Name, &alignment, &roleType, &role.Precedence,
		&when, &target, &rulesText, &public, &privateTo); err != nil {
		return catalog.RoleDefinition{}, fmt.Errorf("scan role: %w", err)
	}
	role.Alignment = catalog.Alignment(alignment)
	role.Type = catalog.RoleType(roleType)
	role.Visibility.Public = catalog.VisibilityLevel(public)
	if err := json.Unmarshal([]byte(privateTo), &role.Visibility.PrivateTo); err != nil {
		return catalog.RoleDefinition{}, fmt.Errorf("decode private_to for %s: %w", role.ID, err)
	}
	role.Ability = catalog.Ability{
		ID:     role.ID + "-ability",
		When:   catalog.Timing(when),
		Target: catalog.TargetShape(target),
	}
	if rulesText != "" {
		role.Ability.Effects = []catalog.Effect{{Kind: catalog.EffectRulesText, RulesText: rulesText}}
	}
	return role, nil
}

// ArchiveGame implements game.Archiver: the full final state is kept as
// a JSON snapshot plus indexed columns for play-history queries.
func (s *Store) ArchiveGame(ctx context.Context, state *game.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("state is required")
	}

	executions := 0
	for _, record := range state.VotingHistory {
		if record.Executed {
			executions++
		}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO games (id, script_id, phase, day, winner, player_count, execution_count, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    phase = excluded.phase,
    day = excluded.day,
    winner = excluded.winner,
    execution_count = excluded.execution_count,
    state = excluded.state,
    updated_at = excluded.updated_at
`, state.GameID, state.ScriptID, string(state.Phase), state.Day, string(state.Winner),
		len(state.Players), executions, string(payload),
		toMillis(state.CreatedAt), toMillis(state.UpdatedAt))
	if err != nil {
		return fmt.Errorf("archive game %s: %w", state.GameID, err)
	}
	return nil
}

// LoadGame returns an archived game's final state.
func (s *Store) LoadGame(ctx context.Context, gameID string) (*game.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT state FROM games WHERE id = ?`, gameID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, grimerrors.WithMetadata(grimerrors.CodeGameNotFound, "archived game not found", map[string]string{
			"game_id": gameID,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}

	var state game.State
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", gameID, err)
	}
	return &state, nil
}

// PlayHistory returns the scoring records for a script's archived
// games, oldest first.
func (s *Store) PlayHistory(ctx context.Context, scriptID string) ([]scoring.PlayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, winner, day, player_count, execution_count
FROM games WHERE script_id = ? ORDER BY updated_at
`, scriptID)
	if err != nil {
		return nil, fmt.Errorf("query play history: %w", err)
	}
	defer rows.Close()

	var history []scoring.PlayRecord
	for rows.Next() {
		var record scoring.PlayRecord
		var winner string
		if err := rows.Scan(&record.GameID, &winner, &record.Days, &record.PlayerCount, &record.Executions); err != nil {
			return nil, fmt.Errorf("scan play record: %w", err)
		}
		record.Winner = catalog.Alignment(winner)
		history = append(history, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate play history: %w", err)
	}
	return history, nil
}

// Append implements journal.Store.
func (s *Store) Append(ctx context.Context, entry journal.Entry) (journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return journal.Entry{}, err
	}
	if entry.GameID == "" || entry.PlayerID == "" || entry.Content == "" || !entry.Type.Valid() {
		return journal.Entry{}, grimerrors.New(grimerrors.CodeJournalEntryInvalid, "journal entry missing required fields")
	}

	metadata, err := json.Marshal(orEmpty(entry.Metadata))
	if err != nil {
		return journal.Entry{}, fmt.Errorf("encode metadata: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var nextSeq uint64
	err = tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(seq), 0) + 1 FROM journal_entries WHERE game_id = ?
`, entry.GameID).Scan(&nextSeq)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("next seq: %w", err)
	}

	entry.ID = id.MustNewID()
	entry.Seq = nextSeq
	entry.Timestamp = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
INSERT INTO journal_entries (id, game_id, seq, player_id, entry_type, content, metadata, ts_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, entry.ID, entry.GameID, entry.Seq, entry.PlayerID, string(entry.Type),
		entry.Content, string(metadata), toMillis(entry.Timestamp))
	if err != nil {
		return journal.Entry{}, fmt.Errorf("insert journal entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return journal.Entry{}, fmt.Errorf("commit journal entry: %w", err)
	}
	return entry, nil
}

// List implements journal.Store.
func (s *Store) List(ctx context.Context, gameID string, query journal.Query) ([]journal.Entry, error) {
	clauses := []string{"game_id = ?"}
	params := []any{gameID}
	if query.PlayerID != "" {
		clauses = append(clauses, "player_id = ?")
		params = append(params, query.PlayerID)
	}
	if query.Type != "" {
		clauses = append(clauses, "entry_type = ?")
		params = append(params, string(query.Type))
	}
	if query.AfterSeq > 0 {
		clauses = append(clauses, "seq > ?")
		params = append(params, query.AfterSeq)
	}
	return s.listWhere(ctx, strings.Join(clauses, " AND "), params, query.Limit)
}

// ListFiltered returns a game's entries narrowed by an AIP-160 filter
// expression, e.g. `type = "suspicion" AND ts >= timestamp("...")`.
func (s *Store) ListFiltered(ctx context.Context, gameID, filter string) ([]journal.Entry, error) {
	cond, err := journal.ParseFilter(filter)
	if err != nil {
		return nil, err
	}

	where := "game_id = ?"
	params := []any{gameID}
	if cond.Clause != "" {
		where += " AND " + cond.Clause
		params = append(params, cond.Params...)
	}
	return s.listWhere(ctx, where, params, 0)
}

func (s *Store) listWhere(ctx context.Context, where string, params []any, limit int) ([]journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stmt := `
SELECT id, game_id, seq, player_id, entry_type, content, metadata, ts_ms
FROM journal_entries WHERE ` + where + ` ORDER BY ts_ms, seq`
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var entry journal.Entry
		var entryType, metadata string
		var ts int64
		if err := rows.Scan(&entry.ID, &entry.GameID, &entry.Seq, &entry.PlayerID,
			&entryType, &entry.Content, &metadata, &ts); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.Type = journal.EntryType(entryType)
		entry.Timestamp = fromMillis(ts)
		if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", entry.ID, err)
		}
		if len(entry.Metadata) == 0 {
			entry.Metadata = nil
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
