package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteSchemaVersion is bumped whenever applyMigration grows a case.
const sqliteSchemaVersion = 1

// SQLite implements Store on a single-file database. The connection is
// opened with WAL mode and a busy timeout and capped at one open
// connection because SQLite supports a single writer.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and brings the
// schema up to the current version.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLite{db: db}, nil
}

// migrateSchema walks the schema from its stored version up to
// sqliteSchemaVersion. Fresh databases start at version 0.
func migrateSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for v := version + 1; v <= sqliteSchemaVersion; v++ {
		if err := applyMigration(db, v); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", v, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, v); err != nil {
			return fmt.Errorf("failed to record schema version %d: %w", v, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, version int) error {
	var statements []string
	switch version {
	case 1:
		statements = []string{
			`CREATE TABLE IF NOT EXISTS checkpoints (
				session_id TEXT PRIMARY KEY,
				next_stage TEXT NOT NULL,
				state TEXT NOT NULL,
				saved_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_checkpoints_saved ON checkpoints(saved_at)`,
		}
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute migration: %s: %w", stmt, err)
		}
	}
	return nil
}

// Save upserts the checkpoint row for the session.
func (s *SQLite) Save(ctx context.Context, sessionID string, cp *Checkpoint) error {
	state := cp.State
	if state == nil {
		state = json.RawMessage("null")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (session_id, next_stage, state, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			next_stage = excluded.next_stage,
			state = excluded.state,
			saved_at = excluded.saved_at
	`, sessionID, cp.NextStage, string(state), cp.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for session %s: %w", sessionID, err)
	}
	return nil
}

// Load reads the checkpoint row for the session.
func (s *SQLite) Load(ctx context.Context, sessionID string) (*Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, next_stage, state, saved_at
		FROM checkpoints
		WHERE session_id = ?
	`, sessionID)

	var cp Checkpoint
	var state, savedAt string
	err := row.Scan(&cp.SessionID, &cp.NextStage, &state, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for session %s: %w", sessionID, err)
	}

	cp.State = json.RawMessage(state)
	cp.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt checkpoint for session %s: %w", sessionID, err)
	}
	return &cp, nil
}

// Delete removes the checkpoint row.
func (s *SQLite) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete checkpoint for session %s: %w", sessionID, err)
	}
	return nil
}

// List returns session IDs ordered by most recent save.
func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM checkpoints ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session ID: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoints: %w", err)
	}
	return sessions, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
