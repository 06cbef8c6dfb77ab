package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with taskintake-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS intake_logs (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL DEFAULT (datetime('now')),
    user_id TEXT NOT NULL,
    school_code TEXT NOT NULL DEFAULT '',
    academic_year_id TEXT NOT NULL DEFAULT '',
    input_type TEXT NOT NULL DEFAULT '',
    raw_input TEXT NOT NULL DEFAULT '',
    transcription TEXT,
    detected_language TEXT,
    parsed_task TEXT,
    field_confidences TEXT NOT NULL DEFAULT '{}',
    overall_confidence REAL NOT NULL DEFAULT 0,
    fields_needing_review TEXT NOT NULL DEFAULT '[]',
    requires_confirmation INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK(status IN ('completed','failed','quota_denied')),
    error_code TEXT,
    error_detail TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_intake_logs_timestamp ON intake_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_intake_logs_user ON intake_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_intake_logs_school ON intake_logs(school_code);
CREATE INDEX IF NOT EXISTS idx_intake_logs_status ON intake_logs(status);

CREATE TABLE IF NOT EXISTS ai_usage (
    user_id TEXT NOT NULL,
    school_code TEXT NOT NULL DEFAULT '',
    day TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY(user_id, day)
);

CREATE INDEX IF NOT EXISTS idx_ai_usage_day ON ai_usage(day);

CREATE TABLE IF NOT EXISTS api_tokens (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    token_hash TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    expires_at DATETIME,
    last_used DATETIME,
    revoked INTEGER NOT NULL DEFAULT 0
);
`
