package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with the assessment schema applied.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
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
// The pool is pinned to one connection because every new :memory:
// connection would otherwise see its own empty database.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS players (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    position TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    player_id INTEGER NOT NULL REFERENCES players(id),
    language TEXT NOT NULL DEFAULT 'en',
    status TEXT NOT NULL DEFAULT 'created' CHECK(status IN ('created','in_progress','clarifying','completed','abandoned')),
    phase TEXT CHECK(phase IS NULL OR phase IN ('intro','situation','waiting_answer','analyzing','clarification','generating_report')),
    situation_index INTEGER NOT NULL DEFAULT 0,
    pending_traits TEXT NOT NULL DEFAULT '[]',
    hint_traits TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    started_at DATETIME,
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sessions_player ON sessions(player_id, created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS situations (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    order_num INTEGER NOT NULL,
    content TEXT NOT NULL,
    context_type TEXT NOT NULL CHECK(context_type IN ('pressure','conflict','leadership','tactical','emotional','failure')),
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    UNIQUE(session_id, order_num)
);

CREATE TABLE IF NOT EXISTS answers (
    id TEXT PRIMARY KEY,
    situation_id TEXT NOT NULL REFERENCES situations(id) ON DELETE CASCADE,
    type TEXT NOT NULL CHECK(type IN ('main','clarification')),
    text TEXT NOT NULL,
    target_trait TEXT,
    analysis TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    CHECK((type = 'main' AND target_trait IS NULL) OR (type = 'clarification' AND target_trait IS NOT NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_answers_main ON answers(situation_id) WHERE type = 'main';
CREATE UNIQUE INDEX IF NOT EXISTS idx_answers_clarification ON answers(situation_id, target_trait) WHERE type = 'clarification';

CREATE TABLE IF NOT EXISTS answer_scores (
    answer_id TEXT NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
    trait_code TEXT NOT NULL,
    score REAL NOT NULL CHECK(score >= 0 AND score <= 10),
    PRIMARY KEY(answer_id, trait_code)
);

CREATE TABLE IF NOT EXISTS session_results (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    trait_code TEXT NOT NULL,
    final_score REAL NOT NULL,
    strength TEXT NOT NULL CHECK(strength IN ('dominant','moderate','weak','absent')),
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    UNIQUE(session_id, trait_code)
);
`
