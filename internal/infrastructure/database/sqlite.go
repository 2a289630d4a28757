package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultSQLiteFileName is used when SQLITE_PATH points at a directory.
const DefaultSQLiteFileName = "birdconnect.db"

// sqliteMigrations are versioned through PRAGMA user_version.
// Timestamps are stored as unix nanoseconds.
var sqliteMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS profiles (
  id         TEXT PRIMARY KEY,
  username   TEXT,
  avatar_url TEXT
);
`,
	`
CREATE TABLE IF NOT EXISTS conversations (
  id         TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL,
  user_low   TEXT NOT NULL,
  user_high  TEXT NOT NULL,
  CHECK (user_low < user_high),
  UNIQUE (user_low, user_high)
);
`,
	`
CREATE TABLE IF NOT EXISTS participants (
  conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
  user_id         TEXT NOT NULL,
  joined_at       INTEGER NOT NULL,
  PRIMARY KEY (conversation_id, user_id)
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_participants_user
ON participants (user_id);
`,
	`
CREATE TABLE IF NOT EXISTS messages (
  id              TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  sender_id       TEXT NOT NULL,
  content         TEXT NOT NULL CHECK (length(trim(content)) > 0),
  created_at      INTEGER NOT NULL,
  dedupe_key      TEXT,
  FOREIGN KEY (conversation_id, sender_id) REFERENCES participants(conversation_id, user_id)
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_messages_conversation_order
ON messages (conversation_id, created_at, id);
`,
	`
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_dedupe
ON messages (conversation_id, sender_id, dedupe_key)
WHERE dedupe_key IS NOT NULL;
`,
}

// OpenSQLite opens (or creates) a SQLite database and runs migrations.
// path may be a file or an existing directory.
func OpenSQLite(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultSQLiteFileName)
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create storage directory: %w", err)
	}

	// _txlock=immediate takes the write lock at BEGIN so check-then-insert
	// sequences inside one transaction cannot interleave.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL;").Scan(&journalMode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL mode: %w", err)
	}

	if err := applySQLiteMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func applySQLiteMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if version >= len(sqliteMigrations) {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(sqliteMigrations); i++ {
		if _, err := tx.Exec(sqliteMigrations[i]); err != nil {
			return fmt.Errorf("sqlite: apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return fmt.Errorf("sqlite: set schema version %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit migration transaction: %w", err)
	}
	return nil
}
