package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryDatabase opens a private in-memory database when passed to OpenDatabase
const MemoryDatabase = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id      TEXT NOT NULL UNIQUE,
	namespace    TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_namespace ON chats(namespace, seq);

CREATE TABLE IF NOT EXISTS messages (
	chat_id          TEXT NOT NULL,
	position         INTEGER NOT NULL,
	role             TEXT NOT NULL,
	text             TEXT NOT NULL,
	source_documents TEXT,
	PRIMARY KEY (chat_id, position)
);

CREATE TABLE IF NOT EXISTS history (
	chat_id  TEXT NOT NULL,
	position INTEGER NOT NULL,
	question TEXT NOT NULL,
	answer   TEXT NOT NULL,
	PRIMARY KEY (chat_id, position)
);

CREATE TABLE IF NOT EXISTS selection (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// OpenDatabase opens (creating if needed) the chat database and applies the schema
func OpenDatabase(path string) (*sql.DB, error) {
	if path != MemoryDatabase {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, &StorageError{Path: path, Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "open", Err: fmt.Errorf("database ping failed: %w", err)}
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "migrate", Err: err}
	}

	return db, nil
}

// Migrate creates any missing tables
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
