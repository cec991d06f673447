package testutil

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB opens an empty in-memory SQLite database for testing.
// The caller applies its own schema.
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// InsertChat inserts a chat row directly, bypassing validation
func InsertChat(t *testing.T, db *sql.DB, chatID, namespace, name string, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO chats (chat_id, namespace, display_name, created_at) VALUES (?, ?, ?, ?)",
		chatID, namespace, name, createdAt.UnixMilli(),
	)
	if err != nil {
		t.Fatalf("Failed to insert chat: %v", err)
	}
}

// InsertMessage inserts a message row directly. docs is the raw
// source_documents column and may be malformed on purpose.
func InsertMessage(t *testing.T, db *sql.DB, chatID string, position int, role, text, docs string) {
	t.Helper()
	var raw sql.NullString
	if docs != "" {
		raw = sql.NullString{String: docs, Valid: true}
	}
	_, err := db.Exec(
		"INSERT INTO messages (chat_id, position, role, text, source_documents) VALUES (?, ?, ?, ?, ?)",
		chatID, position, role, text, raw,
	)
	if err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
}

// InsertHistory inserts a history row directly
func InsertHistory(t *testing.T, db *sql.DB, chatID string, position int, question, answer string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO history (chat_id, position, question, answer) VALUES (?, ?, ?, ?)",
		chatID, position, question, answer,
	)
	if err != nil {
		t.Fatalf("Failed to insert history: %v", err)
	}
}

// CountRows returns the number of rows in table matching chatID
func CountRows(t *testing.T, db *sql.DB, table, chatID string) int {
	t.Helper()
	var n int
	// table names come from tests only
	if err := db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE chat_id = ?", chatID).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
