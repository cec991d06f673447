package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Selection is the active namespace and chat
type Selection struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	ChatID    string `json:"chat_id" yaml:"chat_id"`
}

const (
	selectionNamespaceKey = "namespace"
	selectionChatKey      = "chat_id"
)

// Registry creates, renames and deletes chat sessions and remembers the
// last selection
type Registry struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewRegistry creates a Registry over an opened database
func NewRegistry(db *sql.DB) *Registry {
	return &Registry{
		db:    db,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// CreateChat registers a new chat in namespace and seeds its conversation
// with the greeting
func (r *Registry) CreateChat(namespace string) (*ChatSession, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, errors.New("namespace is required to create a chat")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	name, err := nextChatName(tx, namespace)
	if err != nil {
		return nil, err
	}

	chat := &ChatSession{
		ChatID:      r.newID(),
		Namespace:   namespace,
		DisplayName: name,
		CreatedAt:   r.now().UTC().Truncate(time.Millisecond),
	}

	_, err = tx.Exec(
		"INSERT INTO chats (chat_id, namespace, display_name, created_at) VALUES (?, ?, ?, ?)",
		chat.ChatID, chat.Namespace, chat.DisplayName, chat.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}

	if err := writeConversation(tx, chat.ChatID, NewConversation(namespace)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chat: %w", err)
	}

	LogDebug("Created chat %s in namespace %s", chat.ChatID, namespace)
	return chat, nil
}

// nextChatName numbers a new chat after the chats already in namespace,
// skipping names that are still taken after a deletion
func nextChatName(tx *sql.Tx, namespace string) (string, error) {
	rows, err := tx.Query("SELECT display_name FROM chats WHERE namespace = ?", namespace)
	if err != nil {
		return "", fmt.Errorf("failed to list chat names: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("failed to scan chat name: %w", err)
		}
		taken[name] = true
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to list chat names: %w", err)
	}

	n := len(taken) + 1
	for taken[fmt.Sprintf("Chat %d", n)] {
		n++
	}
	return fmt.Sprintf("Chat %d", n), nil
}

// DeleteChat removes a chat and discards its conversation
func (r *Registry) DeleteChat(chatID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec("DELETE FROM chats WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}
	if err := clearConversation(tx, chatID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM selection WHERE key = ? AND value = ?", selectionChatKey, chatID); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}

	return tx.Commit()
}

// RenameChat changes a chat's display name. The namespace never changes.
func (r *Registry) RenameChat(chatID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("chat name cannot be empty")
	}

	res, err := r.db.Exec("UPDATE chats SET display_name = ? WHERE chat_id = ?", name, chatID)
	if err != nil {
		return fmt.Errorf("failed to rename chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// FilteredChats returns the chats of namespace in creation order
func (r *Registry) FilteredChats(namespace string) ([]ChatSession, error) {
	rows, err := r.db.Query(
		"SELECT chat_id, namespace, display_name, created_at FROM chats WHERE namespace = ? ORDER BY seq",
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := make([]ChatSession, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return chats, nil
}

// Chat looks up a single chat
func (r *Registry) Chat(chatID string) (*ChatSession, error) {
	row := r.db.QueryRow(
		"SELECT chat_id, namespace, display_name, created_at FROM chats WHERE chat_id = ?",
		chatID,
	)
	chat, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

// Exists reports whether chatID is registered
func (r *Registry) Exists(chatID string) (bool, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM chats WHERE chat_id = ?", chatID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up chat: %w", err)
	}
	return n > 0, nil
}

// Selection returns the persisted selection
func (r *Registry) Selection() (Selection, error) {
	rows, err := r.db.Query("SELECT key, value FROM selection")
	if err != nil {
		return Selection{}, fmt.Errorf("failed to query selection: %w", err)
	}
	defer rows.Close()

	var sel Selection
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Selection{}, fmt.Errorf("scan failed: %w", err)
		}
		switch key {
		case selectionNamespaceKey:
			sel.Namespace = value
		case selectionChatKey:
			sel.ChatID = value
		}
	}
	return sel, rows.Err()
}

// SetSelection persists the selection
func (r *Registry) SetSelection(sel Selection) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range map[string]string{
		selectionNamespaceKey: sel.Namespace,
		selectionChatKey:      sel.ChatID,
	} {
		if _, err := tx.Exec(
			"INSERT INTO selection (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value,
		); err != nil {
			return fmt.Errorf("failed to save selection: %w", err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*ChatSession, error) {
	var chat ChatSession
	var createdAt int64
	if err := row.Scan(&chat.ChatID, &chat.Namespace, &chat.DisplayName, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	chat.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &chat, nil
}
