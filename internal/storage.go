package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Storage persists conversations keyed by chat id
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Get loads the conversation of chatID. found is false when the chat is
// not registered. Malformed rows produce a StoreReadError.
func (s *Storage) Get(chatID string) (Conversation, bool, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chats WHERE chat_id = ?", chatID).Scan(&n); err != nil {
		return Conversation{}, false, &StoreReadError{ChatID: chatID, Err: err}
	}
	if n == 0 {
		return Conversation{}, false, nil
	}

	messages, err := s.loadMessages(chatID)
	if err != nil {
		return Conversation{}, true, &StoreReadError{ChatID: chatID, Err: err}
	}
	history, err := s.loadHistory(chatID)
	if err != nil {
		return Conversation{}, true, &StoreReadError{ChatID: chatID, Err: err}
	}

	return Conversation{Messages: messages, History: history}, true, nil
}

// Update replaces the stored conversation of chatID. Messages and history
// are written in one transaction: either both land or neither does.
func (s *Storage) Update(chatID string, conv Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM chats WHERE chat_id = ?", chatID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up chat: %w", err)
	}
	if n == 0 {
		return ErrChatNotFound
	}

	if err := clearConversation(tx, chatID); err != nil {
		return err
	}
	if err := writeConversation(tx, chatID, conv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}
	return nil
}

func (s *Storage) loadMessages(chatID string) ([]ConversationMessage, error) {
	rows, err := s.db.Query(
		"SELECT role, text, source_documents FROM messages WHERE chat_id = ? ORDER BY position",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]ConversationMessage, 0)
	for rows.Next() {
		var msg ConversationMessage
		var role string
		var docs sql.NullString
		if err := rows.Scan(&role, &msg.Text, &docs); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		switch Role(role) {
		case RoleUser, RoleAssistant:
			msg.Role = Role(role)
		default:
			return nil, fmt.Errorf("unknown message role %q", role)
		}
		if docs.Valid && docs.String != "" {
			if err := json.Unmarshal([]byte(docs.String), &msg.SourceDocuments); err != nil {
				return nil, fmt.Errorf("failed to parse source documents: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return messages, nil
}

func (s *Storage) loadHistory(chatID string) ([]HistoryPair, error) {
	rows, err := s.db.Query(
		"SELECT question, answer FROM history WHERE chat_id = ? ORDER BY position",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := make([]HistoryPair, 0)
	for rows.Next() {
		var pair HistoryPair
		if err := rows.Scan(&pair.Question, &pair.Answer); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		history = append(history, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return history, nil
}

func clearConversation(tx *sql.Tx, chatID string) error {
	if _, err := tx.Exec("DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM history WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func writeConversation(tx *sql.Tx, chatID string, conv Conversation) error {
	for i, msg := range conv.Messages {
		var docs sql.NullString
		if len(msg.SourceDocuments) > 0 {
			data, err := json.Marshal(msg.SourceDocuments)
			if err != nil {
				return fmt.Errorf("failed to encode source documents: %w", err)
			}
			docs = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := tx.Exec(
			"INSERT INTO messages (chat_id, position, role, text, source_documents) VALUES (?, ?, ?, ?, ?)",
			chatID, i, string(msg.Role), msg.Text, docs,
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	for i, pair := range conv.History {
		if _, err := tx.Exec(
			"INSERT INTO history (chat_id, position, question, answer) VALUES (?, ?, ?, ?)",
			chatID, i, pair.Question, pair.Answer,
		); err != nil {
			return fmt.Errorf("failed to insert history: %w", err)
		}
	}
	return nil
}
