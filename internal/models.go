package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatSession is one conversation thread scoped to a namespace
type ChatSession struct {
	ChatID      string    `json:"chat_id" yaml:"chat_id"`
	Namespace   string    `json:"namespace" yaml:"namespace"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// SourceDocument is a retrieved passage the backend cited for an answer
type SourceDocument struct {
	Content string `json:"content" yaml:"content"`
	Source  string `json:"source" yaml:"source"`
}

// ConversationMessage is a single entry in a chat's message log
type ConversationMessage struct {
	Role            Role             `json:"role" yaml:"role"`
	Text            string           `json:"text" yaml:"text"`
	SourceDocuments []SourceDocument `json:"source_documents,omitempty" yaml:"source_documents,omitempty"`
}

// HistoryPair is a derived (question, answer) tuple sent as context to the backend
type HistoryPair struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// MarshalJSON encodes the pair as a two-element array, the shape the backend expects
func (p HistoryPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Question, p.Answer})
}

// UnmarshalJSON decodes a two-element array
func (p *HistoryPair) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("history pair must have 2 elements, got %d", len(raw))
	}
	p.Question, p.Answer = raw[0], raw[1]
	return nil
}

// Conversation is a chat's message log plus its derived history
type Conversation struct {
	Messages []ConversationMessage `json:"messages" yaml:"messages"`
	History  []HistoryPair         `json:"history" yaml:"history"`
}

// Greeting returns the seed message for a new chat in namespace
func Greeting(namespace string) ConversationMessage {
	return ConversationMessage{
		Role: RoleAssistant,
		Text: fmt.Sprintf("Hi, what would you like to know about %s?", namespace),
	}
}

// NewConversation returns the conversation a freshly created chat starts with
func NewConversation(namespace string) Conversation {
	return Conversation{
		Messages: []ConversationMessage{Greeting(namespace)},
		History:  []HistoryPair{},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing
func (c Conversation) Clone() Conversation {
	out := Conversation{
		Messages: make([]ConversationMessage, len(c.Messages)),
		History:  make([]HistoryPair, len(c.History)),
	}
	for i, m := range c.Messages {
		out.Messages[i] = m
		if m.SourceDocuments != nil {
			out.Messages[i].SourceDocuments = append([]SourceDocument(nil), m.SourceDocuments...)
		}
	}
	copy(out.History, c.History)
	return out
}

// Transcript bundles a chat with its conversation for export and display
type Transcript struct {
	Chat         ChatSession  `json:"chat" yaml:"chat"`
	Conversation Conversation `json:"conversation" yaml:"conversation"`
}
