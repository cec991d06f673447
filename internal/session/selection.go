package session

import "github.com/iksnae/ragchat/internal"

// Event is a change the selection policy reacts to
type Event interface {
	event()
}

// NamespaceChanged is emitted when the user picks a namespace. Chats is the
// filtered chat list of the new namespace.
type NamespaceChanged struct {
	Namespace string
	Chats     []internal.ChatSession
}

// ChatCreated is emitted after a chat was added to the active namespace
type ChatCreated struct {
	Chats  []internal.ChatSession
	ChatID string
}

// ChatListChanged is emitted when the filtered list changed for any other
// reason (rename, delete, external refresh)
type ChatListChanged struct {
	Chats []internal.ChatSession
}

// UserSelected is an explicit choice of chat by the user
type UserSelected struct {
	Chats  []internal.ChatSession
	ChatID string
}

func (NamespaceChanged) event() {}
func (ChatCreated) event()      {}
func (ChatListChanged) event()  {}
func (UserSelected) event()     {}

// Reduce computes the next selection. Precedence is explicit user choice,
// then the newest chat on creation, then the first chat of a namespace.
// A chat that is still listed is never replaced by an automatic rule.
func Reduce(cur internal.Selection, ev Event) internal.Selection {
	switch e := ev.(type) {
	case NamespaceChanged:
		next := internal.Selection{Namespace: e.Namespace}
		if e.Namespace == "" || len(e.Chats) == 0 {
			return next
		}
		if e.Namespace == cur.Namespace && containsChat(e.Chats, cur.ChatID) {
			next.ChatID = cur.ChatID
			return next
		}
		next.ChatID = e.Chats[0].ChatID
		return next

	case ChatCreated:
		if containsChat(e.Chats, e.ChatID) {
			cur.ChatID = e.ChatID
			return cur
		}
		return fallback(cur, e.Chats)

	case ChatListChanged:
		return fallback(cur, e.Chats)

	case UserSelected:
		if containsChat(e.Chats, e.ChatID) {
			cur.ChatID = e.ChatID
		}
		return cur
	}
	return cur
}

// fallback keeps a still-listed chat, otherwise moves to the newest one
func fallback(cur internal.Selection, chats []internal.ChatSession) internal.Selection {
	if cur.Namespace == "" || len(chats) == 0 {
		cur.ChatID = ""
		return cur
	}
	if containsChat(chats, cur.ChatID) {
		return cur
	}
	cur.ChatID = chats[len(chats)-1].ChatID
	return cur
}

func containsChat(chats []internal.ChatSession, chatID string) bool {
	if chatID == "" {
		return false
	}
	for _, c := range chats {
		if c.ChatID == chatID {
			return true
		}
	}
	return false
}
