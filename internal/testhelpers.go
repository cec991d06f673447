package internal

import (
	"time"
)

// CreateTestTranscript creates a transcript with a greeting and one
// answered question
func CreateTestTranscript(id string) *Transcript {
	messages := []ConversationMessage{
		Greeting("handbook"),
		{Role: RoleUser, Text: "How many vacation days do I get?"},
		{
			Role: RoleAssistant,
			Text: "You get **25** vacation days per year.",
			SourceDocuments: []SourceDocument{
				{Content: "Employees receive 25 days of paid leave.", Source: "handbook.pdf"},
			},
		},
	}
	return CreateTestTranscriptWithMessages(id, messages)
}

// CreateTestTranscriptWithMessages creates a transcript with custom messages
func CreateTestTranscriptWithMessages(id string, messages []ConversationMessage) *Transcript {
	return &Transcript{
		Chat: ChatSession{
			ChatID:      id,
			Namespace:   "handbook",
			DisplayName: "Chat 1",
			CreatedAt:   time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		Conversation: Conversation{
			Messages: messages,
			History:  HistoryFromLog(messages),
		},
	}
}
