package export

import (
	"bytes"
	"testing"

	"github.com/iksnae/ragchat/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	transcript := internal.CreateTestTranscript("test1")

	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(transcript, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded internal.Transcript
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.Chat.ChatID != "test1" || decoded.Chat.Namespace != "handbook" {
		t.Errorf("Chat = %+v", decoded.Chat)
	}
	if len(decoded.Conversation.Messages) != 3 {
		t.Errorf("Messages = %d, want 3", len(decoded.Conversation.Messages))
	}
	if len(decoded.Conversation.History) != 1 || decoded.Conversation.History[0].Question != "How many vacation days do I get?" {
		t.Errorf("History = %+v", decoded.Conversation.History)
	}
	if !decoded.Chat.CreatedAt.Equal(transcript.Chat.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", decoded.Chat.CreatedAt, transcript.Chat.CreatedAt)
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	if got := (&YAMLExporter{}).Extension(); got != "yaml" {
		t.Errorf("Extension() = %v, want yaml", got)
	}
}
