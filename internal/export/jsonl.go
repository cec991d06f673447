package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/ragchat/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, msg := range transcript.Conversation.Messages {
		obj := map[string]interface{}{
			"chat_id":   transcript.Chat.ChatID,
			"namespace": transcript.Chat.Namespace,
			"position":  i,
			"role":      msg.Role,
			"text":      msg.Text,
		}

		if len(msg.SourceDocuments) > 0 {
			obj["source_documents"] = msg.SourceDocuments
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
