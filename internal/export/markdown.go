package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/ragchat/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format. Answers are already
// Markdown and are written unchanged; questions are escaped.
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	chat := transcript.Chat
	messages := transcript.Conversation.Messages

	_, _ = fmt.Fprintf(w, "# %s\n\n", chat.DisplayName)
	_, _ = fmt.Fprintf(w, "**Namespace:** %s  \n", chat.Namespace)
	_, _ = fmt.Fprintf(w, "**Chat:** %s  \n", chat.ChatID)
	if !chat.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", chat.CreatedAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range messages {
		content := msg.Text
		if msg.Role == internal.RoleUser {
			content = escapeMarkdown(content)
		}

		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", roleLabel(msg.Role), content)

		if len(msg.SourceDocuments) > 0 {
			_, _ = fmt.Fprintf(w, "<details>\n<summary>Sources</summary>\n\n")
			for _, doc := range msg.SourceDocuments {
				_, _ = fmt.Fprintf(w, "- **%s**: %s\n", doc.Source, oneLine(doc.Content))
			}
			_, _ = fmt.Fprintf(w, "\n</details>\n\n")
		}

		// Add horizontal rule after each message (except the last one)
		if i < len(messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func roleLabel(role internal.Role) string {
	switch role {
	case internal.RoleUser:
		return "You"
	case internal.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}

func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
