package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/ragchat/internal"
	"github.com/spf13/cobra"
)

var (
	limit       int
	showSources bool
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Padding(0, 2)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [chat-id]",
	Short: "Show the conversation of a chat",
	Long: `Display the conversation of a chat. Without an argument the selected
chat is shown. A unique prefix of at least four characters is accepted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		chatID := a.ctrl.Selection().ChatID
		if len(args) == 1 {
			chatID, err = resolveChat(a.ctrl.Chats(), args[0])
			if err != nil {
				// not in the selected namespace; try an exact id anywhere
				if ok, _ := a.registry.Exists(args[0]); !ok {
					return err
				}
				chatID = args[0]
			}
		}
		if chatID == "" {
			return fmt.Errorf("no chat selected (run 'ragchat chats new' or 'ragchat chats use <id>')")
		}

		transcript, err := a.transcript(chatID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, transcript)

		messages := transcript.Conversation.Messages
		total := len(messages)
		if limit > 0 && limit < len(messages) {
			messages = messages[len(messages)-limit:]
		}

		for i, msg := range messages {
			displayMessage(out, total-len(messages)+i+1, msg, total, showSources)
		}

		if limit > 0 && limit < total {
			fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("(%d earlier message(s) hidden)", total-limit)))
		}
		return nil
	},
}

func displaySessionHeader(w io.Writer, transcript *internal.Transcript) {
	if transcript == nil {
		return
	}
	chat := transcript.Chat
	fmt.Fprintln(w, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", chat.DisplayName)))

	metaParts := []string{
		fmt.Sprintf("Namespace: %s", chat.Namespace),
		fmt.Sprintf("Messages: %d", len(transcript.Conversation.Messages)),
	}
	if !chat.CreatedAt.IsZero() {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", chat.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	metaParts = append(metaParts, fmt.Sprintf("ID: %s", chat.ChatID))

	fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(w)
}

func displayMessage(w io.Writer, index int, msg internal.ConversationMessage, total int, sources bool) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 You"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 Assistant"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	header := actorStyle.Render(actorLabel)
	if index > 0 {
		header += " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	}
	fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Text)
	switch {
	case content == "":
		fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	case msg.Role == internal.RoleAssistant && internal.IsTerminal(w):
		fmt.Fprint(w, renderMarkdown(content))
	default:
		fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	}

	if sources && len(msg.SourceDocuments) > 0 {
		displaySources(w, msg.SourceDocuments)
	}
	fmt.Fprintln(w)
}

func displaySources(w io.Writer, docs []internal.SourceDocument) {
	fmt.Fprintln(w, timestampStyle.Render("  Sources:"))
	for i, doc := range docs {
		excerpt := strings.Join(strings.Fields(doc.Content), " ")
		if len(excerpt) > 160 {
			excerpt = excerpt[:157] + "..."
		}
		fmt.Fprintln(w, sourceStyle.Render(fmt.Sprintf("[%d] %s", i+1, doc.Source)))
		if excerpt != "" {
			fmt.Fprintln(w, sourceStyle.Render("    "+excerpt))
		}
	}
}

// renderMarkdown renders an answer for terminal display, falling back to
// the raw text when glamour cannot
func renderMarkdown(content string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content + "\n"
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content + "\n"
	}
	return rendered
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		// Wrap long lines
		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last n messages")
	showCmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show the source documents of answers")
}
