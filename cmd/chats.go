package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/ragchat/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
)

var chatsCmd = &cobra.Command{
	Use:     "chats",
	Aliases: []string{"list"},
	Short:   "List and manage the chats of the selected namespace",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ns, err := a.requireNamespace()
		if err != nil {
			return err
		}
		displayChats(cmd.OutOrStdout(), ns, a.ctrl.Chats(), a.ctrl.Selection().ChatID, func(id string) int {
			conv, _, err := a.store.Get(id)
			if err != nil {
				return -1
			}
			return len(conv.Messages)
		})
		return nil
	},
}

var chatsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a chat in the selected namespace and select it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.requireNamespace(); err != nil {
			return err
		}
		chat, err := a.ctrl.CreateChat()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) in %s\n", chat.DisplayName, chat.ChatID, chat.Namespace)
		return nil
	},
}

var chatsUseCmd = &cobra.Command{
	Use:   "use <chat-id>",
	Short: "Select a chat of the selected namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		chatID, err := resolveChat(a.ctrl.Chats(), args[0])
		if err != nil {
			return err
		}
		if err := a.ctrl.SelectChat(chatID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", chatID)
		return nil
	},
}

var chatsRenameCmd = &cobra.Command{
	Use:   "rename <chat-id> <name...>",
	Short: "Rename a chat",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		chatID, err := resolveChat(a.ctrl.Chats(), args[0])
		if err != nil {
			return err
		}
		name := strings.Join(args[1:], " ")
		if err := a.ctrl.RenameChat(chatID, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", chatID, strings.TrimSpace(name))
		return nil
	},
}

var chatsDeleteCmd = &cobra.Command{
	Use:     "delete <chat-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a chat and its conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		chatID, err := resolveChat(a.ctrl.Chats(), args[0])
		if err != nil {
			return err
		}
		if err := a.ctrl.DeleteChat(chatID); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Deleted %s\n", chatID)
		if sel := a.ctrl.Selection().ChatID; sel != "" {
			fmt.Fprintf(out, "Selected %s\n", sel)
		}
		return nil
	},
}

// displayChats prints the chat table. count returns the message count of a
// chat, or -1 when it cannot be read.
func displayChats(w io.Writer, namespace string, chats []internal.ChatSession, selected string, count func(string) int) {
	if len(chats) == 0 {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 No chats in %s", namespace)))
		fmt.Fprintln(w, idStyle.Render("💡 Tip: Create one with `ragchat chats new`"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 %d chat(s) in %s", len(chats), namespace)))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, " \t"+titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Created")+"\t")

	for _, chat := range chats {
		marker := " "
		name := chat.DisplayName
		if len(name) > 50 {
			name = name[:47] + "..."
		}
		if chat.ChatID == selected {
			marker = selectedStyle.Render("*")
			name = selectedStyle.Render(name)
		}

		msgCount := dateStyle.Render("?")
		if n := count(chat.ChatID); n >= 0 {
			msgCount = countStyle.Render(fmt.Sprint(n))
		}

		// Show short ID (first 8 chars) for readability
		shortID := chat.ChatID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", marker, idStyle.Render(shortID), name, msgCount, formatCreated(chat.CreatedAt, time.Now()))
	}
	_ = tw.Flush()
}

// formatCreated renders a creation time relative to now
func formatCreated(t, now time.Time) string {
	if t.IsZero() {
		return dateStyle.Render("—")
	}
	t = t.In(now.Location())
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return dateStyle.Render(t.Format("Today 15:04"))
	case diff < 7*24*time.Hour:
		return dateStyle.Render(t.Format("Mon 15:04"))
	case diff < 365*24*time.Hour:
		return dateStyle.Render(t.Format("Jan 02 15:04"))
	default:
		return dateStyle.Render(t.Format("2006-01-02"))
	}
}

func init() {
	rootCmd.AddCommand(chatsCmd)
	chatsCmd.AddCommand(chatsNewCmd, chatsUseCmd, chatsRenameCmd, chatsDeleteCmd)
}
