package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/ragchat/internal"
	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	errorBannerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true)

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation in the selected chat.

Type a question and press Enter. Lines starting with / are commands; type
/help to list them. Ctrl+C cancels a pending question, Ctrl+D exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		view := &terminalView{out: out}
		a, err := openApp(view)
		if err != nil {
			return err
		}
		defer a.Close()

		line := liner.NewLiner()
		line.SetCtrlCAborts(true)
		historyFile := filepath.Join(dataPaths.BasePath, "chat_history")
		loadLineHistory(line, historyFile)
		defer func() {
			saveLineHistory(line, historyFile)
			line.Close()
		}()

		r := &chatREPL{app: a, out: out}
		r.printWelcome()

		for {
			input, err := line.Prompt(r.prompt())
			if err != nil {
				// Ctrl+C at the prompt, Ctrl+D or a closed stdin
				fmt.Fprintln(out)
				return nil
			}
			if strings.TrimSpace(input) != "" {
				line.AppendHistory(input)
			}
			if !r.handle(commandContext(cmd), input) {
				return nil
			}
		}
	},
}

// namespaceLoadingDelay is how long /ns waits before saying it is loading
const namespaceLoadingDelay = 200 * time.Millisecond

// terminalView reacts to controller callbacks in a line-oriented terminal
type terminalView struct {
	out io.Writer
}

// ClearInput is a no-op; liner starts every prompt empty
func (v *terminalView) ClearInput() {}

func (v *terminalView) ScrollToBottom() {
	fmt.Fprintln(v.out, ruleStyle.Render(strings.Repeat("─", 40)))
}

// chatREPL interprets one line of input at a time
type chatREPL struct {
	app *app
	out io.Writer
}

func (r *chatREPL) prompt() string {
	sel := r.app.ctrl.Selection()
	switch {
	case sel.Namespace == "":
		return "ragchat> "
	case sel.ChatID == "":
		return fmt.Sprintf("%s> ", sel.Namespace)
	default:
		return fmt.Sprintf("%s/%s> ", sel.Namespace, shortChatID(sel.ChatID))
	}
}

func (r *chatREPL) printWelcome() {
	fmt.Fprintln(r.out, headerStyle.Render("💬 ragchat"))
	sel := r.app.ctrl.Selection()
	if sel.Namespace == "" {
		fmt.Fprintln(r.out, idStyle.Render("No namespace selected. Use /ns to list them and /ns <name> to pick one."))
	} else if sel.ChatID != "" {
		r.showConversation()
	}
	if missing := r.app.ctrl.Credentials().Get().Missing(); len(missing) > 0 {
		fmt.Fprintln(r.out, errorBannerStyle.Render("Missing credentials: "+strings.Join(missing, ", ")))
	}
	fmt.Fprintln(r.out, idStyle.Render("Type /help for commands, Ctrl+D to exit."))
}

// handle processes one input line and reports whether to keep reading
func (r *chatREPL) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	if strings.HasPrefix(input, "/") {
		keep, err := r.command(ctx, input)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", errorBannerStyle.Render("[Error]"), err)
		}
		return keep
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return false
	}
	r.ask(ctx, input)
	return true
}

// ask submits a question; Ctrl+C cancels it without leaving the session
func (r *chatREPL) ask(ctx context.Context, question string) {
	ctrl := r.app.ctrl
	if ctrl.Selection().Namespace == "" {
		fmt.Fprintln(r.out, errorBannerStyle.Render("Select a namespace first (/ns <name>)"))
		return
	}
	if ctrl.Selection().ChatID == "" {
		chat, err := ctrl.CreateChat()
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", errorBannerStyle.Render("[Error]"), err)
			return
		}
		fmt.Fprintln(r.out, idStyle.Render(fmt.Sprintf("Started %s", chat.DisplayName)))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigs:
			ctrl.Cancel()
		case <-done:
		}
	}()

	turn, err := ctrl.Submit(ctx, question)
	switch {
	case err == nil:
		displayMessage(r.out, 0, turn.Answer, 0, ctrl.ReturnSourceDocuments())
		if !turn.Applied {
			fmt.Fprintln(r.out, idStyle.Render("The chat was deleted while waiting; the answer was not saved"))
		}
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.out, idStyle.Render("[Cancelled]"))
	case ctrl.Notice() != "":
		fmt.Fprintln(r.out, idStyle.Render(ctrl.Notice()))
	default:
		fmt.Fprintln(r.out, errorBannerStyle.Render(explainSubmitError(err).Error()))
	}
}

func (r *chatREPL) command(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	name := strings.ToLower(parts[0])
	args := parts[1:]
	ctrl := r.app.ctrl

	switch name {
	case "/help", "/h", "/?", "/":
		r.printHelp()

	case "/quit", "/q", "/exit":
		return false, nil

	case "/ns", "/namespaces":
		if len(args) == 0 {
			return true, r.listNamespaces(ctx)
		}
		if err := ctrl.SelectNamespace(args[0]); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, idStyle.Render("Namespace "+args[0]))
		r.showConversation()

	case "/new":
		chat, err := ctrl.CreateChat()
		if err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, idStyle.Render(fmt.Sprintf("Started %s (%s)", chat.DisplayName, chat.ChatID)))
		r.showConversation()

	case "/chats":
		sel := ctrl.Selection()
		if sel.Namespace == "" {
			return true, fmt.Errorf("no namespace selected")
		}
		displayChats(r.out, sel.Namespace, ctrl.Chats(), sel.ChatID, func(string) int { return -1 })

	case "/use":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: /use <chat-id>")
		}
		chatID, err := resolveChat(ctrl.Chats(), args[0])
		if err != nil {
			return true, err
		}
		if err := ctrl.SelectChat(chatID); err != nil {
			return true, err
		}
		r.showConversation()

	case "/rename":
		chatID := ctrl.Selection().ChatID
		if chatID == "" {
			return true, internal.ErrNoChatSelected
		}
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /rename <name>")
		}
		return true, ctrl.RenameChat(chatID, strings.Join(args, " "))

	case "/delete", "/rm":
		chatID := ctrl.Selection().ChatID
		if len(args) == 1 {
			resolved, err := resolveChat(ctrl.Chats(), args[0])
			if err != nil {
				return true, err
			}
			chatID = resolved
		}
		if chatID == "" {
			return true, internal.ErrNoChatSelected
		}
		if err := ctrl.DeleteChat(chatID); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, idStyle.Render("Deleted "+chatID))
		r.showConversation()

	case "/show":
		r.showConversation()

	case "/refresh":
		r.app.refreshNamespaces()
		if err := ctrl.RefreshChats(); err != nil {
			return true, err
		}
		ctrl.Reload()
		fmt.Fprintln(r.out, idStyle.Render("Reloaded chats and namespaces"))
		r.showConversation()

	case "/temp", "/temperature":
		if len(args) == 0 {
			fmt.Fprintf(r.out, "Temperature: %.2f\n", ctrl.Temperature())
			return true, nil
		}
		t, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return true, fmt.Errorf("invalid temperature %q", args[0])
		}
		return true, ctrl.SetTemperature(t)

	case "/sources":
		on := !ctrl.ReturnSourceDocuments()
		if len(args) == 1 {
			switch strings.ToLower(args[0]) {
			case "on", "true", "yes":
				on = true
			case "off", "false", "no":
				on = false
			default:
				return true, fmt.Errorf("usage: /sources [on|off]")
			}
		}
		ctrl.SetReturnSourceDocuments(on)
		fmt.Fprintf(r.out, "Source documents: %v\n", on)

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", name)
	}
	return true, nil
}

func (r *chatREPL) listNamespaces(ctx context.Context) error {
	type listing struct {
		names []string
		err   error
	}
	fetched := make(chan listing, 1)
	go func() {
		names, err := r.app.ctrl.Namespaces(ctx)
		fetched <- listing{names, err}
	}()

	var res listing
	select {
	case res = <-fetched:
	case <-time.After(namespaceLoadingDelay):
		if r.app.ctrl.NamespacesLoading() {
			fmt.Fprintln(r.out, idStyle.Render("Loading namespaces..."))
		}
		res = <-fetched
	}
	if res.err != nil {
		return res.err
	}
	namespaces := res.names
	selected := r.app.ctrl.Selection().Namespace
	for _, ns := range namespaces {
		marker := " "
		if ns == selected {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %s\n", marker, ns)
	}
	return nil
}

// showConversation prints the selected chat, or why it cannot be shown
func (r *chatREPL) showConversation() {
	ctrl := r.app.ctrl
	sel := ctrl.Selection()
	if sel.ChatID == "" {
		if sel.Namespace != "" {
			fmt.Fprintln(r.out, idStyle.Render("No chats in "+sel.Namespace+"; ask a question or /new to start one"))
		}
		return
	}
	if err := ctrl.LoadError(); err != nil {
		fmt.Fprintln(r.out, errorBannerStyle.Render(err.Error()))
		return
	}
	conv := ctrl.Conversation()
	total := len(conv.Messages)
	for i, msg := range conv.Messages {
		displayMessage(r.out, i+1, msg, total, ctrl.ReturnSourceDocuments())
	}
	if ctrl.Busy() {
		fmt.Fprintln(r.out, idStyle.Render("Waiting for the answer..."))
	}
	if banner := ctrl.Error(); banner != "" {
		fmt.Fprintln(r.out, errorBannerStyle.Render(banner))
	}
}

func (r *chatREPL) printHelp() {
	commands := []struct{ cmd, desc string }{
		{"/ns [name]", "List namespaces, or select one"},
		{"/chats", "List chats in the namespace"},
		{"/new", "Start a new chat"},
		{"/use <id>", "Switch to another chat"},
		{"/rename <name>", "Rename the current chat"},
		{"/delete [id]", "Delete a chat (default: current)"},
		{"/show", "Show the current conversation"},
		{"/refresh", "Re-read chats, namespaces and the conversation"},
		{"/temp [value]", "Show or set the model temperature"},
		{"/sources [on|off]", "Toggle source documents"},
		{"/quit", "Exit"},
	}
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %-20s %s\n", titleStyle.Render(c.cmd), c.desc)
	}
}

func shortChatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func loadLineHistory(line *liner.State, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Failed to read input history")
	}
}

func saveLineHistory(line *liner.State, path string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Failed to save input history")
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Failed to save input history")
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
