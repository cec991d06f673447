package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/ragchat/internal"
	"github.com/iksnae/ragchat/internal/session"
	"github.com/spf13/cobra"
)

var askSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask a question in the selected chat",
	Long: `Ask a single question in the selected chat and print the answer.

The question and answer are appended to the chat's conversation, and the
chat's earlier questions and answers are sent along as context. When the
selected namespace has no chat yet, one is created.`,
	Example: `  ragchat ask "How many vacation days do I get?"
  ragchat ask --sources --temperature 0.2 What is the travel policy`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.requireNamespace(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if a.ctrl.Selection().ChatID == "" {
			chat, err := a.ctrl.CreateChat()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, idStyle.Render(fmt.Sprintf("Started %s (%s)", chat.DisplayName, chat.ChatID)))
		}
		if askSources {
			a.ctrl.SetReturnSourceDocuments(true)
		}

		question := strings.Join(args, " ")
		var turn *session.Turn
		err = internal.ShowProgress(commandContext(cmd), "Waiting for the answer", func() error {
			var submitErr error
			turn, submitErr = a.ctrl.Submit(commandContext(cmd), question)
			return submitErr
		})
		if err != nil {
			return explainSubmitError(err)
		}

		displayMessage(out, 0, turn.Answer, 0, a.ctrl.ReturnSourceDocuments())
		if !turn.Applied {
			internal.PrintWarning("The chat was deleted while waiting; the answer was not saved")
		}
		return nil
	},
}

// explainSubmitError adds a hint to errors the user can fix
func explainSubmitError(err error) error {
	var missing *internal.MissingCredentialsError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w (set them with 'ragchat keys set <name> <value>' or RAGCHAT_* environment variables)", err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "Request and show the source documents of the answer")
	askCmd.Flags().Float64(keyTemperature, internal.DefaultTemperature, "Model temperature between 0 and 1")
}
