package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/ragchat/internal"
	"github.com/spf13/cobra"
)

var namespacesRefresh bool

var namespacesCmd = &cobra.Command{
	Use:     "namespaces",
	Aliases: []string{"ns"},
	Short:   "List the namespaces of the search index",
	Long: `List the namespaces of the search index. The list is cached in the
data directory; use --refresh to fetch it again. When the config sets a
fixed 'namespaces' list, that list is shown instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if namespacesRefresh {
			a.refreshNamespaces()
		}

		var namespaces []string
		err = internal.ShowProgress(commandContext(cmd), "Fetching namespaces", func() error {
			var fetchErr error
			namespaces, fetchErr = a.ctrl.Namespaces(commandContext(cmd))
			return fetchErr
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(namespaces) == 0 {
			fmt.Fprintln(out, headerStyle.Render("📚 No namespaces found"))
			return nil
		}

		selected := a.ctrl.Selection().Namespace
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📚 %d namespace(s)", len(namespaces))))
		for _, ns := range namespaces {
			if ns == selected {
				fmt.Fprintf(out, "%s %s\n", selectedStyle.Render("*"), selectedStyle.Render(ns))
			} else {
				fmt.Fprintf(out, "  %s\n", ns)
			}
		}
		return nil
	},
}

var namespacesUseCmd = &cobra.Command{
	Use:   "use <namespace>",
	Short: "Select a namespace",
	Long: `Select a namespace. Its first chat becomes the selected chat; a namespace
without chats leaves no chat selected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ns := args[0]
		known, err := a.ctrl.Namespaces(commandContext(cmd))
		if err != nil {
			internal.LogWarn("Could not verify namespace %s: %v", ns, err)
		} else if !contains(known, ns) {
			return fmt.Errorf("unknown namespace %q (run 'ragchat namespaces' to list them)", ns)
		}

		if err := a.ctrl.SelectNamespace(ns); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Selected namespace %s\n", ns)
		if chatID := a.ctrl.Selection().ChatID; chatID != "" {
			fmt.Fprintf(out, "Selected chat %s\n", chatID)
		} else {
			fmt.Fprintln(out, idStyle.Render("No chats yet; `ragchat chats new` or `ragchat ask` creates one"))
		}
		return nil
	},
}

// commandContext returns the command's context, or Background when run
// outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
	namespacesCmd.AddCommand(namespacesUseCmd)
	namespacesCmd.Flags().BoolVar(&namespacesRefresh, "refresh", false, "Ignore the cached namespace list")
}
