package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/ragchat/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
	healthcheckOffline bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckTimeout bounds the backend probe
const healthcheckTimeout = 10 * time.Second

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:     "healthcheck",
	Aliases: []string{"doctor"},
	Short:   "Check that ragchat is configured and can reach its backend",
	Long: `Check the health of ragchat by verifying:
  • Data directory detection
  • Config file and local database access
  • Credential completeness
  • Backend reachability (skipped with --offline)

This command is useful for debugging setup issues, especially in CI/CD environments.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failures := 0

		fmt.Fprintln(out, sectionStyle.Render("🔍 ragchat Health Check"))
		fmt.Fprintln(out)

		// Step 1: data directory
		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking data directory..."))
		if err := dataPaths.EnsureBase(); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Data directory is not writable:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Data directory available"))
		detail(out, "Base path: %s", dataPaths.BasePath)
		if used := config.ConfigFileUsed(); used != "" && fileExists(used) {
			detail(out, "Config file: %s", used)
		} else {
			detail(out, "Config file: none (using flags and environment)")
		}
		fmt.Fprintln(out)

		// Step 2: database
		fmt.Fprintln(out, infoStyle.Render("Step 2: Opening local database..."))
		if err := checkDatabase(out); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open database:"), err)
			failures++
		}
		fmt.Fprintln(out)

		// Step 3: credentials
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking credentials..."))
		creds := credentialSource().Get()
		missing := creds.Missing()
		if len(missing) == 0 {
			fmt.Fprintln(out, successStyle.Render("✅ All credentials configured"))
		} else {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ Missing %d credential(s)", len(missing))))
			for _, name := range missing {
				fmt.Fprintf(out, "   • %s\n", name)
			}
			failures++
		}
		detail(out, "%s: %s", internal.KeyOpenAIAPIKey, internal.Mask(creds.OpenAIAPIKey))
		detail(out, "%s: %s", internal.KeyPineconeAPIKey, internal.Mask(creds.PineconeAPIKey))
		detail(out, "%s: %s", internal.KeyPineconeEnvironment, creds.PineconeEnvironment)
		detail(out, "%s: %s", internal.KeyPineconeIndexName, creds.PineconeIndexName)
		fmt.Fprintln(out)

		// Step 4: backend
		fmt.Fprintln(out, infoStyle.Render("Step 4: Contacting backend..."))
		endpoint := config.GetString(keyEndpoint)
		detail(out, "Endpoint: %s", endpoint)
		switch {
		case healthcheckOffline:
			fmt.Fprintln(out, warningStyle.Render("⚠️  Skipped (--offline)"))
		case len(missing) > 0:
			fmt.Fprintln(out, warningStyle.Render("⚠️  Skipped (credentials incomplete)"))
		default:
			ctx, cancel := context.WithTimeout(commandContext(cmd), healthcheckTimeout)
			namespaces, err := internal.NewBackendClient(endpoint, internal.WithHTTPClient(newHTTPClient(healthcheckTimeout))).
				ListNamespaces(ctx, creds)
			cancel()
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Backend unreachable:"), err)
				failures++
			} else {
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Backend reachable, %d namespace(s)", len(namespaces))))
			}
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if failures > 0 {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ Health check failed (%d problem(s))", failures)))
			if internal.IsCIEnvironment() {
				fmt.Fprintln(out, "Note: in CI, credentials are usually provided through RAGCHAT_* environment variables.")
			}
			return fmt.Errorf("health check failed: %d problem(s)", failures)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

// checkDatabase opens the database and reports the persisted selection
func checkDatabase(out io.Writer) error {
	existed := dataPaths.DatabaseExists()
	db, err := internal.OpenDatabase(dataPaths.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if existed {
		fmt.Fprintln(out, successStyle.Render("✅ Database opened"))
	} else {
		fmt.Fprintln(out, successStyle.Render("✅ Database created"))
	}
	detail(out, "Database: %s", dataPaths.DatabasePath)

	registry := internal.NewRegistry(db)
	sel, err := registry.Selection()
	if err != nil {
		return err
	}
	if sel.Namespace == "" {
		detail(out, "Selected namespace: none")
		return nil
	}
	chats, err := registry.FilteredChats(sel.Namespace)
	if err != nil {
		return err
	}
	detail(out, "Selected namespace: %s (%d chat(s))", sel.Namespace, len(chats))
	return nil
}

func detail(out io.Writer, format string, args ...interface{}) {
	if healthcheckDetails {
		fmt.Fprintf(out, "   "+format+"\n", args...)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
	healthcheckCmd.Flags().BoolVar(&healthcheckOffline, "offline", false, "Skip the backend probe")
}
