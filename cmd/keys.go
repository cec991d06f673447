package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/iksnae/ragchat/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// credentialKeys lists the credentials in display order
var credentialKeys = []string{
	internal.KeyOpenAIAPIKey,
	internal.KeyPineconeAPIKey,
	internal.KeyPineconeEnvironment,
	internal.KeyPineconeIndexName,
}

// secretKeys are masked when displayed
var secretKeys = map[string]bool{
	internal.KeyOpenAIAPIKey:   true,
	internal.KeyPineconeAPIKey: true,
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the credentials used to call the backend",
	Long: `Manage the four credentials the backend needs: the answering-service API
key and the search-service API key, environment and index name.

Credentials are stored in the config file with owner-only permissions.
Flags and RAGCHAT_* environment variables take precedence over stored values.`,
}

var keysSetCmd = &cobra.Command{
	Use:       "set <name> <value>",
	Short:     "Store a credential in the config file",
	Args:      cobra.ExactArgs(2),
	ValidArgs: credentialKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, value := strings.ToLower(args[0]), strings.TrimSpace(args[1])
		if !contains(credentialKeys, name) {
			return fmt.Errorf("unknown credential %q (one of: %s)", name, strings.Join(credentialKeys, ", "))
		}
		if value == "" {
			return fmt.Errorf("value for %s must not be empty", name)
		}

		path, err := writeConfigValue(name, value)
		if err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Stored %s in %s", name, path))
		return nil
	},
}

var keysUnsetCmd = &cobra.Command{
	Use:   "unset <name>",
	Short: "Remove a credential from the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		if !contains(credentialKeys, name) {
			return fmt.Errorf("unknown credential %q (one of: %s)", name, strings.Join(credentialKeys, ", "))
		}
		path, err := writeConfigValue(name, "")
		if err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Removed %s from %s", name, path))
		return nil
	},
}

var keysStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		for _, name := range credentialKeys {
			value := config.GetString(name)
			status := successStyle.Render("set")
			if strings.TrimSpace(value) == "" {
				status = errorStyle.Render("missing")
			} else if secretKeys[name] {
				value = internal.Mask(value)
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t\n", name, status, value)
		}
		_ = tw.Flush()

		if missing := credentialSource().Get().Missing(); len(missing) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %d credential(s) missing; questions cannot be answered", len(missing))))
		}
		return nil
	},
}

// writeConfigValue sets key in the config file, removing it when value is
// empty, and returns the file path. Only the file's own settings are
// written back; flags and environment are not persisted.
func writeConfigValue(key, value string) (string, error) {
	path := configFile
	if path == "" {
		path = dataPaths.ConfigFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if fileExists(path) {
		if err := file.ReadInConfig(); err != nil {
			return "", fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	settings := file.AllSettings()
	if value == "" {
		delete(settings, key)
	} else {
		settings[key] = value
	}

	out := viper.New()
	out.SetConfigType("yaml")
	for k, v := range settings {
		out.Set(k, v)
	}
	if err := out.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return "", fmt.Errorf("failed to restrict config permissions: %w", err)
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSetCmd, keysUnsetCmd, keysStatusCmd)
}
