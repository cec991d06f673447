package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/ragchat/internal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose     bool
	dataDir     string
	configFile  string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	// dataPaths is resolved before every command runs
	dataPaths internal.DataPaths

	// config holds flags, RAGCHAT_* environment variables and the config
	// file, in that order of precedence
	config = viper.New()
)

// Config keys that are not credentials
const (
	keyEndpoint     = "endpoint"
	keyTemperature  = "temperature"
	keySources      = "return-source-documents"
	keyNamespaces   = "namespaces"
	keyNamespaceTTL = "namespace-ttl"
	keyRateLimit    = "rate-limit"
	keyTimeout      = "timeout"
	keyLogLevel     = "log-level"
	keyLogFormat    = "log-format"
	keyLogFile      = "log-file"
	keyWithCaller   = "with-caller"
	keyCancelSwitch = "cancel-on-switch"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Chat with your documents through a retrieval-augmented backend",
	Long: `A terminal client for a retrieval-augmented chat service.

Questions are answered from documents indexed in a vector search service.
Documents are grouped into namespaces; every chat belongs to one namespace
and keeps its own conversation history locally.

Features:
  • Browse the namespaces of your search index
  • Keep several chats per namespace, each with its own history
  • Ask one-off questions or hold an interactive conversation
  • Show the source passages an answer was built from
  • Export conversations (JSONL, Markdown, YAML, JSON)

Quick Start:
  ragchat keys set openai-api-key sk-...   # Store credentials
  ragchat namespaces                       # List namespaces
  ragchat namespaces use handbook          # Pick a namespace
  ragchat ask "How many vacation days?"    # Ask a question
  ragchat chat                             # Interactive session

Credentials and settings may also come from RAGCHAT_* environment variables
(for example RAGCHAT_OPENAI_API_KEY) or from config.yaml in the data directory.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		paths, err := internal.DetectDataPaths(dataDir)
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		dataPaths = paths
		if err := loadConfig(cmd, paths); err != nil {
			return err
		}
		return initLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

// loadConfig rebuilds the viper instance for one invocation
func loadConfig(cmd *cobra.Command, paths internal.DataPaths) error {
	config = viper.New()
	config.SetEnvPrefix("ragchat")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()

	config.SetDefault(keyEndpoint, internal.DefaultEndpoint)
	config.SetDefault(keyTemperature, internal.DefaultTemperature)
	config.SetDefault(keyNamespaceTTL, internal.DefaultNamespaceTTL)
	config.SetDefault(keyTimeout, internal.DefaultTimeout)
	config.SetDefault(keyLogLevel, "warn")
	config.SetDefault(keyLogFormat, "text")

	file := configFile
	if file == "" {
		file = paths.ConfigFile
	}
	config.SetConfigFile(file)
	config.SetConfigType("yaml")
	if err := config.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("failed to read config %s: %w", file, err)
			}
		}
	}

	if err := config.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	return config.BindPFlags(cmd.Flags())
}

func initLogger() error {
	level := config.GetString(keyLogLevel)
	if verbose {
		level = "debug"
	}

	err := internal.InitLogger(internal.LogConfig{
		Level:      level,
		Format:     config.GetString(keyLogFormat),
		File:       config.GetString(keyLogFile),
		WithCaller: config.GetBool(keyWithCaller),
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("config", config.ConfigFileUsed()).
		Str("endpoint", config.GetString(keyEndpoint)).
		Msg("Loaded configuration")
	return nil
}

// credentialSource reads the four credentials from configuration on every call
func credentialSource() internal.CredentialSource {
	return internal.CredentialSourceFunc(func() internal.Credentials {
		return internal.Credentials{
			OpenAIAPIKey:        config.GetString(internal.KeyOpenAIAPIKey),
			PineconeAPIKey:      config.GetString(internal.KeyPineconeAPIKey),
			PineconeEnvironment: config.GetString(internal.KeyPineconeEnvironment),
			PineconeIndexName:   config.GetString(internal.KeyPineconeIndexName),
		}
	})
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&dataDir, "data-dir", "", "Custom data location (directory or path to a .db file)")
	flags.StringVar(&configFile, "config", "", "Config file (default: config.yaml in the data directory)")

	flags.String(keyEndpoint, internal.DefaultEndpoint, "Base URL of the chat backend")
	flags.String(keyLogLevel, "warn", "Log level (debug, info, warn, error)")
	flags.String(keyLogFormat, "text", "Log format (text, json)")
	flags.String(keyLogFile, "", "Also write logs to this file (rotated)")
	flags.Bool(keyWithCaller, false, "Include caller in log lines")

	flags.String(internal.KeyOpenAIAPIKey, "", "Answering service API key")
	flags.String(internal.KeyPineconeAPIKey, "", "Search service API key")
	flags.String(internal.KeyPineconeEnvironment, "", "Search service environment")
	flags.String(internal.KeyPineconeIndexName, "", "Search index name")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
