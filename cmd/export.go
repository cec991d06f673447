package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/iksnae/ragchat/internal"
	"github.com/iksnae/ragchat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	exportAll bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [chat-id]",
	Short: "Export conversations to file",
	Long: `Export chat conversations to various formats (jsonl, md, yaml, json).

Without arguments the selected chat is exported. Pass a chat id to export
another chat of the selected namespace, or --all to export every chat in it.
Use '--out -' to write to standard output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		var chatIDs []string
		switch {
		case exportAll:
			if _, err := a.requireNamespace(); err != nil {
				return err
			}
			for _, chat := range a.ctrl.Chats() {
				chatIDs = append(chatIDs, chat.ChatID)
			}
		case len(args) == 1:
			chatID, err := resolveChat(a.ctrl.Chats(), args[0])
			if err != nil {
				return err
			}
			chatIDs = []string{chatID}
		default:
			chatID := a.ctrl.Selection().ChatID
			if chatID == "" {
				return fmt.Errorf("no chat selected (pass a chat id or --all)")
			}
			chatIDs = []string{chatID}
		}

		if len(chatIDs) == 0 {
			internal.PrintInfo("Nothing to export")
			return nil
		}

		if outputDir == "-" {
			out := cmd.OutOrStdout()
			for _, id := range chatIDs {
				transcript, err := a.transcript(id)
				if err != nil {
					return err
				}
				if err := exporter.Export(transcript, out); err != nil {
					return &internal.ExportError{Format: exporter.Extension(), Path: "-", Err: err}
				}
			}
			return nil
		}

		exported := 0
		err = internal.ShowProgress(commandContext(cmd), fmt.Sprintf("Exporting %d chat(s) to %s", len(chatIDs), outputDir), func() error {
			for _, id := range chatIDs {
				transcript, err := a.transcript(id)
				if err != nil {
					internal.LogError("Failed to load chat %s: %v", id, err)
					continue
				}
				path := filepath.Join(outputDir, export.FileName(exporter, transcript))
				if err := export.ExportToFile(exporter, transcript, path); err != nil {
					internal.LogError("Failed to export chat %s: %v", id, err)
					continue
				}
				exported++
			}
			if exported == 0 {
				return fmt.Errorf("no chats were exported")
			}
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Export complete: %d chat(s) exported to %s\n", exported, outputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory, or - for standard output")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every chat in the selected namespace")
}
