package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iksnae/ragchat/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(transcript *internal.Transcript, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}

// FileName returns the default file name for a transcript
func FileName(e Exporter, transcript *internal.Transcript) string {
	return fmt.Sprintf("chat_%s.%s", transcript.Chat.ChatID, e.Extension())
}

// ExportToFile writes transcript to path, creating parent directories
func ExportToFile(e Exporter, transcript *internal.Transcript, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}

	if err := e.Export(transcript, f); err != nil {
		_ = f.Close()
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	return nil
}
