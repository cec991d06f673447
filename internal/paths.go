package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DataPaths holds the locations ragchat reads and writes
type DataPaths struct {
	BasePath     string // data directory
	DatabasePath string // chat registry and conversations
	CacheDir     string // namespace cache
	ConfigFile   string // default config file
}

// DetectDataPaths resolves the data directory. A non-empty custom path
// overrides the per-OS default; if it names a .db file, that file is used
// as the database.
func DetectDataPaths(custom string) (DataPaths, error) {
	if custom != "" {
		return pathsFromCustom(custom)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return DataPaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	var basePath string
	switch runtime.GOOS {
	case "darwin":
		basePath = filepath.Join(home, "Library/Application Support/ragchat")
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			basePath = filepath.Join(xdg, "ragchat")
		} else {
			basePath = filepath.Join(home, ".ragchat")
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			basePath = filepath.Join(appData, "ragchat")
		} else {
			basePath = filepath.Join(home, ".ragchat")
		}
	default:
		basePath = filepath.Join(home, ".ragchat")
	}

	return newDataPaths(basePath, ""), nil
}

func pathsFromCustom(custom string) (DataPaths, error) {
	abs, err := filepath.Abs(custom)
	if err != nil {
		return DataPaths{}, fmt.Errorf("failed to resolve path %s: %w", custom, err)
	}
	if filepath.Ext(abs) == ".db" {
		return newDataPaths(filepath.Dir(abs), abs), nil
	}
	return newDataPaths(abs, ""), nil
}

func newDataPaths(basePath, dbPath string) DataPaths {
	if dbPath == "" {
		dbPath = filepath.Join(basePath, "ragchat.db")
	}
	return DataPaths{
		BasePath:     basePath,
		DatabasePath: dbPath,
		CacheDir:     filepath.Join(basePath, "cache"),
		ConfigFile:   filepath.Join(basePath, "config.yaml"),
	}
}

// DatabaseExists checks if the database file exists
func (dp DataPaths) DatabaseExists() bool {
	_, err := os.Stat(dp.DatabasePath)
	return err == nil
}

// EnsureBase creates the data directory
func (dp DataPaths) EnsureBase() error {
	return os.MkdirAll(dp.BasePath, 0755)
}

// IsCIEnvironment reports whether ragchat runs under a CI system
func IsCIEnvironment() bool {
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL"} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
