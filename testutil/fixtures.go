package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

// CreateSQLiteFixture creates a SQLite file that is not a chat database,
// with a single unrelated table
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS unrelated (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
}

// CreateCacheFixture creates a cache file fixture
func CreateCacheFixture(t *testing.T, cachePath string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("Failed to create cache directory: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		t.Fatalf("Failed to write cache file: %v", err)
	}
}

// CreateConfigFixture writes values as a YAML config file under dir and
// returns its path
func CreateConfigFixture(t *testing.T, dir string, values map[string]any) string {
	t.Helper()
	data, err := yaml.Marshal(values)
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	CreateCacheFixture(t, path, data)
	return path
}

// CreateDataDir creates an empty data directory for a test run
func CreateDataDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(CreateTempDir(t), "ragchat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create data directory: %v", err)
	}
	return dir
}
