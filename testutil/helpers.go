package testutil

import (
	"testing"
)

// CreateTempDir creates a temporary directory removed after the test
func CreateTempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}
