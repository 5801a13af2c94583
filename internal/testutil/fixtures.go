package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coral-mesh/skprof/internal/profiler/store"
)

// WriteScripts creates files below a new temporary directory and returns
// the directory. Keys are paths relative to it.
func WriteScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			t.Fatalf("failed to create script directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write script %s: %v", name, err)
		}
	}
	return dir
}

// NewTestStore opens a session store in a temporary file. It is closed when
// the test ends. The database path is returned so other components can
// reopen it.
func NewTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.duckdb")

	st, err := store.Open(NewTestContext(t), store.Config{Path: path}, NewTestLogger(t))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})
	return st, path
}
