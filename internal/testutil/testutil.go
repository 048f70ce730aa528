// Package testutil provides shared test helpers for corpora and stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/store"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quire-test.db")
	s, err := store.Open(path, Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStoreAt creates a store at an explicit path, cleaned up with the test.
func TestStoreAt(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path, Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// WritePDF writes a minimal valid PDF with one page per text argument.
func WritePDF(t *testing.T, path string, pages ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, PDFBytes(pages...), 0o644); err != nil {
		t.Fatal(err)
	}
}
