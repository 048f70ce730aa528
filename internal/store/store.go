// Package store provides the SQLite-backed document store: per-page text
// keyed by document, with digest-based change tracking.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/quire/internal/models"
)

// Corpus defines the store operations consumers depend on.
// Consumers should accept this interface rather than the concrete *Store.
type Corpus interface {
	LoadExisting(path string) (*models.Document, error)
	WriteDocument(path, filename, digest string, pages []string, existing *models.Document) (WriteOutcome, error)
	LoadAllPages() ([]models.PageRow, error)
	ListDocuments() ([]models.Document, error)
	GetDocument(docID int64) (*models.Document, error)
	GetPage(docID int64, pageIndex int) (*models.Page, error)
	CountDocuments() (int, error)
	CountPages() (int, error)
	Close() error
}

// Verify *Store satisfies Corpus at compile time.
var _ Corpus = (*Store)(nil)

// Store wraps a sql.DB with document store operations.
type Store struct {
	conn *sql.DB
	log  *slog.Logger
}

// Open opens (or creates) the SQLite database at path and applies the schema.
// Safe to call on every startup.
func Open(path string, logger *slog.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	logger.Debug("store opened", "path", path)
	return &Store{conn: conn, log: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
