package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// WriteOutcome reports whether WriteDocument created or replaced a document.
type WriteOutcome int

const (
	WriteInserted WriteOutcome = iota
	WriteUpdated
)

const documentColumns = `doc_id, path, filename, sha256, page_count, ingested_at`

func scanDocument(row *sql.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.DocID, &d.Path, &d.Filename, &d.SHA256, &d.PageCount, &d.IngestedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadExisting returns the document tracked at path, or nil when none exists.
func (s *Store) LoadExisting(path string) (*models.Document, error) {
	row := s.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load existing %s: %w", path, err)
	}
	return d, nil
}

// WriteDocument stores a document and its full page set in one transaction.
// With existing == nil it inserts a new document row; otherwise it overwrites
// the document's mutable fields, deletes every stored page, and reinserts the
// new set, so page indices stay contiguous from zero. Any failure rolls the
// whole document back.
func (s *Store) WriteDocument(path, filename, digest string, pages []string, existing *models.Document) (WriteOutcome, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	ingestedAt := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)

	var docID int64
	outcome := WriteInserted
	if existing == nil {
		res, err := tx.Exec(`
			INSERT INTO documents (path, filename, sha256, page_count, ingested_at)
			VALUES (?, ?, ?, ?, ?)
		`, path, filename, digest, len(pages), ingestedAt)
		if err != nil {
			return 0, fmt.Errorf("store: insert document %s: %w", path, err)
		}
		docID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("store: document id %s: %w", path, err)
		}
	} else {
		outcome = WriteUpdated
		docID = existing.DocID
		_, err := tx.Exec(`
			UPDATE documents
			SET filename = ?, sha256 = ?, page_count = ?, ingested_at = ?
			WHERE doc_id = ?
		`, filename, digest, len(pages), ingestedAt, docID)
		if err != nil {
			return 0, fmt.Errorf("store: update document %s: %w", path, err)
		}
		if _, err := tx.Exec(`DELETE FROM pages WHERE doc_id = ?`, docID); err != nil {
			return 0, fmt.Errorf("store: clear pages %s: %w", path, err)
		}
	}

	if len(pages) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO pages (doc_id, page_index, text) VALUES (?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("store: prepare page insert: %w", err)
		}
		defer stmt.Close()
		for i, text := range pages {
			if _, err := stmt.Exec(docID, i, text); err != nil {
				return 0, fmt.Errorf("store: insert page %d of %s: %w", i, path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit %s: %w", path, err)
	}
	return outcome, nil
}

// LoadAllPages returns every stored page joined with its document fields,
// ordered by filename, page index, then path so downstream ranking ties
// break the same way on every run.
func (s *Store) LoadAllPages() ([]models.PageRow, error) {
	rows, err := s.conn.Query(`
		SELECT d.filename, d.path, p.page_index, p.text
		FROM pages p
		JOIN documents d ON d.doc_id = p.doc_id
		ORDER BY d.filename ASC, p.page_index ASC, d.path ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: load pages: %w", err)
	}
	defer rows.Close()

	var out []models.PageRow
	for rows.Next() {
		var r models.PageRow
		if err := rows.Scan(&r.Filename, &r.Path, &r.PageIndex, &r.Text); err != nil {
			return nil, fmt.Errorf("store: scan page row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDocuments returns all tracked documents ordered by filename then path.
func (s *Store) ListDocuments() ([]models.Document, error) {
	rows, err := s.conn.Query(`SELECT ` + documentColumns + ` FROM documents ORDER BY filename ASC, path ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.DocID, &d.Path, &d.Filename, &d.SHA256, &d.PageCount, &d.IngestedAt); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDocument returns one document by id, or apperr.ErrNotFound.
func (s *Store) GetDocument(docID int64) (*models.Document, error) {
	row := s.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE doc_id = ?`, docID)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: document %d: %w", docID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document %d: %w", docID, err)
	}
	return d, nil
}

// GetPage returns one stored page, or apperr.ErrNotFound.
func (s *Store) GetPage(docID int64, pageIndex int) (*models.Page, error) {
	var p models.Page
	err := s.conn.QueryRow(`
		SELECT doc_id, page_index, text FROM pages WHERE doc_id = ? AND page_index = ?
	`, docID, pageIndex).Scan(&p.DocID, &p.PageIndex, &p.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: page %d of document %d: %w", pageIndex, docID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get page: %w", err)
	}
	return &p, nil
}

// CountDocuments returns the number of tracked documents.
func (s *Store) CountDocuments() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count documents: %w", err)
	}
	return n, nil
}

// CountPages returns the number of stored pages.
func (s *Store) CountPages() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count pages: %w", err)
	}
	return n, nil
}
