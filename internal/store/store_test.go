package store

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/quire/internal/apperr"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")
	s, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSchemaCreation(t *testing.T) {
	s := testStore(t)
	var count int
	if err := s.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := s.conn.QueryRow(`SELECT count(*) FROM pages`).Scan(&count); err != nil {
		t.Fatalf("pages table missing: %v", err)
	}
}

func TestSchemaIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(path, log)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s.WriteDocument("/a.pdf", "a.pdf", "d1", []string{"text"}, nil); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	s.Close()

	s, err = Open(path, log)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s.Close()
	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document to survive reopen, got %d", len(docs))
	}
}

func TestWriteDocumentInsert(t *testing.T) {
	s := testStore(t)
	outcome, err := s.WriteDocument("/corpus/a.pdf", "a.pdf", "digest-a", []string{"page zero", "page one"}, nil)
	if err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if outcome != WriteInserted {
		t.Fatalf("outcome = %v, want WriteInserted", outcome)
	}

	doc, err := s.LoadExisting("/corpus/a.pdf")
	if err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	if doc == nil {
		t.Fatal("document not found after insert")
	}
	if doc.SHA256 != "digest-a" || doc.PageCount != 2 || doc.Filename != "a.pdf" {
		t.Errorf("stored document = %+v", doc)
	}

	ts, err := time.Parse(time.RFC3339, doc.IngestedAt)
	if err != nil {
		t.Fatalf("ingested_at %q not RFC3339: %v", doc.IngestedAt, err)
	}
	if ts.Nanosecond() != 0 {
		t.Errorf("ingested_at has sub-second precision: %q", doc.IngestedAt)
	}
	if doc.IngestedAt[len(doc.IngestedAt)-1] != 'Z' {
		t.Errorf("ingested_at %q should be UTC with Z suffix", doc.IngestedAt)
	}
}

func TestWriteDocumentUpdateReplacesPages(t *testing.T) {
	s := testStore(t)
	if _, err := s.WriteDocument("/corpus/a.pdf", "a.pdf", "v1", []string{"p0", "p1", "p2"}, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	existing, err := s.LoadExisting("/corpus/a.pdf")
	if err != nil || existing == nil {
		t.Fatalf("LoadExisting: %v, %v", existing, err)
	}

	outcome, err := s.WriteDocument("/corpus/a.pdf", "a.pdf", "v2", []string{"only page"}, existing)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if outcome != WriteUpdated {
		t.Fatalf("outcome = %v, want WriteUpdated", outcome)
	}

	rows, err := s.LoadAllPages()
	if err != nil {
		t.Fatalf("LoadAllPages: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 page after shrinking update, got %d", len(rows))
	}
	if rows[0].Text != "only page" || rows[0].PageIndex != 0 {
		t.Errorf("surviving page = %+v", rows[0])
	}

	doc, _ := s.LoadExisting("/corpus/a.pdf")
	if doc.SHA256 != "v2" || doc.PageCount != 1 {
		t.Errorf("document after update = %+v", doc)
	}
	if doc.DocID != existing.DocID {
		t.Errorf("doc_id changed on update: %d -> %d", existing.DocID, doc.DocID)
	}
}

func TestLoadExistingAbsent(t *testing.T) {
	s := testStore(t)
	doc, err := s.LoadExisting("/nope.pdf")
	if err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil for absent path, got %+v", doc)
	}
}

func TestLoadAllPagesOrdering(t *testing.T) {
	s := testStore(t)
	// Insert out of filename order to prove the query sorts.
	if _, err := s.WriteDocument("/x/bravo.pdf", "bravo.pdf", "d2", []string{"b0", "b1"}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteDocument("/x/alpha.pdf", "alpha.pdf", "d1", []string{"a0"}, nil); err != nil {
		t.Fatal(err)
	}

	rows, err := s.LoadAllPages()
	if err != nil {
		t.Fatalf("LoadAllPages: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(rows))
	}
	wantOrder := []struct {
		filename string
		index    int
	}{
		{"alpha.pdf", 0},
		{"bravo.pdf", 0},
		{"bravo.pdf", 1},
	}
	for i, want := range wantOrder {
		if rows[i].Filename != want.filename || rows[i].PageIndex != want.index {
			t.Errorf("row %d = %s:%d, want %s:%d", i, rows[i].Filename, rows[i].PageIndex, want.filename, want.index)
		}
	}
}

func TestCascadeDelete(t *testing.T) {
	s := testStore(t)
	if _, err := s.WriteDocument("/corpus/gone.pdf", "gone.pdf", "d", []string{"p0", "p1"}, nil); err != nil {
		t.Fatal(err)
	}
	doc, _ := s.LoadExisting("/corpus/gone.pdf")

	if _, err := s.conn.Exec(`DELETE FROM documents WHERE doc_id = ?`, doc.DocID); err != nil {
		t.Fatalf("delete document: %v", err)
	}
	n, err := s.CountPages()
	if err != nil {
		t.Fatalf("CountPages: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected cascade to remove pages, %d remain", n)
	}
}

func TestGetDocumentAndPage(t *testing.T) {
	s := testStore(t)
	if _, err := s.WriteDocument("/corpus/a.pdf", "a.pdf", "d", []string{"hello world"}, nil); err != nil {
		t.Fatal(err)
	}
	doc, _ := s.LoadExisting("/corpus/a.pdf")

	got, err := s.GetDocument(doc.DocID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Path != "/corpus/a.pdf" {
		t.Errorf("GetDocument path = %q", got.Path)
	}

	page, err := s.GetPage(doc.DocID, 0)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.Text != "hello world" {
		t.Errorf("page text = %q", page.Text)
	}

	if _, err := s.GetDocument(9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetDocument(9999) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetPage(doc.DocID, 5); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetPage missing index error = %v, want ErrNotFound", err)
	}
}

func TestCounts(t *testing.T) {
	s := testStore(t)
	if _, err := s.WriteDocument("/a.pdf", "a.pdf", "d1", []string{"x", "y"}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteDocument("/b.pdf", "b.pdf", "d2", []string{"z"}, nil); err != nil {
		t.Fatal(err)
	}
	docs, err := s.CountDocuments()
	if err != nil {
		t.Fatal(err)
	}
	pages, err := s.CountPages()
	if err != nil {
		t.Fatal(err)
	}
	if docs != 2 || pages != 3 {
		t.Fatalf("counts = %d docs, %d pages, want 2, 3", docs, pages)
	}
}
