package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), append([]string{"quire"}, args...),
		WithStdout(&out), WithLogger(testutil.Logger()))
	return out.String(), err
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	corpus := t.TempDir()
	testutil.WritePDF(t, filepath.Join(corpus, "alpha.pdf"), "orbital mechanics basics", "delta v budgets")
	testutil.WritePDF(t, filepath.Join(corpus, "beta.pdf"), "thermal control systems")
	return corpus
}

func TestIngestCommand_SummaryAndRerun(t *testing.T) {
	corpus := writeCorpus(t)
	dbPath := filepath.Join(t.TempDir(), "quire.db")

	out, err := runCLI(t, "ingest", corpus, dbPath)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	want := "Discovered PDFs: 2\nIngested new: 2\nUpdated changed: 0\nSkipped unchanged: 0\nFailed: 0\n"
	if out != want {
		t.Errorf("output =\n%s\nwant\n%s", out, want)
	}

	out, err = runCLI(t, "ingest", corpus, dbPath)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	want = "Discovered PDFs: 2\nIngested new: 0\nUpdated changed: 0\nSkipped unchanged: 2\nFailed: 0\n"
	if out != want {
		t.Errorf("rerun output =\n%s\nwant\n%s", out, want)
	}
}

func TestIngestCommand_MissingSourceDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "quire.db")

	out, err := runCLI(t, "ingest", filepath.Join(t.TempDir(), "absent"), dbPath)
	if err == nil {
		t.Fatal("expected error for missing source dir")
	}
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("error = %v, want invalid argument", err)
	}
	if out != "" {
		t.Errorf("no summary expected before failure, got %q", out)
	}
}

func TestIngestCommand_FailedFilesReturnError(t *testing.T) {
	corpus := t.TempDir()
	testutil.WritePDF(t, filepath.Join(corpus, "good.pdf"), "usable document")
	if err := os.WriteFile(filepath.Join(corpus, "bad.pdf"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write bad.pdf: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "quire.db")

	out, err := runCLI(t, "ingest", corpus, dbPath)
	if err == nil {
		t.Fatal("failed files must produce a non-nil error")
	}
	if !strings.Contains(out, "Failed: 1") {
		t.Errorf("summary must still print, got:\n%s", out)
	}
	if !strings.Contains(out, "Ingested new: 1") {
		t.Errorf("good file must be ingested despite the bad one, got:\n%s", out)
	}
}

func TestIngestCommand_UsageError(t *testing.T) {
	_, err := runCLI(t, "ingest", "only-one-arg")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("error = %v, want invalid argument", err)
	}
}

func TestSearchCommand_PrintsRankedHits(t *testing.T) {
	corpus := writeCorpus(t)
	dbPath := filepath.Join(t.TempDir(), "quire.db")
	if _, err := runCLI(t, "ingest", corpus, dbPath); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out, err := runCLI(t, "search", dbPath, "orbital mechanics")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want hit line plus snippet line:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "1. alpha.pdf:p1 score=") {
		t.Errorf("hit line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  ") || !strings.Contains(lines[1], "orbital mechanics") {
		t.Errorf("snippet line = %q", lines[1])
	}
}

func TestSearchCommand_TopK(t *testing.T) {
	corpus := writeCorpus(t)
	dbPath := filepath.Join(t.TempDir(), "quire.db")
	if _, err := runCLI(t, "ingest", corpus, dbPath); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// "basics" and "budgets" both live in alpha.pdf, one page each.
	out, err := runCLI(t, "search", "--top-k", "1", dbPath, "basics budgets")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("top-k 1 must yield exactly one hit, got:\n%s", out)
	}
}

func TestSearchCommand_NoResults(t *testing.T) {
	corpus := writeCorpus(t)
	dbPath := filepath.Join(t.TempDir(), "quire.db")
	if _, err := runCLI(t, "ingest", corpus, dbPath); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out, err := runCLI(t, "search", dbPath, "zzzqx")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out != "No results.\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSearchCommand_MissingDatabase(t *testing.T) {
	_, err := runCLI(t, "search", filepath.Join(t.TempDir(), "none.db"), "query")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("error = %v, want invalid argument", err)
	}
}

func TestSearchCommand_DirectoryAsDatabase(t *testing.T) {
	_, err := runCLI(t, "search", t.TempDir(), "query")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("error = %v, want invalid argument", err)
	}
}

func TestFetchCommand_Summary(t *testing.T) {
	const pdfBody = "%PDF-1.4 catalog file"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = fmt.Fprint(w, `<html><a href="/pubs/a.pdf">a</a></html>`)
		case "/pubs/a.pdf":
			w.Header().Set("ETag", `"v1"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			if r.Method == http.MethodHead {
				return
			}
			_, _ = fmt.Fprint(w, pdfBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	destDir := t.TempDir()
	out, err := runCLI(t, "fetch", "--catalog-url", srv.URL+"/", "--delay", "1ms", destDir)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := fmt.Sprintf(
		"Discovered PDFs: 1\nDownloaded: 1\nUpdated: 0\nSkipped: 0\nFailed: 0\nMetadata: %s\n",
		filepath.Join(destDir, ".metadata.json"))
	if out != want {
		t.Errorf("output =\n%s\nwant\n%s", out, want)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "a.pdf"))
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != pdfBody {
		t.Errorf("downloaded content = %q", data)
	}
}

func TestFetchCommand_UsageError(t *testing.T) {
	_, err := runCLI(t, "fetch")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("error = %v, want invalid argument", err)
	}
}
