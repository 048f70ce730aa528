// Package docservice coordinates store, search, and ingest operations for
// the HTTP and MCP surfaces.
package docservice

import (
	"context"
	"sync"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/ingest"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/search"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/store"
)

// CorpusStats summarizes the stored corpus.
type CorpusStats struct {
	Documents int `json:"documents"`
	Pages     int `json:"pages"`
}

// Service coordinates document store and ingestion operations.
type Service struct {
	store        store.Corpus
	runner       *ingest.Runner
	broker       *sse.Broker
	sourceDir    string
	snippetChars int

	// Serializes triggered reingest runs.
	ingestMu sync.Mutex
}

// NewService creates a document service. sourceDir may be empty when the
// service is read-only; Reingest then rejects requests without an explicit
// directory. broker may be nil when no event stream is attached.
func NewService(st store.Corpus, runner *ingest.Runner, broker *sse.Broker, sourceDir string, snippetChars int) *Service {
	if snippetChars <= 0 {
		snippetChars = search.DefaultSnippetChars
	}
	return &Service{
		store:        st,
		runner:       runner,
		broker:       broker,
		sourceDir:    sourceDir,
		snippetChars: snippetChars,
	}
}

// Search ranks the stored pages against query and returns at most topK hits.
func (s *Service) Search(_ context.Context, query string, topK int) ([]search.Hit, error) {
	hits, err := search.Query(s.store, query, topK, s.snippetChars)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(hits), nil
}

// ListDocuments returns all tracked documents.
func (s *Service) ListDocuments(_ context.Context) ([]models.Document, error) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(docs), nil
}

// GetDocument returns one document by id.
func (s *Service) GetDocument(_ context.Context, docID int64) (*models.Document, error) {
	return s.store.GetDocument(docID)
}

// GetPage returns one stored page.
func (s *Service) GetPage(_ context.Context, docID int64, pageIndex int) (*models.Page, error) {
	if pageIndex < 0 {
		return nil, apperr.InvalidArgumentf("page index must not be negative, got %d", pageIndex)
	}
	return s.store.GetPage(docID, pageIndex)
}

// DocumentFilePath resolves the on-disk path of a document's source PDF.
func (s *Service) DocumentFilePath(_ context.Context, docID int64) (string, error) {
	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return "", err
	}
	return doc.Path, nil
}

// Reingest runs one ingestion pass over sourceDir, or over the configured
// corpus directory when sourceDir is empty. Runs are serialized; a second
// trigger waits for the first to finish.
func (s *Service) Reingest(ctx context.Context, sourceDir string) (models.IngestStats, error) {
	if sourceDir == "" {
		sourceDir = s.sourceDir
	}
	if sourceDir == "" {
		return models.IngestStats{}, apperr.InvalidArgumentf("no corpus directory configured")
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if s.broker != nil {
		s.broker.Publish(sse.Event{Type: "ingest.started", Data: map[string]string{"source_dir": sourceDir}})
	}
	stats, err := s.runner.Run(ctx, sourceDir)
	if err == nil && s.broker != nil {
		s.broker.Publish(sse.Event{Type: "ingest.finished", Data: stats})
	}
	return stats, err
}

// nonNilSlice keeps JSON responses as [] instead of null.
func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Stats reports document and page counts.
func (s *Service) Stats(_ context.Context) (CorpusStats, error) {
	docs, err := s.store.CountDocuments()
	if err != nil {
		return CorpusStats{}, err
	}
	pages, err := s.store.CountPages()
	if err != nil {
		return CorpusStats{}, err
	}
	return CorpusStats{Documents: docs, Pages: pages}, nil
}
