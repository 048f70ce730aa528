package api

import (
	"github.com/starford/quire/internal/docservice"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/search"
)

// SearchHit is a single ranked page in a search response (aliased from the
// domain layer).
type SearchHit = search.Hit

// SearchResponse wraps ranked search results.
type SearchResponse struct {
	Results []SearchHit `json:"results" validate:"required"`
}

// Document is the stored document response type (aliased from the domain layer).
type Document = models.Document

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []Document `json:"documents" validate:"required"`
	Total     int        `json:"total" example:"42" validate:"required"`
}

// PageResponse is one stored page of a document.
type PageResponse struct {
	DocID     int64  `json:"doc_id" example:"7" validate:"required"`
	PageIndex int    `json:"page_index" example:"0" validate:"required"`
	Text      string `json:"text" example:"Normalized page text" validate:"required"`
}

// IngestRequest is the optional request body for triggering an ingest run.
type IngestRequest struct {
	SourceDir string `json:"source_dir,omitempty" example:"/data/corpus"`
}

// IngestResponse reports the counters of a completed ingest run (aliased
// from the domain layer).
type IngestResponse = models.IngestStats

// StatsResponse reports corpus totals (aliased from the domain layer).
type StatsResponse = docservice.CorpusStats
