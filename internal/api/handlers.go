package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/quire/internal/docservice"
)

// defaultTopK bounds search responses when the client does not ask for a size.
const defaultTopK = 10

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docID extracts and parses the {docID} URL parameter.
func docID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "docID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Search handles GET /api/v1/search.
//
//	@Summary		Ranked full-text search across stored pages
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			top_k	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))
	if topK <= 0 {
		topK = defaultTopK
	}
	results, err := h.svc.Search(r.Context(), q, topK)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// ListDocuments handles GET /api/v1/documents.
//
//	@Summary		List all tracked documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetDocument handles GET /api/v1/documents/{docID}.
//
//	@Summary		Get a single document by id
//	@Tags			documents
//	@Produce		json
//	@Param			docID	path		int	true	"Document id"
//	@Success		200		{object}	Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{docID} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := docID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("document id must be an integer"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetPage handles GET /api/v1/documents/{docID}/pages/{pageIndex}.
//
//	@Summary		Get one stored page of a document
//	@Tags			documents
//	@Produce		json
//	@Param			docID		path		int	true	"Document id"
//	@Param			pageIndex	path		int	true	"Zero-based page index"
//	@Success		200			{object}	PageResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{docID}/pages/{pageIndex} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, err := docID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("document id must be an integer"))
		return
	}
	pageIndex, err := strconv.Atoi(chi.URLParam(r, "pageIndex"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("page index must be an integer"))
		return
	}
	page, err := h.svc.GetPage(r.Context(), id, pageIndex)
	if err != nil {
		writeError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// TriggerIngest handles POST /api/v1/ingest.
//
//	@Summary		Run one ingest pass over the corpus directory
//	@Tags			ingest
//	@Accept			json
//	@Produce		json
//	@Param			body	body		IngestRequest	false	"Optional source directory override"
//	@Success		200		{object}	IngestResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ingest [post]
func (h *Handler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	stats, err := h.svc.Reingest(r.Context(), req.SourceDir)
	if err != nil {
		writeError(w, "ingest", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Stats handles GET /api/v1/stats.
//
//	@Summary		Corpus document and page totals
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
