package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/quire/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /ingest/events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Search.
	r.Get("/search", h.Search)

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/{docID}", h.GetDocument)
	r.Get("/documents/{docID}/pages/{pageIndex}", h.GetPage)
	r.Get("/documents/{docID}/file", h.ServeDocumentFile)

	// Ingest trigger and corpus stats.
	r.Post("/ingest", h.TriggerIngest)
	r.Get("/stats", h.Stats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/ingest/events", sseHandler.ServeHTTP)
	}

	return r
}
