package api

import (
	"net/http"
	"os"
	"strconv"
)

// ServeDocumentFile handles GET /api/v1/documents/{docID}/file and streams
// the original PDF from its recorded path. Documents whose source file has
// moved or been deleted since ingestion return 404.
//
//	@Summary		Download the original PDF of a document
//	@Tags			documents
//	@Produce		application/pdf
//	@Param			docID	path	int	true	"Document id"
//	@Success		200		{file}	binary
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{docID}/file [get]
func (h *Handler) ServeDocumentFile(w http.ResponseWriter, r *http.Request) {
	id, err := docID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("document id must be an integer"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, "serve document file", err)
		return
	}
	if _, statErr := os.Stat(doc.Path); statErr != nil {
		writeJSON(w, http.StatusNotFound, errorBody("source file no longer on disk"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(doc.Filename))
	http.ServeFile(w, r, doc.Path)
}
