// Package models defines the domain types for quire.
package models

// Document is one tracked PDF, keyed by its resolved absolute path.
type Document struct {
	DocID      int64  `json:"doc_id"`
	Path       string `json:"path"`
	Filename   string `json:"filename"`
	SHA256     string `json:"sha256"`
	PageCount  int    `json:"page_count"`
	IngestedAt string `json:"ingested_at"`
}

// Page is one stored page of a document, identified by (doc_id, page_index).
type Page struct {
	DocID     int64  `json:"doc_id"`
	PageIndex int    `json:"page_index"`
	Text      string `json:"text"`
}

// PageRow is the flattened row shape returned by the search read path:
// every stored page joined with its document's display fields.
type PageRow struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	PageIndex int    `json:"page_index"`
	Text      string `json:"text"`
}

// IngestStats accumulates counts for one ingestion run.
type IngestStats struct {
	Discovered int `json:"discovered"`
	Ingested   int `json:"ingested"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Total reports how many discovered files have been accounted for.
func (s IngestStats) Total() int {
	return s.Ingested + s.Updated + s.Skipped + s.Failed
}
