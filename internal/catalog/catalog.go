// Package catalog discovers publication PDFs on a catalog web page and mirrors
// them into a local corpus directory. Downloads are rate limited, resumable
// across runs via a metadata sidecar, and skipped when the remote validators
// (ETag, Last-Modified, Content-Length) still match.
package catalog

// Publication is one catalog entry extracted from the publications table.
type Publication struct {
	File             string `json:"file"`
	FileURL          string `json:"file_url"`
	DocumentNumber   string `json:"document_number"`
	DocumentTitle    string `json:"document_title"`
	IssueNumber      string `json:"issue_number"`
	PublishedDate    string `json:"published_date"`
	Description      string `json:"description"`
	BookType         string `json:"book_type"`
	WorkingGroup     string `json:"working_group"`
	WorkingGroupURL  string `json:"working_group_url,omitempty"`
	ISOEquivalent    string `json:"iso_equivalent"`
	ISOEquivalentURL string `json:"iso_equivalent_url,omitempty"`
	EntryURL         string `json:"entry_url,omitempty"`
}

// MetadataRecord is what the sidecar remembers about one downloaded file so a
// later run can decide whether the remote copy changed.
type MetadataRecord struct {
	Filename      string      `json:"filename"`
	ETag          string      `json:"etag"`
	LastModified  string      `json:"last_modified"`
	ContentLength int64       `json:"content_length"`
	Publication   Publication `json:"publication"`
}

// FetchStats accumulates counts for one mirror run.
type FetchStats struct {
	Discovered int `json:"discovered"`
	Downloaded int `json:"downloaded"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}
