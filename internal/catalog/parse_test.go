package catalog

import (
	"net/url"
	"reflect"
	"testing"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestExtractEmbeddedRows(t *testing.T) {
	page := `<html><script>var table = {"columns":[],"data":[` +
		`["1","<a href=\"/pubs/a.pdf\">A</a>","cell [with] brackets"],` +
		`["2","<a href=\"/pubs/b.pdf\">B</a>","plain"]` +
		`]};</script></html>`

	rows := extractEmbeddedRows(page)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][2] != "cell [with] brackets" {
		t.Errorf("cell = %q, brackets inside strings must not end the scan", rows[0][2])
	}
	if rows[1][1] != `<a href="/pubs/b.pdf">B</a>` {
		t.Errorf("cell = %q", rows[1][1])
	}
}

func TestExtractEmbeddedRows_NoData(t *testing.T) {
	if rows := extractEmbeddedRows("<html>no table here</html>"); rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}

func TestExtractEmbeddedRows_MalformedJSON(t *testing.T) {
	if rows := extractEmbeddedRows(`{"data":[["unterminated]}`); rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}

func TestParseSnippet(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		wantText string
		wantHref string
	}{
		{
			name:     "anchor with entity",
			fragment: `<a href="/pubs/131x0b5.pdf">Blue&nbsp;Book</a>`,
			wantText: "Blue Book",
			wantHref: "/pubs/131x0b5.pdf",
		},
		{
			name:     "first of several anchors wins",
			fragment: `<a href="/x.pdf">X</a> <a href="/y.pdf">Y</a>`,
			wantText: "X Y",
			wantHref: "/x.pdf",
		},
		{
			name:     "plain text",
			fragment: "  TM Synchronization   and Channel Coding ",
			wantText: "TM Synchronization and Channel Coding",
			wantHref: "",
		},
		{
			name:     "ampersand entity",
			fragment: "Tracking &amp; Data",
			wantText: "Tracking & Data",
			wantHref: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, href := parseSnippet(tt.fragment)
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if href != tt.wantHref {
				t.Errorf("href = %q, want %q", href, tt.wantHref)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"131x0b5.pdf", "131x0b5.pdf"},
		{"CCSDS 131.0-B-5.pdf", "CCSDS_131.0-B-5.pdf"},
		{"..leading-dots.pdf", "leading-dots.pdf"},
		{"trailing_.", "trailing"},
		{"", "document.pdf"},
		{"éé", "document.pdf"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilenameForURL(t *testing.T) {
	tests := []struct {
		url   string
		index int
		want  string
	}{
		{"https://ccsds.org/pubs/131x0b5.pdf", 1, "131x0b5.pdf"},
		{"https://ccsds.org/pubs/", 3, "document_3.pdf"},
		{"https://ccsds.org/pubs/A.PDF", 1, "A.PDF"},
		{"https://ccsds.org/pubs/my%20doc.pdf", 1, "my_doc.pdf"},
		{"https://ccsds.org/pubs/notes", 1, "notes.pdf"},
	}
	for _, tt := range tests {
		if got := filenameForURL(tt.url, tt.index); got != tt.want {
			t.Errorf("filenameForURL(%q, %d) = %q, want %q", tt.url, tt.index, got, tt.want)
		}
	}
}

func TestFilenameMapForURLs(t *testing.T) {
	urls := []string{
		"https://ccsds.org/a/doc.pdf",
		"https://ccsds.org/b/doc.pdf",
		"https://ccsds.org/c/other.pdf",
	}
	mapping := filenameMapForURLs(urls)

	if mapping[urls[0]] != "doc.pdf" {
		t.Errorf("first name = %q, want doc.pdf", mapping[urls[0]])
	}
	if mapping[urls[1]] == "doc.pdf" {
		t.Errorf("colliding URL must get a suffixed name, got %q", mapping[urls[1]])
	}
	if mapping[urls[2]] != "other.pdf" {
		t.Errorf("third name = %q, want other.pdf", mapping[urls[2]])
	}

	// Deterministic across runs.
	again := filenameMapForURLs(urls)
	if !reflect.DeepEqual(mapping, again) {
		t.Errorf("mapping not deterministic: %v vs %v", mapping, again)
	}

	seen := map[string]bool{}
	for _, name := range mapping {
		if seen[name] {
			t.Errorf("duplicate assigned name %q", name)
		}
		seen[name] = true
	}
}

func TestIsAllowedPDFURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://ccsds.org/pubs/a.pdf", true},
		{"http://ccsds.org/pubs/a.pdf", true},
		{"https://public.ccsds.org/pubs/a.pdf", true},
		{"https://ccsds.org/pubs/A.PDF", true},
		{"https://example.org/pubs/a.pdf", false},
		{"https://notccsds.org/pubs/a.pdf", false},
		{"ftp://ccsds.org/pubs/a.pdf", false},
		{"https://ccsds.org/pubs/index.html", false},
		{"https://ccsds.org/pubs/", false},
	}
	for _, tt := range tests {
		if got := isAllowedPDFURL(tt.url, "ccsds.org"); got != tt.want {
			t.Errorf("isAllowedPDFURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestPublicationsFromRows(t *testing.T) {
	base := mustParseURL(t, "https://ccsds.org/publications/ccsdsallpubs/")
	rows := [][]string{
		{
			"1",
			`<a href="/pubs/131x0b5.pdf">131.0-B-5</a>`,
			`<a href="/entry/131">CCSDS 131.0-B-5</a>`,
			"TM Synchronization &amp; Channel Coding",
			"Blue Book",
			"Issue 5",
			"September 2023",
			`<div>Recommended <b>standard</b></div>`,
			`<a href="/wg/coding">Coding WG</a>`,
			`<a href="/iso/22645">ISO Equivalent : ISO 22645</a>`,
		},
		// Too short, dropped.
		{"2", `<a href="/pubs/short.pdf">x</a>`},
		// Off-site link, dropped.
		{
			"3",
			`<a href="https://example.org/other.pdf">other</a>`,
			"", "", "", "", "", "", "", "",
		},
	}

	pubs := publicationsFromRows(rows, base)
	if len(pubs) != 1 {
		t.Fatalf("publications = %d, want 1", len(pubs))
	}
	pub, ok := pubs["https://ccsds.org/pubs/131x0b5.pdf"]
	if !ok {
		t.Fatalf("missing expected publication, got %v", pubs)
	}
	if pub.File != "131.0-B-5" {
		t.Errorf("file = %q", pub.File)
	}
	if pub.DocumentNumber != "CCSDS 131.0-B-5" {
		t.Errorf("document number = %q", pub.DocumentNumber)
	}
	if pub.DocumentTitle != "TM Synchronization & Channel Coding" {
		t.Errorf("title = %q", pub.DocumentTitle)
	}
	if pub.BookType != "Blue Book" {
		t.Errorf("book type = %q", pub.BookType)
	}
	if pub.Description != "Recommended standard" {
		t.Errorf("description = %q", pub.Description)
	}
	if pub.ISOEquivalent != "ISO 22645" {
		t.Errorf("iso equivalent = %q, prefix must be stripped", pub.ISOEquivalent)
	}
	if pub.WorkingGroupURL != "https://ccsds.org/wg/coding" {
		t.Errorf("working group url = %q", pub.WorkingGroupURL)
	}
	if pub.EntryURL != "https://ccsds.org/entry/131" {
		t.Errorf("entry url = %q", pub.EntryURL)
	}
}

func TestPublicationsFromLinks(t *testing.T) {
	base := mustParseURL(t, "https://ccsds.org/publications/ccsdsallpubs/")
	page := `<html><body>
		<a href="/pubs/b.pdf">B</a>
		<a href="/pubs/a.pdf">A</a>
		<a href="/pubs/a.pdf">A again</a>
		<a href="https://example.org/off-site.pdf">off-site</a>
		<a href="/about.html">about</a>
		<script>var x = "https:\/\/ccsds.org\/pubs\/escaped.pdf";</script>
	</body></html>`

	pubs := publicationsFromLinks(page, base)

	want := []string{
		"https://ccsds.org/pubs/a.pdf",
		"https://ccsds.org/pubs/b.pdf",
		"https://ccsds.org/pubs/escaped.pdf",
	}
	if len(pubs) != len(want) {
		t.Fatalf("publications = %d, want %d: %v", len(pubs), len(want), pubs)
	}
	for _, u := range want {
		pub, ok := pubs[u]
		if !ok {
			t.Errorf("missing %s", u)
			continue
		}
		if pub.FileURL != u {
			t.Errorf("file url = %q, want %q", pub.FileURL, u)
		}
		if pub.File == "" {
			t.Errorf("empty filename for %s", u)
		}
	}
}
