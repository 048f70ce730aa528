package catalog

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// PDF URLs embedded in JSON carry escaped slashes (https:\/\/...).
	escapedPDFRe = regexp.MustCompile(`(?i)https:\\/\\/[^"'\s<>]+?\.pdf`)
	isoPrefixRe  = regexp.MustCompile(`^ISO Equivalent\s*:\s*`)
)

// extractEmbeddedRows pulls the DataTables row array out of the inline
// `"data":[...]` initializer on the catalog page. The array is located with a
// quote-aware bracket scan so brackets inside cell strings don't end it early.
func extractEmbeddedRows(page string) [][]string {
	const key = `"data":[`
	start := strings.Index(page, key)
	if start < 0 {
		return nil
	}
	i := start + len(key) - 1

	depth := 0
	inString := false
	escaping := false
	end := -1
scan:
	for pos := i; pos < len(page); pos++ {
		ch := page[pos]
		if inString {
			switch {
			case escaping:
				escaping = false
			case ch == '\\':
				escaping = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = pos + 1
				break scan
			}
		}
	}
	if end < 0 {
		return nil
	}

	var parsed []any
	if err := json.Unmarshal([]byte(page[i:end]), &parsed); err != nil {
		return nil
	}
	rows := make([][]string, 0, len(parsed))
	for _, row := range parsed {
		cells, ok := row.([]any)
		if !ok {
			continue
		}
		out := make([]string, len(cells))
		for j, cell := range cells {
			if s, ok := cell.(string); ok {
				out[j] = s
			} else {
				out[j] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, out)
	}
	return rows
}

// parseSnippet extracts the collapsed text and the first link target from an
// HTML table cell fragment.
func parseSnippet(fragment string) (text, href string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", ""
	}
	text = collapseSpace(doc.Text())
	if a := doc.Find("a[href]").First(); a.Length() > 0 {
		href, _ = a.Attr("href")
	}
	return text, href
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cellText unescapes and collapses a plain (non-HTML) table cell.
func cellText(s string) string {
	return collapseSpace(html.UnescapeString(s))
}

// isAllowedPDFURL accepts http(s) PDF links on the catalog's host or one of
// its subdomains. Everything else on the page (other sites, non-PDF paths)
// is ignored.
func isAllowedPDFURL(rawURL, allowedHost string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	allowedHost = strings.ToLower(allowedHost)
	if host != allowedHost && !strings.HasSuffix(host, "."+allowedHost) {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".pdf")
}

// resolveURL resolves href against base, returning "" when href is unusable.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// publicationsFromRows converts DataTables rows into publications keyed by
// file URL. Rows without a usable PDF link are dropped.
func publicationsFromRows(rows [][]string, base *url.URL) map[string]Publication {
	pubs := make(map[string]Publication)
	for _, row := range rows {
		if len(row) < 10 {
			continue
		}

		fileText, fileHref := parseSnippet(row[1])
		if fileHref == "" {
			continue
		}
		fileURL := resolveURL(base, fileHref)
		if !isAllowedPDFURL(fileURL, base.Hostname()) {
			continue
		}

		documentNumber, entryHref := parseSnippet(row[2])
		description, _ := parseSnippet(row[7])
		workingGroup, workingGroupHref := parseSnippet(row[8])
		isoEquivalent, isoHref := parseSnippet(row[9])
		isoEquivalent = strings.TrimSpace(isoPrefixRe.ReplaceAllString(isoEquivalent, ""))

		if fileText == "" {
			fileText = filenameForURL(fileURL, 1)
		}
		pub := Publication{
			File:           fileText,
			FileURL:        fileURL,
			DocumentNumber: documentNumber,
			DocumentTitle:  cellText(row[3]),
			BookType:       cellText(row[4]),
			IssueNumber:    cellText(row[5]),
			PublishedDate:  cellText(row[6]),
			Description:    description,
			WorkingGroup:   workingGroup,
			ISOEquivalent:  isoEquivalent,
		}
		if workingGroupHref != "" {
			pub.WorkingGroupURL = resolveURL(base, workingGroupHref)
		}
		if isoHref != "" {
			pub.ISOEquivalentURL = resolveURL(base, isoHref)
		}
		if entryHref != "" {
			pub.EntryURL = resolveURL(base, entryHref)
		}
		pubs[fileURL] = pub
	}
	return pubs
}

// publicationsFromLinks is the fallback when the page carries no embedded
// table: every anchor plus every JSON-escaped PDF URL in the raw page text.
func publicationsFromLinks(page string, base *url.URL) map[string]Publication {
	seen := make(map[string]struct{})

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if resolved := resolveURL(base, href); resolved != "" {
				seen[resolved] = struct{}{}
			}
		})
	}
	for _, m := range escapedPDFRe.FindAllString(page, -1) {
		seen[strings.ReplaceAll(m, `\/`, "/")] = struct{}{}
	}

	var urls []string
	for u := range seen {
		if isAllowedPDFURL(u, base.Hostname()) {
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)

	pubs := make(map[string]Publication, len(urls))
	for _, u := range urls {
		pubs[u] = Publication{
			File:    filenameForURL(u, 1),
			FileURL: u,
		}
	}
	return pubs
}
