// Package search ranks stored pages against a query with BM25 and builds
// display snippets. The ranking model is rebuilt from the store on every
// call; nothing is cached between queries.
package search

import (
	"sort"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// Document is one page of the in-memory ranking corpus.
type Document struct {
	Filename  string
	Path      string
	PageIndex int
	Text      string
	Tokens    []string
}

// Hit is one ranked search result.
type Hit struct {
	Rank      int     `json:"rank"`
	Filename  string  `json:"filename"`
	Path      string  `json:"path"`
	PageIndex int     `json:"page_index"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
}

// PageSource yields the full page corpus in stable order.
type PageSource interface {
	LoadAllPages() ([]models.PageRow, error)
}

// BuildCorpus tokenizes store rows into ranking documents, preserving the
// row order so positional tie-breaking is reproducible.
func BuildCorpus(rows []models.PageRow) []Document {
	corpus := make([]Document, 0, len(rows))
	for _, r := range rows {
		corpus = append(corpus, Document{
			Filename:  r.Filename,
			Path:      r.Path,
			PageIndex: r.PageIndex,
			Text:      r.Text,
			Tokens:    Tokenize(r.Text),
		})
	}
	return corpus
}

// Rank scores every corpus page against the query and returns at most topK
// hits. Pages scoring zero or below never appear. Ties are broken by
// filename, then page index, then path, then corpus position, so the order
// is fully deterministic. snippetChars of 0 means DefaultSnippetChars.
func Rank(corpus []Document, query string, topK, snippetChars int) ([]Hit, error) {
	if topK <= 0 {
		return nil, apperr.InvalidArgumentf("top-k must be greater than 0, got %d", topK)
	}
	if snippetChars == 0 {
		snippetChars = DefaultSnippetChars
	}
	if snippetChars < 1 {
		return nil, apperr.InvalidArgumentf("snippet width must be at least 1, got %d", snippetChars)
	}
	if len(corpus) == 0 {
		return nil, nil
	}
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	docTokens := make([][]string, len(corpus))
	for i := range corpus {
		docTokens[i] = corpus[i].Tokens
	}
	scores := newBM25(docTokens).scores(queryTokens)

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, 0, len(corpus))
	for i, score := range scores {
		if score > 0 {
			ranked = append(ranked, scored{index: i, score: score})
		}
	}
	sort.Slice(ranked, func(a, b int) bool {
		da, db := corpus[ranked[a].index], corpus[ranked[b].index]
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		if da.Filename != db.Filename {
			return da.Filename < db.Filename
		}
		if da.PageIndex != db.PageIndex {
			return da.PageIndex < db.PageIndex
		}
		if da.Path != db.Path {
			return da.Path < db.Path
		}
		return ranked[a].index < ranked[b].index
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	hits := make([]Hit, 0, len(ranked))
	for i, sc := range ranked {
		doc := corpus[sc.index]
		snippet, err := Snippet(doc.Text, snippetChars)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{
			Rank:      i + 1,
			Filename:  doc.Filename,
			Path:      doc.Path,
			PageIndex: doc.PageIndex,
			Score:     sc.score,
			Snippet:   snippet,
		})
	}
	return hits, nil
}

// Query loads the current corpus from src and ranks it against query.
func Query(src PageSource, query string, topK, snippetChars int) ([]Hit, error) {
	rows, err := src.LoadAllPages()
	if err != nil {
		return nil, err
	}
	return Rank(BuildCorpus(rows), query, topK, snippetChars)
}
