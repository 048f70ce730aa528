package search

import "math"

// BM25 parameters, fixed for reproducible ranking.
const (
	bm25K1      = 1.5  // term frequency saturation
	bm25B       = 0.75 // document length normalization
	bm25Epsilon = 0.25 // floor factor for negative IDF values
)

// bm25Model holds corpus statistics for one ranking pass. IDF values for
// terms that appear in more than half the corpus come out negative from the
// probabilistic formula; those are floored to epsilon times the average IDF
// so common terms still contribute a small positive weight.
type bm25Model struct {
	freqs   []map[string]int
	docLens []int
	avgLen  float64
	idf     map[string]float64
}

func newBM25(docs [][]string) *bm25Model {
	m := &bm25Model{
		freqs:   make([]map[string]int, len(docs)),
		docLens: make([]int, len(docs)),
		idf:     make(map[string]float64),
	}

	df := make(map[string]int)
	total := 0
	for i, tokens := range docs {
		m.freqs[i] = termFrequency(tokens)
		m.docLens[i] = len(tokens)
		total += len(tokens)
		for term := range m.freqs[i] {
			df[term]++
		}
	}
	if len(docs) > 0 {
		m.avgLen = float64(total) / float64(len(docs))
	}

	n := float64(len(docs))
	var idfSum float64
	var negative []string
	for term, count := range df {
		idf := math.Log((n - float64(count) + 0.5) / (float64(count) + 0.5))
		m.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(m.idf) > 0 {
		eps := bm25Epsilon * idfSum / float64(len(m.idf))
		for _, term := range negative {
			m.idf[term] = eps
		}
	}
	return m
}

// scores computes the BM25 score of every document for the query terms.
// Terms absent from the corpus contribute nothing.
func (m *bm25Model) scores(query []string) []float64 {
	out := make([]float64, len(m.freqs))
	if m.avgLen == 0 {
		return out
	}
	for i := range m.freqs {
		var score float64
		norm := bm25K1 * (1 - bm25B + bm25B*float64(m.docLens[i])/m.avgLen)
		for _, term := range query {
			tf := float64(m.freqs[i][term])
			if tf == 0 {
				continue
			}
			score += m.idf[term] * (tf * (bm25K1 + 1)) / (tf + norm)
		}
		out[i] = score
	}
	return out
}
