// Package keyword implements a BM25 (Okapi) index over chunk documents. The
// index is rebuilt wholesale from the chunk cache on every ingestion run and
// serialized to a single JSON file, so it never drifts from the cached corpus.
package keyword

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Index is a BM25 keyword index. Positions in the internal slices line up with
// the ids slice: document i has id ids[i].
type Index struct {
	ids       []string
	docLens   []int
	termFreqs []map[string]int
	docFreq   map[string]int
	avgDocLen float64
	k1        float64
	b         float64
}

// ScoredID pairs a chunk id with its relevance score.
type ScoredID struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Tokenize splits text into lowercased whitespace-delimited terms. The same
// function is used for indexing and for queries so terms always agree.
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// Build constructs an index from pre-tokenized documents. docs[i] is the token
// stream of the document whose id is ids[i].
func Build(docs [][]string, ids []string) (*Index, error) {
	if len(docs) != len(ids) {
		return nil, fmt.Errorf("got %d documents but %d ids", len(docs), len(ids))
	}

	idx := &Index{
		ids:       ids,
		docLens:   make([]int, len(docs)),
		termFreqs: make([]map[string]int, len(docs)),
		docFreq:   make(map[string]int),
		k1:        defaultK1,
		b:         defaultB,
	}

	totalLen := 0
	for i, doc := range docs {
		tf := make(map[string]int, len(doc))
		for _, term := range doc {
			tf[term]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(doc)
		totalLen += len(doc)
		for term := range tf {
			idx.docFreq[term]++
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	return idx, nil
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// ChunkIDs returns the ids of all indexed documents in index order.
func (idx *Index) ChunkIDs() []string {
	out := make([]string, len(idx.ids))
	copy(out, idx.ids)
	return out
}

// Scores computes the BM25 score of every document against the query tokens.
// The result is aligned with ChunkIDs.
func (idx *Index) Scores(query []string) []float64 {
	scores := make([]float64, len(idx.ids))
	n := float64(len(idx.ids))
	if n == 0 {
		return scores
	}

	for _, term := range query {
		df, ok := idx.docFreq[term]
		if !ok {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)

		for i := range idx.ids {
			tf := float64(idx.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			lenNorm := 1 - idx.b + idx.b*float64(idx.docLens[i])/idx.avgDocLen
			scores[i] += idf * tf * (idx.k1 + 1) / (tf + idx.k1*lenNorm)
		}
	}

	return scores
}

// TopK returns the k highest-scoring documents for the query, best first.
// Documents scoring zero are excluded. Ties keep index order.
func (idx *Index) TopK(query []string, k int) []ScoredID {
	scores := idx.Scores(query)

	var scored []ScoredID
	for i, s := range scores {
		if s > 0 {
			scored = append(scored, ScoredID{ChunkID: idx.ids[i], Score: s})
		}
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

type indexFile struct {
	IDs       []string         `json:"ids"`
	DocLens   []int            `json:"doc_lens"`
	TermFreqs []map[string]int `json:"term_freqs"`
	DocFreq   map[string]int   `json:"doc_freq"`
	AvgDocLen float64          `json:"avg_doc_len"`
	K1        float64          `json:"k1"`
	B         float64          `json:"b"`
}

// Save writes the index to path atomically.
func (idx *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create keyword index directory: %w", err)
	}

	data, err := json.Marshal(indexFile{
		IDs:       idx.ids,
		DocLens:   idx.docLens,
		TermFreqs: idx.termFreqs,
		DocFreq:   idx.docFreq,
		AvgDocLen: idx.avgDocLen,
		K1:        idx.k1,
		B:         idx.b,
	})
	if err != nil {
		return fmt.Errorf("failed to encode keyword index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".keyword-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads an index from path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword index: %w", err)
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode keyword index: %w", err)
	}
	if len(file.IDs) != len(file.DocLens) || len(file.IDs) != len(file.TermFreqs) {
		return nil, fmt.Errorf("keyword index is inconsistent")
	}

	idx := &Index{
		ids:       file.IDs,
		docLens:   file.DocLens,
		termFreqs: file.TermFreqs,
		docFreq:   file.DocFreq,
		avgDocLen: file.AvgDocLen,
		k1:        file.K1,
		b:         file.B,
	}
	if idx.docFreq == nil {
		idx.docFreq = make(map[string]int)
	}
	if idx.k1 == 0 {
		idx.k1 = defaultK1
	}
	if idx.b == 0 {
		idx.b = defaultB
	}
	return idx, nil
}
