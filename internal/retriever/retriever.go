// Package retriever implements hybrid search over an ingested corpus: semantic
// ranking from the vector store and BM25 keyword ranking, fused with reciprocal
// rank fusion.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"storyweaver/internal/chunk"
	"storyweaver/internal/contextutil"
	"storyweaver/internal/keyword"
	"storyweaver/internal/registry"
	"storyweaver/internal/vectorstore"
)

// rrfK dampens the contribution of lower ranks during fusion.
const rrfK = 60

// ErrCorpusNotReady is returned when a corpus is registered but its indexes
// are incomplete.
var ErrCorpusNotReady = errors.New("corpus indexes are not ready")

// Result is one retrieved chunk with its fused relevance score.
type Result struct {
	ChunkID  string  `json:"chunk_id"`
	Score    float64 `json:"score"`
	BaseText string  `json:"base_text"`
	Context  string  `json:"context,omitempty"`
}

// Embedder produces the query embedding.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Retriever performs hybrid search against registered corpora. Keyword indexes
// are cached in memory and reloaded when the file on disk changes, so a
// rebuild by the ingestion tool is picked up without a restart.
type Retriever struct {
	registry *registry.Registry
	vectors  vectorstore.VectorStore
	embedder Embedder
	topK     int

	mu      sync.Mutex
	indexes map[string]*cachedIndex
}

type cachedIndex struct {
	index   *keyword.Index
	modTime time.Time
}

// New creates a Retriever. topK bounds both per-signal candidate lists and the
// fused result list.
func New(reg *registry.Registry, vectors vectorstore.VectorStore, embedder Embedder, topK int) *Retriever {
	return &Retriever{
		registry: reg,
		vectors:  vectors,
		embedder: embedder,
		topK:     topK,
		indexes:  make(map[string]*cachedIndex),
	}
}

// Search runs hybrid retrieval for a query against one corpus. An empty or
// whitespace-only query returns no results without touching the backends.
func (r *Retriever) Search(ctx context.Context, corpusName, query string) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	cfg, err := r.registry.GetActive(ctx, corpusName)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	status, err := r.registry.Status(ctx, corpusName)
	if err != nil {
		return nil, err
	}
	if status.NeedsRebuild {
		return nil, fmt.Errorf("%w: %s missing %s", ErrCorpusNotReady, corpusName, strings.Join(status.MissingComponents, ", "))
	}

	semantic, err := r.semanticRanking(ctx, cfg.CollectionName, query)
	if err != nil {
		return nil, err
	}

	lexical, err := r.keywordRanking(cfg.KeywordIndexPath, query)
	if err != nil {
		return nil, err
	}

	fused := fuse([][]string{semantic, lexical})
	if len(fused) > r.topK {
		fused = fused[:r.topK]
	}

	store, err := chunk.NewStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		c, err := store.Get(f.ChunkID)
		if err != nil {
			// A ranked id with no cache entry means the indexes are ahead of
			// the cache; drop it rather than fail the whole search.
			logger.WarnContext(ctx, "ranked chunk missing from cache",
				slog.String("corpus", corpusName),
				slog.String("chunk_id", f.ChunkID),
			)
			continue
		}
		results = append(results, Result{
			ChunkID:  f.ChunkID,
			Score:    f.Score,
			BaseText: c.BaseText,
			Context:  c.Context,
		})
	}

	logger.DebugContext(ctx, "hybrid search completed",
		slog.String("corpus", corpusName),
		slog.Int("semantic", len(semantic)),
		slog.Int("keyword", len(lexical)),
		slog.Int("results", len(results)),
	)
	return results, nil
}

func (r *Retriever) semanticRanking(ctx context.Context, collection, query string) ([]string, error) {
	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored, err := r.vectors.Query(ctx, collection, vec, r.topK)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(scored))
	for _, s := range scored {
		ids = append(ids, s.ChunkID)
	}
	return ids, nil
}

func (r *Retriever) keywordRanking(path, query string) ([]string, error) {
	idx, err := r.loadIndex(path)
	if err != nil {
		return nil, err
	}

	scored := idx.TopK(keyword.Tokenize(query), r.topK)
	ids := make([]string, 0, len(scored))
	for _, s := range scored {
		ids = append(ids, s.ChunkID)
	}
	return ids, nil
}

// loadIndex returns the cached keyword index for path, reloading it when the
// file's mtime has changed.
func (r *Retriever) loadIndex(path string) (*keyword.Index, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat keyword index: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.indexes[path]; ok && cached.modTime.Equal(info.ModTime()) {
		return cached.index, nil
	}

	idx, err := keyword.Load(path)
	if err != nil {
		return nil, err
	}
	r.indexes[path] = &cachedIndex{index: idx, modTime: info.ModTime()}
	return idx, nil
}

type fusedID struct {
	ChunkID string
	Score   float64
}

// fuse merges per-signal rankings with reciprocal rank fusion: a chunk at
// zero-based rank i in any ranking contributes 1/(rrfK+i+1) to its score.
// Ties break by first appearance across the rankings in order.
func fuse(rankings [][]string) []fusedID {
	scores := make(map[string]float64)
	firstSeen := make(map[string]int)
	order := 0

	for _, ranking := range rankings {
		for i, id := range ranking {
			if _, ok := firstSeen[id]; !ok {
				firstSeen[id] = order
				order++
			}
			scores[id] += 1 / float64(rrfK+i+1)
		}
	}

	fused := make([]fusedID, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, fusedID{ChunkID: id, Score: score})
	}
	sort.Slice(fused, func(a, b int) bool {
		if fused[a].Score != fused[b].Score {
			return fused[a].Score > fused[b].Score
		}
		return firstSeen[fused[a].ChunkID] < firstSeen[fused[b].ChunkID]
	})
	return fused
}
