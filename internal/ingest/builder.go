package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"storyweaver/internal/chunk"
	"storyweaver/internal/contextutil"
	"storyweaver/internal/keyword"
	"storyweaver/internal/llm"
	"storyweaver/internal/registry"
	"storyweaver/internal/vectorstore"
)

const (
	// Chunking is token-based: 1000-token windows overlapping by 200, so each
	// consecutive pair shares a 200-token seam and the stride is 800.
	windowSize     = 1000
	windowOverlap  = 200
	minChunkTokens = 200

	// Tokens of surrounding document included on each side of a chunk when
	// asking the model for a contextual summary.
	contextHalfWindow = 2500

	summaryMaxTokens = 200

	encodingName = "cl100k_base"
)

// TextGenerator produces chat completions for contextual summaries.
type TextGenerator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Embedder produces embedding vectors for chunk documents.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// tokenCodec is the slice of the tiktoken API the builder uses.
type tokenCodec interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// Builder runs the ingestion pipeline for registered corpora: extract, chunk,
// enrich, embed, upsert and rebuild the keyword index. Enrichment results are
// cached per chunk id, so an interrupted run resumes where it left off.
type Builder struct {
	registry       *registry.Registry
	textGen        TextGenerator
	embedder       Embedder
	vectors        vectorstore.VectorStore
	embeddingModel string
	vectorSize     int
	enc            tokenCodec

	// Force re-enriches every chunk even when a cache entry exists.
	Force bool
}

// NewBuilder creates an ingestion builder.
func NewBuilder(reg *registry.Registry, textGen TextGenerator, embedder Embedder, vectors vectorstore.VectorStore, embeddingModel string, vectorSize int) (*Builder, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}
	return &Builder{
		registry:       reg,
		textGen:        textGen,
		embedder:       embedder,
		vectors:        vectors,
		embeddingModel: embeddingModel,
		vectorSize:     vectorSize,
		enc:            enc,
	}, nil
}

type window struct {
	start int
	end   int
}

// sliceWindows computes overlapping token windows over a document of n tokens.
// A trailing window shorter than minChunkTokens is dropped unless it is the
// only one, so tiny documents still produce a chunk.
func sliceWindows(n int) []window {
	stride := windowSize - windowOverlap

	var windows []window
	for start := 0; start < n; start += stride {
		end := start + windowSize
		if end > n {
			end = n
		}
		if end-start < minChunkTokens && start > 0 {
			break
		}
		windows = append(windows, window{start: start, end: end})
		if end == n {
			break
		}
	}
	return windows
}

// Plan reports how much work a build would do: total chunk windows and how
// many already have cache entries.
func (b *Builder) Plan(ctx context.Context, name string) (total, cached int, err error) {
	cfg, err := b.registry.Get(ctx, name)
	if err != nil {
		return 0, 0, err
	}

	text, err := ExtractText(cfg.SourceFile, cfg.FileType)
	if err != nil {
		return 0, 0, err
	}

	store, err := chunk.NewStore(cfg.CacheDir)
	if err != nil {
		return 0, 0, err
	}

	tokens := b.enc.Encode(text, nil, nil)
	windows := sliceWindows(len(tokens))

	for _, w := range windows {
		c := &chunk.Chunk{BaseText: b.enc.Decode(tokens[w.start:w.end])}
		if store.Has(c.ID()) {
			cached++
		}
	}
	return len(windows), cached, nil
}

// Build runs the full ingestion pipeline for one corpus. Per-chunk failures
// are logged and skipped so one bad chunk never aborts a long run; the keyword
// index is still rebuilt from whatever the cache holds, and a summary error is
// returned at the end.
func (b *Builder) Build(ctx context.Context, name string) error {
	logger := contextutil.LoggerFromContext(ctx)

	cfg, err := b.registry.Get(ctx, name)
	if err != nil {
		return err
	}

	text, err := ExtractText(cfg.SourceFile, cfg.FileType)
	if err != nil {
		return fmt.Errorf("corpus %q: %w", name, err)
	}

	store, err := chunk.NewStore(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("corpus %q: %w", name, err)
	}

	if err := b.vectors.EnsureCollection(ctx, cfg.CollectionName, b.vectorSize); err != nil {
		return fmt.Errorf("corpus %q: %w", name, err)
	}

	tokens := b.enc.Encode(text, nil, nil)
	windows := sliceWindows(len(tokens))
	logger.InfoContext(ctx, "starting ingestion",
		slog.String("corpus", name),
		slog.Int("tokens", len(tokens)),
		slog.Int("chunks", len(windows)),
	)

	failed := 0
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("corpus %q: %w", name, err)
		}

		if err := b.processWindow(ctx, store, cfg.CollectionName, name, tokens, w); err != nil {
			failed++
			logger.ErrorContext(ctx, "failed to process chunk",
				slog.String("corpus", name),
				slog.Int("chunk", i),
				slog.Any("error", err),
			)
		}
	}

	if err := b.rebuildKeywordIndex(store, cfg.KeywordIndexPath); err != nil {
		return fmt.Errorf("corpus %q: %w", name, err)
	}

	count, err := store.Count()
	if err != nil {
		return fmt.Errorf("corpus %q: %w", name, err)
	}
	if err := b.registry.TouchProcessed(ctx, name, count); err != nil {
		return err
	}

	logger.InfoContext(ctx, "ingestion finished",
		slog.String("corpus", name),
		slog.Int("chunks", count),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("corpus %q: ingestion completed with %d errors", name, failed)
	}
	return nil
}

// processWindow enriches, caches and upserts a single chunk. On a cache hit
// the stored enrichment is reused but the vector is still upserted, which
// repairs a wiped collection without paying for enrichment again.
func (b *Builder) processWindow(ctx context.Context, store *chunk.Store, collection, corpus string, tokens []int, w window) error {
	c := &chunk.Chunk{
		BaseText: b.enc.Decode(tokens[w.start:w.end]),
		Position: chunk.Position{StartIndex: w.start, EndIndex: w.end},
	}
	id := c.ID()

	if !b.Force && store.Has(id) {
		cached, err := store.Get(id)
		if err != nil {
			return err
		}
		c = cached
	} else {
		summary, err := b.summarize(ctx, tokens, w)
		if err != nil {
			return fmt.Errorf("failed to summarize chunk: %w", err)
		}
		c.Context = summary

		vec, err := b.embedder.EmbedText(ctx, c.Document())
		if err != nil {
			return fmt.Errorf("failed to embed chunk: %w", err)
		}
		c.Embedding = vec
		c.EmbeddingModel = b.embeddingModel

		if err := store.Put(c); err != nil {
			return err
		}
	}

	if len(c.Embedding) == 0 {
		return fmt.Errorf("chunk %s has no embedding", id)
	}

	return b.vectors.Upsert(ctx, collection, []vectorstore.Point{{
		ChunkID: id,
		Vec:     c.Embedding,
		Meta: map[string]any{
			"corpus":      corpus,
			"base_text":   c.BaseText,
			"start_index": c.Position.StartIndex,
			"end_index":   c.Position.EndIndex,
		},
	}})
}

// summarize asks the model to situate a chunk within its surrounding document
// window. The summary is deterministic (temperature 0) so cache entries are
// stable across runs.
func (b *Builder) summarize(ctx context.Context, tokens []int, w window) (string, error) {
	lo := w.start - contextHalfWindow
	if lo < 0 {
		lo = 0
	}
	hi := w.end + contextHalfWindow
	if hi > len(tokens) {
		hi = len(tokens)
	}

	windowText := b.enc.Decode(tokens[lo:hi])
	chunkText := b.enc.Decode(tokens[w.start:w.end])

	prompt := fmt.Sprintf("<document>\n%s\n</document>\n\nHere is the chunk we want to situate within the document above:\n<chunk>\n%s\n</chunk>\n\nGive a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk. Answer only with the succinct context and nothing else.", windowText, chunkText)

	return b.textGen.ChatWithMessages(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.ChatParams{
		MaxTokens:      summaryMaxTokens,
		Temperature:    0,
		UseTemperature: true,
	})
}

// rebuildKeywordIndex rebuilds the BM25 index wholesale from the chunk cache.
func (b *Builder) rebuildKeywordIndex(store *chunk.Store, path string) error {
	var docs [][]string
	var ids []string
	err := store.Walk(func(id string, c *chunk.Chunk) error {
		docs = append(docs, keyword.Tokenize(c.Document()))
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk chunk cache: %w", err)
	}

	idx, err := keyword.Build(docs, ids)
	if err != nil {
		return err
	}
	return idx.Save(path)
}
