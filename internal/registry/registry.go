package registry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"storyweaver/internal/chunk"
	"storyweaver/internal/storage"
)

var (
	// ErrCorpusNotFound is returned when a corpus name is not registered.
	ErrCorpusNotFound = errors.New("corpus not found")
	// ErrCorpusInactive is returned when a corpus is registered but not active.
	ErrCorpusInactive = errors.New("corpus is not active")
)

// VectorIndex is the slice of the vector backend the registry needs: probing
// collections for status and deleting points when a corpus is purged.
type VectorIndex interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	Count(ctx context.Context, collection string) (int, error)
	Delete(ctx context.Context, collection string, chunkIDs []string) error
}

// Status describes the live health of one corpus. It is derived by probing the
// filesystem and the index backends, never cached: external mutation (a wiped
// collection, a deleted cache) must show up on the next call.
type Status struct {
	Name                string   `json:"name"`
	DisplayName         string   `json:"display_name"`
	ChunksExist         bool     `json:"chunks_exist"`
	SemanticIndexExists bool     `json:"semantic_index_exists"`
	KeywordIndexExists  bool     `json:"keyword_index_exists"`
	NeedsRebuild        bool     `json:"needs_rebuild"`
	MissingComponents   []string `json:"missing_components"`
	ChunkCount          int      `json:"chunk_count"`
	VectorCount         int      `json:"vector_count"`
	LastProcessed       string   `json:"last_processed,omitempty"`
}

// Registry tracks named corpora and their index artifacts. Configuration lives
// in SQLite through a CorpusStore; status is probed on demand.
type Registry struct {
	corpora storage.CorpusStore
	vectors VectorIndex
	dataDir string
}

// New creates a Registry. dataDir is used to derive default artifact paths for
// corpora loaded from a jobs file.
func New(corpora storage.CorpusStore, vectors VectorIndex, dataDir string) *Registry {
	return &Registry{
		corpora: corpora,
		vectors: vectors,
		dataDir: dataDir,
	}
}

// Get returns the configuration for a corpus. Returns ErrCorpusNotFound if the
// name is not registered.
func (r *Registry) Get(ctx context.Context, name string) (*storage.CorpusConfig, error) {
	cfg, err := r.corpora.Get(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetActive returns the configuration for a corpus that must be active.
func (r *Registry) GetActive(ctx context.Context, name string) (*storage.CorpusConfig, error) {
	cfg, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrCorpusInactive, name)
	}
	return cfg, nil
}

// ListActive returns all active corpora.
func (r *Registry) ListActive(ctx context.Context) ([]*storage.CorpusConfig, error) {
	return r.corpora.ListActive(ctx)
}

// List returns all corpora.
func (r *Registry) List(ctx context.Context) ([]*storage.CorpusConfig, error) {
	return r.corpora.List(ctx)
}

// Add registers a new corpus. Returns storage.ErrCorpusExists on a duplicate.
func (r *Registry) Add(ctx context.Context, cfg *storage.CorpusConfig) error {
	return r.corpora.Insert(ctx, cfg)
}

// Update rewrites an existing corpus configuration.
func (r *Registry) Update(ctx context.Context, cfg *storage.CorpusConfig) error {
	err := r.corpora.Update(ctx, cfg)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCorpusNotFound, cfg.Name)
	}
	return err
}

// Remove deletes a corpus from the registry. With purgeArtifacts the index
// artifacts go too: vectors for every cached chunk, the keyword index file and
// the chunk cache directory.
func (r *Registry) Remove(ctx context.Context, name string, purgeArtifacts bool) error {
	cfg, err := r.Get(ctx, name)
	if err != nil {
		return err
	}

	if err := r.corpora.Delete(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrCorpusNotFound, name)
		}
		return err
	}

	if !purgeArtifacts {
		return nil
	}
	return r.purgeArtifacts(ctx, cfg)
}

func (r *Registry) purgeArtifacts(ctx context.Context, cfg *storage.CorpusConfig) error {
	store, err := chunk.NewStore(cfg.CacheDir)
	if err != nil {
		return err
	}

	var ids []string
	err = store.Walk(func(id string, _ *chunk.Chunk) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := r.vectors.Delete(ctx, cfg.CollectionName, ids); err != nil {
			return fmt.Errorf("failed to delete vectors for %s: %w", cfg.Name, err)
		}
	}

	if err := os.Remove(cfg.KeywordIndexPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove keyword index for %s: %w", cfg.Name, err)
	}
	if err := os.RemoveAll(cfg.CacheDir); err != nil {
		return fmt.Errorf("failed to remove chunk cache for %s: %w", cfg.Name, err)
	}
	return nil
}

// TouchProcessed records a completed build for a corpus.
func (r *Registry) TouchProcessed(ctx context.Context, name string, chunkCount int) error {
	err := r.corpora.TouchProcessed(ctx, name, chunkCount)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCorpusNotFound, name)
	}
	return err
}

// Status probes the three index components of a corpus: cached chunks on disk,
// the collection in the vector backend, and the keyword index file.
func (r *Registry) Status(ctx context.Context, name string) (*Status, error) {
	cfg, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		ChunkCount:  cfg.ChunkCount,
	}
	if cfg.LastProcessed != nil {
		st.LastProcessed = cfg.LastProcessed.Format("2006-01-02T15:04:05Z07:00")
	}

	if store, err := chunk.NewStore(cfg.CacheDir); err == nil {
		if n, err := store.Count(); err == nil && n > 0 {
			st.ChunksExist = true
		}
	}

	exists, err := r.vectors.CollectionExists(ctx, cfg.CollectionName)
	if err == nil && exists {
		st.SemanticIndexExists = true
		if n, err := r.vectors.Count(ctx, cfg.CollectionName); err == nil {
			st.VectorCount = n
		}
	}

	if _, err := os.Stat(cfg.KeywordIndexPath); err == nil {
		st.KeywordIndexExists = true
	}

	if !st.ChunksExist {
		st.MissingComponents = append(st.MissingComponents, "chunks")
	}
	if !st.SemanticIndexExists {
		st.MissingComponents = append(st.MissingComponents, "semantic_index")
	}
	if !st.KeywordIndexExists {
		st.MissingComponents = append(st.MissingComponents, "keyword_index")
	}
	st.NeedsRebuild = len(st.MissingComponents) > 0

	return st, nil
}

// Usable reports whether a corpus can serve narrative requests: it must be
// active with no missing index components.
func (r *Registry) Usable(ctx context.Context, name string) (bool, error) {
	cfg, err := r.Get(ctx, name)
	if err != nil {
		return false, err
	}
	if !cfg.IsActive {
		return false, nil
	}
	st, err := r.Status(ctx, name)
	if err != nil {
		return false, err
	}
	return !st.NeedsRebuild, nil
}
