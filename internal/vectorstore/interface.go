package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks storyweaver/internal/vectorstore VectorStore

import "context"

// Point represents a chunk vector with metadata.
type Point struct {
	ChunkID string
	Vec     []float32
	Meta    map[string]any
}

// ScoredID represents a similarity search hit.
type ScoredID struct {
	ChunkID string
	Score   float32
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates chunk vectors in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Query performs a similarity search and returns chunk ids ranked by score.
	Query(ctx context.Context, collection string, query []float32, k int) ([]ScoredID, error)

	// Delete removes chunk vectors by their chunk ids.
	Delete(ctx context.Context, collection string, chunkIDs []string) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// EnsureCollection creates the collection if missing and validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Count returns the number of stored vectors in a collection.
	Count(ctx context.Context, collection string) (int, error)
}
