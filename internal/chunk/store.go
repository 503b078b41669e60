package chunk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a chunk id has no cache entry.
var ErrNotFound = errors.New("chunk not found")

// Store is a content-addressed cache of enriched chunks, one JSON file per
// chunk id. An entry is only written after enrichment succeeds, so presence of
// a file doubles as the "already processed" marker for resumable ingestion.
type Store struct {
	dir string
}

// NewStore creates a chunk store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache directory backing this store.
func (s *Store) Dir() string {
	return s.dir
}

// Has reports whether a cache entry exists for the given chunk id.
func (s *Store) Has(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Get loads a chunk by id. Returns ErrNotFound if no entry exists.
func (s *Store) Get(id string) (*Chunk, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read chunk %s: %w", id, err)
	}
	var c Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode chunk %s: %w", id, err)
	}
	return &c, nil
}

// Put persists a chunk under its content hash. The write is atomic (temp file
// plus rename) so an interrupted run never leaves a truncated entry behind.
func (s *Store) Put(c *Chunk) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunk: %w", err)
	}
	return writeFileAtomic(s.path(c.ID()), data)
}

// Count returns the number of cached chunks.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read chunk cache directory: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

// Walk calls fn for every cached chunk. Iteration stops on the first error.
func (s *Store) Walk(fn func(id string, c *Chunk) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read chunk cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		c, err := s.Get(id)
		if err != nil {
			return err
		}
		if err := fn(id, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".chunk-*")
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
