package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCorpusExists is returned when inserting a corpus whose name is taken.
	ErrCorpusExists = errors.New("corpus already exists")
)

// CorpusConfig is the durable configuration of one named corpus. The semantic
// index is addressed by collection name (the vector backend is a server, not a
// directory); cache and keyword index live on the local filesystem.
type CorpusConfig struct {
	Name             string
	DisplayName      string
	Description      string
	SourceFile       string
	FileType         string // "text" or "markdown"
	CollectionName   string
	CacheDir         string
	KeywordIndexPath string
	IsActive         bool
	ChunkCount       int
	CreatedAt        time.Time
	LastProcessed    *time.Time
}

// CorpusStore defines the interface for corpus configuration persistence.
type CorpusStore interface {
	// Get returns a corpus by name. Returns ErrNotFound if absent.
	Get(ctx context.Context, name string) (*CorpusConfig, error)
	// List returns all corpora.
	List(ctx context.Context) ([]*CorpusConfig, error)
	// ListActive returns corpora with is_active set.
	ListActive(ctx context.Context) ([]*CorpusConfig, error)
	// Insert adds a new corpus. Returns ErrCorpusExists on a duplicate name.
	Insert(ctx context.Context, c *CorpusConfig) error
	// Update rewrites an existing corpus. Returns ErrNotFound if absent.
	Update(ctx context.Context, c *CorpusConfig) error
	// Delete removes a corpus by name. Returns ErrNotFound if absent.
	Delete(ctx context.Context, name string) error
	// TouchProcessed records a completed build: chunk count and timestamp.
	TouchProcessed(ctx context.Context, name string, chunkCount int) error
}

// CorpusRepo provides methods for corpus configuration persistence.
// It implements the CorpusStore interface.
type CorpusRepo struct {
	db *sql.DB
}

// NewCorpusRepo creates a new CorpusRepo.
func NewCorpusRepo(db *sql.DB) *CorpusRepo {
	return &CorpusRepo{db: db}
}

const corpusColumns = "name, display_name, description, source_file, file_type, collection_name, cache_dir, keyword_index_path, is_active, chunk_count, created_at, last_processed"

// Get returns a corpus by name. Returns ErrNotFound if absent.
func (r *CorpusRepo) Get(ctx context.Context, name string) (*CorpusConfig, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+corpusColumns+" FROM corpora WHERE name = ?", name)
	c, err := scanCorpus(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus: %w", err)
	}
	return c, nil
}

// List returns all corpora ordered by name.
func (r *CorpusRepo) List(ctx context.Context) ([]*CorpusConfig, error) {
	return r.list(ctx, "SELECT "+corpusColumns+" FROM corpora ORDER BY name")
}

// ListActive returns active corpora ordered by name.
func (r *CorpusRepo) ListActive(ctx context.Context) ([]*CorpusConfig, error) {
	return r.list(ctx, "SELECT "+corpusColumns+" FROM corpora WHERE is_active = 1 ORDER BY name")
}

func (r *CorpusRepo) list(ctx context.Context, query string) ([]*CorpusConfig, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpora: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*CorpusConfig
	for rows.Next() {
		c, err := scanCorpus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan corpus: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// Insert adds a new corpus. Returns ErrCorpusExists on a duplicate name.
func (r *CorpusRepo) Insert(ctx context.Context, c *CorpusConfig) error {
	if _, err := r.Get(ctx, c.Name); err == nil {
		return ErrCorpusExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO corpora (name, display_name, description, source_file, file_type, collection_name, cache_dir, keyword_index_path, is_active, chunk_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.DisplayName, c.Description, c.SourceFile, c.FileType,
		c.CollectionName, c.CacheDir, c.KeywordIndexPath, c.IsActive, c.ChunkCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert corpus: %w", err)
	}
	return nil
}

// Update rewrites an existing corpus. Returns ErrNotFound if absent.
func (r *CorpusRepo) Update(ctx context.Context, c *CorpusConfig) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE corpora SET display_name = ?, description = ?, source_file = ?, file_type = ?,
		 collection_name = ?, cache_dir = ?, keyword_index_path = ?, is_active = ?, chunk_count = ?
		 WHERE name = ?`,
		c.DisplayName, c.Description, c.SourceFile, c.FileType,
		c.CollectionName, c.CacheDir, c.KeywordIndexPath, c.IsActive, c.ChunkCount,
		c.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update corpus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a corpus by name. Returns ErrNotFound if absent.
func (r *CorpusRepo) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM corpora WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete corpus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchProcessed records a completed build: chunk count and timestamp.
func (r *CorpusRepo) TouchProcessed(ctx context.Context, name string, chunkCount int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE corpora SET chunk_count = ?, last_processed = CURRENT_TIMESTAMP WHERE name = ?",
		chunkCount, name)
	if err != nil {
		return fmt.Errorf("failed to touch corpus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check touch result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCorpus(row rowScanner) (*CorpusConfig, error) {
	var c CorpusConfig
	var lastProcessed sql.NullTime
	err := row.Scan(
		&c.Name, &c.DisplayName, &c.Description, &c.SourceFile, &c.FileType,
		&c.CollectionName, &c.CacheDir, &c.KeywordIndexPath, &c.IsActive,
		&c.ChunkCount, &c.CreatedAt, &lastProcessed,
	)
	if err != nil {
		return nil, err
	}
	if lastProcessed.Valid {
		t := lastProcessed.Time
		c.LastProcessed = &t
	}
	return &c, nil
}
