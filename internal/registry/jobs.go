package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"storyweaver/internal/contextutil"
	"storyweaver/internal/storage"
)

// JobSpec is one corpus entry in a jobs file. Artifact locations are derived
// from the corpus name when omitted.
type JobSpec struct {
	DisplayName      string `yaml:"display_name"`
	Description      string `yaml:"description"`
	SourceFile       string `yaml:"source_file"`
	FileType         string `yaml:"file_type"`
	IsActive         *bool  `yaml:"is_active"`
	CollectionName   string `yaml:"collection_name"`
	CacheDir         string `yaml:"cache_dir"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

type jobsFile struct {
	Corpora map[string]JobSpec `yaml:"corpora"`
}

// LoadJobs reads a jobs file and registers every corpus it names. Existing
// corpora are updated in place so the file stays the source of truth for
// configuration; build state (chunk counts, timestamps) is preserved.
func (r *Registry) LoadJobs(ctx context.Context, path string) error {
	logger := contextutil.LoggerFromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read jobs file: %w", err)
	}

	var file jobsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse jobs file: %w", err)
	}
	if len(file.Corpora) == 0 {
		return errors.New("jobs file defines no corpora")
	}

	for name, spec := range file.Corpora {
		cfg, err := r.configFromSpec(name, spec)
		if err != nil {
			return fmt.Errorf("corpus %q: %w", name, err)
		}

		existing, err := r.Get(ctx, name)
		switch {
		case errors.Is(err, ErrCorpusNotFound):
			if err := r.Add(ctx, cfg); err != nil {
				return fmt.Errorf("failed to register corpus %q: %w", name, err)
			}
			logger.InfoContext(ctx, "registered corpus", slog.String("corpus", name))
		case err != nil:
			return err
		default:
			cfg.ChunkCount = existing.ChunkCount
			if err := r.Update(ctx, cfg); err != nil {
				return fmt.Errorf("failed to update corpus %q: %w", name, err)
			}
			logger.DebugContext(ctx, "updated corpus", slog.String("corpus", name))
		}
	}

	return nil
}

func (r *Registry) configFromSpec(name string, spec JobSpec) (*storage.CorpusConfig, error) {
	if spec.SourceFile == "" {
		return nil, errors.New("source_file is required")
	}
	fileType := spec.FileType
	if fileType == "" {
		fileType = "text"
	}
	if fileType != "text" && fileType != "markdown" {
		return nil, fmt.Errorf("unsupported file_type %q", fileType)
	}

	displayName := spec.DisplayName
	if displayName == "" {
		displayName = name
	}
	collection := spec.CollectionName
	if collection == "" {
		collection = name + "_chunks"
	}
	cacheDir := spec.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(r.dataDir, "chunks", name)
	}
	keywordPath := spec.KeywordIndexPath
	if keywordPath == "" {
		keywordPath = filepath.Join(r.dataDir, "keyword", name+".json")
	}

	active := true
	if spec.IsActive != nil {
		active = *spec.IsActive
	}

	return &storage.CorpusConfig{
		Name:             name,
		DisplayName:      displayName,
		Description:      spec.Description,
		SourceFile:       spec.SourceFile,
		FileType:         fileType,
		CollectionName:   collection,
		CacheDir:         cacheDir,
		KeywordIndexPath: keywordPath,
		IsActive:         active,
	}, nil
}
