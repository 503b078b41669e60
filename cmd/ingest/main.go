package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"storyweaver/internal/config"
	"storyweaver/internal/ingest"
	"storyweaver/internal/llm"
	"storyweaver/internal/registry"
	"storyweaver/internal/storage"
	"storyweaver/internal/vectorstore"
)

func main() {
	cmd := &cli.Command{
		Name:  "ingest",
		Usage: "build and inspect corpus indexes for the story engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "jobs",
				Value: "jobs.yaml",
				Usage: "path to the corpus jobs file",
			},
			&cli.StringFlag{
				Name:  "corpus",
				Usage: "process only the named corpus",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "re-enrich chunks even when cached",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "report planned work without processing",
			},
			&cli.BoolFlag{
				Name:  "status",
				Usage: "print corpus index status and exit",
			},
			&cli.StringFlag{
				Name:  "remove",
				Usage: "unregister the named corpus and delete its index artifacts",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	slog.SetDefault(slog.New(handler))

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		return fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	reg := registry.New(storage.NewCorpusRepo(db), vectorStore, cfg.DataDir)

	// Removal runs before the jobs file is loaded, otherwise the file would
	// re-register the corpus in the same invocation.
	if name := cmd.String("remove"); name != "" {
		if err := reg.Remove(ctx, name, true); err != nil {
			return err
		}
		slog.Info("corpus removed", "corpus", name)
		return nil
	}

	if err := reg.LoadJobs(ctx, cmd.String("jobs")); err != nil {
		return err
	}

	targets, err := resolveTargets(ctx, reg, cmd.String("corpus"))
	if err != nil {
		return err
	}

	if cmd.Bool("status") {
		return printStatus(ctx, reg, targets)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	builder, err := ingest.NewBuilder(reg, llmClient, embedder, vectorStore, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	if err != nil {
		return err
	}
	builder.Force = cmd.Bool("force")

	if cmd.Bool("dry-run") {
		for _, name := range targets {
			total, cached, err := builder.Plan(ctx, name)
			if err != nil {
				return err
			}
			slog.Info("planned work", "corpus", name, "chunks", total, "cached", cached, "to_process", total-cached)
		}
		return nil
	}

	var failed []string
	for _, name := range targets {
		slog.Info("building corpus", "corpus", name)
		if err := builder.Build(ctx, name); err != nil {
			slog.Error("build failed", "corpus", name, "error", err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("build failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

// resolveTargets returns the corpora to process: the named one, or every
// active corpus when no name is given.
func resolveTargets(ctx context.Context, reg *registry.Registry, name string) ([]string, error) {
	if name != "" {
		if _, err := reg.Get(ctx, name); err != nil {
			return nil, err
		}
		return []string{name}, nil
	}

	corpora, err := reg.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(corpora))
	for _, c := range corpora {
		names = append(names, c.Name)
	}
	return names, nil
}

func printStatus(ctx context.Context, reg *registry.Registry, targets []string) error {
	for _, name := range targets {
		st, err := reg.Status(ctx, name)
		if err != nil {
			return err
		}
		missing := "none"
		if len(st.MissingComponents) > 0 {
			missing = strings.Join(st.MissingComponents, ", ")
		}
		fmt.Printf("%s: chunks=%v semantic=%v keyword=%v count=%d vectors=%d missing=%s\n",
			st.Name, st.ChunksExist, st.SemanticIndexExists, st.KeywordIndexExists, st.ChunkCount, st.VectorCount, missing)
	}
	return nil
}
