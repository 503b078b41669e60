package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"storyweaver/internal/config"
	"storyweaver/internal/http"
	"storyweaver/internal/journey"
	"storyweaver/internal/llm"
	"storyweaver/internal/narrative"
	"storyweaver/internal/persona"
	"storyweaver/internal/registry"
	"storyweaver/internal/retriever"
	"storyweaver/internal/storage"
	"storyweaver/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	corpusRepo := storage.NewCorpusRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Corpus registry over SQLite config plus live index probes
	reg := registry.New(corpusRepo, vectorStore, cfg.DataDir)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// LLM clients (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	imagesClient := llm.NewImagesClient(cfg.ImageBaseURL, cfg.LLMAPIKey, cfg.ImageModelName, cfg.ImageSize)

	// Narrator personas
	personas, err := persona.Load(cfg.PersonasPath)
	if err != nil {
		log.Fatalf("Failed to load personas: %v", err)
	}
	slog.Info("Personas loaded", "count", len(personas.Names()))

	// Journey store
	journeys, err := journey.NewStore(cfg.JourneysDir, reg)
	if err != nil {
		log.Fatalf("Failed to create journey store: %v", err)
	}

	// Hybrid retriever
	searcher := retriever.New(reg, vectorStore, embedder, cfg.RetrievalTopK)

	// Narrative pipeline
	pipeline := narrative.New(llmClient, imagesClient, searcher, journeys, personas)
	slog.Info("Narrative pipeline initialized")

	// Create router with dependencies
	deps := &http.Deps{
		Pipeline:    pipeline,
		Journeys:    journeys,
		Registry:    reg,
		Personas:    personas,
		VectorStore: vectorStore,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
