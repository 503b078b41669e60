package retriever

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"storyweaver/internal/chunk"
	"storyweaver/internal/keyword"
	"storyweaver/internal/registry"
	"storyweaver/internal/storage"
	"storyweaver/internal/vectorstore"
	"storyweaver/internal/vectorstore/mocks"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type searchFixture struct {
	retriever *Retriever
	vectors   *mocks.MockVectorStore
	chunkIDs  map[string]string // text -> id
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()

	dataDir := t.TempDir()
	db, err := storage.New(filepath.Join(dataDir, "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}

	ctrl := gomock.NewController(t)
	vectors := mocks.NewMockVectorStore(ctrl)
	// Status probes the point count whenever the collection exists.
	vectors.EXPECT().Count(gomock.Any(), gomock.Any()).Return(2, nil).AnyTimes()

	reg := registry.New(storage.NewCorpusRepo(db), vectors, dataDir)
	cfg := &storage.CorpusConfig{
		Name:             "verne",
		DisplayName:      "Verne",
		SourceFile:       filepath.Join(dataDir, "verne.txt"),
		FileType:         "text",
		CollectionName:   "verne_chunks",
		CacheDir:         filepath.Join(dataDir, "chunks", "verne"),
		KeywordIndexPath: filepath.Join(dataDir, "keyword", "verne.json"),
		IsActive:         true,
	}
	if err := reg.Add(context.Background(), cfg); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	store, err := chunk.NewStore(cfg.CacheDir)
	if err != nil {
		t.Fatalf("chunk.NewStore() error = %v", err)
	}

	texts := []string{
		"the lighthouse keeper watched the coast",
		"a storm gathered far out at sea",
	}
	ids := make(map[string]string, len(texts))
	var docs [][]string
	var docIDs []string
	for _, text := range texts {
		c := &chunk.Chunk{BaseText: text, Context: "test corpus passage"}
		if err := store.Put(c); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		ids[text] = c.ID()
		docs = append(docs, keyword.Tokenize(c.Document()))
		docIDs = append(docIDs, c.ID())
	}

	idx, err := keyword.Build(docs, docIDs)
	if err != nil {
		t.Fatalf("keyword.Build() error = %v", err)
	}
	if err := idx.Save(cfg.KeywordIndexPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	return &searchFixture{
		retriever: New(reg, vectors, fakeEmbedder{}, 10),
		vectors:   vectors,
		chunkIDs:  ids,
	}
}

func TestSearchFusesBothSignals(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	lighthouseID := f.chunkIDs["the lighthouse keeper watched the coast"]
	stormID := f.chunkIDs["a storm gathered far out at sea"]

	f.vectors.EXPECT().CollectionExists(gomock.Any(), "verne_chunks").Return(true, nil).AnyTimes()
	f.vectors.EXPECT().Query(gomock.Any(), "verne_chunks", gomock.Any(), 10).
		Return([]vectorstore.ScoredID{{ChunkID: stormID, Score: 0.9}}, nil)

	results, err := f.retriever.Search(ctx, "verne", "lighthouse")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}

	got := map[string]bool{}
	for _, r := range results {
		got[r.ChunkID] = true
		if r.BaseText == "" {
			t.Errorf("result %s has no base text", r.ChunkID)
		}
		if r.Score <= 0 {
			t.Errorf("result %s score = %f, want > 0", r.ChunkID, r.Score)
		}
	}
	if !got[lighthouseID] || !got[stormID] {
		t.Errorf("Search() = %v, want both keyword and semantic hits", results)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newSearchFixture(t)

	f.vectors.EXPECT().CollectionExists(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

	results, err := f.retriever.Search(context.Background(), "verne", "   ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results != nil {
		t.Errorf("Search() with blank query = %v, want nil", results)
	}
}

func TestSearchMissingSemanticIndex(t *testing.T) {
	f := newSearchFixture(t)

	f.vectors.EXPECT().CollectionExists(gomock.Any(), "verne_chunks").Return(false, nil).AnyTimes()

	_, err := f.retriever.Search(context.Background(), "verne", "lighthouse")
	if !errors.Is(err, ErrCorpusNotReady) {
		t.Errorf("Search() error = %v, want ErrCorpusNotReady", err)
	}
}

func TestSearchUnknownCorpus(t *testing.T) {
	f := newSearchFixture(t)

	_, err := f.retriever.Search(context.Background(), "ghost", "lighthouse")
	if !errors.Is(err, registry.ErrCorpusNotFound) {
		t.Errorf("Search() error = %v, want ErrCorpusNotFound", err)
	}
}
