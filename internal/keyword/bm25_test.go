package keyword

import (
	"path/filepath"
	"reflect"
	"testing"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()

	docs := [][]string{
		Tokenize("the lighthouse keeper watched the storm"),
		Tokenize("a storm broke over the harbor at night"),
		Tokenize("the keeper climbed the lighthouse stairs"),
		Tokenize("fishing boats returned before dawn"),
	}
	ids := []string{"c1", "c2", "c3", "c4"}

	idx, err := Build(docs, ids)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return idx
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The Quick   Brown\nFox")
	want := []string{"the", "quick", "brown", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestBuildMismatchedLengths(t *testing.T) {
	_, err := Build([][]string{{"a"}}, []string{"x", "y"})
	if err == nil {
		t.Error("Build() error = nil, want error")
	}
}

func TestTopKRanking(t *testing.T) {
	idx := buildTestIndex(t)

	got := idx.TopK(Tokenize("lighthouse keeper"), 10)
	if len(got) != 2 {
		t.Fatalf("TopK() returned %d results, want 2", len(got))
	}
	// Both hits contain both terms; both score above any single-term doc.
	seen := map[string]bool{got[0].ChunkID: true, got[1].ChunkID: true}
	if !seen["c1"] || !seen["c3"] {
		t.Errorf("TopK() = %v, want c1 and c3", got)
	}
	for _, s := range got {
		if s.Score <= 0 {
			t.Errorf("score for %s = %f, want > 0", s.ChunkID, s.Score)
		}
	}
}

func TestTopKExcludesZeroScores(t *testing.T) {
	idx := buildTestIndex(t)

	got := idx.TopK(Tokenize("volcano"), 10)
	if len(got) != 0 {
		t.Errorf("TopK() with unknown term = %v, want empty", got)
	}
}

func TestTopKLimit(t *testing.T) {
	idx := buildTestIndex(t)

	got := idx.TopK(Tokenize("the storm"), 1)
	if len(got) != 1 {
		t.Fatalf("TopK(1) returned %d results, want 1", len(got))
	}
}

func TestRarerTermScoresHigher(t *testing.T) {
	idx := buildTestIndex(t)

	// "dawn" appears in one document, "storm" in two; for single-term queries
	// the rarer term gives its document a higher idf-driven score.
	dawn := idx.TopK(Tokenize("dawn"), 1)
	storm := idx.TopK(Tokenize("storm"), 1)
	if len(dawn) == 0 || len(storm) == 0 {
		t.Fatal("expected hits for both queries")
	}
	if dawn[0].Score <= storm[0].Score {
		t.Errorf("dawn score %f <= storm score %f, want rarer term to score higher", dawn[0].Score, storm[0].Score)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	idx := buildTestIndex(t)
	path := filepath.Join(t.TempDir(), "nested", "index.json")

	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != idx.Len() {
		t.Fatalf("Len() after load = %d, want %d", loaded.Len(), idx.Len())
	}
	if !reflect.DeepEqual(loaded.ChunkIDs(), idx.ChunkIDs()) {
		t.Errorf("ChunkIDs() after load = %v, want %v", loaded.ChunkIDs(), idx.ChunkIDs())
	}

	query := Tokenize("lighthouse storm")
	if !reflect.DeepEqual(loaded.TopK(query, 10), idx.TopK(query, 10)) {
		t.Error("loaded index ranks differently from original")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

func TestEmptyIndex(t *testing.T) {
	idx, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := idx.TopK(Tokenize("anything"), 5); len(got) != 0 {
		t.Errorf("TopK() on empty index = %v, want empty", got)
	}
}
