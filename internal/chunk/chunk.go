package chunk

import (
	"crypto/sha256"
	"fmt"
)

// Position locates a chunk inside the tokenized source document.
type Position struct {
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// Chunk is a processed slice of the source document. BaseText and Position are
// fixed at creation; Context, Embedding and EmbeddingModel are filled in by
// enrichment and never change afterwards.
type Chunk struct {
	BaseText       string    `json:"base_text"`
	Position       Position  `json:"position"`
	Context        string    `json:"context,omitempty"`
	Embedding      []float32 `json:"embedding,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
}

// ID returns the content hash of the chunk's base text. Identical text always
// maps to the same id, so re-ingesting a passage reuses the prior enrichment.
func (c *Chunk) ID() string {
	sum := sha256.Sum256([]byte(c.BaseText))
	return fmt.Sprintf("%x", sum)
}

// Document returns the text that gets embedded and keyword-indexed: the
// contextual summary concatenated with the chunk text.
func (c *Chunk) Document() string {
	return fmt.Sprintf("Context: %s\n\nText: %s", c.Context, c.BaseText)
}
