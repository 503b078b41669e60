package narrative

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deps.go -package=mocks storyweaver/internal/narrative TextGenerator,ImageGenerator,Retriever,JourneyStore

import (
	"context"

	"storyweaver/internal/journey"
	"storyweaver/internal/llm"
	"storyweaver/internal/retriever"
)

// TextGenerator produces chat completions for story text, summaries and
// structured output.
type TextGenerator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
	ChatJSON(ctx context.Context, messages []llm.Message, params llm.ChatParams, out any) error
}

// ImageGenerator produces an illustration URL from a scene prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever performs hybrid search against a corpus.
type Retriever interface {
	Search(ctx context.Context, corpusName, query string) ([]retriever.Result, error)
}

// JourneyStore persists journeys between requests.
type JourneyStore interface {
	Save(j *journey.Journey) error
	Load(ctx context.Context, username, journeyID string) (*journey.Journey, error)
}
