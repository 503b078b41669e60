package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"storyweaver/internal/contextutil"
	"storyweaver/internal/journey"
	"storyweaver/internal/narrative"
	"storyweaver/internal/registry"
)

// StoryStreamer runs the narrative pipeline. The concrete implementation is
// *narrative.Pipeline.
type StoryStreamer interface {
	Run(ctx context.Context, req narrative.Request, emit narrative.EmitFunc) error
}

// StoryHandler serves story generation over Server-Sent Events.
type StoryHandler struct {
	pipeline StoryStreamer
}

// NewStoryHandler creates a new StoryHandler.
func NewStoryHandler(pipeline StoryStreamer) *StoryHandler {
	return &StoryHandler{pipeline: pipeline}
}

// ServeHTTP handles GET /api/stream_story. Request parameters arrive as query
// values because EventSource clients cannot send a body. Progress is streamed
// as SSE events; pipeline failures become a final error event on the stream.
func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	req := narrative.Request{
		Username:    q.Get("username"),
		JourneyID:   q.Get("journey_id"),
		Prompt:      q.Get("prompt"),
		ChoiceID:    q.Get("choice_id"),
		NewJourney:  q.Get("new_journey") == "true",
		StoryLength: q.Get("story_length"),
		Persona:     q.Get("persona"),
		CorpusName:  q.Get("corpus"),
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(event narrative.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("client gone: %w", err)
		}
		flusher.Flush()
		return nil
	}

	if err := h.pipeline.Run(ctx, req, emit); err != nil {
		logger.ErrorContext(ctx, "story generation failed", "error", err)
		_ = emit(narrative.Event{Type: narrative.EventError, Content: publicError(err)})
	}
}

// publicError maps pipeline errors to messages safe to show a reader.
func publicError(err error) string {
	switch {
	case errors.Is(err, journey.ErrNotFound):
		return "journey not found"
	case errors.Is(err, journey.ErrCorpusUnavailable):
		return "the corpus for this journey is unavailable"
	case errors.Is(err, narrative.ErrChoiceNotFound):
		return "choice not found"
	case errors.Is(err, narrative.ErrChoiceResolved):
		return "that choice has already been taken"
	case errors.Is(err, registry.ErrCorpusNotFound):
		return "corpus not found"
	case errors.Is(err, registry.ErrCorpusInactive):
		return "corpus is not active"
	default:
		return "story generation failed"
	}
}
