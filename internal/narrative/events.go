package narrative

import "storyweaver/internal/journey"

// Event types emitted while a story request is being served.
const (
	EventStoryChunk = "story_chunk"
	EventMessage    = "message"
	EventEnd        = "end"
	EventError      = "error"
)

// Choice is one selectable continuation offered to the reader.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Event is a single progress message streamed to the client. story_chunk
// events carry text deltas, message events carry status updates, and the
// final end event carries the journey id, the next choices and the updated
// story graph.
type Event struct {
	Type      string         `json:"type"`
	Content   string         `json:"content,omitempty"`
	JourneyID string         `json:"journey_id,omitempty"`
	NodeID    string         `json:"node_id,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	Choices   []Choice       `json:"choices,omitempty"`
	Graph     *journey.Graph `json:"graph,omitempty"`
}

// EmitFunc receives events in order. Returning an error aborts the pipeline,
// which happens when the client has gone away.
type EmitFunc func(Event) error
