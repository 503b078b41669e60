package llm

// Message represents a single message in a chat conversation.
// This type is used by the narrative pipeline and other structured message consumers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, no limit is applied.
	MaxTokens int

	// Temperature controls the randomness of the output.
	// The server default applies when zero and UseTemperature is false.
	Temperature float32

	// UseTemperature forces Temperature into the request even when it is zero.
	// Deterministic calls (summaries, structured output) set this.
	UseTemperature bool
}
