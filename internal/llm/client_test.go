package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatWithMessages(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := ChatResponse{
			Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "hello back"}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	got, err := client.ChatWithMessages(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}, ChatParams{MaxTokens: 50, Temperature: 0.5})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
	if got != "hello back" {
		t.Errorf("ChatWithMessages() = %q", got)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 {
		t.Errorf("request messages = %v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 50 {
		t.Errorf("request max_tokens = %d", gotReq.MaxTokens)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.5 {
		t.Errorf("request temperature = %v", gotReq.Temperature)
	}
}

func TestChatTemperatureOmittedByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["temperature"]; ok {
			t.Error("temperature sent without being requested")
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	if _, err := client.Chat(context.Background(), "hi"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
}

func TestChatZeroTemperatureForced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		v, ok := req["temperature"]
		if !ok {
			t.Error("temperature missing despite UseTemperature")
		} else if v.(float64) != 0 {
			t.Errorf("temperature = %v, want 0", v)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	_, err := client.ChatWithMessages(context.Background(), []Message{{Role: "user", Content: "hi"}},
		ChatParams{Temperature: 0, UseTemperature: true})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
}

func TestChatNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	if _, err := client.Chat(context.Background(), "hi"); err == nil {
		t.Error("Chat() error = nil, want error for empty choices")
	}
}

func TestChatBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	_, err := client.Chat(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Chat() error = %v, want bad status error", err)
	}
}

func TestChatJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v, want json_object", req.ResponseFormat)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: `{"choices":["a","b","c"]}`}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	var out struct {
		Choices []string `json:"choices"`
	}
	err := client.ChatJSON(context.Background(), []Message{{Role: "user", Content: "go"}}, ChatParams{}, &out)
	if err != nil {
		t.Fatalf("ChatJSON() error = %v", err)
	}
	if len(out.Choices) != 3 || out.Choices[0] != "a" {
		t.Errorf("ChatJSON() out = %+v", out)
	}
}

func TestChatJSONInvalidPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: "not json at all"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	var out struct{}
	err := client.ChatJSON(context.Background(), []Message{{Role: "user", Content: "go"}}, ChatParams{}, &out)
	if err == nil {
		t.Error("ChatJSON() error = nil, want decode error")
	}
}

func TestStreamChatWithMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("stream flag not set")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"choices":[{"delta":{"content":"Once"}}]}`,
			``,
			`data: {"choices":[{"delta":{"content":" upon"}}]}`,
			``,
			`: keep-alive comment`,
			`data: {"choices":[{"delta":{"content":" a time"},"finish_reason":"stop"}]}`,
			``,
			`data: [DONE]`,
			``,
		}
		for _, line := range lines {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	var got strings.Builder
	err := client.StreamChatWithMessages(context.Background(),
		[]Message{{Role: "user", Content: "tell me a story"}}, ChatParams{},
		func(chunk string) error {
			got.WriteString(chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("StreamChatWithMessages() error = %v", err)
	}
	if got.String() != "Once upon a time" {
		t.Errorf("streamed = %q", got.String())
	}
}

func TestStreamChatCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"chunk"}}]}` + "\n\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	err := client.StreamChatWithMessages(context.Background(),
		[]Message{{Role: "user", Content: "x"}}, ChatParams{},
		func(string) error { return errors.New("client gone") })
	if err == nil {
		t.Error("StreamChatWithMessages() error = nil, want callback error")
	}
}
