package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ImagesClient is a client for an OpenAI-compatible image generation API.
type ImagesClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Size    string
	client  *http.Client
}

// NewImagesClient creates a new image generation client.
func NewImagesClient(baseURL, apiKey, model, size string) *ImagesClient {
	return &ImagesClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Size:    size,
		client:  http.DefaultClient,
	}
}

// ImagesRequest represents the request payload for image generation.
type ImagesRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

// ImageData represents a single generated image in the response.
type ImageData struct {
	URL string `json:"url"`
}

// ImagesResponse represents the response from the image generation API.
type ImagesResponse struct {
	Data []ImageData `json:"data"`
}

// Generate creates one image from a prompt and returns its URL.
func (c *ImagesClient) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/v1/images/generations", c.BaseURL)

	payload := ImagesRequest{
		Model:  c.Model,
		Prompt: prompt,
		N:      1,
		Size:   c.Size,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var imagesResp ImagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&imagesResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(imagesResp.Data) == 0 {
		return "", fmt.Errorf("no images returned")
	}

	return imagesResp.Data[0].URL, nil
}
