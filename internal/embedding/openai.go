package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

const (
	openAIEmbeddingURL = "https://api.openai.com/v1/embeddings"
	openAIModel        = "text-embedding-3-small"
)

// OpenAIClient is an embedder backed by OpenAI's embeddings API. It
// tracks a health flag from its most recent call outcome, the same way
// extraction.OpenAIClient does for chat completions.
type OpenAIClient struct {
	apiKey     string
	httpClient *http.Client
	healthy    atomic.Bool
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
	c.healthy.Store(true)
	return c
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(openAIEmbeddingRequest{
		Model: openAIModel,
		Input: text,
	})
	if err != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	respBody, err := postJSON(ctx, c.httpClient, openAIEmbeddingURL, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, body)
	if err != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("embedding request: %w", err)
	}

	var result openAIEmbeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("unmarshal embedding response: %w", err)
	}
	if result.Error != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("embedding API error: %s", result.Error.Message)
	}
	if len(result.Data) == 0 {
		c.healthy.Store(false)
		return nil, fmt.Errorf("embedding API returned no data")
	}

	c.healthy.Store(true)
	return result.Data[0].Embedding, nil
}

// IsHealthy reports whether the most recent call to the backing API
// succeeded. A client that has never been called is presumed healthy.
func (c *OpenAIClient) IsHealthy(ctx context.Context) bool {
	return c.healthy.Load()
}
