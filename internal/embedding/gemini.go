package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

const geminiEmbeddingURL = "https://generativelanguage.googleapis.com/v1beta/models/text-embedding-004:embedContent"

// GeminiClient is an embedder backed by Gemini's embedContent API,
// grounded on extraction.GeminiClient's request shape but pointed at
// the embedding model instead of generateContent.
type GeminiClient struct {
	apiKey     string
	httpClient *http.Client
	healthy    atomic.Bool
}

func NewGeminiClient(apiKey string) *GeminiClient {
	c := &GeminiClient{apiKey: apiKey, httpClient: &http.Client{}}
	c.healthy.Store(true)
	return c
}

type geminiEmbedPart struct {
	Text string `json:"text"`
}

type geminiEmbedContent struct {
	Parts []geminiEmbedPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Content geminiEmbedContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(geminiEmbedRequest{
		Content: geminiEmbedContent{Parts: []geminiEmbedPart{{Text: text}}},
	})
	if err != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("marshal gemini embed request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", geminiEmbeddingURL, c.apiKey)
	respBody, err := postJSON(ctx, c.httpClient, url, nil, body)
	if err != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("gemini embed request: %w", err)
	}

	var result geminiEmbedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("unmarshal gemini embed response: %w", err)
	}
	if result.Error != nil {
		c.healthy.Store(false)
		return nil, fmt.Errorf("gemini embed API error: %s", result.Error.Message)
	}
	if len(result.Embedding.Values) == 0 {
		c.healthy.Store(false)
		return nil, fmt.Errorf("gemini embed API returned no values")
	}

	c.healthy.Store(true)
	return result.Embedding.Values, nil
}

func (c *GeminiClient) IsHealthy(ctx context.Context) bool {
	return c.healthy.Load()
}
