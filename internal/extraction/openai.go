package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"
)

// OpenAIClient is a completer backed by the OpenAI chat completions API.
// It tracks a lightweight health flag from the outcome of its most
// recent call, since spec.md §4.2 requires isHealthy() to reflect
// whether the AI-backed implementation is currently usable.
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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temp,
	})
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.healthy.Store(false)
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}
	if result.Error != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		c.healthy.Store(false)
		return "", fmt.Errorf("chat API returned no choices")
	}

	c.healthy.Store(true)
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// IsHealthy reports whether the most recent call to the backing API
// succeeded. A client that has never been called is presumed healthy.
func (c *OpenAIClient) IsHealthy(ctx context.Context) bool {
	return c.healthy.Load()
}
