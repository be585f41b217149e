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
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicModel       = "claude-3-5-haiku-20241022"
	anthropicVersion     = "2023-06-01"
)

// AnthropicClient is a completer backed by the Anthropic messages API.
type AnthropicClient struct {
	apiKey     string
	httpClient *http.Client
	healthy    atomic.Bool
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	c := &AnthropicClient{apiKey: apiKey, httpClient: &http.Client{}}
	c.healthy.Store(true)
	return c
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       anthropicModel,
		MaxTokens:   1024,
		Temperature: temp,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.healthy.Store(false)
		return "", fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("unmarshal anthropic response: %w", err)
	}
	if result.Error != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("anthropic API error: %s", result.Error.Message)
	}
	if len(result.Content) == 0 {
		c.healthy.Store(false)
		return "", fmt.Errorf("anthropic API returned no content")
	}

	c.healthy.Store(true)
	return strings.TrimSpace(result.Content[0].Text), nil
}

func (c *AnthropicClient) IsHealthy(ctx context.Context) bool {
	return c.healthy.Load()
}
