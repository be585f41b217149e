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
	cerebrasAPIURL = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasModel  = "llama-3.3-70b"
)

// CerebrasClient is a completer backed by Cerebras's OpenAI-compatible
// chat completions API.
type CerebrasClient struct {
	apiKey     string
	httpClient *http.Client
	healthy    atomic.Bool
}

func NewCerebrasClient(apiKey string) *CerebrasClient {
	c := &CerebrasClient{apiKey: apiKey, httpClient: &http.Client{}}
	c.healthy.Store(true)
	return c
}

type cerebrasMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cerebrasRequest struct {
	Model       string            `json:"model"`
	Messages    []cerebrasMessage `json:"messages"`
	Temperature float32           `json:"temperature"`
}

type cerebrasResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *CerebrasClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(cerebrasRequest{
		Model:       cerebrasModel,
		Messages:    []cerebrasMessage{{Role: "user", Content: prompt}},
		Temperature: temp,
	})
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("marshal cerebras request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cerebrasAPIURL, bytes.NewReader(body))
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("create cerebras request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("cerebras request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("read cerebras response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.healthy.Store(false)
		return "", fmt.Errorf("cerebras API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result cerebrasResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("unmarshal cerebras response: %w", err)
	}
	if result.Error != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("cerebras API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		c.healthy.Store(false)
		return "", fmt.Errorf("cerebras API returned no choices")
	}

	c.healthy.Store(true)
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *CerebrasClient) IsHealthy(ctx context.Context) bool {
	return c.healthy.Load()
}
