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

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

// GeminiClient is a completer backed by the Gemini generateContent API.
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

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float32 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}, Role: "user"}},
		GenerationConfig: geminiGenerationConfig{Temperature: temp},
	})
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", geminiBaseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.healthy.Store(false)
		return "", fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("unmarshal gemini response: %w", err)
	}
	if result.Error != nil {
		c.healthy.Store(false)
		return "", fmt.Errorf("gemini API error: %s", result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		c.healthy.Store(false)
		return "", fmt.Errorf("gemini API returned no content")
	}

	c.healthy.Store(true)
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

func (c *GeminiClient) IsHealthy(ctx context.Context) bool {
	return c.healthy.Load()
}
