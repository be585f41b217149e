package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// postJSON issues an HTTP POST with the given body and headers and returns
// the response bytes, treating any non-200 status as an error. Both
// OpenAIClient and GeminiClient share this instead of each rolling their
// own request/response plumbing, the same way chatExtractionClient
// centralizes prompt handling once for every completer.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
