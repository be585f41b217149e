package embedding

import (
	"fmt"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

// Provider constants, per spec.md §4.1 (a capability that "may be absent").
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// NewClient creates an embedding client based on the provider name. Returns
// an error if the provider is unknown or the API key is empty (except for
// mock). A nil client is a legal EmbeddingClient value per spec.md §4.1 —
// callers that get an error here may choose to run with no embedder at
// all, and the core degrades gracefully to text-similarity paths.
func NewClient(provider, apiKey string) (domain.EmbeddingClient, error) {
	if provider == ProviderMock || provider == "" {
		return NewMockClient(), nil
	}

	backend, err := newEmbedder(provider, apiKey)
	if err != nil {
		return nil, err
	}
	return &client{backend: backend}, nil
}

func newEmbedder(provider, apiKey string) (embedder, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini embedding provider")
		}
		return NewGeminiClient(apiKey), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, gemini, mock)", provider)
	}
}
