package extraction

import (
	"fmt"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"go.uber.org/zap"
)

// Provider constants, per spec.md §4.2, extended with the rest of the
// chat-completion backends the teacher's LLMClient supported.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderMock      = "mock"
)

// NewClient creates an ExtractionClient for the given provider name. The
// "mock" provider (and the empty string) is the pattern-based client
// directly, since it requires no fallback. Every chat-completion provider
// is wrapped in a FallbackClient so an unhealthy or failing backend
// transparently degrades to the pattern client, per spec.md §4.2.
func NewClient(provider, apiKey string, logger *zap.Logger) (domain.ExtractionClient, error) {
	backend, err := newCompleter(provider, apiKey)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return NewPatternClient(), nil
	}
	return NewFallbackClient(&chatExtractionClient{backend: backend}, logger), nil
}

func newCompleter(provider, apiKey string) (completer, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI extraction provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic extraction provider")
		}
		return NewAnthropicClient(apiKey), nil

	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini extraction provider")
		}
		return NewGeminiClient(apiKey), nil

	case ProviderCerebras:
		if apiKey == "" {
			return nil, fmt.Errorf("CEREBRAS_API_KEY is required for Cerebras extraction provider")
		}
		return NewCerebrasClient(apiKey), nil

	case ProviderMock, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown extraction provider: %s (valid options: openai, anthropic, gemini, cerebras, mock)", provider)
	}
}
