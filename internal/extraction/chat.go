package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

// completer is the narrow contract every chat-style LLM backend
// implements: a single prompt in, a single text completion out. Each
// provider's HTTP request/response shape lives behind this method, so
// chatExtractionClient can implement the full ExtractionClient surface
// once instead of once per provider.
type completer interface {
	complete(ctx context.Context, prompt string, temperature float32) (string, error)
	IsHealthy(ctx context.Context) bool
}

// chatExtractionClient implements domain.ExtractionClient against any
// completer by rendering the same prompts used for the OpenAI backend
// and parsing the same response shapes, grounded on the teacher's
// per-provider LLMClient implementations (internal/llm/*.go), which
// differ only in how they reach the model, never in what they ask it.
type chatExtractionClient struct {
	backend completer
}

func (c *chatExtractionClient) ExtractBeliefs(ctx context.Context, content string, agentID domain.AgentID, categoryHint domain.CategoryLabel) ([]domain.ExtractedBelief, error) {
	result, err := c.backend.complete(ctx, fmt.Sprintf(extractBeliefsPrompt, content), 0.2)
	if err != nil {
		return nil, fmt.Errorf("extract beliefs: %w", err)
	}

	var extracted []domain.ExtractedBelief
	if err := json.Unmarshal([]byte(stripFences(result)), &extracted); err != nil {
		return nil, fmt.Errorf("parse extraction result: %w (raw: %s)", err, result)
	}
	for i := range extracted {
		if extracted[i].Category.Primary == "" {
			extracted[i].Category = categoryHint
		}
	}
	return extracted, nil
}

func (c *chatExtractionClient) Similarity(ctx context.Context, s1, s2 string) (float64, error) {
	result, err := c.backend.complete(ctx, fmt.Sprintf(similarityPrompt, s1, s2), 0)
	if err != nil {
		return 0, fmt.Errorf("similarity: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(result), 64)
	if err != nil {
		return 0, fmt.Errorf("parse similarity result: %w (raw: %s)", err, result)
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v, nil
}

func (c *chatExtractionClient) AreConflicting(ctx context.Context, s1, s2 string, cat1, cat2 domain.CategoryLabel) (bool, error) {
	result, err := c.backend.complete(ctx, fmt.Sprintf(conflictPrompt, cat1.Primary, s1, cat2.Primary, s2), 0)
	if err != nil {
		return false, fmt.Errorf("are conflicting: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(result)) == "true", nil
}

func (c *chatExtractionClient) ExtractCategory(ctx context.Context, statement string) (domain.CategoryLabel, error) {
	result, err := c.backend.complete(ctx, fmt.Sprintf(categoryPrompt, statement), 0.1)
	if err != nil {
		return domain.CategoryLabel{}, fmt.Errorf("extract category: %w", err)
	}
	var cat domain.CategoryLabel
	if err := json.Unmarshal([]byte(stripFences(result)), &cat); err != nil {
		return domain.CategoryLabel{}, fmt.Errorf("parse category result: %w (raw: %s)", err, result)
	}
	return cat, nil
}

func (c *chatExtractionClient) CalculateConfidence(ctx context.Context, content, statement string, categoryHint domain.CategoryLabel) (float64, string, error) {
	result, err := c.backend.complete(ctx, fmt.Sprintf(confidencePrompt, content, statement), 0.1)
	if err != nil {
		return 0, "", fmt.Errorf("calculate confidence: %w", err)
	}
	var parsed struct {
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(stripFences(result)), &parsed); err != nil {
		return 0, "", fmt.Errorf("parse confidence result: %w (raw: %s)", err, result)
	}
	return parsed.Confidence, parsed.Reasoning, nil
}

func (c *chatExtractionClient) IsHealthy(ctx context.Context) bool {
	return c.backend.IsHealthy(ctx)
}

func stripFences(s string) string {
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
