// Package categorize implements the Categorization Engine (C6): content
// classification into a CategoryLabel plus mechanical tag extraction, per
// spec.md §4.7.
package categorize

import (
	"context"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"go.uber.org/zap"
)

// unknownConfidenceCap bounds the confidence of the Unknown fallback
// category, per spec.md §4.7 ("falls back to {primary: Unknown,
// confidence <= 0.2}").
const unknownConfidenceCap = 0.2

// Engine categorizes content using an ExtractionClient when healthy,
// degrading to an Unknown category on provider failure so ingestion never
// aborts because categorization failed.
type Engine struct {
	extractor domain.ExtractionClient
	logger    *zap.Logger
}

// NewEngine constructs a categorization Engine. extractor may be nil, in
// which case every call falls back to Unknown.
func NewEngine(extractor domain.ExtractionClient, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{extractor: extractor, logger: logger}
}

// Categorize classifies content into a CategoryLabel and extracts tags,
// from the content itself (mechanical regex extraction) and the provider
// (semantic tags), per spec.md §4.7.
func (e *Engine) Categorize(ctx context.Context, content string, metadata domain.MemoryMetadata) domain.CategoryLabel {
	tags := extractTags(content)
	tags = append(tags, metadata.Tags...)

	if e.extractor == nil {
		return domain.CategoryLabel{Primary: "Unknown", Confidence: unknownConfidenceCap, Tags: dedupe(tags)}
	}

	cat, err := e.extractor.ExtractCategory(ctx, content)
	if err != nil {
		e.logger.Warn("categorization provider failed, falling back to Unknown", zap.Error(err))
		return domain.CategoryLabel{Primary: "Unknown", Confidence: unknownConfidenceCap, Tags: dedupe(tags)}
	}

	cat.Tags = dedupe(append(tags, cat.Tags...))
	if cat.Primary == "" {
		cat.Primary = "Unknown"
		if cat.Confidence > unknownConfidenceCap {
			cat.Confidence = unknownConfidenceCap
		}
	}
	return cat
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
