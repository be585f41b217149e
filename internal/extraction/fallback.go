package extraction

import (
	"context"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"go.uber.org/zap"
)

// FallbackClient wraps an AI-backed ExtractionClient with a pattern-based
// one, per spec.md §4.2. Every method checks primary.IsHealthy first and
// falls through to the pattern client on an unhealthy primary or a failed
// call; corerr.ExtractionUnavailable is logged but never returned, since
// the core must degrade gracefully rather than surface the failure.
type FallbackClient struct {
	primary  domain.ExtractionClient
	fallback *PatternClient
	logger   *zap.Logger
}

// NewFallbackClient constructs a FallbackClient. logger may be nil, in
// which case a no-op logger is used.
func NewFallbackClient(primary domain.ExtractionClient, logger *zap.Logger) *FallbackClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackClient{primary: primary, fallback: NewPatternClient(), logger: logger}
}

func (c *FallbackClient) ExtractBeliefs(ctx context.Context, content string, agentID domain.AgentID, categoryHint domain.CategoryLabel) ([]domain.ExtractedBelief, error) {
	if c.primary.IsHealthy(ctx) {
		out, err := c.primary.ExtractBeliefs(ctx, content, agentID, categoryHint)
		if err == nil {
			return out, nil
		}
		c.logger.Warn("extraction provider call failed, using pattern fallback",
			zap.String("agent_id", string(agentID)), zap.Error(corerr.ExtractionUnavailable), zap.NamedError("cause", err))
	} else {
		c.logger.Warn("extraction provider unhealthy, using pattern fallback", zap.String("agent_id", string(agentID)))
	}
	return c.fallback.ExtractBeliefs(ctx, content, agentID, categoryHint)
}

func (c *FallbackClient) Similarity(ctx context.Context, s1, s2 string) (float64, error) {
	if c.primary.IsHealthy(ctx) {
		if v, err := c.primary.Similarity(ctx, s1, s2); err == nil {
			return v, nil
		}
		c.logger.Warn("extraction provider similarity failed, using pattern fallback", zap.Error(corerr.ExtractionUnavailable))
	}
	return c.fallback.Similarity(ctx, s1, s2)
}

func (c *FallbackClient) AreConflicting(ctx context.Context, s1, s2 string, cat1, cat2 domain.CategoryLabel) (bool, error) {
	if c.primary.IsHealthy(ctx) {
		if v, err := c.primary.AreConflicting(ctx, s1, s2, cat1, cat2); err == nil {
			return v, nil
		}
		c.logger.Warn("extraction provider conflict check failed, using pattern fallback", zap.Error(corerr.ExtractionUnavailable))
	}
	return c.fallback.AreConflicting(ctx, s1, s2, cat1, cat2)
}

func (c *FallbackClient) ExtractCategory(ctx context.Context, statement string) (domain.CategoryLabel, error) {
	if c.primary.IsHealthy(ctx) {
		if v, err := c.primary.ExtractCategory(ctx, statement); err == nil {
			return v, nil
		}
		c.logger.Warn("extraction provider category inference failed, using pattern fallback", zap.Error(corerr.ExtractionUnavailable))
	}
	return c.fallback.ExtractCategory(ctx, statement)
}

func (c *FallbackClient) CalculateConfidence(ctx context.Context, content, statement string, categoryHint domain.CategoryLabel) (float64, string, error) {
	if c.primary.IsHealthy(ctx) {
		if v, r, err := c.primary.CalculateConfidence(ctx, content, statement, categoryHint); err == nil {
			return v, r, nil
		}
		c.logger.Warn("extraction provider confidence scoring failed, using pattern fallback", zap.Error(corerr.ExtractionUnavailable))
	}
	return c.fallback.CalculateConfidence(ctx, content, statement, categoryHint)
}

// IsHealthy reports the primary's health; the fallback client itself is
// always usable, so callers can always obtain candidates from
// ExtractBeliefs regardless of what IsHealthy reports.
func (c *FallbackClient) IsHealthy(ctx context.Context) bool {
	return c.primary.IsHealthy(ctx)
}
