// Package orchestrator implements the Ingestion Orchestrator (C10),
// spec.md §4.8: the single entrypoint sequencing categorize -> encode ->
// analyze for one piece of ingested content.
package orchestrator

import (
	"context"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/brca"
	"github.com/ant-engram/belief-memory-engine/internal/categorize"
	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/memoryengine"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minContentLength = 1
	maxContentLength = 10_000
)

// IngestionInput is the orchestrator's single request shape, per spec.md
// §4.8/§6.
type IngestionInput struct {
	AgentID   domain.AgentID
	Content   string
	Source    string
	Timestamp *time.Time
	Metadata  domain.MemoryMetadata
	DryRun    bool
}

// IngestionResult is the orchestrator's single response shape, per
// spec.md §4.8.
type IngestionResult struct {
	MemoryID             string
	Category             domain.CategoryLabel
	NewBeliefIDs         []string
	ReinforcedBeliefIDs  []string
	ConflictIDs          []string
	DryRun               bool
	ProcessingTimeMs     int64
	BeliefAnalysisFailed bool
}

// Orchestrator is the concrete Ingestion Orchestrator.
type Orchestrator struct {
	categorizer *categorize.Engine
	encoder     *memoryengine.Engine
	analyzer    *brca.Engine
	clockSkew   time.Duration
	logger      *zap.Logger
}

// NewOrchestrator constructs an Orchestrator from the three upstream
// components it sequences.
func NewOrchestrator(categorizer *categorize.Engine, encoder *memoryengine.Engine, analyzer *brca.Engine, clockSkew time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clockSkew <= 0 {
		clockSkew = time.Minute
	}
	return &Orchestrator{categorizer: categorizer, encoder: encoder, analyzer: analyzer, clockSkew: clockSkew, logger: logger}
}

// Ingest runs validate -> categorize(C6) -> encode(C7) -> analyze(C8) for
// one piece of content, per spec.md §4.8.
func (o *Orchestrator) Ingest(ctx context.Context, input IngestionInput) (IngestionResult, error) {
	start := time.Now()

	if err := o.validate(input, start); err != nil {
		return IngestionResult{}, err
	}

	category := o.categorizer.Categorize(ctx, input.Content, input.Metadata)

	if input.DryRun {
		return IngestionResult{
			MemoryID:         "dry-run-" + uuid.NewString(),
			Category:         category,
			DryRun:           true,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	metadata := input.Metadata
	metadata.Source = input.Source

	rec, err := o.encoder.EncodeAndStore(ctx, input.Content, category, metadata, input.AgentID)
	if err != nil {
		return IngestionResult{}, err
	}

	result := IngestionResult{
		MemoryID:         rec.ID,
		Category:         category,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	update, err := o.analyzer.AnalyzeNewMemory(ctx, rec)
	if err != nil {
		// The memory is already persisted: belief analysis failing must
		// not lose it, per spec.md §4.8/§5's cancellation discipline.
		o.logger.Warn("belief analysis failed after memory was encoded",
			zap.String("memory_id", rec.ID), zap.Error(err))
		result.BeliefAnalysisFailed = true
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result, corerr.BeliefAnalysisIncomplete(rec.ID, err)
	}

	for _, b := range update.NewBeliefs {
		result.NewBeliefIDs = append(result.NewBeliefIDs, b.ID)
	}
	for _, b := range update.ReinforcedBeliefs {
		result.ReinforcedBeliefIDs = append(result.ReinforcedBeliefIDs, b.ID)
	}
	for _, c := range update.Conflicts {
		result.ConflictIDs = append(result.ConflictIDs, c.ID)
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	return result, nil
}

// Validate reports field-level errors without performing the ingestion,
// per spec.md §6's validate(input) -> ok | field errors.
func (o *Orchestrator) Validate(input IngestionInput) error {
	return o.validate(input, time.Now())
}

func (o *Orchestrator) validate(input IngestionInput, now time.Time) error {
	if input.AgentID == "" {
		return corerr.InvalidInput("agentId", input.AgentID, "agentId must not be empty")
	}
	n := len(input.Content)
	if n < minContentLength || n > maxContentLength {
		return corerr.InvalidInput("content", n, "content length must be between 1 and 10000")
	}
	if input.Timestamp != nil && input.Timestamp.After(now.Add(o.clockSkew)) {
		return corerr.InvalidInput("timestamp", *input.Timestamp, "timestamp must not be in the future beyond the allowed clock skew")
	}
	return nil
}
