package domain

import (
	"context"
	"time"
)

// MemoryStore is the capability contract C3, spec.md §4.3. Implementations
// exist for Postgres (internal/store/pgstore) and in-memory
// (internal/store/memstore).
type MemoryStore interface {
	// Put stores or replaces a record by id. On replace, Version must
	// strictly increase; Put fails with corerr.InvalidInput if ID is empty
	// or if a replace does not increase Version.
	Put(ctx context.Context, rec *MemoryRecord) error

	// Get returns the record and atomically updates LastAccessed/AccessCount.
	// A missing id returns (nil, nil), not an error.
	Get(ctx context.Context, id string) (*MemoryRecord, error)

	GetMany(ctx context.Context, ids []string) (map[string]*MemoryRecord, error)

	Remove(ctx context.Context, id string) (bool, error)
	RemoveMany(ctx context.Context, ids []string) (map[string]bool, error)

	// SearchSimilar ranks records by decreasing similarity to queryText
	// (and queryVector when non-nil), ties broken by LastAccessed
	// descending. No score threshold is applied: every candidate record is
	// ranked, and limit alone bounds the result.
	SearchSimilar(ctx context.Context, queryText string, queryVector []float32, limit int, agentID *AgentID) ([]MemoryRecord, error)

	ListByAgent(ctx context.Context, agentID AgentID, limit int) ([]MemoryRecord, error)
	ListByCategory(ctx context.Context, category string, agentID *AgentID, limit int) ([]MemoryRecord, error)
	ListOlderThan(ctx context.Context, age time.Duration, agentID *AgentID, limit int) ([]MemoryRecord, error)
}

// BeliefStore is the capability contract C4, spec.md §4.5.
type BeliefStore interface {
	Put(ctx context.Context, b *Belief) error
	Get(ctx context.Context, id string) (*Belief, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Belief, error)
	Remove(ctx context.Context, id string) (bool, error)

	ListByAgent(ctx context.Context, agentID AgentID, includeInactive bool) ([]Belief, error)
	ListByCategory(ctx context.Context, category string, agentID *AgentID) ([]Belief, error)

	// FindSimilar returns active beliefs for agentID whose similarity to
	// statement is at least similarityFloor, limited to k results, ordered
	// by decreasing similarity.
	FindSimilar(ctx context.Context, statement string, agentID AgentID, similarityFloor float64, k int) ([]Belief, error)

	// Conflicts.
	PutConflict(ctx context.Context, c *BeliefConflict) error
	GetConflict(ctx context.Context, id string) (*BeliefConflict, error)
	RemoveConflict(ctx context.Context, id string) (bool, error)
	ListConflictsByAgent(ctx context.Context, agentID AgentID, onlyUnresolved bool) ([]BeliefConflict, error)

	// DistributionByCategory/DistributionByConfidenceBucket back the
	// read-through statistics contract of spec.md §4.5.
	DistributionByCategory(ctx context.Context, agentID AgentID) (map[string]int, error)
	DistributionByConfidenceBucket(ctx context.Context, agentID AgentID, highThreshold, lowThreshold float64) (map[string]int, error)
}

// GraphStore is the capability contract C5, spec.md §4.6.
type GraphStore interface {
	PutEdge(ctx context.Context, r *BeliefRelationship) error
	GetEdge(ctx context.Context, id string) (*BeliefRelationship, error)
	RemoveEdge(ctx context.Context, id string) (bool, error)

	// EdgesFrom/EdgesTo/EdgesBoth return edges touching beliefID in the
	// given direction, optionally including inactive edges.
	EdgesFrom(ctx context.Context, beliefID string, includeInactive bool) ([]BeliefRelationship, error)
	EdgesTo(ctx context.Context, beliefID string, includeInactive bool) ([]BeliefRelationship, error)
	EdgesBoth(ctx context.Context, beliefID string, includeInactive bool) ([]BeliefRelationship, error)

	EdgesByType(ctx context.Context, agentID AgentID, t RelationshipType, includeInactive bool) ([]BeliefRelationship, error)

	// EdgesBetween returns every edge (any type) between the ordered pair.
	EdgesBetween(ctx context.Context, sourceBeliefID, targetBeliefID string) ([]BeliefRelationship, error)

	ListByAgent(ctx context.Context, agentID AgentID, includeInactive bool) ([]BeliefRelationship, error)

	// RemoveOlderThan removes inactive relationships older than cutoff,
	// returning the count removed (spec.md §4.6 cleanup).
	RemoveOlderThan(ctx context.Context, agentID AgentID, cutoff time.Time) (int, error)
}

// EmbeddingClient is the capability contract C1, spec.md §4.1.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ExtractedBelief is one candidate belief returned by ExtractBeliefs,
// spec.md §4.2.
type ExtractedBelief struct {
	Statement  string
	Category   CategoryLabel
	Confidence float64
	Positive   bool
	Tags       []string
	Reasoning  string
}

// ExtractionClient is the capability contract C2, spec.md §4.2.
type ExtractionClient interface {
	ExtractBeliefs(ctx context.Context, content string, agentID AgentID, categoryHint CategoryLabel) ([]ExtractedBelief, error)
	Similarity(ctx context.Context, s1, s2 string) (float64, error)
	AreConflicting(ctx context.Context, s1, s2 string, cat1, cat2 CategoryLabel) (bool, error)
	ExtractCategory(ctx context.Context, statement string) (CategoryLabel, error)
	CalculateConfidence(ctx context.Context, content, statement string, categoryHint CategoryLabel) (confidence float64, reasoning string, err error)
	IsHealthy(ctx context.Context) bool
}
