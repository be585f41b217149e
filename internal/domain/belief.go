package domain

import "time"

// Belief is a distilled proposition held by an agent, with evidence and
// confidence. See spec.md §3.
type Belief struct {
	ID                 string
	AgentID            AgentID
	Statement          string
	Confidence         float64
	Category           CategoryLabel
	EvidenceMemoryIDs  map[string]struct{}
	Tags               map[string]struct{}
	ReinforcementCount int
	CreatedAt          time.Time
	LastUpdated        time.Time
	Active             bool
}

// Clone returns a copy that does not alias the receiver's sets.
func (b Belief) Clone() Belief {
	c := b
	if b.EvidenceMemoryIDs != nil {
		c.EvidenceMemoryIDs = make(map[string]struct{}, len(b.EvidenceMemoryIDs))
		for k := range b.EvidenceMemoryIDs {
			c.EvidenceMemoryIDs[k] = struct{}{}
		}
	}
	if b.Tags != nil {
		c.Tags = make(map[string]struct{}, len(b.Tags))
		for k := range b.Tags {
			c.Tags[k] = struct{}{}
		}
	}
	return c
}

// AddEvidence records that memoryID supports this belief.
func (b *Belief) AddEvidence(memoryID string) {
	if b.EvidenceMemoryIDs == nil {
		b.EvidenceMemoryIDs = make(map[string]struct{})
	}
	b.EvidenceMemoryIDs[memoryID] = struct{}{}
}

// ResolutionKind enumerates how a BeliefConflict was, or should be, resolved.
type ResolutionKind string

const (
	ResolutionKeepOld             ResolutionKind = "KeepOld"
	ResolutionKeepNew             ResolutionKind = "KeepNew"
	ResolutionArchiveOld          ResolutionKind = "ArchiveOld"
	ResolutionMergeBoth           ResolutionKind = "MergeBoth"
	ResolutionRequireManualReview ResolutionKind = "RequireManualReview"
)

// ConflictSeverity is a coarse-grained signal surfaced on a BeliefConflict;
// see SPEC_FULL.md's supplemented "cross-pair conflict severity" feature.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// ConflictType is the deterministic classification from
// determineConflictType, spec.md §4.5.
type ConflictType string

const (
	ConflictBeliefBelief ConflictType = "belief_belief"
	ConflictBeliefMemory ConflictType = "belief_memory"
	ConflictUnknown      ConflictType = "unknown"
)

// BeliefConflict records a detected incompatibility between two beliefs, or
// between a belief and a memory that contradicts it. See spec.md §3.
//
// ConflictType and AutoResolvable are computed, persisted fields —
// resolving the spec's Open Question on the BeliefConflictMapper shape in
// favor of the mapped-fields variant; see DESIGN.md.
type BeliefConflict struct {
	ID                   string
	AgentID              AgentID
	BeliefID             string
	ConflictingBeliefID   string
	MemoryID             string
	DetectedAt           time.Time
	Resolved             bool
	ResolvedAt           *time.Time
	Resolution           ResolutionKind
	ResolutionDetails    string
	Severity             ConflictSeverity
	ConflictType         ConflictType
	AutoResolvable       bool
}

// DetermineConflictType implements spec.md §4.5's determineConflictType.
func DetermineConflictType(c BeliefConflict) ConflictType {
	switch {
	case c.BeliefID != "" && c.ConflictingBeliefID != "":
		return ConflictBeliefBelief
	case c.BeliefID != "" && c.MemoryID != "":
		return ConflictBeliefMemory
	default:
		return ConflictUnknown
	}
}
