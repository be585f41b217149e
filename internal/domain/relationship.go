package domain

import "time"

// RelationshipType enumerates the full edge vocabulary of the belief
// knowledge graph. Grounded on the teacher's smaller RelationType enum in
// internal/domain/graph.go, expanded to the 29 types spec.md §3 requires.
type RelationshipType string

const (
	RelSupersedes         RelationshipType = "Supersedes"
	RelUpdates            RelationshipType = "Updates"
	RelDeprecates         RelationshipType = "Deprecates"
	RelReplaces           RelationshipType = "Replaces"
	RelSupports           RelationshipType = "Supports"
	RelContradicts        RelationshipType = "Contradicts"
	RelImplies            RelationshipType = "Implies"
	RelReinforces         RelationshipType = "Reinforces"
	RelWeakens            RelationshipType = "Weakens"
	RelRelatesTo          RelationshipType = "RelatesTo"
	RelSpecializes        RelationshipType = "Specializes"
	RelGeneralizes        RelationshipType = "Generalizes"
	RelExtends            RelationshipType = "Extends"
	RelDerivesFrom        RelationshipType = "DerivesFrom"
	RelCauses             RelationshipType = "Causes"
	RelCausedBy           RelationshipType = "CausedBy"
	RelEnables            RelationshipType = "Enables"
	RelPrevents           RelationshipType = "Prevents"
	RelDependsOn          RelationshipType = "DependsOn"
	RelPrecedes           RelationshipType = "Precedes"
	RelFollows            RelationshipType = "Follows"
	RelContextFor         RelationshipType = "ContextFor"
	RelEvidencedBy        RelationshipType = "EvidencedBy"
	RelProvidesEvidenceFor RelationshipType = "ProvidesEvidenceFor"
	RelConflictsWith      RelationshipType = "ConflictsWith"
	RelSimilarTo          RelationshipType = "SimilarTo"
	RelAnalogousTo        RelationshipType = "AnalogousTo"
	RelContrastsWith      RelationshipType = "ContrastsWith"
	RelCustom             RelationshipType = "Custom"
)

// DeprecatingRelationTypes are the edge types for which at most one active
// edge may exist between the same ordered pair (spec.md §3).
var DeprecatingRelationTypes = map[RelationshipType]bool{
	RelSupersedes: true,
	RelDeprecates: true,
	RelReplaces:   true,
	RelUpdates:    true,
}

// ContradictionRelationTypes are the edge types findConflicts() follows.
var ContradictionRelationTypes = map[RelationshipType]bool{
	RelContradicts:   true,
	RelConflictsWith: true,
}

// ValidRelationshipType reports whether t is one of the 29 known types.
func ValidRelationshipType(t RelationshipType) bool {
	switch t {
	case RelSupersedes, RelUpdates, RelDeprecates, RelReplaces, RelSupports,
		RelContradicts, RelImplies, RelReinforces, RelWeakens, RelRelatesTo,
		RelSpecializes, RelGeneralizes, RelExtends, RelDerivesFrom, RelCauses,
		RelCausedBy, RelEnables, RelPrevents, RelDependsOn, RelPrecedes,
		RelFollows, RelContextFor, RelEvidencedBy, RelProvidesEvidenceFor,
		RelConflictsWith, RelSimilarTo, RelAnalogousTo, RelContrastsWith,
		RelCustom:
		return true
	}
	return false
}

// BeliefRelationship is a typed, temporally-qualified edge in the belief
// knowledge graph. See spec.md §3.
type BeliefRelationship struct {
	ID                 string
	AgentID            AgentID
	SourceBeliefID     string
	TargetBeliefID     string
	Type               RelationshipType
	Strength           float64
	Metadata           map[string]any
	EffectiveFrom      time.Time
	EffectiveUntil     *time.Time
	DeprecationReason  string
	Active             bool
	CreatedAt          time.Time
}

// CurrentlyEffective implements spec.md §4.6/§GLOSSARY: an edge is
// currently effective iff active and within its effective window at t.
func (r BeliefRelationship) CurrentlyEffective(t time.Time) bool {
	if !r.Active {
		return false
	}
	if r.EffectiveFrom.After(t) {
		return false
	}
	if r.EffectiveUntil != nil && !r.EffectiveUntil.After(t) {
		return false
	}
	return true
}
