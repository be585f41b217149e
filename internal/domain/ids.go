// Package domain holds the core data model and capability interfaces of the
// Belief-Memory Engine: memories, beliefs, conflicts, and the belief
// relationship graph. It has no dependency on any concrete storage,
// embedding, or extraction backend — those are expressed here only as
// interfaces, per the capability-interface design in DESIGN.md.
package domain

import "github.com/google/uuid"

// AgentID partitions every entity in the system. It is supplied by the
// caller (not assigned by the core) and is treated as an opaque string.
type AgentID string

// idWithPrefix generates an opaque, globally unique identifier assigned by
// the core, in the "<prefix>_<uuid>" shape used throughout this package.
func idWithPrefix(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

const (
	memoryIDPrefix       = "mem"
	beliefIDPrefix       = "blf"
	conflictIDPrefix     = "cfl"
	relationshipIDPrefix = "rel"
)

// NewMemoryID assigns a new opaque memory identifier.
func NewMemoryID() string { return idWithPrefix(memoryIDPrefix) }

// NewBeliefID assigns a new opaque belief identifier.
func NewBeliefID() string { return idWithPrefix(beliefIDPrefix) }

// NewConflictID assigns a new opaque conflict identifier.
func NewConflictID() string { return idWithPrefix(conflictIDPrefix) }

// NewRelationshipID assigns a new opaque relationship identifier.
func NewRelationshipID() string { return idWithPrefix(relationshipIDPrefix) }
