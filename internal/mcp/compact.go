package mcp

import (
	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

// compactMemory projects a MemoryRecord down to the fields an agent needs
// to decide whether a search hit is relevant, grounded on the teacher
// pack's map[string]any response-projection style rather than marshaling
// the full internal struct (which carries the embedding).
func compactMemory(m domain.MemoryRecord) map[string]any {
	out := map[string]any{
		"id":         m.ID,
		"content":    truncate(m.Content, 500),
		"category":   m.Category.Primary,
		"tags":       m.Category.Tags,
		"created_at": m.CreatedAt,
		"source":     m.Metadata.Source,
	}
	if m.RelevanceScore != nil {
		out["relevance_score"] = *m.RelevanceScore
	}
	return out
}

func compactBelief(b domain.Belief) map[string]any {
	return map[string]any{
		"id":                  b.ID,
		"statement":           b.Statement,
		"confidence":          b.Confidence,
		"category":            b.Category.Primary,
		"tags":                setToSlice(b.Tags),
		"reinforcement_count": b.ReinforcementCount,
		"evidence_count":      len(b.EvidenceMemoryIDs),
		"active":              b.Active,
		"last_updated":        b.LastUpdated,
	}
}

func compactConflict(c domain.BeliefConflict) map[string]any {
	out := map[string]any{
		"id":                    c.ID,
		"belief_id":             c.BeliefID,
		"conflicting_belief_id": c.ConflictingBeliefID,
		"memory_id":             c.MemoryID,
		"conflict_type":         c.ConflictType,
		"severity":              c.Severity,
		"resolved":              c.Resolved,
		"resolution":            c.Resolution,
		"auto_resolvable":       c.AutoResolvable,
	}
	if c.ResolutionDetails != "" {
		out["resolution_details"] = c.ResolutionDetails
	}
	return out
}

func compactRelationship(r domain.BeliefRelationship) map[string]any {
	out := map[string]any{
		"source_belief_id": r.SourceBeliefID,
		"target_belief_id": r.TargetBeliefID,
		"type":             r.Type,
		"strength":         r.Strength,
		"active":           r.Active,
	}
	if r.DeprecationReason != "" {
		out["deprecation_reason"] = r.DeprecationReason
	}
	return out
}

// truncate shortens s to at most n runes, appending an ellipsis marker so
// an agent knows the content was cut rather than naturally short.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
