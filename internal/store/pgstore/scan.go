package pgstore

import (
	"encoding/json"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const selectMemoryColumns = `SELECT
	id, agent_id, content, category_primary, category_secondary, category_tags, category_confidence,
	meta_importance, meta_source, meta_tags, meta_access_count, meta_confidence, meta_extra,
	created_at, last_accessed, relevance_score, version, embedding`

func scanMemoryRow(row rowScanner) (*domain.MemoryRecord, error) {
	var rec domain.MemoryRecord
	var categoryTags, metaTags []byte
	var metaExtra []byte
	var embedding *pgvector.Vector

	err := row.Scan(
		&rec.ID, &rec.AgentID, &rec.Content, &rec.Category.Primary, &rec.Category.Secondary, &categoryTags, &rec.Category.Confidence,
		&rec.Metadata.Importance, &rec.Metadata.Source, &metaTags, &rec.Metadata.AccessCount, &rec.Metadata.Confidence, &metaExtra,
		&rec.CreatedAt, &rec.LastAccessed, &rec.RelevanceScore, &rec.Version, &embedding,
	)
	if err != nil {
		return nil, err
	}

	if len(categoryTags) > 0 {
		_ = json.Unmarshal(categoryTags, &rec.Category.Tags)
	}
	if len(metaTags) > 0 {
		_ = json.Unmarshal(metaTags, &rec.Metadata.Tags)
	}
	if len(metaExtra) > 0 {
		_ = json.Unmarshal(metaExtra, &rec.Metadata.Extra)
	}
	if embedding != nil {
		rec.Embedding = embedding.Slice()
	}
	return &rec, nil
}

const selectConflictColumns = `SELECT
	id, agent_id, belief_id, conflicting_belief_id, memory_id, detected_at, resolved, resolved_at,
	resolution, resolution_details, severity, conflict_type, auto_resolvable`

func scanConflictRow(row rowScanner) (*domain.BeliefConflict, error) {
	var c domain.BeliefConflict
	var beliefID, conflictingID, memoryID *string

	err := row.Scan(
		&c.ID, &c.AgentID, &beliefID, &conflictingID, &memoryID, &c.DetectedAt, &c.Resolved, &c.ResolvedAt,
		&c.Resolution, &c.ResolutionDetails, &c.Severity, &c.ConflictType, &c.AutoResolvable,
	)
	if err != nil {
		return nil, err
	}
	if beliefID != nil {
		c.BeliefID = *beliefID
	}
	if conflictingID != nil {
		c.ConflictingBeliefID = *conflictingID
	}
	if memoryID != nil {
		c.MemoryID = *memoryID
	}
	return &c, nil
}

func scanBeliefRow(row rowScanner) (*domain.Belief, error) {
	var b domain.Belief
	var categoryTags, evidence, tags []byte

	err := row.Scan(
		&b.ID, &b.AgentID, &b.Statement, &b.Confidence, &b.Category.Primary, &b.Category.Secondary, &categoryTags, &b.Category.Confidence,
		&evidence, &tags, &b.ReinforcementCount, &b.CreatedAt, &b.LastUpdated, &b.Active,
	)
	if err != nil {
		return nil, err
	}

	if len(categoryTags) > 0 {
		_ = json.Unmarshal(categoryTags, &b.Category.Tags)
	}
	b.EvidenceMemoryIDs = sliceToSet(evidence)
	b.Tags = sliceToSet(tags)
	return &b, nil
}

func scanBeliefRowWithScore(row rowScanner) (*domain.Belief, float64, error) {
	var b domain.Belief
	var categoryTags, evidence, tags []byte
	var score float64

	err := row.Scan(
		&b.ID, &b.AgentID, &b.Statement, &b.Confidence, &b.Category.Primary, &b.Category.Secondary, &categoryTags, &b.Category.Confidence,
		&evidence, &tags, &b.ReinforcementCount, &b.CreatedAt, &b.LastUpdated, &b.Active,
		&score,
	)
	if err != nil {
		return nil, 0, err
	}

	if len(categoryTags) > 0 {
		_ = json.Unmarshal(categoryTags, &b.Category.Tags)
	}
	b.EvidenceMemoryIDs = sliceToSet(evidence)
	b.Tags = sliceToSet(tags)
	return &b, score, nil
}

func sliceToSet(raw []byte) map[string]struct{} {
	out := make(map[string]struct{})
	if len(raw) == 0 {
		return out
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func scanMemoryRowWithScore(row rowScanner) (*domain.MemoryRecord, float64, error) {
	var rec domain.MemoryRecord
	var categoryTags, metaTags, metaExtra []byte
	var embedding *pgvector.Vector
	var score float64

	err := row.Scan(
		&rec.ID, &rec.AgentID, &rec.Content, &rec.Category.Primary, &rec.Category.Secondary, &categoryTags, &rec.Category.Confidence,
		&rec.Metadata.Importance, &rec.Metadata.Source, &metaTags, &rec.Metadata.AccessCount, &rec.Metadata.Confidence, &metaExtra,
		&rec.CreatedAt, &rec.LastAccessed, &rec.RelevanceScore, &rec.Version, &embedding,
		&score,
	)
	if err != nil {
		return nil, 0, err
	}

	if len(categoryTags) > 0 {
		_ = json.Unmarshal(categoryTags, &rec.Category.Tags)
	}
	if len(metaTags) > 0 {
		_ = json.Unmarshal(metaTags, &rec.Metadata.Tags)
	}
	if len(metaExtra) > 0 {
		_ = json.Unmarshal(metaExtra, &rec.Metadata.Extra)
	}
	if embedding != nil {
		rec.Embedding = embedding.Slice()
	}
	return &rec, score, nil
}
