package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BeliefStore is a Postgres-backed domain.BeliefStore.
type BeliefStore struct {
	db *pgxpool.Pool
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

const selectBeliefColumns = `SELECT
	id, agent_id, statement, confidence, category_primary, category_secondary, category_tags, category_confidence,
	evidence_memory_ids, tags, reinforcement_count, created_at, last_updated, active`

func (s *BeliefStore) Put(ctx context.Context, b *domain.Belief) error {
	if b.ID == "" {
		return corerr.InvalidInput("id", b.ID, "belief id must not be empty")
	}

	evidence := setToSlice(b.EvidenceMemoryIDs)
	tags := setToSlice(b.Tags)
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	categoryTagsJSON, err := json.Marshal(b.Category.Tags)
	if err != nil {
		return fmt.Errorf("marshal category tags: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO beliefs (
			id, agent_id, statement, confidence, category_primary, category_secondary, category_tags, category_confidence,
			evidence_memory_ids, tags, reinforcement_count, created_at, last_updated, active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			statement = EXCLUDED.statement,
			confidence = EXCLUDED.confidence,
			category_primary = EXCLUDED.category_primary,
			category_secondary = EXCLUDED.category_secondary,
			category_tags = EXCLUDED.category_tags,
			category_confidence = EXCLUDED.category_confidence,
			evidence_memory_ids = EXCLUDED.evidence_memory_ids,
			tags = EXCLUDED.tags,
			reinforcement_count = EXCLUDED.reinforcement_count,
			last_updated = EXCLUDED.last_updated,
			active = EXCLUDED.active`,
		b.ID, b.AgentID, b.Statement, b.Confidence, b.Category.Primary, b.Category.Secondary, categoryTagsJSON, b.Category.Confidence,
		evidenceJSON, tagsJSON, b.ReinforcementCount, b.CreatedAt, b.LastUpdated, b.Active,
	)
	if err != nil {
		return fmt.Errorf("put belief: %w", err)
	}
	return nil
}

func (s *BeliefStore) Get(ctx context.Context, id string) (*domain.Belief, error) {
	row := s.db.QueryRow(ctx, selectBeliefColumns+` FROM beliefs WHERE id = $1`, id)
	b, err := scanBeliefRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get belief: %w", err)
	}
	return b, nil
}

func (s *BeliefStore) GetMany(ctx context.Context, ids []string) (map[string]*domain.Belief, error) {
	out := make(map[string]*domain.Belief, len(ids))
	rows, err := s.db.Query(ctx, selectBeliefColumns+` FROM beliefs WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get many beliefs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanBeliefRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan belief row: %w", err)
		}
		out[b.ID] = b
	}
	return out, rows.Err()
}

func (s *BeliefStore) Remove(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM beliefs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove belief: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *BeliefStore) ListByAgent(ctx context.Context, agentID domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	query := selectBeliefColumns + ` FROM beliefs WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active = true`
	}
	return s.queryMany(ctx, query, agentID)
}

func (s *BeliefStore) ListByCategory(ctx context.Context, category string, agentID *domain.AgentID) ([]domain.Belief, error) {
	query := selectBeliefColumns + ` FROM beliefs WHERE category_primary = $1`
	args := []any{category}
	if agentID != nil {
		args = append(args, *agentID)
		query += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}
	return s.queryMany(ctx, query, args...)
}

// FindSimilar ranks by pg_trgm similarity() on the statement text. Beliefs
// carry no embedding and are not indexed in internal/store/qdrantindex, so
// this is the only similarity internal/brca uses for beliefs.
func (s *BeliefStore) FindSimilar(ctx context.Context, statement string, agentID domain.AgentID, similarityFloor float64, k int) ([]domain.Belief, error) {
	rows, err := s.db.Query(ctx,
		selectBeliefColumns+`, similarity(statement, $1) AS score
		 FROM beliefs
		 WHERE agent_id = $2 AND active = true AND similarity(statement, $1) >= $3
		 ORDER BY score DESC
		 LIMIT $4`,
		statement, agentID, similarityFloor, k,
	)
	if err != nil {
		return nil, fmt.Errorf("find similar beliefs: %w", err)
	}
	defer rows.Close()

	var out []domain.Belief
	for rows.Next() {
		b, score, err := scanBeliefRowWithScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan find similar row: %w", err)
		}
		_ = score
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *BeliefStore) queryMany(ctx context.Context, query string, args ...any) ([]domain.Belief, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query beliefs: %w", err)
	}
	defer rows.Close()

	var out []domain.Belief
	for rows.Next() {
		b, err := scanBeliefRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan belief row: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *BeliefStore) PutConflict(ctx context.Context, c *domain.BeliefConflict) error {
	if c.ID == "" {
		return corerr.InvalidInput("id", c.ID, "conflict id must not be empty")
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO belief_conflicts (
			id, agent_id, belief_id, conflicting_belief_id, memory_id, detected_at, resolved, resolved_at,
			resolution, resolution_details, severity, conflict_type, auto_resolvable
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			resolved = EXCLUDED.resolved,
			resolved_at = EXCLUDED.resolved_at,
			resolution = EXCLUDED.resolution,
			resolution_details = EXCLUDED.resolution_details,
			severity = EXCLUDED.severity`,
		c.ID, c.AgentID, nullableString(c.BeliefID), nullableString(c.ConflictingBeliefID), nullableString(c.MemoryID),
		c.DetectedAt, c.Resolved, c.ResolvedAt, c.Resolution, c.ResolutionDetails, c.Severity, c.ConflictType, c.AutoResolvable,
	)
	if err != nil {
		return fmt.Errorf("put conflict: %w", err)
	}
	return nil
}

func (s *BeliefStore) GetConflict(ctx context.Context, id string) (*domain.BeliefConflict, error) {
	row := s.db.QueryRow(ctx, selectConflictColumns+` FROM belief_conflicts WHERE id = $1`, id)
	c, err := scanConflictRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return c, nil
}

func (s *BeliefStore) RemoveConflict(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM belief_conflicts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove conflict: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *BeliefStore) ListConflictsByAgent(ctx context.Context, agentID domain.AgentID, onlyUnresolved bool) ([]domain.BeliefConflict, error) {
	query := selectConflictColumns + ` FROM belief_conflicts WHERE agent_id = $1`
	if onlyUnresolved {
		query += ` AND resolved = false`
	}
	rows, err := s.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var out []domain.BeliefConflict
	for rows.Next() {
		c, err := scanConflictRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict row: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *BeliefStore) DistributionByCategory(ctx context.Context, agentID domain.AgentID) (map[string]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT category_primary, COUNT(*) FROM beliefs WHERE agent_id = $1 AND active = true GROUP BY category_primary`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("distribution by category: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		out[cat] = n
	}
	return out, rows.Err()
}

func (s *BeliefStore) DistributionByConfidenceBucket(ctx context.Context, agentID domain.AgentID, highThreshold, lowThreshold float64) (map[string]int, error) {
	out := map[string]int{"high": 0, "medium": 0, "low": 0}
	rows, err := s.db.Query(ctx,
		`SELECT
			CASE
				WHEN confidence >= $2 THEN 'high'
				WHEN confidence >= $3 THEN 'medium'
				ELSE 'low'
			END AS bucket,
			COUNT(*)
		 FROM beliefs WHERE agent_id = $1 AND active = true GROUP BY bucket`,
		agentID, highThreshold, lowThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("distribution by confidence bucket: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bucket string
		var n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		out[bucket] = n
	}
	return out, rows.Err()
}

func setToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
