package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphStore is a Postgres-backed domain.GraphStore. Unlike the teacher's
// symmetric-relation graph, belief relationships are strictly directional,
// so no reverse-edge duplication happens on write.
type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

const selectEdgeColumns = `SELECT
	id, agent_id, source_belief_id, target_belief_id, type, strength, metadata,
	effective_from, effective_until, deprecation_reason, active, created_at`

func (s *GraphStore) PutEdge(ctx context.Context, r *domain.BeliefRelationship) error {
	if r.ID == "" {
		return corerr.InvalidInput("id", r.ID, "relationship id must not be empty")
	}

	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO belief_relationships (
			id, agent_id, source_belief_id, target_belief_id, type, strength, metadata,
			effective_from, effective_until, deprecation_reason, active, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			strength = EXCLUDED.strength,
			metadata = EXCLUDED.metadata,
			effective_until = EXCLUDED.effective_until,
			deprecation_reason = EXCLUDED.deprecation_reason,
			active = EXCLUDED.active`,
		r.ID, r.AgentID, r.SourceBeliefID, r.TargetBeliefID, r.Type, r.Strength, metadataJSON,
		r.EffectiveFrom, r.EffectiveUntil, r.DeprecationReason, r.Active, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put edge: %w", err)
	}
	return nil
}

func (s *GraphStore) GetEdge(ctx context.Context, id string) (*domain.BeliefRelationship, error) {
	row := s.db.QueryRow(ctx, selectEdgeColumns+` FROM belief_relationships WHERE id = $1`, id)
	r, err := scanEdgeRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get edge: %w", err)
	}
	return r, nil
}

func (s *GraphStore) RemoveEdge(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM belief_relationships WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove edge: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *GraphStore) EdgesFrom(ctx context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	query := selectEdgeColumns + ` FROM belief_relationships WHERE source_belief_id = $1`
	if !includeInactive {
		query += ` AND active = true`
	}
	return s.queryMany(ctx, query, beliefID)
}

func (s *GraphStore) EdgesTo(ctx context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	query := selectEdgeColumns + ` FROM belief_relationships WHERE target_belief_id = $1`
	if !includeInactive {
		query += ` AND active = true`
	}
	return s.queryMany(ctx, query, beliefID)
}

func (s *GraphStore) EdgesBoth(ctx context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	query := selectEdgeColumns + ` FROM belief_relationships WHERE (source_belief_id = $1 OR target_belief_id = $1)`
	if !includeInactive {
		query += ` AND active = true`
	}
	return s.queryMany(ctx, query, beliefID)
}

func (s *GraphStore) EdgesByType(ctx context.Context, agentID domain.AgentID, t domain.RelationshipType, includeInactive bool) ([]domain.BeliefRelationship, error) {
	query := selectEdgeColumns + ` FROM belief_relationships WHERE agent_id = $1 AND type = $2`
	if !includeInactive {
		query += ` AND active = true`
	}
	return s.queryMany(ctx, query, agentID, t)
}

func (s *GraphStore) EdgesBetween(ctx context.Context, sourceBeliefID, targetBeliefID string) ([]domain.BeliefRelationship, error) {
	query := selectEdgeColumns + ` FROM belief_relationships WHERE source_belief_id = $1 AND target_belief_id = $2`
	return s.queryMany(ctx, query, sourceBeliefID, targetBeliefID)
}

func (s *GraphStore) ListByAgent(ctx context.Context, agentID domain.AgentID, includeInactive bool) ([]domain.BeliefRelationship, error) {
	query := selectEdgeColumns + ` FROM belief_relationships WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active = true`
	}
	return s.queryMany(ctx, query, agentID)
}

func (s *GraphStore) RemoveOlderThan(ctx context.Context, agentID domain.AgentID, cutoff time.Time) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM belief_relationships WHERE agent_id = $1 AND active = false AND created_at < $2`,
		agentID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("remove older than: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *GraphStore) queryMany(ctx context.Context, query string, args ...any) ([]domain.BeliefRelationship, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []domain.BeliefRelationship
	for rows.Next() {
		r, err := scanEdgeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanEdgeRow(row rowScanner) (*domain.BeliefRelationship, error) {
	var r domain.BeliefRelationship
	var metadata []byte

	err := row.Scan(
		&r.ID, &r.AgentID, &r.SourceBeliefID, &r.TargetBeliefID, &r.Type, &r.Strength, &metadata,
		&r.EffectiveFrom, &r.EffectiveUntil, &r.DeprecationReason, &r.Active, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &r.Metadata)
	}
	return &r, nil
}
