// Package pgstore implements the C3/C4/C5 capability interfaces against
// Postgres with the pgvector extension, grounded on the teacher's
// internal/store/{memory,graph,contradiction,schema}.go pgx query style.
// Opaque prefixed string ids (mem_/blf_/cfl_/rel_) are stored as TEXT
// primary keys rather than the teacher's uuid.UUID columns.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// MemoryStore is a Postgres-backed domain.MemoryStore.
type MemoryStore struct {
	db *pgxpool.Pool
}

// NewMemoryStore wraps an existing pool. The caller owns the pool's
// lifecycle (Connect/Close), per the teacher's convention.
func NewMemoryStore(db *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{db: db}
}

func (s *MemoryStore) Put(ctx context.Context, rec *domain.MemoryRecord) error {
	if rec.ID == "" {
		return corerr.InvalidInput("id", rec.ID, "record id must not be empty")
	}

	var embedding *pgvector.Vector
	if len(rec.Embedding) > 0 {
		v := pgvector.NewVector(rec.Embedding)
		embedding = &v
	}

	categoryTags, err := json.Marshal(rec.Category.Tags)
	if err != nil {
		return fmt.Errorf("marshal category tags: %w", err)
	}
	metaTags, err := json.Marshal(rec.Metadata.Tags)
	if err != nil {
		return fmt.Errorf("marshal metadata tags: %w", err)
	}
	metaExtra, err := json.Marshal(rec.Metadata.Extra)
	if err != nil {
		return fmt.Errorf("marshal metadata extra: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO memories (
			id, agent_id, content, category_primary, category_secondary, category_tags, category_confidence,
			meta_importance, meta_source, meta_tags, meta_access_count, meta_confidence, meta_extra,
			created_at, last_accessed, relevance_score, version, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18
		)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			category_primary = EXCLUDED.category_primary,
			category_secondary = EXCLUDED.category_secondary,
			category_tags = EXCLUDED.category_tags,
			category_confidence = EXCLUDED.category_confidence,
			meta_importance = EXCLUDED.meta_importance,
			meta_source = EXCLUDED.meta_source,
			meta_tags = EXCLUDED.meta_tags,
			meta_access_count = EXCLUDED.meta_access_count,
			meta_confidence = EXCLUDED.meta_confidence,
			meta_extra = EXCLUDED.meta_extra,
			last_accessed = EXCLUDED.last_accessed,
			relevance_score = EXCLUDED.relevance_score,
			version = EXCLUDED.version,
			embedding = EXCLUDED.embedding
		WHERE memories.version < EXCLUDED.version`,
		rec.ID, rec.AgentID, rec.Content, rec.Category.Primary, rec.Category.Secondary, categoryTags, rec.Category.Confidence,
		rec.Metadata.Importance, rec.Metadata.Source, metaTags, rec.Metadata.AccessCount, rec.Metadata.Confidence, metaExtra,
		rec.CreatedAt, rec.LastAccessed, rec.RelevanceScore, rec.Version, embedding,
	)
	if err != nil {
		return fmt.Errorf("put memory: %w", err)
	}
	// The WHERE clause on the ON CONFLICT update makes a non-increasing
	// version a no-op row-wise rather than an error, so a zero-row result
	// here means exactly that: an existing row was targeted but rejected
	// for not strictly increasing its version. A brand-new insert always
	// affects exactly one row regardless of the clause.
	if tag.RowsAffected() == 0 {
		return corerr.InvalidInput("version", rec.Version, "version must strictly increase on replace")
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.MemoryRecord, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories SET last_accessed = NOW(), meta_access_count = meta_access_count + 1 WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("touch memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}

	rec, err := s.scanOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *MemoryStore) scanOne(ctx context.Context, id string) (*domain.MemoryRecord, error) {
	row := s.db.QueryRow(ctx, selectMemoryColumns+` FROM memories WHERE id = $1`, id)
	rec, err := scanMemoryRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return rec, nil
}

func (s *MemoryStore) GetMany(ctx context.Context, ids []string) (map[string]*domain.MemoryRecord, error) {
	out := make(map[string]*domain.MemoryRecord, len(ids))
	rows, err := s.db.Query(ctx, selectMemoryColumns+` FROM memories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get many memories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

func (s *MemoryStore) Remove(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove memory: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *MemoryStore) RemoveMany(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		ok, err := s.Remove(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = ok
	}
	return out, nil
}

// textFallbackScanCap bounds how many candidate rows the text-Jaccard
// fallback path scores in application code, since there is no SQL-side
// ranking function for it the way pgvector gives cosine distance.
const textFallbackScanCap = 500

type scoredMemory struct {
	rec   domain.MemoryRecord
	score float64
}

// SearchSimilar ranks stored records against query per spec.md §4.4 step
// 5: cosine distance for rows that have an embedding and a query vector
// to compare against, text Jaccard as a last resort for everything else
// — including rows with no embedding at all (embedder was down at
// ingest time, which is explicitly not fatal) and, when the caller has
// no query vector either, every row.
func (s *MemoryStore) SearchSimilar(ctx context.Context, queryText string, queryVector []float32, limit int, agentID *domain.AgentID) ([]domain.MemoryRecord, error) {
	var matches []scoredMemory

	if len(queryVector) > 0 {
		vecMatches, err := s.searchByVector(ctx, queryVector, limit, agentID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, vecMatches...)

		textMatches, err := s.searchByText(ctx, queryText, agentID, true)
		if err != nil {
			return nil, err
		}
		matches = append(matches, textMatches...)
	} else {
		textMatches, err := s.searchByText(ctx, queryText, agentID, false)
		if err != nil {
			return nil, err
		}
		matches = textMatches
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].rec.LastAccessed.After(matches[j].rec.LastAccessed)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]domain.MemoryRecord, len(matches))
	for i, m := range matches {
		out[i] = m.rec
	}
	return out, nil
}

// searchByVector scores rows that carry an embedding via pgvector cosine
// distance.
func (s *MemoryStore) searchByVector(ctx context.Context, queryVector []float32, limit int, agentID *domain.AgentID) ([]scoredMemory, error) {
	conditions := []string{"embedding IS NOT NULL"}
	args := []any{}
	if agentID != nil {
		args = append(args, *agentID)
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", len(args)))
	}

	vec := pgvector.NewVector(queryVector)
	args = append(args, vec)
	vecParam := len(args)

	args = append(args, limit)
	limitParam := len(args)

	query := fmt.Sprintf(
		selectMemoryColumns+`, 1 - (embedding <=> $%d) AS score
		 FROM memories WHERE %s
		 ORDER BY score DESC, last_accessed DESC
		 LIMIT $%d`,
		vecParam, joinConditions(conditions), limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search similar (vector): %w", err)
	}
	defer rows.Close()

	var out []scoredMemory
	for rows.Next() {
		rec, score, err := scanMemoryRowWithScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, scoredMemory{rec: *rec, score: score})
	}
	return out, rows.Err()
}

// searchByText scores rows by text-Jaccard similarity in application
// code. When excludeEmbedded is true it only considers rows with no
// embedding (the ones searchByVector cannot see), since the caller
// already scored the embedded rows via cosine; otherwise it considers
// every row, for the case where the query itself has no vector to
// compare with.
func (s *MemoryStore) searchByText(ctx context.Context, queryText string, agentID *domain.AgentID, excludeEmbedded bool) ([]scoredMemory, error) {
	conditions := []string{}
	args := []any{}
	if excludeEmbedded {
		conditions = append(conditions, "embedding IS NULL")
	}
	if agentID != nil {
		args = append(args, *agentID)
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	args = append(args, textFallbackScanCap)
	capParam := len(args)

	query := selectMemoryColumns + ` FROM memories`
	if len(conditions) > 0 {
		query += ` WHERE ` + joinConditions(conditions)
	}
	query += fmt.Sprintf(` ORDER BY last_accessed DESC LIMIT $%d`, capParam)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search similar (text): %w", err)
	}
	defer rows.Close()

	var out []scoredMemory
	for rows.Next() {
		rec, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, scoredMemory{rec: *rec, score: textSimilarity(queryText, rec.Content)})
	}
	return out, rows.Err()
}

func (s *MemoryStore) ListByAgent(ctx context.Context, agentID domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	query := selectMemoryColumns + ` FROM memories WHERE agent_id = $1 ORDER BY created_at DESC`
	args := []any{agentID}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	return s.queryMany(ctx, query, args...)
}

func (s *MemoryStore) ListByCategory(ctx context.Context, category string, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	conditions := []string{"category_primary = $1"}
	args := []any{category}
	if agentID != nil {
		args = append(args, *agentID)
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	query := selectMemoryColumns + ` FROM memories WHERE ` + joinConditions(conditions) + ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryMany(ctx, query, args...)
}

func (s *MemoryStore) ListOlderThan(ctx context.Context, age time.Duration, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	conditions := []string{"created_at < NOW() - $1::INTERVAL"}
	args := []any{fmt.Sprintf("%d seconds", int(age.Seconds()))}
	if agentID != nil {
		args = append(args, *agentID)
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	query := selectMemoryColumns + ` FROM memories WHERE ` + joinConditions(conditions) + ` ORDER BY created_at ASC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryMany(ctx, query, args...)
}

func (s *MemoryStore) queryMany(ctx context.Context, query string, args ...any) ([]domain.MemoryRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var out []domain.MemoryRecord
	for rows.Next() {
		rec, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func joinConditions(conditions []string) string {
	out := conditions[0]
	for _, c := range conditions[1:] {
		out += " AND " + c
	}
	return out
}
