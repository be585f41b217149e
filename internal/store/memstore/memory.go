// Package memstore implements the C3/C4/C5 capability interfaces
// (MemoryStore, BeliefStore, GraphStore) entirely in process memory, for
// tests and single-process embedding. Promoted from the teacher's
// hand-written test-mock pattern (internal/brca, internal/relationship
// test files) into a real, lock-protected package.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

// MemoryStore is an in-memory domain.MemoryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.MemoryRecord
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*domain.MemoryRecord)}
}

func (s *MemoryStore) Put(_ context.Context, rec *domain.MemoryRecord) error {
	if rec.ID == "" {
		return corerr.InvalidInput("id", rec.ID, "record id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.ID]; ok && rec.Version <= existing.Version {
		return corerr.InvalidInput("version", rec.Version, "version must strictly increase on replace")
	}
	c := rec.Clone()
	s.records[rec.ID] = &c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	rec.LastAccessed = time.Now()
	rec.Metadata.AccessCount++
	c := rec.Clone()
	return &c, nil
}

func (s *MemoryStore) GetMany(_ context.Context, ids []string) (map[string]*domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.MemoryRecord, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			c := rec.Clone()
			out[id] = &c
		}
	}
	return out, nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

func (s *MemoryStore) RemoveMany(_ context.Context, ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		_, ok := s.records[id]
		delete(s.records, id)
		out[id] = ok
	}
	return out, nil
}

func (s *MemoryStore) SearchSimilar(_ context.Context, queryText string, queryVector []float32, limit int, agentID *domain.AgentID) ([]domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		rec   domain.MemoryRecord
		score float64
	}
	var matches []scored
	for _, rec := range s.records {
		if agentID != nil && rec.AgentID != *agentID {
			continue
		}
		score := textSimilarity(queryText, rec.Content)
		if queryVector != nil && rec.Embedding != nil {
			score = cosineSimilarity(queryVector, rec.Embedding)
		}
		matches = append(matches, scored{rec: rec.Clone(), score: score})
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

func (s *MemoryStore) ListByAgent(_ context.Context, agentID domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.MemoryRecord
	for _, rec := range s.records {
		if rec.AgentID == agentID {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListByCategory(_ context.Context, category string, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.MemoryRecord
	for _, rec := range s.records {
		if rec.Category.Primary != category {
			continue
		}
		if agentID != nil && rec.AgentID != *agentID {
			continue
		}
		out = append(out, rec.Clone())
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListOlderThan(_ context.Context, age time.Duration, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(-age)
	var out []domain.MemoryRecord
	for _, rec := range s.records {
		if rec.CreatedAt.After(cutoff) {
			continue
		}
		if agentID != nil && rec.AgentID != *agentID {
			continue
		}
		out = append(out, rec.Clone())
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
