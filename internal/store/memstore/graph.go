package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

// GraphStore is an in-memory domain.GraphStore.
type GraphStore struct {
	mu    sync.RWMutex
	edges map[string]*domain.BeliefRelationship
}

// NewGraphStore constructs an empty GraphStore.
func NewGraphStore() *GraphStore {
	return &GraphStore{edges: make(map[string]*domain.BeliefRelationship)}
}

func (s *GraphStore) PutEdge(_ context.Context, r *domain.BeliefRelationship) error {
	if r.ID == "" {
		return corerr.InvalidInput("id", r.ID, "relationship id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.edges[r.ID] = &cp
	return nil
}

func (s *GraphStore) GetEdge(_ context.Context, id string) (*domain.BeliefRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.edges[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *GraphStore) RemoveEdge(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[id]
	delete(s.edges, id)
	return ok, nil
}

func (s *GraphStore) EdgesFrom(_ context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BeliefRelationship
	for _, e := range s.edges {
		if e.SourceBeliefID == beliefID && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *GraphStore) EdgesTo(_ context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BeliefRelationship
	for _, e := range s.edges {
		if e.TargetBeliefID == beliefID && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *GraphStore) EdgesBoth(ctx context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	from, _ := s.EdgesFrom(ctx, beliefID, includeInactive)
	to, _ := s.EdgesTo(ctx, beliefID, includeInactive)
	return append(from, to...), nil
}

func (s *GraphStore) EdgesByType(_ context.Context, agentID domain.AgentID, t domain.RelationshipType, includeInactive bool) ([]domain.BeliefRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BeliefRelationship
	for _, e := range s.edges {
		if e.AgentID == agentID && e.Type == t && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *GraphStore) EdgesBetween(_ context.Context, sourceBeliefID, targetBeliefID string) ([]domain.BeliefRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BeliefRelationship
	for _, e := range s.edges {
		if e.SourceBeliefID == sourceBeliefID && e.TargetBeliefID == targetBeliefID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *GraphStore) ListByAgent(_ context.Context, agentID domain.AgentID, includeInactive bool) ([]domain.BeliefRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BeliefRelationship
	for _, e := range s.edges {
		if e.AgentID == agentID && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *GraphStore) RemoveOlderThan(_ context.Context, agentID domain.AgentID, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.edges {
		if e.AgentID == agentID && !e.Active && e.CreatedAt.Before(cutoff) {
			delete(s.edges, id)
			n++
		}
	}
	return n, nil
}
