package memstore

import (
	"context"
	"sync"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

// BeliefStore is an in-memory domain.BeliefStore.
type BeliefStore struct {
	mu        sync.RWMutex
	beliefs   map[string]*domain.Belief
	conflicts map[string]*domain.BeliefConflict
}

// NewBeliefStore constructs an empty BeliefStore.
func NewBeliefStore() *BeliefStore {
	return &BeliefStore{
		beliefs:   make(map[string]*domain.Belief),
		conflicts: make(map[string]*domain.BeliefConflict),
	}
}

func (s *BeliefStore) Put(_ context.Context, b *domain.Belief) error {
	if b.ID == "" {
		return corerr.InvalidInput("id", b.ID, "belief id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := b.Clone()
	s.beliefs[b.ID] = &c
	return nil
}

func (s *BeliefStore) Get(_ context.Context, id string) (*domain.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.beliefs[id]
	if !ok {
		return nil, nil
	}
	c := b.Clone()
	return &c, nil
}

func (s *BeliefStore) GetMany(_ context.Context, ids []string) (map[string]*domain.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.Belief, len(ids))
	for _, id := range ids {
		if b, ok := s.beliefs[id]; ok {
			c := b.Clone()
			out[id] = &c
		}
	}
	return out, nil
}

func (s *BeliefStore) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.beliefs[id]
	delete(s.beliefs, id)
	return ok, nil
}

func (s *BeliefStore) ListByAgent(_ context.Context, agentID domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Belief
	for _, b := range s.beliefs {
		if b.AgentID != agentID {
			continue
		}
		if !includeInactive && !b.Active {
			continue
		}
		out = append(out, b.Clone())
	}
	return out, nil
}

func (s *BeliefStore) ListByCategory(_ context.Context, category string, agentID *domain.AgentID) ([]domain.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Belief
	for _, b := range s.beliefs {
		if b.Category.Primary != category {
			continue
		}
		if agentID != nil && b.AgentID != *agentID {
			continue
		}
		out = append(out, b.Clone())
	}
	return out, nil
}

// FindSimilar ranks active beliefs of agentID by text similarity to
// statement, per domain.BeliefStore's contract.
func (s *BeliefStore) FindSimilar(_ context.Context, statement string, agentID domain.AgentID, similarityFloor float64, k int) ([]domain.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		b     domain.Belief
		score float64
	}
	var matches []scored
	for _, b := range s.beliefs {
		if b.AgentID != agentID || !b.Active {
			continue
		}
		score := textSimilarity(statement, b.Statement)
		if score >= similarityFloor {
			matches = append(matches, scored{b: b.Clone(), score: score})
		}
	}
	for i := 0; i < len(matches); i++ {
		for j := i + 1; j < len(matches); j++ {
			if matches[j].score > matches[i].score {
				matches[i], matches[j] = matches[j], matches[i]
			}
		}
	}
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	out := make([]domain.Belief, len(matches))
	for i, m := range matches {
		out[i] = m.b
	}
	return out, nil
}

func (s *BeliefStore) PutConflict(_ context.Context, c *domain.BeliefConflict) error {
	if c.ID == "" {
		return corerr.InvalidInput("id", c.ID, "conflict id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conflicts[c.ID] = &cp
	return nil
}

func (s *BeliefStore) GetConflict(_ context.Context, id string) (*domain.BeliefConflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conflicts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *BeliefStore) RemoveConflict(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conflicts[id]
	delete(s.conflicts, id)
	return ok, nil
}

func (s *BeliefStore) ListConflictsByAgent(_ context.Context, agentID domain.AgentID, onlyUnresolved bool) ([]domain.BeliefConflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BeliefConflict
	for _, c := range s.conflicts {
		if c.AgentID != agentID {
			continue
		}
		if onlyUnresolved && c.Resolved {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *BeliefStore) DistributionByCategory(_ context.Context, agentID domain.AgentID) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, b := range s.beliefs {
		if b.AgentID != agentID || !b.Active {
			continue
		}
		out[b.Category.Primary]++
	}
	return out, nil
}

func (s *BeliefStore) DistributionByConfidenceBucket(_ context.Context, agentID domain.AgentID, highThreshold, lowThreshold float64) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]int{"high": 0, "medium": 0, "low": 0}
	for _, b := range s.beliefs {
		if b.AgentID != agentID || !b.Active {
			continue
		}
		switch {
		case b.Confidence >= highThreshold:
			out["high"]++
		case b.Confidence >= lowThreshold:
			out["medium"]++
		default:
			out["low"]++
		}
	}
	return out, nil
}
