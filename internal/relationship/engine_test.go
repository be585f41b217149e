package relationship

import (
	"context"
	"testing"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/brca"
	"github.com/ant-engram/belief-memory-engine/internal/config"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGraphStore struct {
	edges map[string]*domain.BeliefRelationship
}

func newMockGraphStore() *mockGraphStore {
	return &mockGraphStore{edges: map[string]*domain.BeliefRelationship{}}
}

func (m *mockGraphStore) PutEdge(_ context.Context, r *domain.BeliefRelationship) error {
	cp := *r
	m.edges[r.ID] = &cp
	return nil
}

func (m *mockGraphStore) GetEdge(_ context.Context, id string) (*domain.BeliefRelationship, error) {
	r, ok := m.edges[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockGraphStore) RemoveEdge(_ context.Context, id string) (bool, error) {
	if _, ok := m.edges[id]; !ok {
		return false, nil
	}
	delete(m.edges, id)
	return true, nil
}

func (m *mockGraphStore) EdgesFrom(_ context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	var out []domain.BeliefRelationship
	for _, e := range m.edges {
		if e.SourceBeliefID == beliefID && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) EdgesTo(_ context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	var out []domain.BeliefRelationship
	for _, e := range m.edges {
		if e.TargetBeliefID == beliefID && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) EdgesBoth(ctx context.Context, beliefID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	from, _ := m.EdgesFrom(ctx, beliefID, includeInactive)
	to, _ := m.EdgesTo(ctx, beliefID, includeInactive)
	return append(from, to...), nil
}

func (m *mockGraphStore) EdgesByType(_ context.Context, agentID domain.AgentID, t domain.RelationshipType, includeInactive bool) ([]domain.BeliefRelationship, error) {
	var out []domain.BeliefRelationship
	for _, e := range m.edges {
		if e.AgentID == agentID && e.Type == t && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) EdgesBetween(_ context.Context, sourceBeliefID, targetBeliefID string) ([]domain.BeliefRelationship, error) {
	var out []domain.BeliefRelationship
	for _, e := range m.edges {
		if e.SourceBeliefID == sourceBeliefID && e.TargetBeliefID == targetBeliefID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) ListByAgent(_ context.Context, agentID domain.AgentID, includeInactive bool) ([]domain.BeliefRelationship, error) {
	var out []domain.BeliefRelationship
	for _, e := range m.edges {
		if e.AgentID == agentID && (includeInactive || e.Active) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) RemoveOlderThan(_ context.Context, agentID domain.AgentID, cutoff time.Time) (int, error) {
	n := 0
	for id, e := range m.edges {
		if e.AgentID == agentID && !e.Active && e.CreatedAt.Before(cutoff) {
			delete(m.edges, id)
			n++
		}
	}
	return n, nil
}

type mockBeliefStoreRel struct {
	beliefs map[string]*domain.Belief
}

func newMockBeliefStoreRel() *mockBeliefStoreRel {
	return &mockBeliefStoreRel{beliefs: map[string]*domain.Belief{}}
}

func (m *mockBeliefStoreRel) Put(_ context.Context, b *domain.Belief) error {
	cp := *b
	m.beliefs[b.ID] = &cp
	return nil
}
func (m *mockBeliefStoreRel) Get(_ context.Context, id string) (*domain.Belief, error) {
	b, ok := m.beliefs[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}
func (m *mockBeliefStoreRel) GetMany(_ context.Context, ids []string) (map[string]*domain.Belief, error) {
	out := map[string]*domain.Belief{}
	for _, id := range ids {
		if b, ok := m.beliefs[id]; ok {
			cp := *b
			out[id] = &cp
		}
	}
	return out, nil
}
func (m *mockBeliefStoreRel) Remove(_ context.Context, id string) (bool, error) {
	if _, ok := m.beliefs[id]; !ok {
		return false, nil
	}
	delete(m.beliefs, id)
	return true, nil
}
func (m *mockBeliefStoreRel) ListByAgent(_ context.Context, agentID domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	return nil, nil
}
func (m *mockBeliefStoreRel) ListByCategory(_ context.Context, category string, agentID *domain.AgentID) ([]domain.Belief, error) {
	return nil, nil
}
func (m *mockBeliefStoreRel) FindSimilar(_ context.Context, statement string, agentID domain.AgentID, similarityFloor float64, k int) ([]domain.Belief, error) {
	return nil, nil
}
func (m *mockBeliefStoreRel) PutConflict(_ context.Context, c *domain.BeliefConflict) error { return nil }
func (m *mockBeliefStoreRel) GetConflict(_ context.Context, id string) (*domain.BeliefConflict, error) {
	return nil, nil
}
func (m *mockBeliefStoreRel) RemoveConflict(_ context.Context, id string) (bool, error) { return false, nil }
func (m *mockBeliefStoreRel) ListConflictsByAgent(_ context.Context, agentID domain.AgentID, onlyUnresolved bool) ([]domain.BeliefConflict, error) {
	return nil, nil
}
func (m *mockBeliefStoreRel) DistributionByCategory(_ context.Context, agentID domain.AgentID) (map[string]int, error) {
	return nil, nil
}
func (m *mockBeliefStoreRel) DistributionByConfidenceBucket(_ context.Context, agentID domain.AgentID, highThreshold, lowThreshold float64) (map[string]int, error) {
	return nil, nil
}

const testAgent = domain.AgentID("agent-rel")

func testEngine(t *testing.T) (*Engine, *mockGraphStore, *mockBeliefStoreRel) {
	t.Helper()
	gs := newMockGraphStore()
	bs := newMockBeliefStoreRel()
	brcaEngine := brca.NewEngine(bs, nil, nil, config.Default(), stats.NewRecorder("relationshiptest_"+t.Name()), nil)
	return NewEngine(gs, bs, brcaEngine, 5, nil), gs, bs
}

func TestCreateRelationship_RejectsSelfLoop(t *testing.T) {
	e, _, _ := testEngine(t)
	_, err := e.CreateRelationship(context.Background(), testAgent, "blf_1", "blf_1", domain.RelSupports, 0.5, nil, time.Time{}, nil)
	require.Error(t, err)
}

func TestCreateRelationship_RejectsUnknownType(t *testing.T) {
	e, _, _ := testEngine(t)
	_, err := e.CreateRelationship(context.Background(), testAgent, "blf_1", "blf_2", domain.RelationshipType("Bogus"), 0.5, nil, time.Time{}, nil)
	require.Error(t, err)
}

func TestCreateRelationship_EnforcesUniqueActiveDeprecatingEdge(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()
	_, err := e.CreateRelationship(ctx, testAgent, "blf_1", "blf_2", domain.RelSupersedes, 1.0, nil, time.Time{}, nil)
	require.NoError(t, err)

	_, err = e.CreateRelationship(ctx, testAgent, "blf_1", "blf_2", domain.RelDeprecates, 1.0, nil, time.Time{}, nil)
	require.Error(t, err)
}

func TestDeprecateBeliefWith(t *testing.T) {
	e, gs, bs := testEngine(t)
	ctx := context.Background()

	_ = bs.Put(ctx, &domain.Belief{ID: "blf_old", AgentID: testAgent, Active: true})
	_ = bs.Put(ctx, &domain.Belief{ID: "blf_new", AgentID: testAgent, Active: true})

	r, err := e.DeprecateBeliefWith(ctx, testAgent, "blf_old", "blf_new", "superseded by newer information")
	require.NoError(t, err)
	assert.Equal(t, domain.RelSupersedes, r.Type)
	assert.Equal(t, "blf_new", r.SourceBeliefID)
	assert.Equal(t, "blf_old", r.TargetBeliefID)
	assert.Equal(t, "superseded by newer information", r.DeprecationReason)

	old, _ := bs.Get(ctx, "blf_old")
	assert.False(t, old.Active)

	edges, _ := gs.ListByAgent(ctx, testAgent, false)
	assert.Len(t, edges, 1)
}

func TestDeprecateBeliefWith_RejectsCycle(t *testing.T) {
	e, _, bs := testEngine(t)
	ctx := context.Background()
	_ = bs.Put(ctx, &domain.Belief{ID: "blf_a", AgentID: testAgent, Active: true})
	_ = bs.Put(ctx, &domain.Belief{ID: "blf_b", AgentID: testAgent, Active: true})

	_, err := e.DeprecateBeliefWith(ctx, testAgent, "blf_a", "blf_b", "b supersedes a")
	require.NoError(t, err)

	_, err = e.DeprecateBeliefWith(ctx, testAgent, "blf_b", "blf_a", "a supersedes b")
	require.Error(t, err)
}

func TestFindRelatedBeliefs_BFS(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()
	_, err := e.CreateRelationship(ctx, testAgent, "blf_1", "blf_2", domain.RelRelatesTo, 0.5, nil, time.Time{}, nil)
	require.NoError(t, err)
	_, err = e.CreateRelationship(ctx, testAgent, "blf_2", "blf_3", domain.RelRelatesTo, 0.5, nil, time.Time{}, nil)
	require.NoError(t, err)

	related, err := e.FindRelatedBeliefs(ctx, "blf_1", 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blf_2", "blf_3"}, related)

	related, err = e.FindRelatedBeliefs(ctx, "blf_1", 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blf_2"}, related)
}

func TestShortestPath(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()
	_, err := e.CreateRelationship(ctx, testAgent, "blf_1", "blf_2", domain.RelRelatesTo, 0.9, nil, time.Time{}, nil)
	require.NoError(t, err)
	_, err = e.CreateRelationship(ctx, testAgent, "blf_2", "blf_3", domain.RelRelatesTo, 0.9, nil, time.Time{}, nil)
	require.NoError(t, err)
	_, err = e.CreateRelationship(ctx, testAgent, "blf_1", "blf_3", domain.RelRelatesTo, 0.1, nil, time.Time{}, nil)
	require.NoError(t, err)

	path, err := e.ShortestPath(ctx, "blf_1", "blf_3")
	require.NoError(t, err)
	require.Len(t, path, 1)
	assert.Equal(t, 0.1, path[0].Strength)
}

func TestShortestPath_SameNode(t *testing.T) {
	e, _, _ := testEngine(t)
	path, err := e.ShortestPath(context.Background(), "blf_1", "blf_1")
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestFindClusters(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()
	_, err := e.CreateRelationship(ctx, testAgent, "blf_1", "blf_2", domain.RelRelatesTo, 0.9, nil, time.Time{}, nil)
	require.NoError(t, err)
	_, err = e.CreateRelationship(ctx, testAgent, "blf_3", "blf_4", domain.RelRelatesTo, 0.1, nil, time.Time{}, nil)
	require.NoError(t, err)

	clusters, err := e.FindClusters(ctx, testAgent, 0.5)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"blf_1", "blf_2"}, clusters[0])
}

func TestFindConflicts(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()
	_, err := e.CreateRelationship(ctx, testAgent, "blf_1", "blf_2", domain.RelContradicts, 0.5, nil, time.Time{}, nil)
	require.NoError(t, err)
	_, err = e.CreateRelationship(ctx, testAgent, "blf_3", "blf_4", domain.RelSupports, 0.5, nil, time.Time{}, nil)
	require.NoError(t, err)

	conflicts, err := e.FindConflicts(ctx, testAgent)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, [2]string{"blf_1", "blf_2"}, conflicts[0])
}

func TestValidate_DetectsSelfLoopAndInversion(t *testing.T) {
	e, gs, _ := testEngine(t)
	ctx := context.Background()
	until := time.Now().Add(-time.Hour)
	_ = gs.PutEdge(ctx, &domain.BeliefRelationship{
		ID: "rel_1", AgentID: testAgent, SourceBeliefID: "blf_x", TargetBeliefID: "blf_x",
		Type: domain.RelRelatesTo, Active: true, EffectiveFrom: time.Now(),
	})
	_ = gs.PutEdge(ctx, &domain.BeliefRelationship{
		ID: "rel_2", AgentID: testAgent, SourceBeliefID: "blf_y", TargetBeliefID: "blf_z",
		Type: domain.RelRelatesTo, Active: true, EffectiveFrom: time.Now(), EffectiveUntil: &until,
	})

	issues, err := e.Validate(ctx, testAgent)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(issues), 2)
}

func TestCleanup(t *testing.T) {
	e, gs, _ := testEngine(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -10)
	gs.edges["rel_old"] = &domain.BeliefRelationship{
		ID: "rel_old", AgentID: testAgent, SourceBeliefID: "blf_1", TargetBeliefID: "blf_2",
		Type: domain.RelRelatesTo, Active: false, CreatedAt: old,
	}
	n, err := e.Cleanup(ctx, testAgent, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, gs.edges, 0)
}
