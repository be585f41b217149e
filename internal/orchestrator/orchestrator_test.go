package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/brca"
	"github.com/ant-engram/belief-memory-engine/internal/categorize"
	"github.com/ant-engram/belief-memory-engine/internal/config"
	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/memoryengine"
	"github.com/ant-engram/belief-memory-engine/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockMemoryStore and mockBeliefStore are hand-written implementations of
// their respective capability interfaces, in the same style as the ones in
// internal/brca's tests; methods the ingest path does not use return nil.

type mockMemoryStore struct {
	records map[string]*domain.MemoryRecord
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{records: make(map[string]*domain.MemoryRecord)}
}

func (m *mockMemoryStore) Put(_ context.Context, rec *domain.MemoryRecord) error {
	c := rec.Clone()
	m.records[rec.ID] = &c
	return nil
}
func (m *mockMemoryStore) Get(_ context.Context, id string) (*domain.MemoryRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	c := rec.Clone()
	return &c, nil
}
func (m *mockMemoryStore) GetMany(_ context.Context, ids []string) (map[string]*domain.MemoryRecord, error) {
	return nil, nil
}
func (m *mockMemoryStore) Remove(_ context.Context, id string) (bool, error) { return false, nil }
func (m *mockMemoryStore) RemoveMany(_ context.Context, ids []string) (map[string]bool, error) {
	return nil, nil
}
func (m *mockMemoryStore) SearchSimilar(_ context.Context, queryText string, queryVector []float32, limit int, agentID *domain.AgentID) ([]domain.MemoryRecord, error) {
	return nil, nil
}
func (m *mockMemoryStore) ListByAgent(_ context.Context, agentID domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	return nil, nil
}
func (m *mockMemoryStore) ListByCategory(_ context.Context, category string, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	return nil, nil
}
func (m *mockMemoryStore) ListOlderThan(_ context.Context, age time.Duration, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	return nil, nil
}

type mockBeliefStore struct {
	beliefs   map[string]*domain.Belief
	conflicts map[string]*domain.BeliefConflict
}

func newMockBeliefStore() *mockBeliefStore {
	return &mockBeliefStore{beliefs: map[string]*domain.Belief{}, conflicts: map[string]*domain.BeliefConflict{}}
}

func (m *mockBeliefStore) Put(_ context.Context, b *domain.Belief) error {
	c := b.Clone()
	m.beliefs[b.ID] = &c
	return nil
}
func (m *mockBeliefStore) Get(_ context.Context, id string) (*domain.Belief, error) {
	b, ok := m.beliefs[id]
	if !ok {
		return nil, nil
	}
	c := b.Clone()
	return &c, nil
}
func (m *mockBeliefStore) GetMany(_ context.Context, ids []string) (map[string]*domain.Belief, error) {
	return nil, nil
}
func (m *mockBeliefStore) Remove(_ context.Context, id string) (bool, error) { return false, nil }
func (m *mockBeliefStore) ListByAgent(_ context.Context, agentID domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	return nil, nil
}
func (m *mockBeliefStore) ListByCategory(_ context.Context, category string, agentID *domain.AgentID) ([]domain.Belief, error) {
	return nil, nil
}
func (m *mockBeliefStore) FindSimilar(_ context.Context, statement string, agentID domain.AgentID, similarityFloor float64, k int) ([]domain.Belief, error) {
	var out []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID != agentID || !b.Active {
			continue
		}
		if b.Statement == statement {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}
func (m *mockBeliefStore) PutConflict(_ context.Context, c *domain.BeliefConflict) error {
	cp := *c
	m.conflicts[c.ID] = &cp
	return nil
}
func (m *mockBeliefStore) GetConflict(_ context.Context, id string) (*domain.BeliefConflict, error) {
	return nil, nil
}
func (m *mockBeliefStore) RemoveConflict(_ context.Context, id string) (bool, error) { return false, nil }
func (m *mockBeliefStore) ListConflictsByAgent(_ context.Context, agentID domain.AgentID, onlyUnresolved bool) ([]domain.BeliefConflict, error) {
	return nil, nil
}
func (m *mockBeliefStore) DistributionByCategory(_ context.Context, agentID domain.AgentID) (map[string]int, error) {
	return nil, nil
}
func (m *mockBeliefStore) DistributionByConfidenceBucket(_ context.Context, agentID domain.AgentID, highThreshold, lowThreshold float64) (map[string]int, error) {
	return nil, nil
}

type stubExtractor struct {
	beliefs []domain.ExtractedBelief
	err     error
}

func (s *stubExtractor) ExtractBeliefs(_ context.Context, content string, agentID domain.AgentID, categoryHint domain.CategoryLabel) ([]domain.ExtractedBelief, error) {
	return s.beliefs, s.err
}
func (s *stubExtractor) Similarity(_ context.Context, s1, s2 string) (float64, error) { return 0, nil }
func (s *stubExtractor) AreConflicting(_ context.Context, s1, s2 string, cat1, cat2 domain.CategoryLabel) (bool, error) {
	return false, nil
}
func (s *stubExtractor) ExtractCategory(_ context.Context, statement string) (domain.CategoryLabel, error) {
	return domain.CategoryLabel{Primary: "preference", Confidence: 0.9}, nil
}
func (s *stubExtractor) CalculateConfidence(_ context.Context, content, statement string, categoryHint domain.CategoryLabel) (float64, string, error) {
	return 0.7, "", nil
}
func (s *stubExtractor) IsHealthy(_ context.Context) bool { return true }

func testOrchestrator(t *testing.T, ex *stubExtractor) (*Orchestrator, *mockMemoryStore, *mockBeliefStore) {
	t.Helper()
	ms := newMockMemoryStore()
	bs := newMockBeliefStore()

	cat := categorize.NewEngine(ex, zap.NewNop())
	enc := memoryengine.NewEngine(ms, nil, ex, zap.NewNop())
	recorder := stats.NewRecorder("orchestratortest_" + sanitize(t.Name()))
	analyzer := brca.NewEngine(bs, ms, ex, config.Default(), recorder, zap.NewNop())

	return NewOrchestrator(cat, enc, analyzer, time.Minute, zap.NewNop()), ms, bs
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(s)
}

func TestIngest_HappyPath(t *testing.T) {
	ex := &stubExtractor{beliefs: []domain.ExtractedBelief{{Statement: "I love coffee", Confidence: 0.7, Positive: true, Category: domain.CategoryLabel{Primary: "preference"}}}}
	o, ms, _ := testOrchestrator(t, ex)

	result, err := o.Ingest(context.Background(), IngestionInput{
		AgentID: "agent-1",
		Content: "I love coffee",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.MemoryID)
	assert.False(t, result.DryRun)
	require.Len(t, result.NewBeliefIDs, 1)
	assert.Empty(t, result.ConflictIDs)

	stored, _ := ms.Get(context.Background(), result.MemoryID)
	require.NotNil(t, stored)
	assert.Equal(t, "I love coffee", stored.Content)
}

func TestIngest_DryRunHasNoSideEffects(t *testing.T) {
	ex := &stubExtractor{}
	o, ms, bs := testOrchestrator(t, ex)

	result, err := o.Ingest(context.Background(), IngestionInput{
		AgentID: "agent-1",
		Content: "I love coffee",
		DryRun:  true,
	})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.True(t, strings.HasPrefix(result.MemoryID, "dry-run-"))
	assert.Empty(t, ms.records)
	assert.Empty(t, bs.beliefs)
}

func TestIngest_RejectsEmptyAgentID(t *testing.T) {
	o, _, _ := testOrchestrator(t, &stubExtractor{})
	_, err := o.Ingest(context.Background(), IngestionInput{Content: "hello"})
	require.Error(t, err)
	assert.True(t, corerr.Is(err, corerr.KindInvalidInput))
}

func TestIngest_RejectsOversizedContent(t *testing.T) {
	o, _, _ := testOrchestrator(t, &stubExtractor{})
	huge := strings.Repeat("a", 10_001)
	_, err := o.Ingest(context.Background(), IngestionInput{AgentID: "agent-1", Content: huge})
	require.Error(t, err)
	assert.True(t, corerr.Is(err, corerr.KindInvalidInput))
}

func TestIngest_RejectsFutureTimestamp(t *testing.T) {
	o, _, _ := testOrchestrator(t, &stubExtractor{})
	future := time.Now().Add(time.Hour)
	_, err := o.Ingest(context.Background(), IngestionInput{AgentID: "agent-1", Content: "hello", Timestamp: &future})
	require.Error(t, err)
	assert.True(t, corerr.Is(err, corerr.KindInvalidInput))
}

func TestIngest_ExtractionFallbackStillProducesBelief(t *testing.T) {
	// Extractor returns no candidates at all; the orchestrator still
	// succeeds via BRCA's synthesized general-memory candidate.
	ex := &stubExtractor{beliefs: nil}
	o, _, _ := testOrchestrator(t, ex)

	result, err := o.Ingest(context.Background(), IngestionInput{AgentID: "agent-1", Content: "I love coffee"})
	require.NoError(t, err)
	assert.Len(t, result.NewBeliefIDs, 1)
}
