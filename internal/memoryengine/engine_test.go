package memoryengine

import (
	"context"
	"testing"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockMemoryStore implements domain.MemoryStore for testing, in the
// teacher's hand-written-mock style.
type mockMemoryStore struct {
	records map[string]*domain.MemoryRecord
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{records: make(map[string]*domain.MemoryRecord)}
}

func (m *mockMemoryStore) Put(ctx context.Context, rec *domain.MemoryRecord) error {
	if rec.ID == "" {
		return corerr.InvalidInput("id", rec.ID, "id required")
	}
	c := rec.Clone()
	m.records[rec.ID] = &c
	return nil
}

func (m *mockMemoryStore) Get(ctx context.Context, id string) (*domain.MemoryRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	rec.LastAccessed = time.Now()
	rec.Metadata.AccessCount++
	c := rec.Clone()
	return &c, nil
}

func (m *mockMemoryStore) GetMany(ctx context.Context, ids []string) (map[string]*domain.MemoryRecord, error) {
	out := make(map[string]*domain.MemoryRecord)
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			c := rec.Clone()
			out[id] = &c
		}
	}
	return out, nil
}

func (m *mockMemoryStore) Remove(ctx context.Context, id string) (bool, error) {
	_, ok := m.records[id]
	delete(m.records, id)
	return ok, nil
}

func (m *mockMemoryStore) RemoveMany(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		_, ok := m.records[id]
		delete(m.records, id)
		out[id] = ok
	}
	return out, nil
}

func (m *mockMemoryStore) SearchSimilar(ctx context.Context, queryText string, queryVector []float32, limit int, agentID *domain.AgentID) ([]domain.MemoryRecord, error) {
	var out []domain.MemoryRecord
	for _, rec := range m.records {
		if agentID != nil && rec.AgentID != *agentID {
			continue
		}
		out = append(out, rec.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockMemoryStore) ListByAgent(ctx context.Context, agentID domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	return nil, nil
}

func (m *mockMemoryStore) ListByCategory(ctx context.Context, category string, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	return nil, nil
}

func (m *mockMemoryStore) ListOlderThan(ctx context.Context, age time.Duration, agentID *domain.AgentID, limit int) ([]domain.MemoryRecord, error) {
	return nil, nil
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (e *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func TestEngine_EncodeAndStore(t *testing.T) {
	store := newMockMemoryStore()
	eng := NewEngine(store, &mockEmbedder{vec: []float32{1, 0, 0}}, nil, zap.NewNop())

	rec, err := eng.EncodeAndStore(context.Background(), "I love coffee", domain.CategoryLabel{Primary: "preference"}, domain.MemoryMetadata{}, domain.AgentID("a1"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, []float32{1, 0, 0}, rec.Embedding)

	stored, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "I love coffee", stored.Content)
}

func TestEngine_EncodeAndStore_EmptyContent(t *testing.T) {
	eng := NewEngine(newMockMemoryStore(), nil, nil, zap.NewNop())
	_, err := eng.EncodeAndStore(context.Background(), "", domain.CategoryLabel{Primary: "fact"}, domain.MemoryMetadata{}, domain.AgentID("a1"))
	require.Error(t, err)
	assert.True(t, corerr.Is(err, corerr.KindInvalidInput))
}

func TestEngine_EncodeAndStore_EmbedderFailureIsNotFatal(t *testing.T) {
	store := newMockMemoryStore()
	eng := NewEngine(store, &mockEmbedder{err: assertErr{"boom"}}, nil, zap.NewNop())

	rec, err := eng.EncodeAndStore(context.Background(), "I love coffee", domain.CategoryLabel{Primary: "preference"}, domain.MemoryMetadata{}, domain.AgentID("a1"))
	require.NoError(t, err)
	assert.Nil(t, rec.Embedding)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestEngine_UpdateMemory_BumpsVersion(t *testing.T) {
	store := newMockMemoryStore()
	eng := NewEngine(store, nil, nil, zap.NewNop())

	rec, err := eng.EncodeAndStore(context.Background(), "content v1", domain.CategoryLabel{Primary: "fact"}, domain.MemoryMetadata{}, domain.AgentID("a1"))
	require.NoError(t, err)

	rec.Content = "content v2"
	updated, err := eng.UpdateMemory(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
}

func TestEngine_UpdateMemory_MissingRecord(t *testing.T) {
	eng := NewEngine(newMockMemoryStore(), nil, nil, zap.NewNop())
	_, err := eng.UpdateMemory(context.Background(), &domain.MemoryRecord{ID: "mem_nonexistent"})
	require.Error(t, err)
	assert.True(t, corerr.Is(err, corerr.KindNotFound))
}

func TestTextSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TextSimilarity("hello world", "hello world"))
	assert.Less(t, TextSimilarity("hello world", "goodbye moon"), 0.3)
}
