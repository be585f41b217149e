package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ant-engram/belief-memory-engine/internal/brca"
	"github.com/ant-engram/belief-memory-engine/internal/categorize"
	"github.com/ant-engram/belief-memory-engine/internal/config"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/memoryengine"
	"github.com/ant-engram/belief-memory-engine/internal/orchestrator"
	"github.com/ant-engram/belief-memory-engine/internal/relationship"
	"github.com/ant-engram/belief-memory-engine/internal/stats"
	"github.com/ant-engram/belief-memory-engine/internal/store/memstore"
)

// stubExtractor is a hand-written ExtractionClient, the same style used by
// internal/orchestrator and internal/brca's own tests.
type stubExtractor struct {
	beliefs []domain.ExtractedBelief
}

func (s *stubExtractor) ExtractBeliefs(_ context.Context, _ string, _ domain.AgentID, _ domain.CategoryLabel) ([]domain.ExtractedBelief, error) {
	return s.beliefs, nil
}
func (s *stubExtractor) Similarity(_ context.Context, _, _ string) (float64, error) { return 0, nil }
func (s *stubExtractor) AreConflicting(_ context.Context, _, _ string, _, _ domain.CategoryLabel) (bool, error) {
	return false, nil
}
func (s *stubExtractor) ExtractCategory(_ context.Context, _ string) (domain.CategoryLabel, error) {
	return domain.CategoryLabel{Primary: "preference", Confidence: 0.9}, nil
}
func (s *stubExtractor) CalculateConfidence(_ context.Context, _, _ string, _ domain.CategoryLabel) (float64, string, error) {
	return 0.7, "", nil
}
func (s *stubExtractor) IsHealthy(_ context.Context) bool { return true }

func testServer(t *testing.T, beliefs []domain.ExtractedBelief) (*Server, domain.BeliefStore) {
	t.Helper()

	ms := memstore.NewMemoryStore()
	bs := memstore.NewBeliefStore()
	gs := memstore.NewGraphStore()
	ex := &stubExtractor{beliefs: beliefs}

	cat := categorize.NewEngine(ex, zap.NewNop())
	enc := memoryengine.NewEngine(ms, nil, ex, zap.NewNop())
	recorder := stats.NewRecorder("mcptest_" + t.Name())
	analyzer := brca.NewEngine(bs, ms, ex, config.Default(), recorder, zap.NewNop())
	orch := orchestrator.NewOrchestrator(cat, enc, analyzer, 0, zap.NewNop())
	rel := relationship.NewEngine(gs, bs, analyzer, config.Default().MaxGraphTraversalDepth, zap.NewNop())

	return New(orch, bs, ms, analyzer, rel, nil, nil, zap.NewNop(), "test"), bs
}

func callRequest(args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Arguments: args},
	}
}

func parseText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent in result")
	return ""
}

func TestHandleMemoryIngest_HappyPath(t *testing.T) {
	s, _ := testServer(t, []domain.ExtractedBelief{
		{Statement: "I love coffee", Confidence: 0.7, Positive: true, Category: domain.CategoryLabel{Primary: "preference"}},
	})

	result, err := s.handleMemoryIngest(context.Background(), callRequest(map[string]any{
		"agent_id": "agent-1",
		"content":  "I love coffee",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseText(t, result))

	var resp struct {
		MemoryID     string   `json:"memory_id"`
		NewBeliefIDs []string `json:"new_belief_ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseText(t, result)), &resp))
	assert.NotEmpty(t, resp.MemoryID)
	assert.Len(t, resp.NewBeliefIDs, 1)
}

func TestHandleMemoryIngest_RequiresAgentAndContent(t *testing.T) {
	s, _ := testServer(t, nil)

	result, err := s.handleMemoryIngest(context.Background(), callRequest(map[string]any{"agent_id": "agent-1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleMemorySearch_FindsIngestedContent(t *testing.T) {
	s, _ := testServer(t, nil)

	_, err := s.handleMemoryIngest(context.Background(), callRequest(map[string]any{
		"agent_id": "agent-1",
		"content":  "the sky is blue",
	}))
	require.NoError(t, err)

	result, err := s.handleMemorySearch(context.Background(), callRequest(map[string]any{
		"agent_id": "agent-1",
		"query":    "sky",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseText(t, result))

	var resp struct {
		Results []map[string]any `json:"results"`
		Total   int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseText(t, result)), &resp))
	assert.Equal(t, len(resp.Results), resp.Total)
}

func TestHandleBeliefList_FiltersByCategory(t *testing.T) {
	s, bs := testServer(t, []domain.ExtractedBelief{
		{Statement: "I love coffee", Confidence: 0.7, Positive: true, Category: domain.CategoryLabel{Primary: "preference"}},
	})

	_, err := s.handleMemoryIngest(context.Background(), callRequest(map[string]any{
		"agent_id": "agent-1",
		"content":  "I love coffee",
	}))
	require.NoError(t, err)

	listed, err := bs.ListByAgent(context.Background(), "agent-1", false)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	result, err := s.handleBeliefList(context.Background(), callRequest(map[string]any{
		"agent_id": "agent-1",
		"category": "preference",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseText(t, result))

	var resp struct {
		Beliefs []map[string]any `json:"beliefs"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseText(t, result)), &resp))
	require.Len(t, resp.Beliefs, 1)
	assert.Equal(t, "I love coffee", resp.Beliefs[0]["statement"])
}

func TestHandleBeliefList_RequiresAgentID(t *testing.T) {
	s, _ := testServer(t, nil)
	result, err := s.handleBeliefList(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGraphRelated_UnknownBeliefReturnsEmpty(t *testing.T) {
	s, _ := testServer(t, nil)

	result, err := s.handleGraphRelated(context.Background(), callRequest(map[string]any{
		"belief_id": "blf_does-not-exist",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseText(t, result))

	var resp struct {
		RelatedBeliefIDs []string `json:"related_belief_ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseText(t, result)), &resp))
	assert.Empty(t, resp.RelatedBeliefIDs)
}

func TestHandleGraphShortestPath_RequiresBothIDs(t *testing.T) {
	s, _ := testServer(t, nil)
	result, err := s.handleGraphShortestPath(context.Background(), callRequest(map[string]any{
		"source_belief_id": "blf_a",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleBeliefResolveConflict_UnknownConflict(t *testing.T) {
	s, _ := testServer(t, nil)
	result, err := s.handleBeliefResolveConflict(context.Background(), callRequest(map[string]any{
		"conflict_id": "cfl_does-not-exist",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
