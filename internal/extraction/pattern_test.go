package extraction

import (
	"context"
	"testing"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternClient_ExtractBeliefs(t *testing.T) {
	c := NewPatternClient()
	out, err := c.ExtractBeliefs(context.Background(), "I love coffee. I don't like tea.", domain.AgentID("a1"), domain.CategoryLabel{})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].Positive)
	assert.Equal(t, "preference", out[0].Category.Primary)

	assert.False(t, out[1].Positive)
}

func TestPatternClient_ExtractBeliefs_Empty(t *testing.T) {
	c := NewPatternClient()
	out, err := c.ExtractBeliefs(context.Background(), "   ", domain.AgentID("a1"), domain.CategoryLabel{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPatternClient_Similarity(t *testing.T) {
	c := NewPatternClient()
	v, err := c.Similarity(context.Background(), "I love coffee", "I love coffee")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = c.Similarity(context.Background(), "I love coffee", "xyz unrelated words")
	require.NoError(t, err)
	assert.Less(t, v, 0.2)
}

func TestPatternClient_AreConflicting(t *testing.T) {
	c := NewPatternClient()
	cat := domain.CategoryLabel{Primary: "preference"}
	conflict, err := c.AreConflicting(context.Background(), "I love coffee", "I don't love coffee", cat, cat)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = c.AreConflicting(context.Background(), "I love coffee", "I live in Paris", cat, cat)
	require.NoError(t, err)
	assert.False(t, conflict)

	otherCat := domain.CategoryLabel{Primary: "fact"}
	conflict, err = c.AreConflicting(context.Background(), "I love coffee", "I don't love coffee", cat, otherCat)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestPatternClient_ExtractCategory(t *testing.T) {
	c := NewPatternClient()
	cat, err := c.ExtractCategory(context.Background(), "I must finish this report by Friday")
	require.NoError(t, err)
	assert.Equal(t, "constraint", cat.Primary)
}

func TestPatternClient_CalculateConfidence(t *testing.T) {
	c := NewPatternClient()
	conf, reasoning, err := c.CalculateConfidence(context.Background(), "I really love coffee in the morning", "I love coffee", domain.CategoryLabel{})
	require.NoError(t, err)
	assert.Greater(t, conf, 0.0)
	assert.NotEmpty(t, reasoning)
}

func TestPatternClient_IsHealthy(t *testing.T) {
	c := NewPatternClient()
	assert.True(t, c.IsHealthy(context.Background()))
}

func TestExtractTags(t *testing.T) {
	tags := extractTags("contact me at jane@example.com or visit https://example.com on 2024-01-05")
	assert.Contains(t, tags, "jane@example.com")
	assert.Contains(t, tags, "https://example.com")
	assert.Contains(t, tags, "2024-01-05")
}
