package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	healthy bool
	vec     []float32
	err     error
}

func (s *stubEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) IsHealthy(ctx context.Context) bool { return s.healthy }

func TestClient_DelegatesToBackend(t *testing.T) {
	backend := &stubEmbedder{healthy: true, vec: []float32{0.1, 0.2, 0.3}}
	c := &client{backend: backend}

	v, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	assert.True(t, c.IsHealthy(context.Background()))
}

func TestClient_PropagatesBackendError(t *testing.T) {
	backend := &stubEmbedder{healthy: false, err: errors.New("boom")}
	c := &client{backend: backend}

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, c.IsHealthy(context.Background()))
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient("nonexistent", "key")
	require.Error(t, err)
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, "")
	require.Error(t, err)

	_, err = NewClient(ProviderGemini, "")
	require.Error(t, err)
}

func TestNewClient_MockNeedsNoKey(t *testing.T) {
	c, err := NewClient(ProviderMock, "")
	require.NoError(t, err)
	v, err := c.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, v, mockDimension)
}
