package embedding

import (
	"context"
)

// embedder is the narrow contract every vector-embedding backend
// implements, mirroring internal/extraction's completer split: the
// transport and the health flag live on the concrete backend, while
// client adapts any embedder to domain.EmbeddingClient once.
type embedder interface {
	embed(ctx context.Context, text string) ([]float32, error)
	IsHealthy(ctx context.Context) bool
}

// client implements domain.EmbeddingClient against any embedder backend.
type client struct {
	backend embedder
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.backend.embed(ctx, text)
}

// IsHealthy reports whether the backing API is currently reachable, per
// the most recent call outcome. Surfaced through cmd/engramd's /health
// endpoint so an unhealthy embedder shows up without tripping the
// process itself, since spec.md §4.1 treats embedding absence as
// degraded-not-fatal.
func (c *client) IsHealthy(ctx context.Context) bool {
	return c.backend.IsHealthy(ctx)
}
