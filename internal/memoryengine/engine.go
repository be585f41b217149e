// Package memoryengine implements the Memory Encoding Engine (C7):
// embed-and-persist for raw ingested content, plus similarity search, per
// spec.md §4.4.
package memoryengine

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/store/qdrantindex"
	"go.uber.org/zap"
)

// Engine is the concrete Memory Encoding Engine. Records are immutable
// except through UpdateMemory, per spec.md §4.4's "state machine: none".
type Engine struct {
	store     domain.MemoryStore
	embedder  domain.EmbeddingClient // may be nil: absence is permitted per spec.md §4.1
	extractor domain.ExtractionClient
	index     *qdrantindex.Index // optional vector-search accelerator
	logger    *zap.Logger
}

// NewEngine constructs an Engine. embedder/extractor may be nil.
func NewEngine(store domain.MemoryStore, embedder domain.EmbeddingClient, extractor domain.ExtractionClient, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, embedder: embedder, extractor: extractor, logger: logger}
}

// WithIndex attaches a qdrant accelerator that EncodeAndStore keeps in
// sync with newly embedded records. It returns the receiver for chaining
// at construction time.
func (e *Engine) WithIndex(index *qdrantindex.Index) *Engine {
	e.index = index
	return e
}

// EncodeAndStore validates content/category/metadata, assigns an id,
// generates an embedding if a provider is present, and persists the
// record, per spec.md §4.4's algorithm.
func (e *Engine) EncodeAndStore(ctx context.Context, content string, category domain.CategoryLabel, metadata domain.MemoryMetadata, agentID domain.AgentID) (*domain.MemoryRecord, error) {
	if strings.TrimSpace(content) == "" {
		return nil, corerr.InvalidInput("content", content, "content must not be empty")
	}
	if category.Primary == "" {
		return nil, corerr.InvalidInput("category", category, "category must be present")
	}

	rec := &domain.MemoryRecord{
		ID:           domain.NewMemoryID(),
		AgentID:      agentID,
		Content:      content,
		Category:     category,
		Metadata:     metadata,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		Version:      1,
	}

	if e.embedder != nil {
		v, err := e.embedder.Embed(ctx, content)
		if err != nil {
			e.logger.Warn("embedding generation failed, storing without embedding",
				zap.String("memory_id", rec.ID), zap.Error(corerr.EmbeddingUnavailable), zap.NamedError("cause", err))
		} else {
			rec.Embedding = v
		}
	}

	if err := e.store.Put(ctx, rec); err != nil {
		return nil, corerr.Storage("memory.put", err)
	}

	if e.index != nil && rec.Embedding != nil {
		err := e.index.Upsert(ctx, []qdrantindex.Point{
			{ID: rec.ID, AgentID: rec.AgentID, Kind: "memory", Embedding: rec.Embedding},
		})
		if err != nil {
			e.logger.Warn("qdrant upsert failed, memory remains searchable via the store only",
				zap.String("memory_id", rec.ID), zap.Error(err))
		}
	}

	return rec, nil
}

// UpdateMemory re-embeds rec if its content changed relative to the
// stored version, bumps Version, and persists, per spec.md §4.4.
func (e *Engine) UpdateMemory(ctx context.Context, rec *domain.MemoryRecord) (*domain.MemoryRecord, error) {
	if rec.ID == "" {
		return nil, corerr.InvalidInput("id", rec.ID, "id must be assigned")
	}
	existing, err := e.store.Get(ctx, rec.ID)
	if err != nil {
		return nil, corerr.Storage("memory.get", err)
	}
	if existing == nil {
		return nil, corerr.NotFound("memory", rec.ID)
	}

	if rec.Content != existing.Content && e.embedder != nil {
		v, err := e.embedder.Embed(ctx, rec.Content)
		if err != nil {
			e.logger.Warn("re-embedding failed, keeping previous embedding",
				zap.String("memory_id", rec.ID), zap.Error(corerr.EmbeddingUnavailable), zap.NamedError("cause", err))
			rec.Embedding = existing.Embedding
		} else {
			rec.Embedding = v
		}
	} else if rec.Content == existing.Content {
		rec.Embedding = existing.Embedding
	}

	rec.Version = existing.Version + 1
	rec.CreatedAt = existing.CreatedAt
	if err := e.store.Put(ctx, rec); err != nil {
		return nil, corerr.Storage("memory.put", err)
	}
	return rec, nil
}

// SearchSimilar ranks stored records against query, per spec.md §4.4 step
// 5, by delegating to the store: cosine when both sides have vectors, else
// text Jaccard. The extraction provider's similarity is not consulted.
func (e *Engine) SearchSimilar(ctx context.Context, query string, limit int, agentID *domain.AgentID) ([]domain.MemoryRecord, error) {
	var queryVector []float32
	if e.embedder != nil {
		v, err := e.embedder.Embed(ctx, query)
		if err != nil {
			e.logger.Warn("query embedding failed, falling back to text similarity", zap.Error(corerr.EmbeddingUnavailable), zap.NamedError("cause", err))
		} else {
			queryVector = v
		}
	}

	recs, err := e.store.SearchSimilar(ctx, query, queryVector, limit, agentID)
	if err != nil {
		return nil, corerr.Storage("memory.searchSimilar", err)
	}
	return recs, nil
}

// GetMany fetches multiple records by id.
func (e *Engine) GetMany(ctx context.Context, ids []string) (map[string]*domain.MemoryRecord, error) {
	out, err := e.store.GetMany(ctx, ids)
	if err != nil {
		return nil, corerr.Storage("memory.getMany", err)
	}
	return out, nil
}

// RemoveMany removes multiple records by id, returning the set actually
// removed.
func (e *Engine) RemoveMany(ctx context.Context, ids []string) (map[string]bool, error) {
	out, err := e.store.RemoveMany(ctx, ids)
	if err != nil {
		return nil, corerr.Storage("memory.removeMany", err)
	}
	return out, nil
}

// TextSimilarity is a text-Jaccard score in the sense of spec.md §4.4
// step 5. Nothing in this module calls it; the stores rank with their own
// textSimilarity helpers.
func TextSimilarity(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 0
	}
	inter := 0
	for k := range ta {
		if _, ok := tb[k]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
