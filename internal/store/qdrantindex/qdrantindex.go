// Package qdrantindex implements a vector-similarity accelerator for
// memory and belief search, backed by Qdrant Cloud/self-hosted, grounded
// on the teacher pack's internal/search/qdrant.go. It is an optional
// sidecar index: the memory/belief content rows of record still live in
// memstore or pgstore, and qdrantindex only stores id + embedding +
// enough payload fields to filter by agent.
package qdrantindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

// qdrantPointID derives a Qdrant-legal point id (Qdrant only accepts a
// UUID or an unsigned integer) from one of this system's opaque
// "<prefix>_<uuid>" ids by stripping the prefix. The full prefixed id is
// carried in the point payload so callers can recover it from a Search hit.
func qdrantPointID(id string) string {
	if _, uuidPart, ok := strings.Cut(id, "_"); ok {
		return uuidPart
	}
	return id
}

// Config holds connection settings for a Qdrant collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dims       uint64
}

// Point is a single embedding to upsert, keyed by the owning entity's
// opaque id (mem_ or blf_ prefixed) and its agent.
type Point struct {
	ID        string
	AgentID   domain.AgentID
	Kind      string // "memory" or "belief"
	Embedding []float32
}

// Result is a single scored hit from Search.
type Result struct {
	ID    string
	Score float32
}

// Index implements embedding-backed similarity search over memories and
// beliefs via Qdrant, as an alternative to pgvector's in-database search.
type Index struct {
	client     *qdrant.Client
	collection string
	dims       uint64
	logger     *zap.Logger

	healthMu  sync.Mutex
	lastCheck time.Time
	lastErr   error
}

func parseURL(raw string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(raw)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("qdrantindex: invalid url %q", raw)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("qdrantindex: invalid port in url %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}
	return host, port, useTLS, nil
}

// New connects to the Qdrant server over gRPC.
func New(cfg Config, logger *zap.Logger) (*Index, error) {
	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrantindex: connect to %s:%d: %w", host, port, err)
	}

	return &Index{
		client:     client,
		collection: cfg.Collection,
		dims:       cfg.Dims,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection with cosine-distance HNSW
// parameters and keyword/field indexes for agent/kind filtering if it
// does not already exist.
func (idx *Index) EnsureCollection(ctx context.Context) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("qdrantindex: check collection exists: %w", err)
	}
	if exists {
		return nil
	}

	m := uint64(16)
	efConstruct := uint64(128)

	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     idx.dims,
			Distance: qdrant.Distance_Cosine,
			HnswConfig: &qdrant.HnswConfigDiff{
				M:           &m,
				EfConstruct: &efConstruct,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrantindex: create collection %q: %w", idx.collection, err)
	}

	keywordType := qdrant.FieldType_FieldTypeKeyword
	for _, field := range []string{"agent_id", "kind"} {
		if _, err := idx.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: idx.collection,
			FieldName:      field,
			FieldType:      &keywordType,
		}); err != nil {
			return fmt.Errorf("qdrantindex: create index on %q: %w", field, err)
		}
	}

	idx.logger.Info("qdrantindex: created collection", zap.String("collection", idx.collection), zap.Uint64("dims", idx.dims))
	return nil
}

// Search finds the nearest points to embedding, scoped to agentID and
// optionally restricted to a single kind ("memory" or "belief").
func (idx *Index) Search(ctx context.Context, agentID domain.AgentID, embedding []float32, kind string, limit int) ([]Result, error) {
	must := []*qdrant.Condition{
		qdrant.NewMatch("agent_id", string(agentID)),
	}
	if kind != "" {
		must = append(must, qdrant.NewMatch("kind", kind))
	}

	fetchLimit := uint64(limit)
	scored, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          &fetchLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrantindex: query: %w", err)
	}

	out := make([]Result, 0, len(scored))
	for _, sp := range scored {
		payload := sp.GetPayload()
		idVal, ok := payload["id"]
		if !ok {
			idx.logger.Warn("qdrantindex: point missing id payload, skipping")
			continue
		}
		out = append(out, Result{ID: idVal.GetStringValue(), Score: sp.Score})
	}
	return out, nil
}

// Upsert inserts or updates points in the collection.
func (idx *Index) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(qdrantPointID(p.ID)),
			Vectors: qdrant.NewVectorsDense(p.Embedding),
			Payload: qdrant.NewValueMap(map[string]any{
				"id":       p.ID,
				"agent_id": string(p.AgentID),
				"kind":     p.Kind,
			}),
		}
	}

	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("qdrantindex: upsert %d points: %w", len(points), err)
	}
	return nil
}

// DeleteByIDs removes specific points by id.
func (idx *Index) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(qdrantPointID(id))
	}

	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrantindex: delete %d points: %w", len(ids), err)
	}
	return nil
}

// DeleteByAgent removes every point belonging to agentID, used when an
// agent's memory is wiped wholesale.
func (idx *Index) DeleteByAgent(ctx context.Context, agentID domain.AgentID) error {
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch("agent_id", string(agentID))},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrantindex: delete by agent %s: %w", agentID, err)
	}
	return nil
}

// Healthy reports whether Qdrant is reachable, caching the result for 5s.
func (idx *Index) Healthy(ctx context.Context) error {
	idx.healthMu.Lock()
	defer idx.healthMu.Unlock()

	if time.Since(idx.lastCheck) < 5*time.Second {
		return idx.lastErr
	}

	_, err := idx.client.HealthCheck(ctx)
	idx.lastCheck = time.Now()
	if err != nil {
		idx.lastErr = fmt.Errorf("qdrantindex: unhealthy: %w", err)
	} else {
		idx.lastErr = nil
	}
	return idx.lastErr
}

// Close shuts down the gRPC connection.
func (idx *Index) Close() error {
	return idx.client.Close()
}
