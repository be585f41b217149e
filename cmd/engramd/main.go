// Command engramd runs the belief-memory engine as an MCP server over
// streamable HTTP, grounded on the teacher's cmd/server/main.go startup
// sequence (config load -> pool connect -> wire engines -> serve ->
// graceful shutdown).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ant-engram/belief-memory-engine/internal/brca"
	"github.com/ant-engram/belief-memory-engine/internal/categorize"
	"github.com/ant-engram/belief-memory-engine/internal/config"
	"github.com/ant-engram/belief-memory-engine/internal/embedding"
	"github.com/ant-engram/belief-memory-engine/internal/extraction"
	"github.com/ant-engram/belief-memory-engine/internal/mcp"
	"github.com/ant-engram/belief-memory-engine/internal/memoryengine"
	"github.com/ant-engram/belief-memory-engine/internal/orchestrator"
	"github.com/ant-engram/belief-memory-engine/internal/relationship"
	"github.com/ant-engram/belief-memory-engine/internal/stats"
	"github.com/ant-engram/belief-memory-engine/internal/store/pgstore"
	"github.com/ant-engram/belief-memory-engine/internal/store/qdrantindex"
)

// version is set at build time via -ldflags.
var version = "dev"

// extractionAPIKey reads the API key matching the configured extraction
// provider straight from the environment, since config.Config carries no
// secret fields (see internal/config.Config's doc comment).
func extractionAPIKey(provider string) string {
	switch provider {
	case extraction.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case extraction.ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	case extraction.ProviderCerebras:
		return os.Getenv("CEREBRAS_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// embeddingAPIKey mirrors extractionAPIKey for the embedding provider,
// which draws from the same environment secrets despite being a
// separate capability client.
func embeddingAPIKey(provider string) string {
	switch provider {
	case embedding.ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// healthChecker is implemented by embedding clients that track a live
// health flag (every non-mock backend); mock and nil embedders have no
// flag, so /health reports "ok" for them.
type healthChecker interface {
	IsHealthy(ctx context.Context) bool
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := pgstore.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}

	memories := pgstore.NewMemoryStore(pool)
	beliefs := pgstore.NewBeliefStore(pool)
	graph := pgstore.NewGraphStore(pool)

	var qindex *qdrantindex.Index
	if cfg.QdrantAddr != "" {
		qindex, err = qdrantindex.New(qdrantindex.Config{
			URL:        cfg.QdrantAddr,
			Collection: "engram_embeddings",
			Dims:       uint64(cfg.EmbeddingDimension),
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to qdrant", zap.Error(err))
		}
		defer func() { _ = qindex.Close() }()

		if err := qindex.EnsureCollection(ctx); err != nil {
			logger.Fatal("failed to ensure qdrant collection", zap.Error(err))
		}
		logger.Info("qdrant accelerator enabled")
	} else {
		logger.Info("qdrant accelerator disabled (no QDRANT_ADDR)")
	}

	embedder, err := embedding.NewClient(cfg.EmbeddingProvider, embeddingAPIKey(cfg.EmbeddingProvider))
	if err != nil {
		logger.Warn("embedding client unavailable, falling back to text-only search", zap.Error(err))
		embedder = nil
	}

	extractor, err := extraction.NewClient(cfg.LLMProvider, extractionAPIKey(cfg.LLMProvider), logger)
	if err != nil {
		logger.Fatal("failed to create extraction client", zap.Error(err))
	}

	categorizer := categorize.NewEngine(extractor, logger)
	encoder := memoryengine.NewEngine(memories, embedder, extractor, logger).WithIndex(qindex)
	recorder := stats.NewRecorder("engram")
	analyzer := brca.NewEngine(beliefs, memories, extractor, cfg, recorder, logger)
	orch := orchestrator.NewOrchestrator(categorizer, encoder, analyzer, time.Duration(cfg.ClockSkew)*time.Second, logger)
	rel := relationship.NewEngine(graph, beliefs, analyzer, cfg.MaxGraphTraversalDepth, logger)

	mcpSrv := mcp.New(orch, beliefs, memories, analyzer, rel, embedder, qindex, logger, version)
	mcpHTTP := mcpserver.NewStreamableHTTPServer(mcpSrv.MCPServer())

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHTTP)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if hc, ok := embedder.(healthChecker); ok && !hc.IsHealthy(r.Context()) {
			status = "degraded: embedder unhealthy"
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(status))
	})

	addr := cfg.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("engramd starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("engramd stopped")
}
