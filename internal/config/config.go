// Package config loads the single Config struct the rest of the system is
// built once from at startup, per spec.md §9 ("All magic numbers ... must
// be fields of a single configuration struct; no ambient defaults at call
// sites"). Loading mechanics (flat env vars + godotenv) follow the
// teacher's internal/config/config.go.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ResolutionStrategy names one of the conflict-resolution strategies of
// spec.md §4.5.
type ResolutionStrategy string

const (
	StrategyNewerWins        ResolutionStrategy = "newer_wins"
	StrategyHigherConfidence ResolutionStrategy = "higher_confidence"
	StrategyMerge            ResolutionStrategy = "merge"
	StrategyFlagForReview    ResolutionStrategy = "flag_for_review"
)

// SimilarityMetric selects how embedding similarity is computed.
type SimilarityMetric string

const (
	MetricCosine    SimilarityMetric = "cosine"
	MetricEuclidean SimilarityMetric = "euclidean"
	MetricDot       SimilarityMetric = "dot"
)

// Config is the recognized-keys enumeration of spec.md §6.
type Config struct {
	ReinforcementIncrement  float64
	NeighborSimilarityFloor float64
	NeighborLookupK         int
	HighConfidenceThreshold float64
	LowConfidenceThreshold  float64
	MaxContentLength        int
	MaxGraphTraversalDepth  int

	// ResolutionStrategies maps a domain.ConflictType string ("belief_belief",
	// "belief_memory") to the strategy applied by BRCA.resolveConflict, plus
	// a mandatory "default" entry.
	ResolutionStrategies map[string]ResolutionStrategy

	EmbeddingDimension int
	SimilarityMetric    SimilarityMetric

	// UsageReinforcement, off by default, is loaded from the environment
	// but no component reads it.
	UsageReinforcement bool

	// ClockSkew bounds how far in the future an ingestion timestamp may be,
	// per spec.md §4.8's input validation.
	ClockSkew int // seconds

	ServerPort   int
	DatabaseURL  string
	LogLevel     string
	LLMProvider       string
	EmbeddingProvider string
	QdrantAddr        string
}

// Default returns the documented defaults of spec.md §6.
func Default() Config {
	return Config{
		ReinforcementIncrement:  0.1,
		NeighborSimilarityFloor: 0.7,
		NeighborLookupK:         10,
		HighConfidenceThreshold: 0.8,
		LowConfidenceThreshold:  0.3,
		MaxContentLength:        10_000,
		MaxGraphTraversalDepth:  5,
		ResolutionStrategies: map[string]ResolutionStrategy{
			"belief_belief": StrategyNewerWins,
			"belief_memory": StrategyFlagForReview,
			"default":       StrategyFlagForReview,
		},
		EmbeddingDimension: 1536,
		SimilarityMetric:    MetricCosine,
		UsageReinforcement:  false,
		ClockSkew:           300,
		ServerPort:          8080,
		LogLevel:            "info",
		LLMProvider:         "mock",
		EmbeddingProvider:   "mock",
	}
}

// Load builds a Config from the environment, starting from Default() and
// overriding any field an env var sets. It first loads a flat .env file
// (selected via ENGRAM_ENV, defaulting to ".env") and its ".secret"
// sidecar, mirroring the teacher's config.Load.
func Load() (Config, error) {
	envFile := os.Getenv("ENGRAM_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	cfg := Default()

	if v, ok := floatEnv("REINFORCEMENT_INCREMENT"); ok {
		cfg.ReinforcementIncrement = v
	}
	if v, ok := floatEnv("NEIGHBOR_SIMILARITY_FLOOR"); ok {
		cfg.NeighborSimilarityFloor = v
	}
	if v, ok := intEnv("NEIGHBOR_LOOKUP_K"); ok {
		cfg.NeighborLookupK = v
	}
	if v, ok := floatEnv("HIGH_CONFIDENCE_THRESHOLD"); ok {
		cfg.HighConfidenceThreshold = v
	}
	if v, ok := floatEnv("LOW_CONFIDENCE_THRESHOLD"); ok {
		cfg.LowConfidenceThreshold = v
	}
	if v, ok := intEnv("MAX_CONTENT_LENGTH"); ok {
		cfg.MaxContentLength = v
	}
	if v, ok := intEnv("MAX_GRAPH_TRAVERSAL_DEPTH"); ok {
		cfg.MaxGraphTraversalDepth = v
	}
	if v, ok := intEnv("EMBEDDING_DIMENSION"); ok {
		cfg.EmbeddingDimension = v
	}
	if v := os.Getenv("SIMILARITY_METRIC"); v != "" {
		cfg.SimilarityMetric = SimilarityMetric(v)
	}
	if v, ok := boolEnv("USAGE_REINFORCEMENT"); ok {
		cfg.UsageReinforcement = v
	}
	if v, ok := intEnv("CLOCK_SKEW_SECONDS"); ok {
		cfg.ClockSkew = v
	}
	if v, ok := intEnv("SERVER_PORT"); ok {
		cfg.ServerPort = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.EmbeddingProvider = v
	}
	cfg.QdrantAddr = os.Getenv("QDRANT_ADDR")

	return cfg, nil
}

// ServerAddr renders the ":port" listen address the teacher's ServerAddr
// produced.
func (c Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func floatEnv(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func intEnv(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func boolEnv(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
