// Package brca implements the Belief Reinforcement & Conflict Analyzer
// (C8), spec.md §4.5 — "the hardest part": the deterministic per-memory
// algorithm that decides, for each candidate belief extracted from a
// memory, whether it is new, reinforces an existing belief, or conflicts
// with one, plus the cross-pair scan and conflict resolution strategies.
package brca

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/config"
	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"github.com/ant-engram/belief-memory-engine/internal/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// crossPairScanConcurrency bounds how many AreConflicting calls
// ReviewBeliefsForAgent has in flight at once, since an AI-backed
// extractor turns each one into a network round trip and the pair count
// grows quadratically with an agent's belief count.
const crossPairScanConcurrency = 8

// Engine is the concrete Belief Reinforcement & Conflict Analyzer.
type Engine struct {
	beliefStore domain.BeliefStore
	memoryStore domain.MemoryStore
	extractor   domain.ExtractionClient

	reinforcementIncrement float64
	similarityFloor        float64
	neighborLimit          int
	highConfidence         float64
	lowConfidence          float64

	strategiesMu sync.RWMutex
	strategies   map[domain.ConflictType]config.ResolutionStrategy
	defaultStrat config.ResolutionStrategy

	locks *keyedMutex

	stats  *stats.Recorder
	logger *zap.Logger
}

// NewEngine constructs an Engine from Config's documented numeric
// semantics (spec.md §4.5's "Numeric semantics").
func NewEngine(beliefStore domain.BeliefStore, memoryStore domain.MemoryStore, extractor domain.ExtractionClient, cfg config.Config, recorder *stats.Recorder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = stats.NewRecorder("engram")
	}

	strategies := make(map[domain.ConflictType]config.ResolutionStrategy, len(cfg.ResolutionStrategies))
	def := config.StrategyFlagForReview
	for k, v := range cfg.ResolutionStrategies {
		if k == "default" {
			def = v
			continue
		}
		strategies[domain.ConflictType(k)] = v
	}

	return &Engine{
		beliefStore:            beliefStore,
		memoryStore:            memoryStore,
		extractor:              extractor,
		reinforcementIncrement: cfg.ReinforcementIncrement,
		similarityFloor:        cfg.NeighborSimilarityFloor,
		neighborLimit:          cfg.NeighborLookupK,
		highConfidence:         cfg.HighConfidenceThreshold,
		lowConfidence:          cfg.LowConfidenceThreshold,
		strategies:             strategies,
		defaultStrat:           def,
		locks:                  newKeyedMutex(),
		stats:                  recorder,
		logger:                 logger,
	}
}

// ConfigureResolutionStrategies replaces the strategy table, per spec.md
// §4.5's configureResolutionStrategies.
func (e *Engine) ConfigureResolutionStrategies(strategies map[domain.ConflictType]config.ResolutionStrategy) {
	e.strategiesMu.Lock()
	defer e.strategiesMu.Unlock()
	for k, v := range strategies {
		e.strategies[k] = v
	}
}

func (e *Engine) strategyFor(t domain.ConflictType) config.ResolutionStrategy {
	e.strategiesMu.RLock()
	defer e.strategiesMu.RUnlock()
	if s, ok := e.strategies[t]; ok {
		return s
	}
	return e.defaultStrat
}

// AnalyzeNewMemory runs the deterministic per-memory algorithm of spec.md
// §4.5 against m, mutating the Belief Store and returning an UpdateResult.
func (e *Engine) AnalyzeNewMemory(ctx context.Context, m *domain.MemoryRecord) (UpdateResult, error) {
	e.stats.Analyses.Inc()

	candidates, err := e.extractor.ExtractBeliefs(ctx, m.Content, m.AgentID, m.Category)
	if err != nil {
		e.logger.Warn("belief extraction failed, proceeding with general candidate",
			zap.String("memory_id", m.ID), zap.Error(corerr.ExtractionUnavailable), zap.NamedError("cause", err))
		candidates = nil
	}
	if len(candidates) == 0 {
		candidates = []domain.ExtractedBelief{{
			Statement:  "General memory: " + m.Content,
			Category:   m.Category,
			Confidence: 0.5,
			Positive:   true,
		}}
	}

	unlock := e.locks.Lock(string(m.AgentID))
	defer unlock()

	var result UpdateResult
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		neighbors, err := e.beliefStore.FindSimilar(ctx, c.Statement, m.AgentID, e.similarityFloor, e.neighborLimit)
		if err != nil {
			return result, corerr.Storage("belief.findSimilar", err)
		}

		switch {
		case len(neighbors) == 0 && c.Positive:
			b := &domain.Belief{
				ID:                 domain.NewBeliefID(),
				AgentID:            m.AgentID,
				Statement:          c.Statement,
				Confidence:         clamp01(c.Confidence),
				Category:           c.Category,
				ReinforcementCount: 0,
				CreatedAt:          time.Now(),
				LastUpdated:        time.Now(),
				Active:             true,
			}
			b.AddEvidence(m.ID)
			for _, tag := range c.Tags {
				if b.Tags == nil {
					b.Tags = make(map[string]struct{})
				}
				b.Tags[tag] = struct{}{}
			}
			if err := e.beliefStore.Put(ctx, b); err != nil {
				return result, corerr.Storage("belief.put", err)
			}
			e.stats.BeliefsCreated.Inc()
			result.NewBeliefs = append(result.NewBeliefs, *b)

		case len(neighbors) > 0 && c.Positive:
			for i := range neighbors {
				n := neighbors[i]
				n.Confidence = clamp01(n.Confidence + e.reinforcementIncrement)
				n.ReinforcementCount++
				n.AddEvidence(m.ID)
				n.LastUpdated = time.Now()
				if err := e.beliefStore.Put(ctx, &n); err != nil {
					return result, corerr.Storage("belief.put", err)
				}
				e.stats.BeliefsReinforced.Inc()
				result.ReinforcedBeliefs = append(result.ReinforcedBeliefs, n)
			}

		case !c.Positive && len(neighbors) > 0:
			for _, n := range neighbors {
				conflict := domain.BeliefConflict{
					ID:         domain.NewConflictID(),
					AgentID:    m.AgentID,
					BeliefID:   n.ID,
					MemoryID:   m.ID,
					DetectedAt: time.Now(),
					Resolved:   false,
					Severity:   classifySeverity(n.Confidence, c.Confidence, e.highConfidence, e.lowConfidence),
				}
				conflict.ConflictType = domain.DetermineConflictType(conflict)
				conflict.AutoResolvable = e.strategyFor(conflict.ConflictType) != config.StrategyFlagForReview &&
					e.strategyFor(conflict.ConflictType) != config.StrategyMerge
				if err := e.beliefStore.PutConflict(ctx, &conflict); err != nil {
					return result, corerr.Storage("belief.putConflict", err)
				}
				e.stats.ConflictsDetected.Inc()
				result.Conflicts = append(result.Conflicts, conflict)
			}

		default:
			// Negative statement with nothing to contradict: informational
			// only, per spec.md §4.5 step 3e.
		}
	}

	return result, nil
}

// AnalyzeBatch runs AnalyzeNewMemory over records in order, merging
// per-record results, per spec.md §4.5.
func (e *Engine) AnalyzeBatch(ctx context.Context, records []domain.MemoryRecord) (UpdateResult, error) {
	e.stats.BatchAnalyses.Inc()
	var merged UpdateResult
	for i := range records {
		r, err := e.AnalyzeNewMemory(ctx, &records[i])
		if err != nil {
			return merged, err
		}
		mergeResults(&merged, r)
	}
	return merged, nil
}

// beliefPair is one unordered pair considered by ReviewBeliefsForAgent's
// cross-pair scan, identified by index into the sorted belief slice so
// results can be reassembled in a fixed order after concurrent fetch.
type beliefPair struct {
	i, j int
}

// ReviewBeliefsForAgent is the cross-pair scan of spec.md §4.5: every
// unordered pair of the agent's active beliefs is checked for conflict.
// The AreConflicting calls themselves (each a possible network round
// trip to an AI-backed extractor) run concurrently, bounded by
// crossPairScanConcurrency; conflicts are then written to the store
// sequentially in pair order, preserving this engine's single-writer
// ordering guarantee across the two coupled stores.
func (e *Engine) ReviewBeliefsForAgent(ctx context.Context, agentID domain.AgentID) ([]domain.BeliefConflict, error) {
	beliefs, err := e.beliefStore.ListByAgent(ctx, agentID, false)
	if err != nil {
		return nil, corerr.Storage("belief.listByAgent", err)
	}
	sort.Slice(beliefs, func(i, j int) bool { return beliefs[i].ID < beliefs[j].ID })

	var pairs []beliefPair
	for i := 0; i < len(beliefs); i++ {
		for j := i + 1; j < len(beliefs); j++ {
			pairs = append(pairs, beliefPair{i, j})
		}
	}

	conflicting := make([]bool, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(crossPairScanConcurrency)
	for idx, pair := range pairs {
		idx, pair := idx, pair
		g.Go(func() error {
			b1, b2 := beliefs[pair.i], beliefs[pair.j]
			result, err := e.extractor.AreConflicting(gctx, b1.Statement, b2.Statement, b1.Category, b2.Category)
			if err != nil {
				e.logger.Warn("conflict check failed during cross-pair scan",
					zap.String("agent_id", string(agentID)), zap.Error(corerr.ExtractionUnavailable), zap.NamedError("cause", err))
				return nil
			}
			conflicting[idx] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var found []domain.BeliefConflict
	for idx, pair := range pairs {
		if !conflicting[idx] {
			continue
		}
		b1, b2 := beliefs[pair.i], beliefs[pair.j]

		conflict := domain.BeliefConflict{
			ID:                  domain.NewConflictID(),
			AgentID:             agentID,
			BeliefID:            b1.ID,
			ConflictingBeliefID: b2.ID,
			DetectedAt:          time.Now(),
			Resolved:            false,
			Severity:            classifySeverity(b1.Confidence, b2.Confidence, e.highConfidence, e.lowConfidence),
		}
		conflict.ConflictType = domain.DetermineConflictType(conflict)
		conflict.AutoResolvable = e.strategyFor(conflict.ConflictType) != config.StrategyFlagForReview &&
			e.strategyFor(conflict.ConflictType) != config.StrategyMerge

		if err := e.beliefStore.PutConflict(ctx, &conflict); err != nil {
			return found, corerr.Storage("belief.putConflict", err)
		}
		e.stats.ConflictsDetected.Inc()
		found = append(found, conflict)
	}
	return found, nil
}

// ResolveConflict applies the configured strategy for conflict's type,
// per spec.md §4.5's strategy table. Idempotent: a conflict already
// resolved is returned unchanged. A conflict referencing a missing belief
// is returned unchanged, not an error.
func (e *Engine) ResolveConflict(ctx context.Context, conflict domain.BeliefConflict) (domain.BeliefConflict, error) {
	if conflict.Resolved {
		return conflict, nil
	}

	b1, err := e.beliefStore.Get(ctx, conflict.BeliefID)
	if err != nil {
		return conflict, corerr.Storage("belief.get", err)
	}
	if b1 == nil {
		return conflict, nil
	}

	var b2 *domain.Belief
	if conflict.ConflictingBeliefID != "" {
		b2, err = e.beliefStore.Get(ctx, conflict.ConflictingBeliefID)
		if err != nil {
			return conflict, corerr.Storage("belief.get", err)
		}
		if b2 == nil {
			return conflict, nil
		}
	}

	strategy := e.strategyFor(conflict.ConflictType)
	resolved := conflict

	switch strategy {
	case config.StrategyNewerWins:
		switch {
		case b2 != nil:
			older, newer := b1, b2
			if newer.CreatedAt.Before(older.CreatedAt) {
				older, newer = newer, older
			}
			older.Active = false
			if err := e.beliefStore.Put(ctx, older); err != nil {
				return conflict, corerr.Storage("belief.put", err)
			}
			resolved.Resolution = domain.ResolutionArchiveOld
			resolved.ResolutionDetails = fmt.Sprintf("kept %s, archived %s", newer.ID, older.ID)
			resolved.Resolved = true
		default:
			// belief_memory: the contradicting memory is, by construction,
			// newer than the belief it contradicts.
			b1.Active = false
			if err := e.beliefStore.Put(ctx, b1); err != nil {
				return conflict, corerr.Storage("belief.put", err)
			}
			resolved.Resolution = domain.ResolutionArchiveOld
			resolved.ResolutionDetails = fmt.Sprintf("memory %s superseded belief %s", conflict.MemoryID, b1.ID)
			resolved.Resolved = true
		}

	case config.StrategyHigherConfidence:
		if b2 != nil {
			lower, higher := b1, b2
			if higher.Confidence < lower.Confidence {
				lower, higher = higher, lower
			}
			lower.Active = false
			if err := e.beliefStore.Put(ctx, lower); err != nil {
				return conflict, corerr.Storage("belief.put", err)
			}
			resolved.Resolution = domain.ResolutionKeepOld
			resolved.ResolutionDetails = fmt.Sprintf("kept %s (higher confidence)", higher.ID)
			resolved.Resolved = true
		} else {
			// belief_memory: no comparable confidence value for the raw
			// memory content, so this degrades to manual review.
			resolved.Resolution = domain.ResolutionRequireManualReview
			resolved.Resolved = false
		}

	case config.StrategyMerge:
		// Not yet implemented, per spec.md §4.5: falls through to
		// flag_for_review.
		resolved.Resolution = domain.ResolutionRequireManualReview
		resolved.Resolved = false

	default: // StrategyFlagForReview
		resolved.Resolution = domain.ResolutionRequireManualReview
		resolved.Resolved = false
	}

	if resolved.Resolved {
		now := time.Now()
		resolved.ResolvedAt = &now
		if err := e.beliefStore.RemoveConflict(ctx, resolved.ID); err != nil {
			return conflict, corerr.Storage("belief.removeConflict", err)
		}
		e.stats.ConflictsResolved.Inc()
	} else {
		if err := e.beliefStore.PutConflict(ctx, &resolved); err != nil {
			return conflict, corerr.Storage("belief.putConflict", err)
		}
	}

	return resolved, nil
}

// UpdateBeliefConfidence sets a belief's confidence, clamped to [0,1].
func (e *Engine) UpdateBeliefConfidence(ctx context.Context, id string, newConfidence float64, reason string) (domain.Belief, error) {
	b, err := e.beliefStore.Get(ctx, id)
	if err != nil {
		return domain.Belief{}, corerr.Storage("belief.get", err)
	}
	if b == nil {
		return domain.Belief{}, corerr.NotFound("belief", id)
	}

	b.Confidence = clamp01(newConfidence)
	b.LastUpdated = time.Now()
	if err := e.beliefStore.Put(ctx, b); err != nil {
		return domain.Belief{}, corerr.Storage("belief.put", err)
	}
	e.logger.Info("belief confidence updated", zap.String("belief_id", id), zap.Float64("new_confidence", b.Confidence), zap.String("reason", reason))
	return *b, nil
}

// DeactivateBelief marks a belief inactive.
func (e *Engine) DeactivateBelief(ctx context.Context, id string, reason string) (domain.Belief, error) {
	b, err := e.beliefStore.Get(ctx, id)
	if err != nil {
		return domain.Belief{}, corerr.Storage("belief.get", err)
	}
	if b == nil {
		return domain.Belief{}, corerr.NotFound("belief", id)
	}
	b.Active = false
	b.LastUpdated = time.Now()
	if err := e.beliefStore.Put(ctx, b); err != nil {
		return domain.Belief{}, corerr.Storage("belief.put", err)
	}
	e.stats.BeliefsDeactivated.Inc()
	e.logger.Info("belief deactivated", zap.String("belief_id", id), zap.String("reason", reason))
	return *b, nil
}

// FindRelatedBeliefs searches the belief store for statements similar to
// queryText within agentID, per spec.md §4.5. Per-agent partitioning is
// load-bearing throughout this system (see domain.AgentID), so unlike the
// spec's literal "agentId?" this implementation requires a concrete
// agentID.
func (e *Engine) FindRelatedBeliefs(ctx context.Context, queryText string, agentID domain.AgentID, limit int) ([]domain.Belief, error) {
	out, err := e.beliefStore.FindSimilar(ctx, queryText, agentID, e.similarityFloor, limit)
	if err != nil {
		return nil, corerr.Storage("belief.findSimilar", err)
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func classifySeverity(confidenceA, confidenceB, high, low float64) domain.ConflictSeverity {
	avg := (confidenceA + confidenceB) / 2
	switch {
	case avg >= high:
		return domain.SeverityHigh
	case avg >= low:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
