// Package relationship implements the Belief Relationship Service (C9):
// CRUD over the typed, temporally-qualified belief graph plus its
// traversal algorithms, per spec.md §4.6.
package relationship

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ant-engram/belief-memory-engine/internal/brca"
	"github.com/ant-engram/belief-memory-engine/internal/corerr"
	"github.com/ant-engram/belief-memory-engine/internal/domain"
	"go.uber.org/zap"
)

// Engine is the concrete Belief Relationship Service.
type Engine struct {
	store       domain.GraphStore
	beliefStore domain.BeliefStore
	brca        *brca.Engine // notified on deprecation, per spec.md §4.6
	maxDepth    int
	logger      *zap.Logger
}

// NewEngine constructs an Engine. brcaEngine may be nil if no C8
// counters need to observe deprecation events.
func NewEngine(store domain.GraphStore, beliefStore domain.BeliefStore, brcaEngine *brca.Engine, maxTraversalDepth int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTraversalDepth <= 0 {
		maxTraversalDepth = 5
	}
	return &Engine{store: store, beliefStore: beliefStore, brca: brcaEngine, maxDepth: maxTraversalDepth, logger: logger}
}

// CreateRelationship rejects self-loops and enforces uniqueness of active
// deprecating edges per ordered pair, per spec.md §4.6.
func (e *Engine) CreateRelationship(ctx context.Context, agentID domain.AgentID, sourceID, targetID string, t domain.RelationshipType, strength float64, metadata map[string]any, effectiveFrom time.Time, effectiveUntil *time.Time) (*domain.BeliefRelationship, error) {
	if sourceID == targetID {
		return nil, corerr.InvalidInput("targetBeliefId", targetID, "relationship cannot be a self-loop")
	}
	if !domain.ValidRelationshipType(t) {
		return nil, corerr.InvalidInput("type", t, "unknown relationship type")
	}

	if domain.DeprecatingRelationTypes[t] {
		existing, err := e.store.EdgesBetween(ctx, sourceID, targetID)
		if err != nil {
			return nil, corerr.Storage("graph.edgesBetween", err)
		}
		for _, edge := range existing {
			if domain.DeprecatingRelationTypes[edge.Type] && edge.Active {
				return nil, corerr.InvalidInput("type", t, "an active deprecating edge already exists for this ordered pair")
			}
		}
	}

	if effectiveFrom.IsZero() {
		effectiveFrom = time.Now()
	}

	r := &domain.BeliefRelationship{
		ID:             domain.NewRelationshipID(),
		AgentID:        agentID,
		SourceBeliefID: sourceID,
		TargetBeliefID: targetID,
		Type:           t,
		Strength:       clamp01(strength),
		Metadata:       metadata,
		EffectiveFrom:  effectiveFrom,
		EffectiveUntil: effectiveUntil,
		Active:         true,
		CreatedAt:      time.Now(),
	}
	if err := e.store.PutEdge(ctx, r); err != nil {
		return nil, corerr.Storage("graph.putEdge", err)
	}
	return r, nil
}

// CreateTemporalRelationship is CreateRelationship with an explicit
// effectiveness window.
func (e *Engine) CreateTemporalRelationship(ctx context.Context, agentID domain.AgentID, sourceID, targetID string, t domain.RelationshipType, strength float64, effectiveFrom time.Time, effectiveUntil *time.Time) (*domain.BeliefRelationship, error) {
	return e.CreateRelationship(ctx, agentID, sourceID, targetID, t, strength, nil, effectiveFrom, effectiveUntil)
}

// DeprecateBeliefWith creates a Supersedes edge newID -> oldID, deactivates
// oldID's belief, and records the reason, per spec.md §4.6. Rejects a call
// that would introduce a cycle in the deprecation chain.
func (e *Engine) DeprecateBeliefWith(ctx context.Context, agentID domain.AgentID, oldID, newID, reason string) (*domain.BeliefRelationship, error) {
	if oldID == newID {
		return nil, corerr.InvalidInput("newId", newID, "cannot deprecate a belief with itself")
	}

	wouldCycle, err := e.introducesCycle(ctx, newID, oldID)
	if err != nil {
		return nil, err
	}
	if wouldCycle {
		return nil, corerr.InvalidInput("newId", newID, "would introduce a cycle in the deprecation chain")
	}

	r, err := e.CreateRelationship(ctx, agentID, newID, oldID, domain.RelSupersedes, 1.0, nil, time.Now(), nil)
	if err != nil {
		return nil, err
	}
	r.DeprecationReason = reason
	if err := e.store.PutEdge(ctx, r); err != nil {
		return nil, corerr.Storage("graph.putEdge", err)
	}

	if e.brca != nil {
		if _, err := e.brca.DeactivateBelief(ctx, oldID, reason); err != nil {
			e.logger.Warn("failed to deactivate deprecated belief", zap.String("belief_id", oldID), zap.Error(err))
		}
	} else if e.beliefStore != nil {
		old, err := e.beliefStore.Get(ctx, oldID)
		if err == nil && old != nil {
			old.Active = false
			_ = e.beliefStore.Put(ctx, old)
		}
	}

	return r, nil
}

// introducesCycle reports whether adding an edge newID -> oldID would
// create a cycle, by checking whether oldID can already reach newID
// following Supersedes edges.
func (e *Engine) introducesCycle(ctx context.Context, newID, oldID string) (bool, error) {
	visited := map[string]bool{oldID: true}
	queue := []string{oldID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == newID {
			return true, nil
		}
		edges, err := e.store.EdgesFrom(ctx, cur, false)
		if err != nil {
			return false, corerr.Storage("graph.edgesFrom", err)
		}
		for _, edge := range edges {
			if edge.Type != domain.RelSupersedes {
				continue
			}
			if !visited[edge.TargetBeliefID] {
				visited[edge.TargetBeliefID] = true
				queue = append(queue, edge.TargetBeliefID)
			}
		}
	}
	return false, nil
}

// UpdateRelationship persists changes to an existing relationship.
func (e *Engine) UpdateRelationship(ctx context.Context, r *domain.BeliefRelationship) error {
	if err := e.store.PutEdge(ctx, r); err != nil {
		return corerr.Storage("graph.putEdge", err)
	}
	return nil
}

// DeleteRelationship removes an edge by id.
func (e *Engine) DeleteRelationship(ctx context.Context, id string) (bool, error) {
	ok, err := e.store.RemoveEdge(ctx, id)
	if err != nil {
		return false, corerr.Storage("graph.removeEdge", err)
	}
	return ok, nil
}

// EdgesFor returns edges touching beliefID in the given direction.
func (e *Engine) EdgesFor(ctx context.Context, beliefID string, direction Direction, includeInactive bool) ([]domain.BeliefRelationship, error) {
	var (
		out []domain.BeliefRelationship
		err error
	)
	switch direction {
	case DirectionOut:
		out, err = e.store.EdgesFrom(ctx, beliefID, includeInactive)
	case DirectionIn:
		out, err = e.store.EdgesTo(ctx, beliefID, includeInactive)
	default:
		out, err = e.store.EdgesBoth(ctx, beliefID, includeInactive)
	}
	if err != nil {
		return nil, corerr.Storage("graph.edges", err)
	}
	return out, nil
}

// Direction selects which edges EdgesFor returns relative to a belief.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)

// EdgesByType returns the agent's edges of the given type.
func (e *Engine) EdgesByType(ctx context.Context, agentID domain.AgentID, t domain.RelationshipType, includeInactive bool) ([]domain.BeliefRelationship, error) {
	out, err := e.store.EdgesByType(ctx, agentID, t, includeInactive)
	if err != nil {
		return nil, corerr.Storage("graph.edgesByType", err)
	}
	return out, nil
}

// CurrentlyEffectiveAt filters edges to those effective at t.
func CurrentlyEffectiveAt(edges []domain.BeliefRelationship, t time.Time) []domain.BeliefRelationship {
	out := make([]domain.BeliefRelationship, 0, len(edges))
	for _, e := range edges {
		if e.CurrentlyEffective(t) {
			out = append(out, e)
		}
	}
	return out
}

// DeprecatedBeliefs returns the list of belief ids deprecated (the target
// side of a currently-effective deprecating edge) for the agent.
func (e *Engine) DeprecatedBeliefs(ctx context.Context, agentID domain.AgentID) ([]string, error) {
	edges, err := e.store.ListByAgent(ctx, agentID, false)
	if err != nil {
		return nil, corerr.Storage("graph.listByAgent", err)
	}
	seen := map[string]bool{}
	var out []string
	now := time.Now()
	for _, edge := range edges {
		if !domain.DeprecatingRelationTypes[edge.Type] || !edge.CurrentlyEffective(now) {
			continue
		}
		if !seen[edge.TargetBeliefID] {
			seen[edge.TargetBeliefID] = true
			out = append(out, edge.TargetBeliefID)
		}
	}
	return out, nil
}

// FindRelatedBeliefs performs a BFS from id over currently-effective edges
// up to depth (capped at the configured maxDepth), per spec.md §4.6.
func (e *Engine) FindRelatedBeliefs(ctx context.Context, id string, depth int) ([]string, error) {
	if depth <= 0 || depth > e.maxDepth {
		depth = e.maxDepth
	}
	visited := map[string]bool{id: true}
	frontier := []string{id}
	var related []string
	now := time.Now()

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, cur := range frontier {
			edges, err := e.store.EdgesBoth(ctx, cur, false)
			if err != nil {
				return nil, corerr.Storage("graph.edgesBoth", err)
			}
			for _, edge := range edges {
				if !edge.CurrentlyEffective(now) {
					continue
				}
				other := edge.TargetBeliefID
				if other == cur {
					other = edge.SourceBeliefID
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				related = append(related, other)
				next = append(next, other)
			}
		}
		frontier = next
	}
	return related, nil
}

// ShortestPath finds the shortest BFS path (in hop count) from src to tgt
// over currently-effective edges, ties broken by higher average edge
// strength, per spec.md §4.6.
func (e *Engine) ShortestPath(ctx context.Context, src, tgt string) ([]domain.BeliefRelationship, error) {
	if src == tgt {
		return nil, nil
	}

	type pathState struct {
		beliefID string
		path     []domain.BeliefRelationship
	}

	now := time.Now()
	visited := map[string]bool{src: true}
	queue := []pathState{{beliefID: src}}
	var candidates [][]domain.BeliefRelationship
	found := false
	targetDepth := -1

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if found && len(cur.path) > targetDepth {
			continue
		}

		edges, err := e.store.EdgesBoth(ctx, cur.beliefID, false)
		if err != nil {
			return nil, corerr.Storage("graph.edgesBoth", err)
		}
		for _, edge := range edges {
			if !edge.CurrentlyEffective(now) {
				continue
			}
			other := edge.TargetBeliefID
			if other == cur.beliefID {
				other = edge.SourceBeliefID
			}

			newPath := append(append([]domain.BeliefRelationship{}, cur.path...), edge)
			if other == tgt {
				if !found {
					found = true
					targetDepth = len(newPath)
				}
				if len(newPath) == targetDepth {
					candidates = append(candidates, newPath)
				}
				continue
			}
			if visited[other] || found {
				continue
			}
			visited[other] = true
			queue = append(queue, pathState{beliefID: other, path: newPath})
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	bestAvg := averageStrength(best)
	for _, c := range candidates[1:] {
		if avg := averageStrength(c); avg > bestAvg {
			best, bestAvg = c, avg
		}
	}
	return best, nil
}

func averageStrength(path []domain.BeliefRelationship) float64 {
	if len(path) == 0 {
		return 0
	}
	var sum float64
	for _, e := range path {
		sum += e.Strength
	}
	return sum / float64(len(path))
}

// FindClusters returns the connected components of the subgraph whose
// edges have strength >= threshold, per spec.md §4.6.
func (e *Engine) FindClusters(ctx context.Context, agentID domain.AgentID, strengthThreshold float64) ([][]string, error) {
	edges, err := e.store.ListByAgent(ctx, agentID, false)
	if err != nil {
		return nil, corerr.Storage("graph.listByAgent", err)
	}

	adjacency := map[string]map[string]bool{}
	now := time.Now()
	addEdge := func(a, b string) {
		if adjacency[a] == nil {
			adjacency[a] = map[string]bool{}
		}
		adjacency[a][b] = true
	}
	for _, edge := range edges {
		if edge.Strength < strengthThreshold || !edge.CurrentlyEffective(now) {
			continue
		}
		addEdge(edge.SourceBeliefID, edge.TargetBeliefID)
		addEdge(edge.TargetBeliefID, edge.SourceBeliefID)
	}

	visited := map[string]bool{}
	var clusters [][]string
	nodes := make([]string, 0, len(adjacency))
	for n := range adjacency {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	for _, n := range nodes {
		if visited[n] {
			continue
		}
		var component []string
		queue := []string{n}
		visited[n] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for neighbor := range adjacency[cur] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		sort.Strings(component)
		clusters = append(clusters, component)
	}
	return clusters, nil
}

// FindConflicts returns belief-id pairs connected by a
// Contradicts|ConflictsWith edge, per spec.md §4.6.
func (e *Engine) FindConflicts(ctx context.Context, agentID domain.AgentID) ([][2]string, error) {
	edges, err := e.store.ListByAgent(ctx, agentID, false)
	if err != nil {
		return nil, corerr.Storage("graph.listByAgent", err)
	}
	var out [][2]string
	for _, edge := range edges {
		if domain.ContradictionRelationTypes[edge.Type] {
			out = append(out, [2]string{edge.SourceBeliefID, edge.TargetBeliefID})
		}
	}
	return out, nil
}

// Validate reports issues across the agent's graph: dangling endpoints,
// self-loops, cycles in deprecation chains, and temporal inversions, per
// spec.md §4.6.
func (e *Engine) Validate(ctx context.Context, agentID domain.AgentID) ([]string, error) {
	edges, err := e.store.ListByAgent(ctx, agentID, true)
	if err != nil {
		return nil, corerr.Storage("graph.listByAgent", err)
	}

	var issues []string
	beliefIDs := map[string]bool{}
	for _, edge := range edges {
		beliefIDs[edge.SourceBeliefID] = true
		beliefIDs[edge.TargetBeliefID] = true
	}
	knownBeliefs := map[string]bool{}
	if e.beliefStore != nil {
		for id := range beliefIDs {
			b, err := e.beliefStore.Get(ctx, id)
			if err == nil && b != nil {
				knownBeliefs[id] = true
			}
		}
	}

	for _, edge := range edges {
		if edge.SourceBeliefID == edge.TargetBeliefID {
			issues = append(issues, fmt.Sprintf("self-loop on edge %s (belief %s)", edge.ID, edge.SourceBeliefID))
		}
		if e.beliefStore != nil {
			if !knownBeliefs[edge.SourceBeliefID] {
				issues = append(issues, fmt.Sprintf("edge %s has dangling source belief %s", edge.ID, edge.SourceBeliefID))
			}
			if !knownBeliefs[edge.TargetBeliefID] {
				issues = append(issues, fmt.Sprintf("edge %s has dangling target belief %s", edge.ID, edge.TargetBeliefID))
			}
		}
		if edge.EffectiveUntil != nil && !edge.EffectiveUntil.After(edge.EffectiveFrom) {
			issues = append(issues, fmt.Sprintf("edge %s has effectiveUntil not after effectiveFrom (temporal inversion)", edge.ID))
		}
	}

	if cycles := e.findDeprecationCycles(edges); len(cycles) > 0 {
		for _, c := range cycles {
			issues = append(issues, fmt.Sprintf("cycle in deprecation chain: %v", c))
		}
	}

	return issues, nil
}

func (e *Engine) findDeprecationCycles(edges []domain.BeliefRelationship) [][]string {
	adjacency := map[string][]string{}
	for _, edge := range edges {
		if domain.DeprecatingRelationTypes[edge.Type] {
			adjacency[edge.SourceBeliefID] = append(adjacency[edge.SourceBeliefID], edge.TargetBeliefID)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var cycles [][]string

	var visit func(node string, path []string)
	visit = func(node string, path []string) {
		color[node] = gray
		path = append(path, node)
		for _, next := range adjacency[node] {
			switch color[next] {
			case white:
				visit(next, path)
			case gray:
				cycles = append(cycles, append(append([]string{}, path...), next))
			}
		}
		color[node] = black
	}

	nodes := make([]string, 0, len(adjacency))
	for n := range adjacency {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if color[n] == white {
			visit(n, nil)
		}
	}
	return cycles
}

// Cleanup removes inactive relationships older than olderThanDays,
// returning the count removed, per spec.md §4.6.
func (e *Engine) Cleanup(ctx context.Context, agentID domain.AgentID, olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	n, err := e.store.RemoveOlderThan(ctx, agentID, cutoff)
	if err != nil {
		return 0, corerr.Storage("graph.removeOlderThan", err)
	}
	return n, nil
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
