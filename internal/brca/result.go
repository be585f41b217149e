package brca

import "github.com/ant-engram/belief-memory-engine/internal/domain"

// UpdateResult is the outcome of analyzeNewMemory/analyzeBatch, per
// spec.md §4.5.
type UpdateResult struct {
	NewBeliefs        []domain.Belief
	ReinforcedBeliefs []domain.Belief
	// WeakenedBeliefs is carried through by result merging but is not
	// populated anywhere in this package: the per-memory algorithm only
	// creates, reinforces, or records conflicts, and UpdateBeliefConfidence
	// returns the updated Belief rather than an UpdateResult.
	WeakenedBeliefs []domain.Belief
	Conflicts       []domain.BeliefConflict
}

func mergeResults(into *UpdateResult, other UpdateResult) {
	into.NewBeliefs = append(into.NewBeliefs, other.NewBeliefs...)
	into.ReinforcedBeliefs = append(into.ReinforcedBeliefs, other.ReinforcedBeliefs...)
	into.WeakenedBeliefs = append(into.WeakenedBeliefs, other.WeakenedBeliefs...)
	into.Conflicts = append(into.Conflicts, other.Conflicts...)
}
