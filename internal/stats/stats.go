// Package stats implements the monotonic statistics contract of spec.md
// §4.5/§9 ("the atomic-counter type") as real Prometheus counters, rather
// than a hand-rolled atomic struct, per the pack's metrics idiom.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Recorder holds every process-lifetime counter the Belief Reinforcement
// & Conflict Analyzer (C8) exposes through its read-through statistics
// contract.
type Recorder struct {
	registry *prometheus.Registry

	Analyses           prometheus.Counter
	BatchAnalyses      prometheus.Counter
	ConflictsDetected  prometheus.Counter
	ConflictsResolved  prometheus.Counter
	BeliefsCreated     prometheus.Counter
	BeliefsReinforced  prometheus.Counter
	BeliefsDeactivated prometheus.Counter
}

// NewRecorder creates a Recorder registered against its own registry
// (rather than the global default registry) so multiple engine instances
// — one per test, for instance — never collide on metric names.
func NewRecorder(namespace string) *Recorder {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "brca",
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}

	return &Recorder{
		registry:           registry,
		Analyses:           counter("analyses_total", "Total number of analyzeNewMemory calls"),
		BatchAnalyses:      counter("batch_analyses_total", "Total number of analyzeBatch calls"),
		ConflictsDetected:  counter("conflicts_detected_total", "Total number of conflicts detected"),
		ConflictsResolved:  counter("conflicts_resolved_total", "Total number of conflicts resolved"),
		BeliefsCreated:     counter("beliefs_created_total", "Total number of beliefs created"),
		BeliefsReinforced:  counter("beliefs_reinforced_total", "Total number of beliefs reinforced"),
		BeliefsDeactivated: counter("beliefs_deactivated_total", "Total number of beliefs deactivated"),
	}
}

// Registry exposes the underlying Prometheus registry for a scrape
// handler to mount.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ConfidenceBucket classifies confidence into the "high/medium/low"
// reporting buckets of spec.md §4.5: high >= 0.8, medium >= 0.5, else low.
func ConfidenceBucket(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
