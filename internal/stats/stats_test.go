package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_CountersIncrement(t *testing.T) {
	r := NewRecorder("engram_test_counters")
	r.Analyses.Inc()
	r.BeliefsCreated.Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.Analyses))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.BeliefsCreated))
}

func TestConfidenceBucket(t *testing.T) {
	assert.Equal(t, "high", ConfidenceBucket(0.8))
	assert.Equal(t, "high", ConfidenceBucket(0.95))
	assert.Equal(t, "medium", ConfidenceBucket(0.5))
	assert.Equal(t, "medium", ConfidenceBucket(0.79))
	assert.Equal(t, "low", ConfidenceBucket(0.49))
	assert.Equal(t, "low", ConfidenceBucket(0))
}
