package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Operation(OutcomeImproved, 3*time.Millisecond)
	r.Operation(OutcomeImproved, time.Millisecond)
	r.Operation(OutcomeCached, time.Microsecond)
	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)
	r.RuleFired("map-fusion")
	r.Candidate("equivalent")
	r.EGraphSize(42)
	r.Improvement(0.4)
	r.RuleDiscovered()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.operations.WithLabelValues(OutcomeImproved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues(OutcomeCached)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rulesFired.WithLabelValues("map-fusion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rulesDiscovered))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["surgeon_operation_duration_seconds"])
	assert.True(t, names["surgeon_egraph_nodes"])
	assert.True(t, names["surgeon_verify_candidates_total"])
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
