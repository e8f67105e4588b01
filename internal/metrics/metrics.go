// Package metrics exposes Prometheus instrumentation for optimization runs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "surgeon"

// Outcome labels for Recorder.Operation.
const (
	OutcomeImproved  = "improved"
	OutcomeUnchanged = "unchanged"
	OutcomeCached    = "cached"
	OutcomeError     = "error"
)

// Recorder holds the collectors of one registry.
type Recorder struct {
	operations      *prometheus.CounterVec
	duration        prometheus.Histogram
	improvement     prometheus.Histogram
	candidates      *prometheus.CounterVec
	rulesFired      *prometheus.CounterVec
	egraphNodes     prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	rulesDiscovered prometheus.Counter
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Optimization requests by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of one optimization request",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		improvement: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "improvement_ratio",
			Help:      "Relative score improvement of accepted rewrites",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "candidates_total",
			Help:      "Extracted candidates by verification verdict",
		}, []string{"verdict"}),
		rulesFired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "egraph",
			Name:      "rules_fired_total",
			Help:      "Rule applications that changed the e-graph",
		}, []string{"rule"}),
		egraphNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "egraph",
			Name:      "nodes",
			Help:      "E-graph size at the end of saturation",
			Buckets:   prometheus.ExponentialBuckets(8, 4, 8),
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Proof cache lookups by result",
		}, []string{"result"}),
		rulesDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "learner",
			Name:      "rules_discovered_total",
			Help:      "Discovered rules added to the rule set",
		}),
	}
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// Default returns the recorder registered with the default Prometheus registry.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// Operation records a finished request.
func (r *Recorder) Operation(outcome string, d time.Duration) {
	r.operations.WithLabelValues(outcome).Inc()
	r.duration.Observe(d.Seconds())
}

// Improvement records the ratio of an accepted rewrite.
func (r *Recorder) Improvement(ratio float64) {
	r.improvement.Observe(ratio)
}

// Candidate records a verification verdict.
func (r *Recorder) Candidate(verdict string) {
	r.candidates.WithLabelValues(verdict).Inc()
}

// RuleFired records a rule application that changed the graph.
func (r *Recorder) RuleFired(ruleID string) {
	r.rulesFired.WithLabelValues(ruleID).Inc()
}

// EGraphSize records the node count after saturation.
func (r *Recorder) EGraphSize(nodes int) {
	r.egraphNodes.Observe(float64(nodes))
}

// CacheLookup records a proof cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RuleDiscovered counts a rule added by discovery.
func (r *Recorder) RuleDiscovered() {
	r.rulesDiscovered.Inc()
}
