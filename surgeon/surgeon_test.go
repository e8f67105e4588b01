package surgeon

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/internal/egraph"
	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/learner"
	"github.com/gnoswap-labs/surgeon/internal/metrics"
	"github.com/gnoswap-labs/surgeon/internal/proofcache"
	"github.com/gnoswap-labs/surgeon/internal/rules"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
	"github.com/gnoswap-labs/surgeon/internal/verify"
)

const testBudget = 5 * time.Second

func newTestSurgeon(t *testing.T, opts ...Option) *Surgeon {
	t.Helper()
	base := []Option{
		WithMetrics(metrics.NewRecorder(prometheus.NewRegistry())),
		WithPolicy(learner.NewPolicy(learner.WithSeed(1))),
		WithBudget(testBudget),
	}
	return New(append(base, opts...)...)
}

func TestOperateMapFusion(t *testing.T) {
	s := newTestSurgeon(t)
	input := sexpr.MustParseTerm("(map (map xs f) g)")

	res, err := s.Operate(context.Background(), input, testBudget)
	require.NoError(t, err)

	assert.True(t, res.Verified)
	assert.Equal(t, "(map xs (compose g f))", res.Transformed.String())
	assert.Contains(t, res.RulesApplied, rules.MapFusion)
	assert.Less(t, res.FinalScore(), res.InitialScore())
	assert.Greater(t, res.ImprovementRatio(), 0.0)
	assert.Greater(t, res.Iterations, 0)
	assert.Equal(t, canon.SoulOf(input), res.Soul)
	assert.False(t, res.CacheHit)

	fusion, _ := s.Rules().Get(rules.MapFusion)
	assert.Greater(t, s.Policy().Expected(fusion), 0.0)
	assert.Len(t, s.Experience().Lookup(res.Soul), 1)
}

func TestOperateUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		budget time.Duration
	}{
		{"literal", "5", testBudget},
		{"single map", "(map xs f)", testBudget},
		{"zero budget", "(map (map xs f) g)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSurgeon(t)
			input := sexpr.MustParseTerm(tt.input)

			res, err := s.Operate(context.Background(), input, tt.budget)
			require.NoError(t, err)
			assert.True(t, res.Verified)
			assert.True(t, ir.Equal(input, res.Transformed))
			assert.Empty(t, res.RulesApplied)
			assert.Equal(t, res.InitialCost, res.FinalCost)
			assert.Zero(t, res.Improvement())
		})
	}
}

func TestOperateNeverWorse(t *testing.T) {
	inputs := []string{
		"(map (filter xs isEven) double)",
		"(filter (filter xs p) q)",
		"(map xs id)",
		"(reduce (map xs square) add 0)",
		"(+ 0 (* x 1))",
		"(if c (map xs f) (map xs f))",
		"(compose (compose f g) h)",
		"(map (map (map xs inc) double) square)",
		"(filter xs (const true))",
	}

	s := newTestSurgeon(t)
	v := verify.NewVerifier(verify.DefaultConfig())
	for _, src := range inputs {
		t.Run(src, func(t *testing.T) {
			input := sexpr.MustParseTerm(src)
			res, err := s.Operate(context.Background(), input, testBudget)
			require.NoError(t, err)

			assert.True(t, res.Verified)
			assert.LessOrEqual(t, res.FinalScore(), res.InitialScore())
			if res.Changed() {
				assert.Less(t, res.FinalScore(), res.InitialScore())
				assert.True(t, v.CheckEquivalence(input, res.Transformed), res.Transformed.String())
			}
		})
	}
}

func TestOperateFocus(t *testing.T) {
	s := newTestSurgeon(t)
	res, err := s.Operate(context.Background(), sexpr.MustParseTerm("(map (filter xs isEven) double)"), testBudget)
	require.NoError(t, err)
	assert.Equal(t, "(focus hard xs isEven double drop)", res.Transformed.String())
	assert.Contains(t, res.RulesApplied, rules.MapFilterFocus)
}

func TestOperateWeights(t *testing.T) {
	s := newTestSurgeon(t)
	w := cost.Weights{Alpha: 0, Beta: 0, Gamma: 1, Delta: 0}

	res, err := s.OperateRequest(context.Background(), Request{
		Term:    sexpr.MustParseTerm("(map (map xs f) g)"),
		Budget:  testBudget,
		Weights: &w,
	})
	require.NoError(t, err)
	assert.Equal(t, w, res.Weights)
	assert.Less(t, res.FinalScore(), res.InitialScore())
}

func TestOperateRespectsBudget(t *testing.T) {
	term := "xs"
	for i := 0; i < 12; i++ {
		term = fmt.Sprintf("(filter (map %s (lam a (+ a %d))) (lam b (> b %d)))", term, i, i)
	}
	input := sexpr.MustParseTerm(term)

	for _, budget := range []time.Duration{20 * time.Millisecond, 100 * time.Millisecond} {
		t.Run(budget.String(), func(t *testing.T) {
			s := newTestSurgeon(t)

			start := time.Now()
			res, err := s.Operate(context.Background(), input, budget)
			elapsed := time.Since(start)
			require.NoError(t, err)

			assert.Less(t, elapsed, budget+time.Second)
			assert.LessOrEqual(t, s.Model().Score(res.Transformed), s.Model().Score(input))
		})
	}
}

func TestOperateCancelled(t *testing.T) {
	s := newTestSurgeon(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := sexpr.MustParseTerm("(map (map xs f) g)")
	res, err := s.Operate(ctx, input, testBudget)
	require.NoError(t, err)
	assert.Zero(t, res.Iterations)
	assert.True(t, ir.Equal(input, res.Transformed))
}

func TestOperateErrors(t *testing.T) {
	s := newTestSurgeon(t)
	_, err := s.Operate(context.Background(), ir.Map{Data: ir.V("xs")}, testBudget)
	assert.ErrorIs(t, err, ir.ErrMalformedTerm)

	s = newTestSurgeon(t, WithNodeLimit(3))
	_, err = s.Operate(context.Background(), sexpr.MustParseTerm("(map (map xs f) g)"), testBudget)
	assert.ErrorIs(t, err, egraph.ErrGraphOverflow)
}

func TestOperateCache(t *testing.T) {
	store, err := proofcache.Open(proofcache.Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	s := newTestSurgeon(t, WithCache(store))
	input := sexpr.MustParseTerm("(map (map xs (lam x (+ x 1))) g)")

	first, err := s.Operate(context.Background(), input, testBudget)
	require.NoError(t, err)
	require.True(t, first.Changed())
	assert.False(t, first.CacheHit)

	renamed := sexpr.MustParseTerm("(map (map xs (lam y (+ y 1))) g)")
	second, err := s.Operate(context.Background(), renamed, testBudget)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Zero(t, second.Iterations)
	assert.Equal(t, first.RulesApplied, second.RulesApplied)
	assert.Equal(t, first.FinalScore(), second.FinalScore())

	// another objective misses the cache
	w := cost.Weights{Alpha: 2, Beta: 0.01, Gamma: 10, Delta: 100}
	third, err := s.OperateRequest(context.Background(), Request{Term: input, Budget: testBudget, Weights: &w})
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}

func TestOperateBatch(t *testing.T) {
	s := newTestSurgeon(t, WithConcurrency(2))
	terms := []ir.Term{
		sexpr.MustParseTerm("(map (map xs f) g)"),
		ir.N(5),
		sexpr.MustParseTerm("(map xs id)"),
	}

	results, err := s.OperateBatch(context.Background(), terms, 3*testBudget)
	require.NoError(t, err)
	require.Len(t, results, len(terms))
	for i, res := range results {
		assert.True(t, ir.Equal(terms[i], res.Original))
		assert.True(t, res.Verified)
	}
	assert.True(t, results[0].Changed())
	assert.False(t, results[1].Changed())
	assert.Equal(t, "xs", results[2].Transformed.String())

	results, err = s.OperateBatch(context.Background(), nil, testBudget)
	require.NoError(t, err)
	assert.Empty(t, results)

}

func TestOperateBatchIsolatesFailures(t *testing.T) {
	s := newTestSurgeon(t, WithConcurrency(1))
	terms := []ir.Term{
		sexpr.MustParseTerm("(map (map xs f) g)"),
		ir.Map{Data: ir.V("xs")},
		nil,
		ir.N(5),
	}

	results, err := s.OperateBatch(context.Background(), terms, 4*testBudget)
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrMalformedTerm)
	require.Len(t, results, len(terms))

	tests := []struct {
		name    string
		index   int
		failed  bool
		changed bool
	}{
		{"valid term before the failure is optimized", 0, false, true},
		{"malformed term fails alone", 1, true, false},
		{"missing term fails alone", 2, true, false},
		{"valid term after the failure still runs", 3, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := results[tt.index]
			assert.Equal(t, tt.failed, res.Failed())
			assert.Equal(t, tt.changed, res.Changed())
			if tt.failed {
				assert.Contains(t, res.Err.Error(), fmt.Sprintf("term %d", tt.index))
				return
			}
			assert.True(t, res.Verified)
		})
	}
	assert.Equal(t, "(map xs (compose g f))", results[0].Transformed.String())
}

func TestSelfImprove(t *testing.T) {
	s := newTestSurgeon(t)
	input := sexpr.MustParseTerm("(map (map (map xs inc) double) square)")

	results, err := s.SelfImprove(context.Background(), input, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Less(t, len(results), 5)

	last := results[len(results)-1]
	assert.Equal(t, 1, strings.Count(last.Transformed.String(), "(map "))
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Improvement(), DefaultThreshold)
	}

	results, err = s.SelfImprove(context.Background(), ir.N(5), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDiscoverRule(t *testing.T) {
	s := newTestSurgeon(t)
	before := s.Rules().Len()

	r, err := s.DiscoverRule([]learner.Trace{
		{Before: sexpr.MustParseTerm("(map (map xs inc) double)"), After: sexpr.MustParseTerm("(map xs (compose double inc))")},
		{Before: sexpr.MustParseTerm("(map (map ys f) g)"), After: sexpr.MustParseTerm("(map ys (compose g f))")},
	})
	require.NoError(t, err)
	assert.Equal(t, before+1, s.Rules().Len())
	_, ok := s.Rules().Get(r.ID)
	assert.True(t, ok)
}

func TestDiscoverRuleRejectsUnsound(t *testing.T) {
	s := newTestSurgeon(t)
	before := s.Rules().Len()

	_, err := s.DiscoverRule([]learner.Trace{
		{Before: sexpr.MustParseTerm("(map (map xs f) g)"), After: sexpr.MustParseTerm("(map xs f)")},
		{Before: sexpr.MustParseTerm("(map (map ys h) k)"), After: sexpr.MustParseTerm("(map ys h)")},
	})
	assert.ErrorIs(t, err, ErrUnsoundRule)
	assert.Equal(t, before, s.Rules().Len())

	// the rejected pattern is still open to a sound rewrite
	r, err := s.DiscoverRule([]learner.Trace{
		{Before: sexpr.MustParseTerm("(map (map xs inc) double)"), After: sexpr.MustParseTerm("(map xs (compose double inc))")},
		{Before: sexpr.MustParseTerm("(map (map ys f) g)"), After: sexpr.MustParseTerm("(map ys (compose g f))")},
	})
	require.NoError(t, err)
	assert.Equal(t, "(map (map ?x1 ?x2) ?x3)", r.Pattern.String())
	assert.Equal(t, before+1, s.Rules().Len())

	_, err = s.DiscoverRule([]learner.Trace{
		{Before: sexpr.MustParseTerm("(map (map zs square) negate)"), After: sexpr.MustParseTerm("(map zs (compose negate square))")},
		{Before: sexpr.MustParseTerm("(map (map ws f) g)"), After: sexpr.MustParseTerm("(map ws (compose g f))")},
	})
	assert.ErrorIs(t, err, learner.ErrNotNovel)
}

func TestDiscoverFromExperience(t *testing.T) {
	s := newTestSurgeon(t)
	_, err := s.DiscoverFromExperience()
	assert.ErrorIs(t, err, learner.ErrTooFewTraces)

	for _, src := range []string{"(map (map xs inc) double)", "(map (map ys square) negate)"} {
		res, err := s.Operate(context.Background(), sexpr.MustParseTerm(src), testBudget)
		require.NoError(t, err)
		require.True(t, res.Changed())
	}

	r, err := s.DiscoverFromExperience()
	require.NoError(t, err)
	assert.Equal(t, "(map (map ?x1 ?x2) ?x3)", r.Pattern.String())
}
