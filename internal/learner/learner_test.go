package learner

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/rules"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
)

func baseRule(t *testing.T, id string) rules.Rule {
	t.Helper()
	r, ok := rules.Base().Get(id)
	require.True(t, ok)
	return r
}

func TestPolicyPrefersHintedRules(t *testing.T) {
	p := NewPolicy(WithEpsilon(0), WithSeed(1))
	neutral := baseRule(t, rules.ComposeAssoc)
	fusion := baseRule(t, rules.MapFusion)

	got, ok := p.Choose([]rules.Rule{neutral, fusion})
	require.True(t, ok)
	assert.Equal(t, rules.MapFusion, got.ID)
	assert.Greater(t, p.Expected(fusion), p.Expected(neutral))
}

func TestPolicyLearnsFromRewards(t *testing.T) {
	p := NewPolicy(WithEpsilon(0), WithSeed(1))
	a := baseRule(t, rules.MapFusion)
	b := baseRule(t, rules.MapID)

	for i := 0; i < 20; i++ {
		p.Update(a, 0)
		p.Update(b, 50)
	}
	got, ok := p.Choose([]rules.Rule{a, b})
	require.True(t, ok)
	assert.Equal(t, rules.MapID, got.ID)

	stats := p.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, rules.MapFusion, stats[0].RuleID)
	assert.Equal(t, uint64(20), stats[0].Pulls)
	assert.Equal(t, 1000.0, stats[1].TotalReward)
}

func TestPolicyReinforce(t *testing.T) {
	tests := []struct {
		name        string
		rounds      int
		improvement float64
		wantForward float64
		wantReverse float64
	}{
		{name: "one success", rounds: 1, improvement: 10, wantForward: 0.6, wantReverse: 0.57},
		{name: "saturates at one", rounds: 10, improvement: 10, wantForward: 1, wantReverse: 0.57},
		{name: "failures weaken", rounds: 2, improvement: 0, wantForward: 0.3, wantReverse: 0.43},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy()
			for i := 0; i < tt.rounds; i++ {
				p.Reinforce([]string{rules.MapFusion, rules.MapID}, tt.improvement)
			}
			assert.InDelta(t, tt.wantForward, p.Synapse(rules.MapFusion, rules.MapID), 1e-9)
			assert.InDelta(t, tt.wantReverse, p.Synapse(rules.MapID, rules.MapFusion), 1e-9)
			assert.Zero(t, p.Synapse(rules.MapFusion, rules.FilterFusion))
		})
	}
}

func TestPolicyChooseAfter(t *testing.T) {
	p := NewPolicy(WithEpsilon(0), WithSeed(1))
	fusion := baseRule(t, rules.MapFusion)
	mapID := baseRule(t, rules.MapID)
	candidates := []rules.Rule{fusion, mapID}

	got, ok := p.ChooseAfter(candidates, rules.FilterFusion)
	require.True(t, ok)
	assert.Equal(t, rules.MapFusion, got.ID)

	for i := 0; i < 3; i++ {
		p.Reinforce([]string{rules.FilterFusion, rules.MapID}, 5)
	}
	got, ok = p.ChooseAfter(candidates, rules.FilterFusion)
	require.True(t, ok)
	assert.Equal(t, rules.MapID, got.ID)

	// without context the tie goes to candidate order
	got, ok = p.Choose(candidates)
	require.True(t, ok)
	assert.Equal(t, rules.MapFusion, got.ID)
}

func TestPolicyChooseEmpty(t *testing.T) {
	_, ok := NewPolicy().Choose(nil)
	assert.False(t, ok)
}

func TestPolicyExplores(t *testing.T) {
	p := NewPolicy(WithEpsilon(1), WithSeed(7))
	candidates := rules.BaseRules()

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		r, _ := p.Choose(candidates)
		seen[r.ID] = true
	}
	assert.Greater(t, len(seen), len(candidates)/2)
}

func TestPolicyConcurrentUse(t *testing.T) {
	p := NewPolicy(WithSeed(3))
	candidates := rules.BaseRules()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r, _ := p.Choose(candidates)
				p.Update(r, float64(j%3))
			}
		}()
	}
	wg.Wait()

	var pulls uint64
	for _, s := range p.Stats() {
		pulls += s.Pulls
	}
	assert.Equal(t, uint64(800), pulls)
}

func TestAntiUnify(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected string
	}{
		{"shared shape", "(map (map xs f) g)", "(map (map ys h) k)", "(map (map ?x1 ?x2) ?x3)"},
		{"same literal", "(+ a 1)", "(+ b 1)", "(+ ?x1 1)"},
		{"repeated pair", "(+ a a)", "(+ b b)", "(+ ?x1 ?x1)"},
		{"different kinds", "(map xs f)", "(filter xs f)", "?x1"},
		{"lambdas generalize", "(map xs (lam x x))", "(map ys (lam x x))", "(map ?x1 ?x2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AntiUnify(sexpr.MustParseTerm(tt.a), sexpr.MustParseTerm(tt.b))
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func fusionTraces() []Trace {
	return []Trace{
		{
			Before: sexpr.MustParseTerm("(map (map xs f) g)"),
			After:  sexpr.MustParseTerm("(map xs (compose g f))"),
		},
		{
			Before: sexpr.MustParseTerm("(map (map ys inc) double)"),
			After:  sexpr.MustParseTerm("(map ys (compose double inc))"),
		},
	}
}

func TestDiscover(t *testing.T) {
	d := NewDiscoverer()

	r, err := d.Discover(fusionTraces())
	require.NoError(t, err)
	assert.Equal(t, "discovered-1", r.ID)
	assert.Equal(t, "(map (map ?x1 ?x2) ?x3)", r.Pattern.String())
	assert.Equal(t, "(map ?x1 (compose ?x3 ?x2))", r.Rewrite.String())
	assert.Len(t, r.Guards, 3)
	assert.Equal(t, 0, d.Archive().Len())

	// unaccepted candidates can be proposed again
	again, err := d.Discover(fusionTraces())
	require.NoError(t, err)
	assert.Equal(t, "discovered-2", again.ID)
	assert.True(t, d.Accept(r))
	assert.Equal(t, 1, d.Archive().Len())

	out, applied, err := r.Apply(sexpr.MustParseTerm("(map (map zs square) negate)"), nil)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, "(map zs (compose negate square))", out.String())

	_, err = d.Discover(fusionTraces())
	assert.ErrorIs(t, err, ErrNotNovel)
}

func TestDiscoverRejects(t *testing.T) {
	d := NewDiscoverer()

	_, err := d.Discover(fusionTraces()[:1])
	assert.ErrorIs(t, err, ErrTooFewTraces)

	_, err = d.Discover([]Trace{
		{Before: sexpr.MustParseTerm("(map xs f)"), After: sexpr.MustParseTerm("xs")},
		{Before: sexpr.MustParseTerm("(filter xs p)"), After: sexpr.MustParseTerm("xs")},
	})
	assert.ErrorIs(t, err, rules.ErrMalformedRule)

	// the rewrite needs a subterm the pattern never binds
	_, err = d.Discover([]Trace{
		{Before: sexpr.MustParseTerm("(map xs f)"), After: sexpr.MustParseTerm("(map xs (lam y y))")},
		{Before: sexpr.MustParseTerm("(map ys g)"), After: sexpr.MustParseTerm("(map ys (lam z z))")},
	})
	assert.ErrorIs(t, err, rules.ErrUnboundVariable)
	assert.Equal(t, 0, d.Archive().Len())
}

func TestArchiveEviction(t *testing.T) {
	a := NewArchive()
	for i := 0; i < archiveLimit+1; i++ {
		assert.True(t, a.Record(rules.PNode{Kind: ir.KindNum, Payload: fmt.Sprint(i)}))
	}
	assert.Equal(t, archiveLimit+1-archiveEvict, a.Len())

	assert.True(t, a.IsNovel(rules.PNode{Kind: ir.KindNum, Payload: "0"}))
	assert.False(t, a.IsNovel(rules.PNode{Kind: ir.KindNum, Payload: fmt.Sprint(archiveLimit)}))
	assert.False(t, a.Record(rules.PNode{Kind: ir.KindNum, Payload: fmt.Sprint(archiveLimit)}))
}

func TestExperienceDB(t *testing.T) {
	db := NewExperienceDB()
	before := sexpr.MustParseTerm("(map (map xs f) g)")
	after := sexpr.MustParseTerm("(map xs (compose g f))")

	db.Record(before, after, []string{rules.MapFusion}, 181)
	db.Record(sexpr.MustParseTerm("(map xs id)"), ir.V("xs"), []string{rules.MapID}, 90)

	// alpha-equivalent inputs share a soul
	got := db.Lookup(canon.SoulOf(sexpr.MustParseTerm("(map (map xs f) g)")))
	require.Len(t, got, 1)
	assert.Equal(t, 181.0, got[0].Improvement)

	traces := db.Traces(10)
	require.Len(t, traces, 2)
	assert.Equal(t, rules.MapID, traces[0].Rule)
	assert.Equal(t, rules.MapFusion, traces[1].Rule)
	assert.Len(t, db.Traces(1), 1)
}

func TestExperienceDBCompression(t *testing.T) {
	db := NewExperienceDB()
	clock := time.Unix(0, 0)
	db.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	term := ir.N(1)
	for i := 0; i < experienceLimit+1; i++ {
		db.Record(term, term, nil, float64(i))
	}
	require.Equal(t, experienceKeep, db.Len())

	traces := db.Traces(1)
	require.Len(t, traces, 1)
	assert.Equal(t, float64(experienceLimit), traces[0].CostDelta)
}
