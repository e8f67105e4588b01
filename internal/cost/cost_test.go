package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

func inc() ir.Term {
	return ir.Lambda("x", ir.Bin(ir.OpAdd, ir.V("x"), ir.N(1)))
}

func TestCostAlgebra(t *testing.T) {
	a := Cost{Cycles: 1, Bytes: 10, Allocs: 3, IORisk: 0.7}
	b := Cost{Cycles: 5, Bytes: 2, Allocs: 1, IORisk: 0.6}

	assert.Equal(t, Cost{Cycles: 6, Bytes: 12, Allocs: 4, IORisk: 1}, a.Add(b), "io risk saturates")
	assert.Equal(t, Cost{Cycles: 5, Bytes: 10, Allocs: 3, IORisk: 0.7}, a.Max(b))
	assert.Equal(t, Zero(), Cost{})
}

func TestScore(t *testing.T) {
	c := Cost{Cycles: 100, Bytes: 200, Allocs: 3, IORisk: 0.5}
	assert.InDelta(t, 100+2+30+50, c.Score(DefaultWeights()), 1e-9)
	assert.InDelta(t, 200, c.Score(Weights{Beta: 1}), 1e-9)
}

func TestCompute(t *testing.T) {
	m := NewModel(DefaultConfig())

	tests := []struct {
		name     string
		term     ir.Term
		expected Cost
	}{
		{"var", ir.V("x"), Cost{Cycles: 1, Bytes: 8}},
		{"bool", ir.B(true), Cost{Cycles: 1, Bytes: 1}},
		{"string", ir.Str{Val: "abc"}, Cost{Cycles: 1, Bytes: 3, Allocs: 1}},
		{"lambda", inc(), Cost{Cycles: 6, Bytes: 40, Allocs: 1}},
		{"application", ir.Apply(ir.V("f"), ir.N(1)), Cost{Cycles: 12, Bytes: 16, Allocs: 1}},
		{"list literal", ir.Ints(1), Cost{Cycles: 4, Bytes: 32, Allocs: 1}},
		{
			name:     "map over unknown list",
			term:     ir.Map{Data: ir.V("xs"), Fn: inc()},
			expected: Cost{Cycles: 161, Bytes: 208, Allocs: 11},
		},
		{
			name:     "filter over unknown list",
			term:     ir.Filter{Data: ir.V("xs"), Pred: ir.V("p")},
			expected: Cost{Cycles: 61, Bytes: 96, Allocs: 5},
		},
		{
			name:     "if takes the worse branch",
			term:     ir.If{Cond: ir.V("c"), Then: ir.N(1), Else: ir.Str{Val: "long string"}},
			expected: Cost{Cycles: 4, Bytes: 19, Allocs: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.Compute(tt.term))
		})
	}
}

func TestMapFusionIsCheaper(t *testing.T) {
	m := NewModel(DefaultConfig())

	nested := ir.Map{Data: ir.Map{Data: ir.V("xs"), Fn: inc()}, Fn: inc()}
	fused := ir.Map{Data: ir.V("xs"), Fn: ir.Compose{F: inc(), G: inc()}}

	assert.Less(t, m.Score(fused), m.Score(nested))
}

func TestFocusIsCheaperThanMapFilter(t *testing.T) {
	m := NewModel(DefaultConfig())

	separate := ir.Map{Data: ir.Filter{Data: ir.V("xs"), Pred: ir.V("p")}, Fn: ir.V("f")}
	focused := ir.HardFocus(ir.V("xs"), ir.V("p"), ir.V("f"))

	assert.Less(t, m.Score(focused), m.Score(separate))
}

func TestEstimateListSize(t *testing.T) {
	m := NewModel(Config{FilterPassRate: 0.25, DefaultListSize: 40})

	tests := []struct {
		name     string
		term     ir.Term
		expected uint64
	}{
		{"nil", ir.Nil{}, 0},
		{"literal", ir.Ints(1, 2, 3), 3},
		{"unknown", ir.V("xs"), 40},
		{"map preserves", ir.Map{Data: ir.Ints(1, 2), Fn: ir.Id{}}, 2},
		{"filter uses pass rate", ir.Filter{Data: ir.V("xs"), Pred: ir.V("p")}, 10},
		{"hard focus uses pass rate", ir.HardFocus(ir.V("xs"), ir.V("p"), ir.V("f")), 10},
		{"soft focus preserves", ir.Focus{Mode: ir.FocusSoft, Data: ir.V("xs"), Weight: ir.V("w"), Inside: ir.V("f"), Outside: ir.V("g")}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.EstimateListSize(tt.term))
		})
	}
}

func TestEffectfulNamesCarryRisk(t *testing.T) {
	m := NewModel(Config{Effectful: []string{"print"}})

	pure := m.Compute(ir.Map{Data: ir.V("xs"), Fn: ir.V("inc")})
	effectful := m.Compute(ir.Map{Data: ir.V("xs"), Fn: ir.V("print")})

	assert.Zero(t, pure.IORisk)
	assert.Equal(t, 1.0, effectful.IORisk)
	assert.True(t, m.Effectful("print"))
	assert.Greater(t, m.Score(ir.Map{Data: ir.V("xs"), Fn: ir.V("print")}), m.Score(ir.Map{Data: ir.V("xs"), Fn: ir.V("inc")}))
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(Config{FilterPassRate: 3})
	assert.Equal(t, DefaultWeights(), m.Weights())
	assert.Equal(t, uint64(10), m.EstimateListSize(ir.V("xs")))
	assert.Equal(t, uint64(5), m.EstimateListSize(ir.Filter{Data: ir.V("xs"), Pred: ir.V("p")}))

	custom := m.WithWeights(Weights{Alpha: 2})
	assert.Equal(t, Weights{Alpha: 2}, custom.Weights())
	assert.Equal(t, DefaultWeights(), m.Weights())
}
