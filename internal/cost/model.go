package cost

import (
	"math"

	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// Config parameterizes a Model.
type Config struct {
	Weights Weights
	// FilterPassRate is the assumed fraction of elements a predicate keeps.
	FilterPassRate float64
	// DefaultListSize is assumed for lists whose length cannot be estimated.
	DefaultListSize uint64
	// Effectful names free functions that may perform I/O.
	Effectful []string
}

// DefaultConfig returns the default cost model configuration.
func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		FilterPassRate:  0.5,
		DefaultListSize: 10,
	}
}

// Model computes static cost estimates for terms.
type Model struct {
	weights   Weights
	passRate  float64
	listSize  uint64
	effectful *set.Set[string]
}

// NewModel creates a cost model. Out of range parameters fall back to defaults.
func NewModel(cfg Config) *Model {
	def := DefaultConfig()
	if cfg.FilterPassRate <= 0 || cfg.FilterPassRate > 1 {
		cfg.FilterPassRate = def.FilterPassRate
	}
	if cfg.DefaultListSize == 0 {
		cfg.DefaultListSize = def.DefaultListSize
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	return &Model{
		weights:   cfg.Weights,
		passRate:  cfg.FilterPassRate,
		listSize:  cfg.DefaultListSize,
		effectful: set.From(cfg.Effectful),
	}
}

// Weights returns the objective weights of the model.
func (m *Model) Weights() Weights {
	return m.weights
}

// WithWeights returns a copy of m scoring with w.
func (m *Model) WithWeights(w Weights) *Model {
	out := *m
	out.weights = w
	return &out
}

// Effectful reports whether name refers to a function that may perform I/O.
func (m *Model) Effectful(name string) bool {
	return m.effectful.Contains(name)
}

// Score is the weighted scalar cost of t.
func (m *Model) Score(t ir.Term) float64 {
	return m.Compute(t).Score(m.weights)
}

// Compute folds the per-node cost table over t.
func (m *Model) Compute(t ir.Term) Cost {
	switch n := t.(type) {
	case ir.Var:
		c := Cost{Cycles: 1, Bytes: 8}
		if m.Effectful(n.Name) {
			c.IORisk = 1
		}
		return c
	case ir.Num, ir.Nil, ir.Id:
		return Cost{Cycles: 1, Bytes: 8}
	case ir.Bool:
		return Cost{Cycles: 1, Bytes: 1}
	case ir.Str:
		return Cost{Cycles: 1, Bytes: uint64(len(n.Val)), Allocs: 1}
	case ir.Drop:
		return Cost{Cycles: 1}

	case ir.Lam:
		return node(2, 16, 1, m.Compute(n.Body))

	case ir.App:
		return node(10, 0, 1, m.Compute(n.Fn), m.Compute(n.Arg))

	case ir.Cons:
		return node(2, 16, 1, m.Compute(n.Head), m.Compute(n.Tail))

	case ir.Map:
		xs, f := m.Compute(n.Data), m.Compute(n.Fn)
		size := m.EstimateListSize(n.Data)
		return risky(Cost{
			Cycles: size*(10+f.Cycles) + xs.Cycles,
			Bytes:  size*16 + xs.Bytes + f.Bytes,
			Allocs: size + xs.Allocs + f.Allocs,
		}, xs, f)

	case ir.Filter:
		xs, p := m.Compute(n.Data), m.Compute(n.Pred)
		size := m.EstimateListSize(n.Data)
		kept := m.passed(size)
		return risky(Cost{
			Cycles: size*(5+p.Cycles) + xs.Cycles,
			Bytes:  kept*16 + xs.Bytes + p.Bytes,
			Allocs: kept + xs.Allocs + p.Allocs,
		}, xs, p)

	case ir.Reduce:
		xs, f, init := m.Compute(n.Data), m.Compute(n.Fn), m.Compute(n.Init)
		size := m.EstimateListSize(n.Data)
		return risky(Cost{
			Cycles: size*(10+f.Cycles) + xs.Cycles + init.Cycles,
			Bytes:  16 + xs.Bytes + f.Bytes + init.Bytes,
			Allocs: 1 + xs.Allocs + f.Allocs + init.Allocs,
		}, xs, f, init)

	case ir.Focus:
		return m.focus(n)

	case ir.If:
		c := m.Compute(n.Cond)
		branches := m.Compute(n.Then).Max(m.Compute(n.Else))
		return node(2, 0, 0, c, branches)

	case ir.BinOp:
		return node(2, 8, 0, m.Compute(n.Left), m.Compute(n.Right))

	case ir.Not:
		return node(1, 0, 0, m.Compute(n.Operand))

	case ir.Compose:
		return node(1, 16, 1, m.Compute(n.F), m.Compute(n.G))

	case ir.Pipe:
		return node(1, 16, 1, m.Compute(n.F), m.Compute(n.G))

	case ir.Const:
		return node(1, 8, 0, m.Compute(n.Val))
	}
	return Zero()
}

// focus costs one weight evaluation per element plus one Inside (or Outside)
// application per element routed to it.
func (m *Model) focus(n ir.Focus) Cost {
	xs, w, f, g := m.Compute(n.Data), m.Compute(n.Weight), m.Compute(n.Inside), m.Compute(n.Outside)
	size := m.EstimateListSize(n.Data)
	kept := m.passed(size)
	static := xs.Add(w).Add(f).Add(g)

	if _, drop := n.Outside.(ir.Drop); drop && n.Mode == ir.FocusHard {
		return risky(Cost{
			Cycles: size*(5+w.Cycles) + kept*(10+f.Cycles) + xs.Cycles,
			Bytes:  kept*16 + static.Bytes,
			Allocs: kept + static.Allocs,
		}, xs, w, f, g)
	}

	return risky(Cost{
		Cycles: size*(5+w.Cycles) + kept*(10+f.Cycles) + (size-kept)*(10+g.Cycles) + xs.Cycles,
		Bytes:  size*16 + static.Bytes,
		Allocs: size + static.Allocs,
	}, xs, w, f, g)
}

// EstimateListSize is the assumed element count of the list t evaluates to.
func (m *Model) EstimateListSize(t ir.Term) uint64 {
	switch n := t.(type) {
	case ir.Nil:
		return 0
	case ir.Cons:
		return 1 + m.EstimateListSize(n.Tail)
	case ir.Map:
		return m.EstimateListSize(n.Data)
	case ir.Filter:
		return m.passed(m.EstimateListSize(n.Data))
	case ir.Focus:
		size := m.EstimateListSize(n.Data)
		if _, drop := n.Outside.(ir.Drop); drop && n.Mode == ir.FocusHard {
			return m.passed(size)
		}
		return size
	}
	return m.listSize
}

func (m *Model) passed(size uint64) uint64 {
	return uint64(math.Floor(float64(size) * m.passRate))
}

// risky sets the IORisk of c to the largest risk among children.
func risky(c Cost, children ...Cost) Cost {
	for _, child := range children {
		c.IORisk = math.Max(c.IORisk, child.IORisk)
	}
	return c
}

// node sums the children and adds the node's own overhead. IORisk of the
// result is the largest child risk.
func node(cycles, bytes, allocs uint64, children ...Cost) Cost {
	out := Cost{Cycles: cycles, Bytes: bytes, Allocs: allocs}
	risk := 0.0
	for _, c := range children {
		out.Cycles += c.Cycles
		out.Bytes += c.Bytes
		out.Allocs += c.Allocs
		risk = math.Max(risk, c.IORisk)
	}
	out.IORisk = risk
	return out
}
