package cost

import (
	"fmt"
	"math"
)

// Cost is a multi-dimensional resource estimate for evaluating a term.
type Cost struct {
	Cycles uint64  `json:"cycles" yaml:"cycles"`
	Bytes  uint64  `json:"bytes" yaml:"bytes"`
	Allocs uint64  `json:"allocs" yaml:"allocs"`
	IORisk float64 `json:"io_risk" yaml:"io_risk"` // 0 = pure, 1 = effectful
}

// Zero is the cost of doing nothing.
func Zero() Cost {
	return Cost{}
}

// Add returns the component-wise sum. IORisk saturates at 1.
func (c Cost) Add(o Cost) Cost {
	return Cost{
		Cycles: c.Cycles + o.Cycles,
		Bytes:  c.Bytes + o.Bytes,
		Allocs: c.Allocs + o.Allocs,
		IORisk: math.Min(c.IORisk+o.IORisk, 1),
	}
}

// Max returns the component-wise maximum, the cost of the worse of two branches.
func (c Cost) Max(o Cost) Cost {
	return Cost{
		Cycles: max(c.Cycles, o.Cycles),
		Bytes:  max(c.Bytes, o.Bytes),
		Allocs: max(c.Allocs, o.Allocs),
		IORisk: math.Max(c.IORisk, o.IORisk),
	}
}

// Score collapses the cost into a scalar using w. Lower is better.
func (c Cost) Score(w Weights) float64 {
	return w.Alpha*float64(c.Cycles) +
		w.Beta*float64(c.Bytes) +
		w.Gamma*float64(c.Allocs) +
		w.Delta*c.IORisk
}

func (c Cost) String() string {
	return fmt.Sprintf("cycles=%d bytes=%d allocs=%d io=%.2f", c.Cycles, c.Bytes, c.Allocs, c.IORisk)
}

// Weights are the coefficients of the scalar objective.
type Weights struct {
	Alpha float64 `json:"alpha" yaml:"alpha" validate:"gte=0"` // cycles
	Beta  float64 `json:"beta" yaml:"beta" validate:"gte=0"`   // bytes
	Gamma float64 `json:"gamma" yaml:"gamma" validate:"gte=0"` // allocations
	Delta float64 `json:"delta" yaml:"delta" validate:"gte=0"` // I/O risk
}

// DefaultWeights favors fewer allocations and heavily penalizes I/O.
func DefaultWeights() Weights {
	return Weights{
		Alpha: 1.0,
		Beta:  0.01,
		Gamma: 10.0,
		Delta: 100.0,
	}
}
