package surgeon

import (
	"time"

	"github.com/google/uuid"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// Result is the outcome of one optimization request. Transformed is always
// safe to use in place of Original.
type Result struct {
	ID          uuid.UUID
	Original    ir.Term
	Transformed ir.Term
	InitialCost cost.Cost
	FinalCost   cost.Cost
	// Weights are the objective weights the costs were scored with.
	Weights cost.Weights
	// RulesApplied lists, in firing order, every rule that changed the
	// e-graph during saturation. It over-approximates the derivation of
	// Transformed: a rule that only grew classes the extraction did not
	// pick is still listed.
	RulesApplied []string
	Verified     bool
	Duration     time.Duration
	Soul         canon.Soul
	CacheHit     bool
	Iterations   int
	// Err is set on results of OperateBatch whose term could not be
	// operated on. Transformed is then the unchanged input.
	Err error
}

// InitialScore is the weighted cost of the input.
func (r Result) InitialScore() float64 {
	return r.InitialCost.Score(r.Weights)
}

// FinalScore is the weighted cost of the output.
func (r Result) FinalScore() float64 {
	return r.FinalCost.Score(r.Weights)
}

// Improvement is the score reduction achieved.
func (r Result) Improvement() float64 {
	return r.InitialScore() - r.FinalScore()
}

// ImprovementRatio is the improvement relative to the initial score, or 0
// when the input has no cost.
func (r Result) ImprovementRatio() float64 {
	initial := r.InitialScore()
	if initial == 0 {
		return 0
	}
	return r.Improvement() / initial
}

// Changed reports whether a rewrite was accepted.
func (r Result) Changed() bool {
	return r.Err == nil && len(r.RulesApplied) > 0
}

// Failed reports whether the request behind r returned an error.
func (r Result) Failed() bool {
	return r.Err != nil
}
