package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
	"github.com/gnoswap-labs/surgeon/internal/verify"
	"github.com/gnoswap-labs/surgeon/surgeon"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func improved() surgeon.Result {
	original := sexpr.MustParseTerm("(map (map xs f) g)")
	return surgeon.Result{
		ID:           uuid.MustParse("6f1c1a56-3c3e-4a59-9d7a-2f0e7b9c1d20"),
		Original:     original,
		Transformed:  sexpr.MustParseTerm("(map xs (compose g f))"),
		InitialCost:  cost.Cost{Cycles: 100},
		FinalCost:    cost.Cost{Cycles: 50},
		Weights:      cost.Weights{Alpha: 1},
		RulesApplied: []string{"map-fusion"},
		Verified:     true,
		Duration:     1500 * time.Microsecond,
		Soul:         canon.SoulOf(original),
		Iterations:   4,
	}
}

func unchanged() surgeon.Result {
	return surgeon.Result{
		Original:    ir.N(5),
		Transformed: ir.N(5),
		InitialCost: cost.Cost{Cycles: 1, Bytes: 8},
		FinalCost:   cost.Cost{Cycles: 1, Bytes: 8},
		Weights:     cost.DefaultWeights(),
		Verified:    true,
		Soul:        canon.SoulOf(ir.N(5)),
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		result   surgeon.Result
		expected string
	}{
		{
			name:   "improved",
			label:  "pipeline.lam",
			result: improved(),
			expected: `improved: pipeline.lam
 --> %s
  |
- | (map (map xs f) g)
+ | (map xs (compose g f))
  |
  = score 100.00 -> 50.00 (-50.0%%)
  = rules: map-fusion
  = verified after 4 iterations in 1.5ms

`,
		},
		{
			name:   "unchanged",
			label:  "five.lam",
			result: unchanged(),
			expected: `unchanged: five.lam
 --> %s
  |
  | 5
  = no safe improvement found

`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatResult(tt.label, tt.result)
			assert.Equal(t, fmt.Sprintf(tt.expected, tt.result.Soul), got)
		})
	}
}

func TestFormatResultCacheHit(t *testing.T) {
	res := improved()
	res.CacheHit = true
	assert.Contains(t, FormatResult("x", res), "verified, from proof cache in 1.5ms")
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]string{"a.lam"}, []surgeon.Result{improved(), unchanged()})
	assert.Contains(t, out, "improved: a.lam")
	assert.Contains(t, out, "unchanged: #2")
}

func TestFormatFailedResult(t *testing.T) {
	res := surgeon.Result{
		Original:    ir.Map{Data: ir.V("xs")},
		Transformed: ir.Map{Data: ir.V("xs")},
		Err:         errors.New("term 1: malformed term"),
	}
	assert.Equal(t, "failed: b.lam\n --> -\n  |\n  | (map xs <nil>)\n  = term 1: malformed term\n\n", FormatResult("b.lam", res))

	data, err := JSON([]string{"a.lam", "b.lam"}, []surgeon.Result{improved(), {Err: errors.New("boom")}})
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.NotContains(t, decoded[0], "error")
	assert.Equal(t, "boom", decoded[1]["error"])
	assert.Equal(t, "<nil>", decoded[1]["original"])
}

func TestFormatReport(t *testing.T) {
	a := sexpr.MustParseTerm("(map xs f)")
	b := sexpr.MustParseTerm("(map xs g)")

	out := FormatReport(a, b, verify.Report{
		Result: verify.NotEquivalent,
		Reason: verify.ReasonFreeVariable,
		Detail: "free in the candidate only: g",
	})
	expected := `not equivalent: rewrite introduces a free variable
  a | (map xs f)
  b | (map xs g)
  = free in the candidate only: g
`
	assert.Equal(t, expected, out)

	out = FormatReport(a, a, verify.Report{Result: verify.Equivalent, Reason: verify.ReasonCanonicalMatch})
	assert.Contains(t, out, "equivalent: identical canonical forms")
}

func TestFormatCanonical(t *testing.T) {
	term := sexpr.MustParseTerm("(map xs (lam y (+ y 1)))")
	out := FormatCanonical(term)
	assert.Contains(t, out, "input | (map xs (lam y (+ y 1)))")
	assert.Contains(t, out, "canonical | (map xs (lam v0 (+ v0 1)))")
	assert.Contains(t, out, canon.SoulOf(term).String())
}

func TestJSON(t *testing.T) {
	data, err := JSON([]string{"pipeline.lam"}, []surgeon.Result{improved(), unchanged()})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "pipeline.lam", decoded[0]["label"])
	assert.Equal(t, "(map xs (compose g f))", decoded[0]["transformed"])
	assert.Equal(t, 0.5, decoded[0]["improvement_ratio"])
	assert.Equal(t, 1500.0, decoded[0]["duration_us"])
	assert.Equal(t, []any{}, decoded[1]["rules_applied"])
	assert.Equal(t, true, decoded[1]["verified"])
}
