package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/rules"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		env      map[string]Value
		expected string
	}{
		{"arithmetic", "(+ (* 2 3) (- 10 4))", nil, "12"},
		{"beta", "(app (lam x (* x x)) 7)", nil, "49"},
		{"map", "(map (list 1 2 3) inc)", nil, "[2 3 4]"},
		{"filter", "(filter (list 1 2 3 4) isEven)", nil, "[2 4]"},
		{"reduce", "(reduce (list 1 2 3 4) add 0)", nil, "10"},
		{"curried prelude", "(max 3 9)", nil, "9"},
		{"compose", "(app (compose double inc) 4)", nil, "10"},
		{"pipe", "(app (pipe double inc) 4)", nil, "9"},
		{"const", "(app (const 7) 1)", nil, "7"},
		{"hard focus drop", "(focus hard (list 1 2 3 4) isEven square drop)", nil, "[4 16]"},
		{"hard focus keep", "(focus hard (list 1 2 3) isOdd negate id)", nil, "[-1 2 -3]"},
		{"if", "(if (< x 0) (negate x) x)", map[string]Value{"x": NumValue{-4}}, "4"},
		{"short circuit", "(and false (= (/ 1 0) 1))", nil, "false"},
		{"equality", "(= (list 1 2) (cons 1 (cons 2 nil)))", nil, "true"},
		{"shadowing prelude", "(app (lam inc (+ inc 1)) 1)", nil, "2"},
		{"literal predicate", "(filter (list 1 2 3) true)", nil, "[1 2 3]"},
		{"literal weight", "(focus hard (list 1 2) false inc drop)", nil, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInterpreter(0).Eval(sexpr.MustParseTerm(tt.input), NewEnv(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"division by zero", "(/ 1 0)", ErrRuntime},
		{"unbound", "(+ y 1)", ErrRuntime},
		{"apply number", "(app 3 4)", ErrRuntime},
		{"soft focus", "(focus soft xs isEven inc id)", ErrUnsupported},
		{"bare drop", "drop", ErrUnsupported},
		{"omega", "(app (lam x (app x x)) (lam x (app x x)))", ErrFuelExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnv(map[string]Value{"xs": ListValue{}})
			_, err := NewInterpreter(1000).Eval(sexpr.MustParseTerm(tt.input), env)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestInferTypes(t *testing.T) {
	types := InferTypes(sexpr.MustParseTerm("(reduce (filter xs p) op (if flag n (+ m 1)))"))
	assert.Equal(t, map[string]InputType{
		"xs":   TypeList,
		"p":    TypePred,
		"op":   TypeBinary,
		"flag": TypeBool,
		"n":    TypeNumber,
		"m":    TypeNumber,
	}, types)

	types = InferTypes(sexpr.MustParseTerm("(map xs (lam x (app f (app g x))))"))
	assert.Equal(t, TypeFunc, types["f"])
	assert.Equal(t, TypeFunc, types["g"])
	assert.NotContains(t, types, "x")

	types = InferTypes(sexpr.MustParseTerm("(map xs inc)"))
	assert.NotContains(t, types, "inc")

	tests := []struct {
		name  string
		input string
		xs    InputType
	}{
		{"predicate returns its element", "(filter xs (lam x x))", TypeBoolList},
		{"predicate negates its element", "(filter xs (lam x (not x)))", TypeBoolList},
		{"identity predicate", "(filter xs id)", TypeBoolList},
		{"numeric predicate", "(filter xs (lam x (> x 1)))", TypeList},
		{"map over conditions", "(map xs (lam x (if x 1 0)))", TypeBoolList},
		{"fold over conditions", "(reduce xs (lam acc (lam x (and acc x))) true)", TypeBoolList},
		{"free predicate", "(filter xs p)", TypeList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.xs, InferTypes(sexpr.MustParseTerm(tt.input))["xs"])
		})
	}
}

func TestEqualFunctions(t *testing.T) {
	assert.True(t, Equal(identity, compose(prelude["inc"], prelude["dec"])))
	assert.True(t, Equal(prelude["double"], compose(prelude["double"], identity)))
	assert.False(t, Equal(prelude["inc"], prelude["dec"]))
	assert.False(t, Equal(NumValue{1}, BoolValue{true}))
	assert.True(t, Equal(ListValue{}, ListValue{Items: nil}))
}

// instance replaces every pattern variable of p with a variable of the same
// name, yielding a concrete term the rule applies to.
func instance(t *testing.T, p rules.Pattern) ir.Term {
	t.Helper()
	b := rules.Bindings{}
	for _, name := range rules.Vars(p).Slice() {
		b[name] = ir.V(name)
	}
	term, err := rules.Instantiate(p, b)
	require.NoError(t, err)
	return term
}

func TestBaseRulesAreSound(t *testing.T) {
	v := NewVerifier(DefaultConfig())

	for _, r := range rules.BaseRules() {
		t.Run(r.ID, func(t *testing.T) {
			before := instance(t, r.Pattern)
			after, applied, err := r.Apply(before, nil)
			require.NoError(t, err)
			require.True(t, applied)

			report := v.Check(before, after)
			assert.Equal(t, Equivalent, report.Result, "%s => %s: %s (%s)", before, after, report.Reason, report.Detail)
		})
	}
}

func TestRejectsUnsafeRewrites(t *testing.T) {
	v := NewVerifier(DefaultConfig())

	tests := []struct {
		name     string
		original string
		mutated  string
		reason   ReasonCode
	}{
		{"different function", "(map xs inc)", "(map xs dec)", ReasonDifferentValue},
		{"dropped filter", "(filter xs isEven)", "xs", ReasonDifferentValue},
		{"swapped compose", "(map xs (compose f g))", "(map xs (compose g f))", ReasonDifferentValue},
		{"wrong fold init", "(reduce xs add 0)", "(reduce xs add 1)", ReasonDifferentValue},
		{"subtraction order", "(- a b)", "(- b a)", ReasonDifferentValue},
		{"introduced variable", "(map xs f)", "(map xs g)", ReasonFreeVariable},
		{"negated boolean filter", "(filter xs (lam x x))", "(filter xs (lam x (not x)))", ReasonDifferentValue},
		{"boolean filter through id", "(filter xs id)", "(filter xs (lam b (not b)))", ReasonDifferentValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.Check(sexpr.MustParseTerm(tt.original), sexpr.MustParseTerm(tt.mutated))
			assert.Equal(t, NotEquivalent, report.Result, report.Detail)
			assert.Equal(t, tt.reason, report.Reason)
			assert.False(t, v.CheckEquivalence(sexpr.MustParseTerm(tt.original), sexpr.MustParseTerm(tt.mutated)))
		})
	}
}

func TestCheck(t *testing.T) {
	v := NewVerifier(DefaultConfig())

	tests := []struct {
		name   string
		t1     string
		t2     string
		result Result
		reason ReasonCode
	}{
		{"alpha equivalent", "(map xs (lam a (+ a 1)))", "(map xs (lam b (+ b 1)))", Equivalent, ReasonCanonicalMatch},
		{"focus soul", "(map (filter xs isEven) double)", "(focus hard xs isEven double drop)", Equivalent, ReasonCanonicalMatch},
		{"behavioral", "(map xs (lam x (+ x x)))", "(map xs double)", Equivalent, ReasonSameBehavior},
		{"fold sink", "(reduce (map xs inc) add 0)", "(reduce xs (lam a (lam x (add a (inc x)))) 0)", Equivalent, ReasonSameBehavior},
		{"soft focus", "(focus soft xs p f g)", "(map xs f)", Unknown, ReasonUnsupported},
		{"malformed", "xs", "", Unknown, ReasonMalformed},
		{"both fail on every sample", "(app 3 (+ x x))", "(app 3 (* x 2))", Unknown, ReasonNoEvidence},
		{"boolean pipeline", "(filter (filter xs (lam a a)) (lam b b))", "(filter xs (lam c c))", Equivalent, ReasonSameBehavior},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var t2 ir.Term = ir.Map{Data: ir.V("xs")}
			if tt.t2 != "" {
				t2 = sexpr.MustParseTerm(tt.t2)
			}
			report := v.Check(sexpr.MustParseTerm(tt.t1), t2)
			assert.Equal(t, tt.result, report.Result, report.Detail)
			assert.Equal(t, tt.reason, report.Reason)
		})
	}
}

func TestChecksAreDeterministic(t *testing.T) {
	v := NewVerifier(Config{Samples: 5, Seed: 42})
	a := v.Check(sexpr.MustParseTerm("(map xs inc)"), sexpr.MustParseTerm("(map xs dec)"))
	b := v.Check(sexpr.MustParseTerm("(map xs inc)"), sexpr.MustParseTerm("(map xs dec)"))
	assert.Equal(t, a, b)
}
