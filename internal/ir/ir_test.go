package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	tests := []struct {
		name     string
		term     Term
		expected string
	}{
		{"var", V("xs"), "xs"},
		{"lambda", Lambda("x", Bin(OpAdd, V("x"), N(1))), "(lam x (+ x 1))"},
		{"map filter", Map{Data: Filter{Data: V("xs"), Pred: V("isEven")}, Fn: V("double")}, "(map (filter xs isEven) double)"},
		{"focus", HardFocus(V("xs"), V("p"), V("f")), "(focus hard xs p f drop)"},
		{"list", Ints(1, 2), "(cons 1 (cons 2 nil))"},
		{"string", Str{Val: "a b"}, `"a b"`},
		{"curried apply", Apply(V("add"), N(1), N(2)), "(app (app add 1) 2)"},
		{"reduce", Reduce{Data: V("xs"), Fn: V("add"), Init: N(0)}, "(reduce xs add 0)"},
		{"combinators", Compose{F: Id{}, G: Const{Val: B(true)}}, "(compose id (const true))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.term.String())
		})
	}
}

func TestMakeRoundTrip(t *testing.T) {
	terms := []Term{
		V("x"),
		N(-7),
		B(false),
		Str{Val: "q\"uote"},
		Nil{},
		Id{},
		Drop{},
		Lambda("x", V("x")),
		Bin(OpLt, N(1), N(2)),
		Focus{Mode: FocusSoft, Data: V("xs"), Weight: V("w"), Inside: V("f"), Outside: V("g")},
		Reduce{Data: Ints(1, 2, 3), Fn: V("add"), Init: N(0)},
	}

	for _, term := range terms {
		t.Run(term.String(), func(t *testing.T) {
			out, err := Make(term.Kind(), Payload(term), Children(term))
			require.NoError(t, err)
			assert.True(t, Equal(term, out))
		})
	}
}

func TestMakeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		payload  string
		children []Term
	}{
		{"wrong arity", KindMap, "", []Term{V("xs")}},
		{"nil child", KindApp, "", []Term{V("f"), nil}},
		{"bad number", KindNum, "abc", nil},
		{"bad operator", KindBinOp, "%", []Term{N(1), N(2)}},
		{"bad mode", KindFocus, "blurry", []Term{V("a"), V("b"), V("c"), V("d")}},
		{"empty name", KindVar, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Make(tt.kind, tt.payload, tt.children)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTerm))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Map{Data: V("xs"), Fn: Id{}}))
	assert.ErrorIs(t, Validate(Map{Data: V("xs")}), ErrMalformedTerm)
	assert.ErrorIs(t, Validate(nil), ErrMalformedTerm)
}

func TestFreeVars(t *testing.T) {
	term := Lambda("x", Apply(V("f"), V("x"), V("y")))
	free := FreeVars(term)

	assert.True(t, free.Contains("f"))
	assert.True(t, free.Contains("y"))
	assert.False(t, free.Contains("x"))
	assert.Equal(t, 2, free.Size())
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		term     Term
		variable string
		repl     Term
		expected string
	}{
		{
			name:     "plain",
			term:     Bin(OpAdd, V("x"), N(1)),
			variable: "x",
			repl:     N(41),
			expected: "(+ 41 1)",
		},
		{
			name:     "shadowed",
			term:     Lambda("x", V("x")),
			variable: "x",
			repl:     N(1),
			expected: "(lam x x)",
		},
		{
			name:     "capture avoided",
			term:     Lambda("y", Bin(OpAdd, V("x"), V("y"))),
			variable: "x",
			repl:     V("y"),
			expected: "(lam y_1 (+ y y_1))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Substitute(tt.term, tt.variable, tt.repl)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestSizeAndTransform(t *testing.T) {
	term := Map{Data: Ints(1, 2), Fn: Id{}}
	assert.Equal(t, 7, Size(term))

	bumped := Transform(term, func(n Term) Term {
		if num, ok := n.(Num); ok {
			return N(num.Val + 10)
		}
		return n
	})
	assert.Equal(t, "(map (cons 11 (cons 12 nil)) id)", bumped.String())
}
