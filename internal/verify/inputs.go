package verify

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// InputType is the shape of value a free variable is sampled from.
type InputType int

const (
	TypeUnknown InputType = iota
	TypeNumber
	TypeBool
	TypeList
	// TypeFunc is a unary number function.
	TypeFunc
	// TypePred is a unary number predicate.
	TypePred
	// TypeBinary is a curried binary number function.
	TypeBinary
	// TypeBoolList is a list whose elements are used as conditions.
	TypeBoolList
)

func (t InputType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeList:
		return "list"
	case TypeFunc:
		return "function"
	case TypePred:
		return "predicate"
	case TypeBinary:
		return "binary function"
	case TypeBoolList:
		return "boolean list"
	default:
		return "unknown"
	}
}

// InferTypes assigns an input type to every free, non-builtin variable of
// the terms, judged by how the variable is used. The first use found wins;
// earlier terms take precedence. Unconstrained variables are numbers.
func InferTypes(terms ...ir.Term) map[string]InputType {
	types := make(map[string]InputType)
	for _, t := range terms {
		inferTerm(t, TypeUnknown, set.New[string](0), types)
	}
	for name, ty := range types {
		if ty == TypeUnknown {
			types[name] = TypeNumber
		}
	}
	return types
}

func inferTerm(t ir.Term, hint InputType, bound *set.Set[string], types map[string]InputType) {
	switch n := t.(type) {
	case ir.Var:
		if bound.Contains(n.Name) || IsBuiltin(n.Name) {
			return
		}
		if cur, ok := types[n.Name]; !ok || cur == TypeUnknown {
			types[n.Name] = hint
		}

	case ir.Lam:
		inner := bound.Copy()
		inner.Insert(n.Param)
		inferTerm(n.Body, bodyHint(hint), inner, types)

	case ir.App:
		head, args := spine(n)
		switch len(args) {
		case 1:
			inferTerm(head, TypeFunc, bound, types)
		case 2:
			inferTerm(head, TypeBinary, bound, types)
		default:
			inferTerm(head, TypeUnknown, bound, types)
		}
		for _, a := range args {
			inferTerm(a, TypeNumber, bound, types)
		}

	case ir.Map:
		inferTerm(n.Data, listOf(elementType(n.Fn, TypeFunc, bound)), bound, types)
		inferTerm(n.Fn, TypeFunc, bound, types)
	case ir.Filter:
		inferTerm(n.Data, listOf(elementType(n.Pred, TypePred, bound)), bound, types)
		inferTerm(n.Pred, TypePred, bound, types)
	case ir.Reduce:
		elem := TypeUnknown
		if acc, ok := n.Fn.(ir.Lam); ok {
			inner := bound.Copy()
			inner.Insert(acc.Param)
			elem = elementType(acc.Body, TypeFunc, inner)
		}
		inferTerm(n.Data, listOf(elem), bound, types)
		inferTerm(n.Fn, TypeBinary, bound, types)
		inferTerm(n.Init, TypeNumber, bound, types)
	case ir.Focus:
		elem := elementType(n.Weight, TypePred, bound)
		if elem == TypeUnknown {
			elem = elementType(n.Inside, TypeFunc, bound)
		}
		inferTerm(n.Data, listOf(elem), bound, types)
		inferTerm(n.Weight, TypePred, bound, types)
		inferTerm(n.Inside, TypeFunc, bound, types)
		inferTerm(n.Outside, TypeFunc, bound, types)

	case ir.BinOp:
		operand := TypeNumber
		if n.Op.IsLogical() {
			operand = TypeBool
		}
		inferTerm(n.Left, operand, bound, types)
		inferTerm(n.Right, operand, bound, types)
	case ir.Not:
		inferTerm(n.Operand, TypeBool, bound, types)
	case ir.If:
		inferTerm(n.Cond, TypeBool, bound, types)
		inferTerm(n.Then, hint, bound, types)
		inferTerm(n.Else, hint, bound, types)

	case ir.Compose:
		inferTerm(n.F, TypeFunc, bound, types)
		inferTerm(n.G, TypeFunc, bound, types)
	case ir.Pipe:
		inferTerm(n.F, TypeFunc, bound, types)
		inferTerm(n.G, TypeFunc, bound, types)
	case ir.Const:
		inferTerm(n.Val, TypeNumber, bound, types)
	case ir.Cons:
		inferTerm(n.Head, TypeNumber, bound, types)
		inferTerm(n.Tail, TypeList, bound, types)
	}
}

func bodyHint(hint InputType) InputType {
	if hint == TypePred {
		return TypeBool
	}
	return TypeUnknown
}

// elementType judges the type of the list elements fn is applied to from
// how fn uses its parameter.
func elementType(fn ir.Term, hint InputType, bound *set.Set[string]) InputType {
	switch f := fn.(type) {
	case ir.Id:
		if hint == TypePred {
			return TypeBool
		}
	case ir.Lam:
		inner := bound.Copy()
		inner.Remove(f.Param)
		uses := make(map[string]InputType)
		inferTerm(f.Body, bodyHint(hint), inner, uses)
		return uses[f.Param]
	}
	return TypeUnknown
}

func listOf(elem InputType) InputType {
	if elem == TypeBool {
		return TypeBoolList
	}
	return TypeList
}

// spine splits a curried application into its head and arguments.
func spine(app ir.App) (ir.Term, []ir.Term) {
	var args []ir.Term
	var head ir.Term = app
	for {
		a, ok := head.(ir.App)
		if !ok {
			break
		}
		args = append(args, a.Arg)
		head = a.Fn
	}
	slices.Reverse(args)
	return head, args
}

// Sampler draws random inputs.
type Sampler struct {
	rng        *rand.Rand
	maxListLen int
}

// NewSampler creates a deterministic sampler.
func NewSampler(seed uint64, maxListLen int) *Sampler {
	if maxListLen <= 0 {
		maxListLen = 8
	}
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), maxListLen: maxListLen}
}

// Env draws one value per typed variable.
func (s *Sampler) Env(types map[string]InputType) map[string]Value {
	// sorted for determinism
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	slices.Sort(names)

	env := make(map[string]Value, len(names))
	for _, name := range names {
		env[name] = s.Value(types[name])
	}
	return env
}

// Value draws a value of the given type.
func (s *Sampler) Value(t InputType) Value {
	switch t {
	case TypeBool:
		return BoolValue{s.rng.IntN(2) == 0}
	case TypeList:
		return s.List(s.rng.IntN(s.maxListLen + 1))
	case TypeBoolList:
		return s.BoolList(s.rng.IntN(s.maxListLen + 1))
	case TypeFunc:
		return s.function()
	case TypePred:
		return s.predicate()
	case TypeBinary:
		return s.binary()
	default:
		return s.number()
	}
}

// List draws a number list of length n.
func (s *Sampler) List(n int) ListValue {
	items := make([]Value, n)
	for i := range items {
		items[i] = s.number()
	}
	return ListValue{items}
}

// BoolList draws a boolean list of length n.
func (s *Sampler) BoolList(n int) ListValue {
	items := make([]Value, n)
	for i := range items {
		items[i] = BoolValue{s.rng.IntN(2) == 0}
	}
	return ListValue{items}
}

func (s *Sampler) number() NumValue {
	return NumValue{s.rng.Int64N(41) - 20}
}

func (s *Sampler) function() FuncValue {
	a, b := s.rng.Int64N(7)-3, s.rng.Int64N(11)-5
	return unaryNum(fmt.Sprintf("x*%d+%d", a, b), func(x int64) int64 { return a*x + b })
}

func (s *Sampler) predicate() FuncValue {
	if s.rng.IntN(2) == 0 {
		m := s.rng.Int64N(3) + 2
		r := s.rng.Int64N(m)
		return predicate(fmt.Sprintf("x mod %d = %d", m, r), func(x int64) bool { return ((x%m)+m)%m == r })
	}
	k := s.rng.Int64N(21) - 10
	return predicate(fmt.Sprintf("x > %d", k), func(x int64) bool { return x > k })
}

func (s *Sampler) binary() FuncValue {
	a, b, c := s.rng.Int64N(5)-2, s.rng.Int64N(5)-2, s.rng.Int64N(7)-3
	return binaryNum(fmt.Sprintf("%d*x+%d*y+%d", a, b, c), func(x, y int64) int64 { return a*x + b*y + c })
}
