package verify

import (
	"errors"
	"fmt"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

var (
	// ErrUnsupported is returned for constructs the interpreter does not model.
	ErrUnsupported = errors.New("unsupported construct")
	// ErrFuelExhausted is returned when evaluation exceeds its step budget.
	ErrFuelExhausted = errors.New("evaluation fuel exhausted")
	// ErrRuntime is returned for ill-typed operations and division by zero.
	ErrRuntime = errors.New("runtime error")
)

// DefaultFuel bounds the number of evaluation steps of a single run.
const DefaultFuel = 100_000

// Env binds variable names to values. Lookups fall back to the parent and
// finally to the prelude.
type Env struct {
	name   string
	value  Value
	parent *Env
}

// NewEnv creates an environment from a map of bindings.
func NewEnv(bindings map[string]Value) *Env {
	var env *Env
	for name, v := range bindings {
		env = env.Bind(name, v)
	}
	return env
}

// Bind returns a child environment with name bound to v.
func (e *Env) Bind(name string, v Value) *Env {
	return &Env{name: name, value: v, parent: e}
}

// Get looks up name.
func (e *Env) Get(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.value, true
		}
	}
	v, ok := prelude[name]
	return v, ok
}

// Interpreter evaluates terms. It is not safe for concurrent use; closures it
// creates share its fuel.
type Interpreter struct {
	fuel int
}

// NewInterpreter creates an interpreter with the given step budget.
func NewInterpreter(fuel int) *Interpreter {
	if fuel <= 0 {
		fuel = DefaultFuel
	}
	return &Interpreter{fuel: fuel}
}

// Eval evaluates t in env.
func (in *Interpreter) Eval(t ir.Term, env *Env) (Value, error) {
	in.fuel--
	if in.fuel < 0 {
		return nil, ErrFuelExhausted
	}

	switch n := t.(type) {
	case ir.Num:
		return NumValue{n.Val}, nil
	case ir.Bool:
		return BoolValue{n.Val}, nil
	case ir.Str:
		return StrValue{n.Val}, nil
	case ir.Nil:
		return ListValue{}, nil
	case ir.Id:
		return identity, nil

	case ir.Var:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, fmt.Errorf("%w: unbound variable %s", ErrRuntime, n.Name)
		}
		return v, nil

	case ir.Lam:
		return FuncValue{Fn: func(arg Value) (Value, error) {
			return in.Eval(n.Body, env.Bind(n.Param, arg))
		}}, nil

	case ir.App:
		fn, err := in.Eval(n.Fn, env)
		if err != nil {
			return nil, err
		}
		arg, err := in.Eval(n.Arg, env)
		if err != nil {
			return nil, err
		}
		return Apply(fn, arg)

	case ir.Cons:
		head, err := in.Eval(n.Head, env)
		if err != nil {
			return nil, err
		}
		tail, err := in.list(n.Tail, env)
		if err != nil {
			return nil, err
		}
		items := make([]Value, 0, len(tail)+1)
		return ListValue{append(append(items, head), tail...)}, nil

	case ir.Map:
		xs, fn, err := in.listAndFunc(n.Data, n.Fn, env)
		if err != nil {
			return nil, err
		}
		out := make([]Value, len(xs))
		for i, x := range xs {
			if out[i], err = Apply(fn, x); err != nil {
				return nil, err
			}
		}
		return ListValue{out}, nil

	case ir.Filter:
		xs, pred, err := in.listAndFunc(n.Data, n.Pred, env)
		if err != nil {
			return nil, err
		}
		var out []Value
		for _, x := range xs {
			keep, err := applyPredicate(pred, x)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, x)
			}
		}
		return ListValue{out}, nil

	case ir.Reduce:
		xs, fn, err := in.listAndFunc(n.Data, n.Fn, env)
		if err != nil {
			return nil, err
		}
		acc, err := in.Eval(n.Init, env)
		if err != nil {
			return nil, err
		}
		for _, x := range xs {
			if acc, err = Apply2(fn, acc, x); err != nil {
				return nil, err
			}
		}
		return acc, nil

	case ir.Focus:
		return in.focus(n, env)

	case ir.If:
		cond, err := in.Eval(n.Cond, env)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(BoolValue)
		if !ok {
			return nil, fmt.Errorf("%w: if condition is %s", ErrRuntime, kindOf(cond))
		}
		if b.Val {
			return in.Eval(n.Then, env)
		}
		return in.Eval(n.Else, env)

	case ir.BinOp:
		return in.binary(n, env)

	case ir.Not:
		v, err := in.Eval(n.Operand, env)
		if err != nil {
			return nil, err
		}
		b, ok := v.(BoolValue)
		if !ok {
			return nil, fmt.Errorf("%w: not of %s", ErrRuntime, kindOf(v))
		}
		return BoolValue{!b.Val}, nil

	case ir.Compose, ir.Pipe:
		var first, second ir.Term
		if c, ok := n.(ir.Compose); ok {
			first, second = c.G, c.F
		} else {
			p := n.(ir.Pipe)
			first, second = p.F, p.G
		}
		f, err := in.Eval(first, env)
		if err != nil {
			return nil, err
		}
		g, err := in.Eval(second, env)
		if err != nil {
			return nil, err
		}
		return FuncValue{Fn: func(arg Value) (Value, error) {
			mid, err := Apply(f, arg)
			if err != nil {
				return nil, err
			}
			return Apply(g, mid)
		}}, nil

	case ir.Const:
		v, err := in.Eval(n.Val, env)
		if err != nil {
			return nil, err
		}
		return FuncValue{Name: "const", Fn: func(Value) (Value, error) { return v, nil }}, nil

	case ir.Drop:
		return nil, fmt.Errorf("%w: drop outside a focus", ErrUnsupported)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, t)
}

func (in *Interpreter) focus(n ir.Focus, env *Env) (Value, error) {
	if n.Mode != ir.FocusHard {
		return nil, fmt.Errorf("%w: %s focus", ErrUnsupported, n.Mode)
	}
	xs, weight, err := in.listAndFunc(n.Data, n.Weight, env)
	if err != nil {
		return nil, err
	}
	inside, err := in.Eval(n.Inside, env)
	if err != nil {
		return nil, err
	}
	_, drop := n.Outside.(ir.Drop)
	var outside Value
	if !drop {
		if outside, err = in.Eval(n.Outside, env); err != nil {
			return nil, err
		}
	}

	var out []Value
	for _, x := range xs {
		hit, err := applyPredicate(weight, x)
		if err != nil {
			return nil, err
		}
		switch {
		case hit:
			v, err := Apply(inside, x)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case !drop:
			v, err := Apply(outside, x)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return ListValue{out}, nil
}

func (in *Interpreter) binary(n ir.BinOp, env *Env) (Value, error) {
	left, err := in.Eval(n.Left, env)
	if err != nil {
		return nil, err
	}

	if n.Op.IsLogical() {
		l, ok := left.(BoolValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrRuntime, n.Op, kindOf(left))
		}
		if (n.Op == ir.OpAnd && !l.Val) || (n.Op == ir.OpOr && l.Val) {
			return l, nil
		}
		right, err := in.Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		if _, ok := right.(BoolValue); !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrRuntime, n.Op, kindOf(right))
		}
		return right, nil
	}

	right, err := in.Eval(n.Right, env)
	if err != nil {
		return nil, err
	}
	if n.Op == ir.OpEq {
		if kindOf(left) == "function" || kindOf(right) == "function" {
			return nil, fmt.Errorf("%w: comparing functions", ErrRuntime)
		}
		return BoolValue{Equal(left, right)}, nil
	}

	l, lok := left.(NumValue)
	r, rok := right.(NumValue)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s of %s and %s", ErrRuntime, n.Op, kindOf(left), kindOf(right))
	}
	switch n.Op {
	case ir.OpAdd:
		return NumValue{l.Val + r.Val}, nil
	case ir.OpSub:
		return NumValue{l.Val - r.Val}, nil
	case ir.OpMul:
		return NumValue{l.Val * r.Val}, nil
	case ir.OpDiv:
		if r.Val == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrRuntime)
		}
		return NumValue{l.Val / r.Val}, nil
	case ir.OpLt:
		return BoolValue{l.Val < r.Val}, nil
	case ir.OpGt:
		return BoolValue{l.Val > r.Val}, nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, n.Op)
}

func (in *Interpreter) list(t ir.Term, env *Env) ([]Value, error) {
	v, err := in.Eval(t, env)
	if err != nil {
		return nil, err
	}
	l, ok := v.(ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: expected list, got %s", ErrRuntime, kindOf(v))
	}
	return l.Items, nil
}

func (in *Interpreter) listAndFunc(data, fn ir.Term, env *Env) ([]Value, Value, error) {
	xs, err := in.list(data, env)
	if err != nil {
		return nil, nil, err
	}
	f, err := in.Eval(fn, env)
	if err != nil {
		return nil, nil, err
	}
	return xs, f, nil
}

// Apply applies a function value to one argument.
func Apply(fn, arg Value) (Value, error) {
	f, ok := fn.(FuncValue)
	if !ok {
		return nil, fmt.Errorf("%w: applying %s", ErrRuntime, kindOf(fn))
	}
	return f.Fn(arg)
}

// Apply2 applies a curried binary function.
func Apply2(fn, a, b Value) (Value, error) {
	partial, err := Apply(fn, a)
	if err != nil {
		return nil, err
	}
	return Apply(partial, b)
}

func applyPredicate(pred, x Value) (bool, error) {
	if b, ok := pred.(BoolValue); ok {
		return b.Val, nil
	}
	v, err := Apply(pred, x)
	if err != nil {
		return false, err
	}
	b, ok := v.(BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: predicate returned %s", ErrRuntime, kindOf(v))
	}
	return b.Val, nil
}
