package ir

// V returns a variable reference.
func V(name string) Term { return Var{Name: name} }

// N returns an integer literal.
func N(v int64) Term { return Num{Val: v} }

// B returns a boolean literal.
func B(v bool) Term { return Bool{Val: v} }

// Lambda returns a lambda abstraction.
func Lambda(param string, body Term) Term { return Lam{Param: param, Body: body} }

// Apply applies fn to args one at a time (curried application).
func Apply(fn Term, args ...Term) Term {
	out := fn
	for _, a := range args {
		out = App{Fn: out, Arg: a}
	}
	return out
}

// List builds a cons chain ending in Nil.
func List(items ...Term) Term {
	var out Term = Nil{}
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons{Head: items[i], Tail: out}
	}
	return out
}

// Ints builds a list of integer literals.
func Ints(vals ...int64) Term {
	items := make([]Term, len(vals))
	for i, v := range vals {
		items[i] = Num{Val: v}
	}
	return List(items...)
}

// Bin returns a binary operation.
func Bin(op Op, left, right Term) Term { return BinOp{Op: op, Left: left, Right: right} }

// HardFocus returns a hard-mode Focus that drops rejected elements.
func HardFocus(data, weight, inside Term) Term {
	return Focus{Mode: FocusHard, Data: data, Weight: weight, Inside: inside, Outside: Drop{}}
}

// IsLiteral reports whether t is a number, boolean, string or nil literal.
func IsLiteral(t Term) bool {
	switch t.(type) {
	case Num, Bool, Str, Nil:
		return true
	}
	return false
}
