package rules

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// GuardKind is a side condition a matched variable must satisfy.
type GuardKind int

const (
	// GuardPure requires the bound subterm to reference no effectful function.
	GuardPure GuardKind = iota
	// GuardLiteral requires the bound subterm to be a literal.
	GuardLiteral
	// GuardClosed requires the bound subterm to have no free variables.
	GuardClosed
)

func (k GuardKind) String() string {
	switch k {
	case GuardPure:
		return "pure"
	case GuardLiteral:
		return "literal"
	case GuardClosed:
		return "closed"
	default:
		return "?"
	}
}

// Guard applies a GuardKind to one pattern variable.
type Guard struct {
	Kind GuardKind
	Var  string
}

// Pure returns a purity guard on the named variable.
func Pure(v string) Guard { return Guard{Kind: GuardPure, Var: v} }

// Literal returns a literal guard on the named variable.
func Literal(v string) Guard { return Guard{Kind: GuardLiteral, Var: v} }

// Closed returns a closedness guard on the named variable.
func Closed(v string) Guard { return Guard{Kind: GuardClosed, Var: v} }

func (g Guard) String() string {
	return g.Kind.String() + " " + varPrefix + g.Var
}

// ParseGuard parses "pure f" or "pure ?f".
func ParseGuard(s string) (Guard, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Guard{}, fmt.Errorf("invalid guard %q: want \"<kind> <var>\"", s)
	}
	name := strings.TrimPrefix(fields[1], varPrefix)
	switch fields[0] {
	case "pure", "effect-free":
		return Pure(name), nil
	case "literal":
		return Literal(name), nil
	case "closed":
		return Closed(name), nil
	}
	return Guard{}, fmt.Errorf("invalid guard %q: unknown kind %q", s, fields[0])
}

// Oracle answers guard questions about the subterm bound to a variable.
type Oracle interface {
	Pure(v string) bool
	Literal(v string) bool
	Closed(v string) bool
}

// Holds evaluates the guard against o.
func (g Guard) Holds(o Oracle) bool {
	switch g.Kind {
	case GuardPure:
		return o.Pure(g.Var)
	case GuardLiteral:
		return o.Literal(g.Var)
	case GuardClosed:
		return o.Closed(g.Var)
	}
	return false
}

// TermOracle answers guard questions from term bindings.
type TermOracle struct {
	Bindings Bindings
	// IsPure decides purity; nil treats every term as pure.
	IsPure func(ir.Term) bool
}

func (o TermOracle) Pure(v string) bool {
	t, ok := o.Bindings[v]
	if !ok {
		return false
	}
	if o.IsPure == nil {
		return true
	}
	return o.IsPure(t)
}

func (o TermOracle) Literal(v string) bool {
	t, ok := o.Bindings[v]
	return ok && ir.IsLiteral(t)
}

func (o TermOracle) Closed(v string) bool {
	t, ok := o.Bindings[v]
	return ok && ir.FreeVars(t).Empty()
}

// PurityCheck returns a purity predicate that rejects terms referencing any
// of the effectful names.
func PurityCheck(effectful func(string) bool) func(ir.Term) bool {
	return func(t ir.Term) bool {
		pure := true
		ir.Walk(t, func(n ir.Term) bool {
			if v, ok := n.(ir.Var); ok && effectful(v.Name) {
				pure = false
			}
			return pure
		})
		return pure
	}
}
