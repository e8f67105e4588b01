package canon

import (
	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// Config holds configuration for the normalizer.
type Config struct {
	// Fuel bounds the number of reduction steps so that terms without a
	// normal form (e.g. self-application) still canonicalize.
	Fuel int
}

// DefaultConfig returns the default normalizer configuration.
func DefaultConfig() Config {
	return Config{Fuel: 10_000}
}

// Normalizer rewrites terms into their canonical form.
type Normalizer struct {
	config Config
}

// NewNormalizer creates a new normalizer.
func NewNormalizer(config Config) *Normalizer {
	if config.Fuel <= 0 {
		config.Fuel = DefaultConfig().Fuel
	}
	return &Normalizer{config: config}
}

var defaultNormalizer = NewNormalizer(DefaultConfig())

// Canonicalize returns the canonical form of t using the default configuration.
// Alpha-equivalent terms canonicalize to structurally equal terms.
func Canonicalize(t ir.Term) ir.Term {
	return defaultNormalizer.Normalize(t)
}

// Normalize reduces t to a fixed point and then renames its binders. When
// the reductions do not reach a fixed point within the fuel, t is only
// renamed, so the result is still a fixed point of Normalize.
func (n *Normalizer) Normalize(t ir.Term) ir.Term {
	if t == nil {
		return nil
	}
	fuel := n.config.Fuel
	current := t
	for {
		next, changed := n.pass(current, &fuel)
		if !changed {
			return AlphaNormalize(current)
		}
		if fuel <= 0 {
			if reducible(next) {
				return AlphaNormalize(t)
			}
			return AlphaNormalize(next)
		}
		current = next
	}
}

func reducible(t ir.Term) bool {
	found := false
	ir.Walk(t, func(node ir.Term) bool {
		if _, ok := reduceNode(node); ok {
			found = true
		}
		return !found
	})
	return found
}

// pass rewrites t bottom-up once, consuming one unit of fuel per reduction.
func (n *Normalizer) pass(t ir.Term, fuel *int) (ir.Term, bool) {
	changed := false
	out := ir.Transform(t, func(node ir.Term) ir.Term {
		if *fuel <= 0 {
			return node
		}
		reduced, ok := reduceNode(node)
		if !ok {
			return node
		}
		*fuel--
		changed = true
		return reduced
	})
	return out, changed
}

// reduceNode applies a single local reduction whose children are already reduced.
func reduceNode(t ir.Term) (ir.Term, bool) {
	switch node := t.(type) {
	case ir.BinOp:
		return foldBinary(node)

	case ir.Not:
		if b, ok := node.Operand.(ir.Bool); ok {
			return ir.Bool{Val: !b.Val}, true
		}

	case ir.If:
		if b, ok := node.Cond.(ir.Bool); ok {
			if b.Val {
				return node.Then, true
			}
			return node.Else, true
		}

	case ir.App:
		switch fn := node.Fn.(type) {
		case ir.Lam:
			return ir.Substitute(fn.Body, fn.Param, node.Arg), true
		case ir.Id:
			return node.Arg, true
		case ir.Const:
			return fn.Val, true
		}

	case ir.Compose:
		if _, ok := node.F.(ir.Id); ok {
			return node.G, true
		}
		if _, ok := node.G.(ir.Id); ok {
			return node.F, true
		}

	case ir.Pipe:
		if _, ok := node.F.(ir.Id); ok {
			return node.G, true
		}
		if _, ok := node.G.(ir.Id); ok {
			return node.F, true
		}

	case ir.Map:
		if _, ok := node.Data.(ir.Nil); ok {
			return ir.Nil{}, true
		}
		if filter, ok := node.Data.(ir.Filter); ok {
			return ir.HardFocus(filter.Data, filter.Pred, node.Fn), true
		}

	case ir.Filter:
		if _, ok := node.Data.(ir.Nil); ok {
			return ir.Nil{}, true
		}
		if v, ok := ConstantPredicate(node.Pred); ok {
			if v {
				return node.Data, true
			}
			return ir.Nil{}, true
		}

	case ir.Reduce:
		if _, ok := node.Data.(ir.Nil); ok {
			return node.Init, true
		}

	case ir.Focus:
		if _, ok := node.Data.(ir.Nil); ok {
			return ir.Nil{}, true
		}
		if node.Mode != ir.FocusHard {
			break
		}
		if _, drop := node.Outside.(ir.Drop); !drop {
			break
		}
		if v, ok := ConstantPredicate(node.Weight); ok {
			if v {
				return ir.Map{Data: node.Data, Fn: node.Inside}, true
			}
			return ir.Nil{}, true
		}
	}
	return t, false
}

// ConstantPredicate reports whether p ignores its argument and always
// returns the same boolean, and which one. A bare boolean literal used as a
// predicate counts as constant.
func ConstantPredicate(p ir.Term) (bool, bool) {
	switch pred := p.(type) {
	case ir.Bool:
		return pred.Val, true
	case ir.Const:
		if b, ok := pred.Val.(ir.Bool); ok {
			return b.Val, true
		}
	case ir.Lam:
		if b, ok := pred.Body.(ir.Bool); ok {
			return b.Val, true
		}
	}
	return false, false
}

func foldBinary(node ir.BinOp) (ir.Term, bool) {
	// short-circuit forms only need the left operand
	if lb, ok := node.Left.(ir.Bool); ok {
		if node.Op == ir.OpAnd && !lb.Val {
			return ir.Bool{Val: false}, true
		}
		if node.Op == ir.OpOr && lb.Val {
			return ir.Bool{Val: true}, true
		}
	}

	if node.Op == ir.OpEq && ir.IsLiteral(node.Left) && ir.IsLiteral(node.Right) {
		return ir.Bool{Val: ir.Equal(node.Left, node.Right)}, true
	}

	ln, lok := node.Left.(ir.Num)
	rn, rok := node.Right.(ir.Num)
	if lok && rok {
		switch node.Op {
		case ir.OpAdd:
			return ir.Num{Val: ln.Val + rn.Val}, true
		case ir.OpSub:
			return ir.Num{Val: ln.Val - rn.Val}, true
		case ir.OpMul:
			return ir.Num{Val: ln.Val * rn.Val}, true
		case ir.OpDiv:
			if rn.Val == 0 {
				return node, false
			}
			return ir.Num{Val: ln.Val / rn.Val}, true
		case ir.OpLt:
			return ir.Bool{Val: ln.Val < rn.Val}, true
		case ir.OpGt:
			return ir.Bool{Val: ln.Val > rn.Val}, true
		}
	}

	lb, lok := node.Left.(ir.Bool)
	rb, rok := node.Right.(ir.Bool)
	if lok && rok {
		switch node.Op {
		case ir.OpAnd:
			return ir.Bool{Val: lb.Val && rb.Val}, true
		case ir.OpOr:
			return ir.Bool{Val: lb.Val || rb.Val}, true
		}
	}
	return node, false
}
