package ir

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-set/v3"
)

// ErrMalformedTerm is returned for terms with missing children or bad payloads.
var ErrMalformedTerm = errors.New("malformed term")

// Children returns the direct subterms of t in a fixed order.
func Children(t Term) []Term {
	switch n := t.(type) {
	case Lam:
		return []Term{n.Body}
	case App:
		return []Term{n.Fn, n.Arg}
	case Cons:
		return []Term{n.Head, n.Tail}
	case Map:
		return []Term{n.Data, n.Fn}
	case Filter:
		return []Term{n.Data, n.Pred}
	case Reduce:
		return []Term{n.Data, n.Fn, n.Init}
	case If:
		return []Term{n.Cond, n.Then, n.Else}
	case BinOp:
		return []Term{n.Left, n.Right}
	case Not:
		return []Term{n.Operand}
	case Compose:
		return []Term{n.F, n.G}
	case Pipe:
		return []Term{n.F, n.G}
	case Const:
		return []Term{n.Val}
	case Focus:
		return []Term{n.Data, n.Weight, n.Inside, n.Outside}
	default:
		return nil
	}
}

// Arity is the number of children a node of kind k carries.
func Arity(k Kind) int {
	switch k {
	case KindLam, KindNot, KindConst:
		return 1
	case KindApp, KindCons, KindMap, KindFilter, KindBinOp, KindCompose, KindPipe:
		return 2
	case KindReduce, KindIf:
		return 3
	case KindFocus:
		return 4
	default:
		return 0
	}
}

// Payload is the non-child data of t: a name, a literal, an operator or a mode.
func Payload(t Term) string {
	switch n := t.(type) {
	case Var:
		return n.Name
	case Lam:
		return n.Param
	case Num:
		return strconv.FormatInt(n.Val, 10)
	case Bool:
		return strconv.FormatBool(n.Val)
	case Str:
		return strconv.Quote(n.Val)
	case BinOp:
		return n.Op.String()
	case Focus:
		return n.Mode.String()
	default:
		return ""
	}
}

// Make builds a term from its kind, payload and children.
// It is the inverse of (Kind, Payload, Children).
func Make(k Kind, payload string, children []Term) (Term, error) {
	if len(children) != Arity(k) {
		return nil, fmt.Errorf("%w: %s expects %d children, got %d", ErrMalformedTerm, k, Arity(k), len(children))
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%w: %s child %d is nil", ErrMalformedTerm, k, i)
		}
	}

	switch k {
	case KindVar:
		if payload == "" {
			return nil, fmt.Errorf("%w: empty variable name", ErrMalformedTerm)
		}
		return Var{Name: payload}, nil
	case KindLam:
		if payload == "" {
			return nil, fmt.Errorf("%w: empty lambda parameter", ErrMalformedTerm)
		}
		return Lam{Param: payload, Body: children[0]}, nil
	case KindApp:
		return App{Fn: children[0], Arg: children[1]}, nil
	case KindNum:
		v, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTerm, err)
		}
		return Num{Val: v}, nil
	case KindBool:
		v, err := strconv.ParseBool(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTerm, err)
		}
		return Bool{Val: v}, nil
	case KindStr:
		v, err := strconv.Unquote(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTerm, err)
		}
		return Str{Val: v}, nil
	case KindNil:
		return Nil{}, nil
	case KindCons:
		return Cons{Head: children[0], Tail: children[1]}, nil
	case KindMap:
		return Map{Data: children[0], Fn: children[1]}, nil
	case KindFilter:
		return Filter{Data: children[0], Pred: children[1]}, nil
	case KindReduce:
		return Reduce{Data: children[0], Fn: children[1], Init: children[2]}, nil
	case KindIf:
		return If{Cond: children[0], Then: children[1], Else: children[2]}, nil
	case KindBinOp:
		op, ok := ParseOp(payload)
		if !ok {
			return nil, fmt.Errorf("%w: unknown operator %q", ErrMalformedTerm, payload)
		}
		return BinOp{Op: op, Left: children[0], Right: children[1]}, nil
	case KindNot:
		return Not{Operand: children[0]}, nil
	case KindCompose:
		return Compose{F: children[0], G: children[1]}, nil
	case KindPipe:
		return Pipe{F: children[0], G: children[1]}, nil
	case KindId:
		return Id{}, nil
	case KindConst:
		return Const{Val: children[0]}, nil
	case KindDrop:
		return Drop{}, nil
	case KindFocus:
		mode, ok := ParseFocusMode(payload)
		if !ok {
			return nil, fmt.Errorf("%w: unknown focus mode %q", ErrMalformedTerm, payload)
		}
		return Focus{Mode: mode, Data: children[0], Weight: children[1], Inside: children[2], Outside: children[3]}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedTerm, int(k))
}

// Rebuild returns t with its children replaced.
func Rebuild(t Term, children []Term) (Term, error) {
	return Make(t.Kind(), Payload(t), children)
}

// rebuild is Rebuild for callers whose children come from Children(t).
func rebuild(t Term, children []Term) Term {
	out, err := Rebuild(t, children)
	if err != nil {
		panic(err)
	}
	return out
}

// Transform applies fn bottom-up to every node of t.
func Transform(t Term, fn func(Term) Term) Term {
	kids := Children(t)
	if len(kids) == 0 {
		return fn(t)
	}
	next := make([]Term, len(kids))
	for i, c := range kids {
		next[i] = Transform(c, fn)
	}
	return fn(rebuild(t, next))
}

// Walk visits t in pre-order. Returning false skips the children of a node.
func Walk(t Term, visit func(Term) bool) {
	if !visit(t) {
		return
	}
	for _, c := range Children(t) {
		Walk(c, visit)
	}
}

// Size counts the nodes of t.
func Size(t Term) int {
	n := 0
	Walk(t, func(Term) bool {
		n++
		return true
	})
	return n
}

// Equal reports structural equality. Binder names are compared literally;
// use canon.Canonicalize first for equality up to alpha-renaming.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() || Payload(a) != Payload(b) {
		return false
	}
	ac, bc := Children(a), Children(b)
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

// Validate checks that t has no nil children and well-formed payloads.
func Validate(t Term) error {
	if t == nil {
		return fmt.Errorf("%w: nil term", ErrMalformedTerm)
	}
	kids := Children(t)
	if _, err := Make(t.Kind(), Payload(t), kids); err != nil {
		return err
	}
	for _, c := range kids {
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// FreeVars returns the variables of t not bound by an enclosing lambda.
func FreeVars(t Term) *set.Set[string] {
	out := set.New[string](4)
	collectFree(t, set.New[string](0), out)
	return out
}

func collectFree(t Term, bound, out *set.Set[string]) {
	switch n := t.(type) {
	case Var:
		if !bound.Contains(n.Name) {
			out.Insert(n.Name)
		}
	case Lam:
		if bound.Contains(n.Param) {
			collectFree(n.Body, bound, out)
			return
		}
		bound.Insert(n.Param)
		collectFree(n.Body, bound, out)
		bound.Remove(n.Param)
	default:
		for _, c := range Children(t) {
			collectFree(c, bound, out)
		}
	}
}

// Occurs reports whether name occurs free in t.
func Occurs(name string, t Term) bool {
	return FreeVars(t).Contains(name)
}

// Substitute replaces free occurrences of name in t with repl, renaming
// binders that would capture free variables of repl.
func Substitute(t Term, name string, repl Term) Term {
	return substitute(t, name, repl, FreeVars(repl))
}

func substitute(t Term, name string, repl Term, replFree *set.Set[string]) Term {
	switch n := t.(type) {
	case Var:
		if n.Name == name {
			return repl
		}
		return n
	case Lam:
		if n.Param == name {
			return n
		}
		if replFree.Contains(n.Param) && Occurs(name, n.Body) {
			avoid := FreeVars(n.Body)
			avoid.InsertSet(replFree)
			avoid.Insert(name)
			fresh := FreshName(n.Param, avoid)
			body := substitute(n.Body, n.Param, Var{Name: fresh}, set.From([]string{fresh}))
			return Lam{Param: fresh, Body: substitute(body, name, repl, replFree)}
		}
		return Lam{Param: n.Param, Body: substitute(n.Body, name, repl, replFree)}
	}

	kids := Children(t)
	if len(kids) == 0 {
		return t
	}
	next := make([]Term, len(kids))
	for i, c := range kids {
		next[i] = substitute(c, name, repl, replFree)
	}
	return rebuild(t, next)
}

// FreshName derives a name from base that is not in avoid.
func FreshName(base string, avoid *set.Set[string]) string {
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !avoid.Contains(candidate) {
			return candidate
		}
	}
}
