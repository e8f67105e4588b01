package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
)

var (
	// ErrMalformedRule is returned when a rule cannot be built.
	ErrMalformedRule = errors.New("malformed rule")
	// ErrUnboundVariable is returned when a rewrite references a pattern
	// variable the match did not bind.
	ErrUnboundVariable = errors.New("unbound pattern variable")
)

const (
	// AnyBinder matches a lambda regardless of its parameter name.
	AnyBinder = "_"
	// varPrefix starts a pattern variable: ?xs
	varPrefix = "?"
	// freshPrefix starts a fresh binder introduced by a rewrite: $v
	freshPrefix = "$"
)

// Pattern is a term template with holes.
type Pattern interface {
	isPattern()
	String() string
}

// PVar is a pattern variable. The first occurrence binds the matched
// subterm; later occurrences must match a structurally equal subterm.
type PVar struct {
	Name string
}

// PNode matches a node of a given kind and payload with matching children.
//
// For lambdas the payload is either AnyBinder (match side) or a fresh binder
// label such as "$v" (rewrite side). A variable node whose payload is a fresh
// binder label refers to that binder.
type PNode struct {
	Kind     ir.Kind
	Payload  string
	Children []Pattern
}

func (PVar) isPattern()  {}
func (PNode) isPattern() {}

func (p PVar) String() string { return varPrefix + p.Name }

func (p PNode) String() string {
	switch p.Kind {
	case ir.KindVar, ir.KindNum, ir.KindBool, ir.KindStr:
		return p.Payload
	case ir.KindNil, ir.KindId, ir.KindDrop:
		return p.Kind.String()
	}

	var sb strings.Builder
	sb.WriteByte('(')
	switch p.Kind {
	case ir.KindBinOp:
		sb.WriteString(p.Payload)
	case ir.KindLam:
		sb.WriteString("lam ")
		sb.WriteString(p.Payload)
	case ir.KindFocus:
		sb.WriteString("focus ")
		sb.WriteString(p.Payload)
	default:
		sb.WriteString(p.Kind.String())
	}
	for _, c := range p.Children {
		sb.WriteByte(' ')
		sb.WriteString(c.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// IsFreshBinder reports whether payload names a binder created by a rewrite.
func IsFreshBinder(payload string) bool {
	return strings.HasPrefix(payload, freshPrefix)
}

// Bindings maps pattern variable names to the subterms they matched.
type Bindings map[string]ir.Term

func (b Bindings) clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Match matches p against t from scratch.
func Match(p Pattern, t ir.Term) (Bindings, bool) {
	b := Bindings{}
	if !match(p, t, b) {
		return nil, false
	}
	return b, true
}

// Matches matches p against t, extending bindings. Bindings are only
// extended when the whole match succeeds.
func Matches(p Pattern, t ir.Term, bindings Bindings) bool {
	scratch := bindings.clone()
	if !match(p, t, scratch) {
		return false
	}
	for k, v := range scratch {
		bindings[k] = v
	}
	return true
}

func match(p Pattern, t ir.Term, b Bindings) bool {
	switch pat := p.(type) {
	case PVar:
		if bound, ok := b[pat.Name]; ok {
			return ir.Equal(bound, t)
		}
		b[pat.Name] = t
		return true

	case PNode:
		if t.Kind() != pat.Kind || !PayloadMatches(pat, ir.Payload(t)) {
			return false
		}
		kids := ir.Children(t)
		if len(kids) != len(pat.Children) {
			return false
		}
		for i, c := range pat.Children {
			if !match(c, kids[i], b) {
				return false
			}
		}
		return true
	}
	return false
}

// PayloadMatches reports whether a node payload satisfies the pattern node.
func PayloadMatches(p PNode, payload string) bool {
	if p.Kind == ir.KindLam && p.Payload == AnyBinder {
		return true
	}
	return p.Payload == payload
}

// Instantiate builds the term described by p, substituting bound variables.
// Fresh binders get names that occur free in none of the bound subterms.
func Instantiate(p Pattern, bindings Bindings) (ir.Term, error) {
	avoid := set.New[string](8)
	for _, t := range bindings {
		ir.Walk(t, func(n ir.Term) bool {
			switch node := n.(type) {
			case ir.Var:
				avoid.Insert(node.Name)
			case ir.Lam:
				avoid.Insert(node.Param)
			}
			return true
		})
	}
	inst := &instantiator{bindings: bindings, avoid: avoid, fresh: map[string]string{}}
	return inst.build(p)
}

type instantiator struct {
	bindings Bindings
	avoid    *set.Set[string]
	fresh    map[string]string
}

func (in *instantiator) build(p Pattern) (ir.Term, error) {
	switch pat := p.(type) {
	case PVar:
		t, ok := in.bindings[pat.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, pat)
		}
		return t, nil

	case PNode:
		payload := pat.Payload
		switch {
		case pat.Kind == ir.KindLam && IsFreshBinder(payload):
			name := ir.FreshName("v", in.avoid)
			in.avoid.Insert(name)
			in.fresh[payload] = name
			payload = name
		case pat.Kind == ir.KindVar && IsFreshBinder(payload):
			name, ok := in.fresh[payload]
			if !ok {
				return nil, fmt.Errorf("%w: binder %s used outside its lambda", ErrUnboundVariable, payload)
			}
			payload = name
		}

		children := make([]ir.Term, len(pat.Children))
		for i, c := range pat.Children {
			t, err := in.build(c)
			if err != nil {
				return nil, err
			}
			children[i] = t
		}
		return ir.Make(pat.Kind, payload, children)
	}
	return nil, fmt.Errorf("%w: unknown pattern %T", ErrMalformedRule, p)
}

// Vars returns the pattern variables of p.
func Vars(p Pattern) *set.Set[string] {
	out := set.New[string](4)
	walkPattern(p, func(q Pattern) {
		if v, ok := q.(PVar); ok {
			out.Insert(v.Name)
		}
	})
	return out
}

func walkPattern(p Pattern, visit func(Pattern)) {
	visit(p)
	if n, ok := p.(PNode); ok {
		for _, c := range n.Children {
			walkPattern(c, visit)
		}
	}
}

// ParsePattern parses the textual form of a pattern:
//
//	(map (map ?xs ?f) ?g)
//	(filter ?xs (lam $v (and (app ?p $v) (app ?q $v))))
func ParsePattern(input string) (Pattern, error) {
	node, err := sexpr.ParseOne(input)
	if err != nil {
		return nil, err
	}
	return toPattern(node)
}

func toPattern(node sexpr.Node) (Pattern, error) {
	switch n := node.(type) {
	case sexpr.Atom:
		return atomPattern(n)
	case sexpr.List:
		return listPattern(n)
	}
	return nil, fmt.Errorf("unexpected node %T", node)
}

func atomPattern(a sexpr.Atom) (Pattern, error) {
	if a.Quoted {
		return PNode{Kind: ir.KindStr, Payload: strconv.Quote(a.Value)}, nil
	}
	if name, ok := strings.CutPrefix(a.Value, varPrefix); ok {
		if !sexpr.IsIdentifier(name) {
			return nil, fmt.Errorf("line %d col %d: invalid pattern variable %q", a.Line, a.Col, a.Value)
		}
		return PVar{Name: name}, nil
	}
	if name, ok := strings.CutPrefix(a.Value, freshPrefix); ok {
		if !sexpr.IsIdentifier(name) {
			return nil, fmt.Errorf("line %d col %d: invalid binder %q", a.Line, a.Col, a.Value)
		}
		return PNode{Kind: ir.KindVar, Payload: a.Value}, nil
	}
	t, err := sexpr.ToTerm(a)
	if err != nil {
		return nil, err
	}
	return PNode{Kind: t.Kind(), Payload: ir.Payload(t)}, nil
}

func listPattern(l sexpr.List) (Pattern, error) {
	if len(l.Items) == 0 {
		return nil, fmt.Errorf("line %d col %d: empty list", l.Line, l.Col)
	}

	head, _ := l.Head()
	if head == "list" {
		var out Pattern = PNode{Kind: ir.KindNil}
		for i := len(l.Items) - 1; i >= 1; i-- {
			item, err := toPattern(l.Items[i])
			if err != nil {
				return nil, err
			}
			out = PNode{Kind: ir.KindCons, Children: []Pattern{item, out}}
		}
		return out, nil
	}

	form, ok := sexpr.LookupForm(head)
	if !ok {
		if len(l.Items) < 2 {
			return nil, fmt.Errorf("line %d col %d: application needs an argument", l.Line, l.Col)
		}
		parts, err := patternsOf(l.Items)
		if err != nil {
			return nil, err
		}
		out := parts[0]
		for _, arg := range parts[1:] {
			out = PNode{Kind: ir.KindApp, Children: []Pattern{out, arg}}
		}
		return out, nil
	}

	operands := l.Items[1:]
	payload := ""
	switch {
	case form.Binder:
		if len(operands) == 0 {
			return nil, fmt.Errorf("line %d col %d: %s needs a parameter", l.Line, l.Col, head)
		}
		binder, ok := operands[0].(sexpr.Atom)
		if !ok || binder.Quoted || !(binder.Value == AnyBinder || IsFreshBinder(binder.Value)) {
			return nil, fmt.Errorf("line %d col %d: lambda parameter in a pattern must be %q or a $binder", l.Line, l.Col, AnyBinder)
		}
		payload = binder.Value
		operands = operands[1:]
	case form.Mode:
		if len(operands) == 0 {
			return nil, fmt.Errorf("line %d col %d: focus needs a mode", l.Line, l.Col)
		}
		mode, ok := operands[0].(sexpr.Atom)
		if !ok {
			return nil, fmt.Errorf("line %d col %d: invalid focus mode", l.Line, l.Col)
		}
		if _, valid := ir.ParseFocusMode(mode.Value); !valid {
			return nil, fmt.Errorf("line %d col %d: invalid focus mode %q", mode.Line, mode.Col, mode.Value)
		}
		payload = mode.Value
		operands = operands[1:]
	case form.Kind == ir.KindBinOp:
		payload = form.Op.String()
	}

	if len(operands) != form.Children {
		return nil, fmt.Errorf("line %d col %d: %s expects %d operands, got %d", l.Line, l.Col, head, form.Children, len(operands))
	}
	children, err := patternsOf(operands)
	if err != nil {
		return nil, err
	}
	return PNode{Kind: form.Kind, Payload: payload, Children: children}, nil
}

func patternsOf(nodes []sexpr.Node) ([]Pattern, error) {
	out := make([]Pattern, len(nodes))
	for i, n := range nodes {
		p, err := toPattern(n)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
