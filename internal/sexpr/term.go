package sexpr

import (
	"fmt"
	"strconv"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// Form describes a keyword-headed list such as (map xs f).
type Form struct {
	Kind ir.Kind
	// Children is the number of subterm operands.
	Children int
	// Binder is set for forms whose first operand is a name (lam).
	Binder bool
	// Mode is set for forms whose first operand is a focus mode.
	Mode bool
	// Op is the operator of a binary form.
	Op ir.Op
}

var forms = map[string]Form{
	"lam":     {Kind: ir.KindLam, Children: 1, Binder: true},
	"λ":       {Kind: ir.KindLam, Children: 1, Binder: true},
	"app":     {Kind: ir.KindApp, Children: 2},
	"cons":    {Kind: ir.KindCons, Children: 2},
	"map":     {Kind: ir.KindMap, Children: 2},
	"filter":  {Kind: ir.KindFilter, Children: 2},
	"reduce":  {Kind: ir.KindReduce, Children: 3},
	"if":      {Kind: ir.KindIf, Children: 3},
	"not":     {Kind: ir.KindNot, Children: 1},
	"compose": {Kind: ir.KindCompose, Children: 2},
	"pipe":    {Kind: ir.KindPipe, Children: 2},
	"const":   {Kind: ir.KindConst, Children: 1},
	"focus":   {Kind: ir.KindFocus, Children: 4, Mode: true},
}

func init() {
	for _, op := range []ir.Op{ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpEq, ir.OpLt, ir.OpGt, ir.OpAnd, ir.OpOr} {
		forms[op.String()] = Form{Kind: ir.KindBinOp, Children: 2, Op: op}
	}
}

// LookupForm returns the form introduced by keyword head.
func LookupForm(head string) (Form, bool) {
	f, ok := forms[head]
	return f, ok
}

// constants are the bare atoms that denote nullary nodes.
var constants = map[string]ir.Term{
	"nil":   ir.Nil{},
	"id":    ir.Id{},
	"drop":  ir.Drop{},
	"true":  ir.Bool{Val: true},
	"false": ir.Bool{Val: false},
}

// LookupConstant returns the nullary node spelled by a bare atom.
func LookupConstant(word string) (ir.Term, bool) {
	t, ok := constants[word]
	return t, ok
}

// IsReserved reports whether word cannot be used as a variable name.
func IsReserved(word string) bool {
	if _, ok := forms[word]; ok {
		return true
	}
	if _, ok := constants[word]; ok {
		return true
	}
	return word == "list"
}

// IsIdentifier reports whether word is a valid variable name.
func IsIdentifier(word string) bool {
	if word == "" || IsReserved(word) {
		return false
	}
	for i, r := range word {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && ((r >= '0' && r <= '9') || r == '\'' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// ParseTerm parses the textual form of a single term.
func ParseTerm(input string) (ir.Term, error) {
	node, err := ParseOne(input)
	if err != nil {
		return nil, err
	}
	return ToTerm(node)
}

// MustParseTerm is ParseTerm for inputs known to be valid. It panics on error.
func MustParseTerm(input string) ir.Term {
	t, err := ParseTerm(input)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTerms parses every top-level term of input.
func ParseTerms(input string) ([]ir.Term, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	nodes, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Term, 0, len(nodes))
	for _, n := range nodes {
		t, err := ToTerm(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ToTerm converts a parsed node into a term.
func ToTerm(node Node) (ir.Term, error) {
	switch n := node.(type) {
	case Atom:
		return atomTerm(n)
	case List:
		return listTerm(n)
	}
	return nil, fmt.Errorf("unexpected node %T", node)
}

func atomTerm(a Atom) (ir.Term, error) {
	if a.Quoted {
		return ir.Str{Val: a.Value}, nil
	}
	if t, ok := LookupConstant(a.Value); ok {
		return t, nil
	}
	if v, err := strconv.ParseInt(a.Value, 10, 64); err == nil {
		return ir.Num{Val: v}, nil
	}
	if !IsIdentifier(a.Value) {
		return nil, fmt.Errorf("line %d col %d: invalid identifier %q", a.Line, a.Col, a.Value)
	}
	return ir.Var{Name: a.Value}, nil
}

func listTerm(l List) (ir.Term, error) {
	if len(l.Items) == 0 {
		return nil, fmt.Errorf("line %d col %d: empty list", l.Line, l.Col)
	}

	head, _ := l.Head()
	if head == "list" {
		items, err := termsOf(l.Items[1:])
		if err != nil {
			return nil, err
		}
		return ir.List(items...), nil
	}

	form, ok := LookupForm(head)
	if !ok {
		// (f a b) is curried application
		if len(l.Items) < 2 {
			return nil, fmt.Errorf("line %d col %d: application needs an argument", l.Line, l.Col)
		}
		parts, err := termsOf(l.Items)
		if err != nil {
			return nil, err
		}
		return ir.Apply(parts[0], parts[1:]...), nil
	}

	operands := l.Items[1:]
	payload := ""
	switch {
	case form.Binder:
		if len(operands) == 0 {
			return nil, fmt.Errorf("line %d col %d: %s needs a parameter", l.Line, l.Col, head)
		}
		name, ok := operands[0].(Atom)
		if !ok || name.Quoted || !IsIdentifier(name.Value) {
			line, col := operands[0].Pos()
			return nil, fmt.Errorf("line %d col %d: invalid lambda parameter %s", line, col, operands[0])
		}
		payload = name.Value
		operands = operands[1:]
	case form.Mode:
		if len(operands) == 0 {
			return nil, fmt.Errorf("line %d col %d: focus needs a mode", l.Line, l.Col)
		}
		mode, ok := operands[0].(Atom)
		if !ok {
			return nil, fmt.Errorf("line %d col %d: invalid focus mode %s", l.Line, l.Col, operands[0])
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
	children, err := termsOf(operands)
	if err != nil {
		return nil, err
	}
	return ir.Make(form.Kind, payload, children)
}

func termsOf(nodes []Node) ([]ir.Term, error) {
	out := make([]ir.Term, len(nodes))
	for i, n := range nodes {
		t, err := ToTerm(n)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
