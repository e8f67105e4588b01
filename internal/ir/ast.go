package ir

import (
	"strconv"
	"strings"
)

// Kind identifies the node kind of a Term.
type Kind int

const (
	KindVar Kind = iota
	KindLam
	KindApp
	KindNum
	KindBool
	KindStr
	KindNil
	KindCons
	KindMap
	KindFilter
	KindReduce
	KindIf
	KindBinOp
	KindNot
	KindCompose
	KindPipe
	KindId
	KindConst
	KindDrop
	KindFocus
)

var kindNames = [...]string{
	KindVar:     "var",
	KindLam:     "lam",
	KindApp:     "app",
	KindNum:     "num",
	KindBool:    "bool",
	KindStr:     "str",
	KindNil:     "nil",
	KindCons:    "cons",
	KindMap:     "map",
	KindFilter:  "filter",
	KindReduce:  "reduce",
	KindIf:      "if",
	KindBinOp:   "binop",
	KindNot:     "not",
	KindCompose: "compose",
	KindPipe:    "pipe",
	KindId:      "id",
	KindConst:   "const",
	KindDrop:    "drop",
	KindFocus:   "focus",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// Term is an immutable node of the lambda calculus IR.
// Every concrete node type implements this interface.
type Term interface {
	isTerm()
	Kind() Kind
	String() string
	writeTo(sb *strings.Builder)
}

// Var is a variable reference.
type Var struct {
	Name string
}

// Lam is a single-parameter lambda abstraction.
type Lam struct {
	Param string
	Body  Term
}

// App applies Fn to Arg.
type App struct {
	Fn  Term
	Arg Term
}

// Num is an integer literal.
type Num struct {
	Val int64
}

// Bool is a boolean literal.
type Bool struct {
	Val bool
}

// Str is a string literal.
type Str struct {
	Val string
}

// Nil is the empty list.
type Nil struct{}

// Cons prepends Head to the list Tail.
type Cons struct {
	Head Term
	Tail Term
}

// Map applies Fn to every element of Data.
type Map struct {
	Data Term
	Fn   Term
}

// Filter keeps the elements of Data for which Pred holds.
type Filter struct {
	Data Term
	Pred Term
}

// Reduce is a left fold over Data. Fn is curried: acc -> x -> acc'.
type Reduce struct {
	Data Term
	Fn   Term
	Init Term
}

// If selects Then or Else depending on Cond.
type If struct {
	Cond Term
	Then Term
	Else Term
}

// BinOp is a binary arithmetic, comparison or boolean operation.
type BinOp struct {
	Op    Op
	Left  Term
	Right Term
}

// Not is boolean negation.
type Not struct {
	Operand Term
}

// Compose is function composition: (F∘G)(x) = F(G(x)).
type Compose struct {
	F Term
	G Term
}

// Pipe is left-to-right composition: (F|G)(x) = G(F(x)).
type Pipe struct {
	F Term
	G Term
}

// Id is the identity function.
type Id struct{}

// Const is the constant function returning Val.
type Const struct {
	Val Term
}

// Drop marks the outside branch of a Focus whose rejected elements are removed.
type Drop struct{}

// Focus processes the elements of Data selected by Weight with Inside and
// the rest with Outside.
type Focus struct {
	Mode    FocusMode
	Data    Term
	Weight  Term
	Inside  Term
	Outside Term
}

func (Var) isTerm()     {}
func (Lam) isTerm()     {}
func (App) isTerm()     {}
func (Num) isTerm()     {}
func (Bool) isTerm()    {}
func (Str) isTerm()     {}
func (Nil) isTerm()     {}
func (Cons) isTerm()    {}
func (Map) isTerm()     {}
func (Filter) isTerm()  {}
func (Reduce) isTerm()  {}
func (If) isTerm()      {}
func (BinOp) isTerm()   {}
func (Not) isTerm()     {}
func (Compose) isTerm() {}
func (Pipe) isTerm()    {}
func (Id) isTerm()      {}
func (Const) isTerm()   {}
func (Drop) isTerm()    {}
func (Focus) isTerm()   {}

func (Var) Kind() Kind     { return KindVar }
func (Lam) Kind() Kind     { return KindLam }
func (App) Kind() Kind     { return KindApp }
func (Num) Kind() Kind     { return KindNum }
func (Bool) Kind() Kind    { return KindBool }
func (Str) Kind() Kind     { return KindStr }
func (Nil) Kind() Kind     { return KindNil }
func (Cons) Kind() Kind    { return KindCons }
func (Map) Kind() Kind     { return KindMap }
func (Filter) Kind() Kind  { return KindFilter }
func (Reduce) Kind() Kind  { return KindReduce }
func (If) Kind() Kind      { return KindIf }
func (BinOp) Kind() Kind   { return KindBinOp }
func (Not) Kind() Kind     { return KindNot }
func (Compose) Kind() Kind { return KindCompose }
func (Pipe) Kind() Kind    { return KindPipe }
func (Id) Kind() Kind      { return KindId }
func (Const) Kind() Kind   { return KindConst }
func (Drop) Kind() Kind    { return KindDrop }
func (Focus) Kind() Kind   { return KindFocus }

func (t Var) String() string     { return render(t) }
func (t Lam) String() string     { return render(t) }
func (t App) String() string     { return render(t) }
func (t Num) String() string     { return render(t) }
func (t Bool) String() string    { return render(t) }
func (t Str) String() string     { return render(t) }
func (t Nil) String() string     { return render(t) }
func (t Cons) String() string    { return render(t) }
func (t Map) String() string     { return render(t) }
func (t Filter) String() string  { return render(t) }
func (t Reduce) String() string  { return render(t) }
func (t If) String() string      { return render(t) }
func (t BinOp) String() string   { return render(t) }
func (t Not) String() string     { return render(t) }
func (t Compose) String() string { return render(t) }
func (t Pipe) String() string    { return render(t) }
func (t Id) String() string      { return render(t) }
func (t Const) String() string   { return render(t) }
func (t Drop) String() string    { return render(t) }
func (t Focus) String() string   { return render(t) }

func render(t Term) string {
	var sb strings.Builder
	t.writeTo(&sb)
	return sb.String()
}

// writeForm writes "(head c1 c2 ...)".
func writeForm(sb *strings.Builder, head string, children ...Term) {
	sb.WriteByte('(')
	sb.WriteString(head)
	for _, c := range children {
		sb.WriteByte(' ')
		writeChild(sb, c)
	}
	sb.WriteByte(')')
}

func writeChild(sb *strings.Builder, t Term) {
	if t == nil {
		sb.WriteString("<nil>")
		return
	}
	t.writeTo(sb)
}

func (t Var) writeTo(sb *strings.Builder) { sb.WriteString(t.Name) }

func (t Lam) writeTo(sb *strings.Builder) {
	sb.WriteString("(lam ")
	sb.WriteString(t.Param)
	sb.WriteByte(' ')
	writeChild(sb, t.Body)
	sb.WriteByte(')')
}

func (t App) writeTo(sb *strings.Builder)  { writeForm(sb, "app", t.Fn, t.Arg) }
func (t Num) writeTo(sb *strings.Builder)  { sb.WriteString(strconv.FormatInt(t.Val, 10)) }
func (t Bool) writeTo(sb *strings.Builder) { sb.WriteString(strconv.FormatBool(t.Val)) }
func (t Str) writeTo(sb *strings.Builder)  { sb.WriteString(strconv.Quote(t.Val)) }
func (Nil) writeTo(sb *strings.Builder)    { sb.WriteString("nil") }

func (t Cons) writeTo(sb *strings.Builder)    { writeForm(sb, "cons", t.Head, t.Tail) }
func (t Map) writeTo(sb *strings.Builder)     { writeForm(sb, "map", t.Data, t.Fn) }
func (t Filter) writeTo(sb *strings.Builder)  { writeForm(sb, "filter", t.Data, t.Pred) }
func (t Reduce) writeTo(sb *strings.Builder)  { writeForm(sb, "reduce", t.Data, t.Fn, t.Init) }
func (t If) writeTo(sb *strings.Builder)      { writeForm(sb, "if", t.Cond, t.Then, t.Else) }
func (t BinOp) writeTo(sb *strings.Builder)   { writeForm(sb, t.Op.String(), t.Left, t.Right) }
func (t Not) writeTo(sb *strings.Builder)     { writeForm(sb, "not", t.Operand) }
func (t Compose) writeTo(sb *strings.Builder) { writeForm(sb, "compose", t.F, t.G) }
func (t Pipe) writeTo(sb *strings.Builder)    { writeForm(sb, "pipe", t.F, t.G) }
func (Id) writeTo(sb *strings.Builder)        { sb.WriteString("id") }
func (t Const) writeTo(sb *strings.Builder)   { writeForm(sb, "const", t.Val) }
func (Drop) writeTo(sb *strings.Builder)      { sb.WriteString("drop") }

func (t Focus) writeTo(sb *strings.Builder) {
	writeForm(sb, "focus "+t.Mode.String(), t.Data, t.Weight, t.Inside, t.Outside)
}
