package verify

import (
	"strconv"
	"strings"
)

// Value is a runtime value of the interpreter.
type Value interface {
	isValue()
	String() string
}

// NumValue is an integer.
type NumValue struct {
	Val int64
}

// BoolValue is a boolean.
type BoolValue struct {
	Val bool
}

// StrValue is a string.
type StrValue struct {
	Val string
}

// ListValue is a finite list.
type ListValue struct {
	Items []Value
}

// FuncValue is a unary function. Multi-argument functions are curried.
type FuncValue struct {
	Name string
	Fn   func(Value) (Value, error)
}

func (NumValue) isValue()  {}
func (BoolValue) isValue() {}
func (StrValue) isValue()  {}
func (ListValue) isValue() {}
func (FuncValue) isValue() {}

func (v NumValue) String() string  { return strconv.FormatInt(v.Val, 10) }
func (v BoolValue) String() string { return strconv.FormatBool(v.Val) }
func (v StrValue) String() string  { return strconv.Quote(v.Val) }

func (v ListValue) String() string {
	parts := make([]string, len(v.Items))
	for i, item := range v.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (v FuncValue) String() string {
	if v.Name == "" {
		return "<fn>"
	}
	return "<fn " + v.Name + ">"
}

// probes are the arguments used to compare functions extensionally.
var probes = []Value{
	NumValue{-3}, NumValue{-1}, NumValue{0}, NumValue{1}, NumValue{2}, NumValue{5}, NumValue{12},
}

// Equal compares two values. Functions are compared by applying both to the
// probe arguments; an argument on which both fail is skipped.
func Equal(a, b Value) bool {
	return equalDepth(a, b, 3)
}

func equalDepth(a, b Value, depth int) bool {
	switch x := a.(type) {
	case NumValue:
		y, ok := b.(NumValue)
		return ok && x.Val == y.Val
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x.Val == y.Val
	case StrValue:
		y, ok := b.(StrValue)
		return ok && x.Val == y.Val
	case ListValue:
		y, ok := b.(ListValue)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !equalDepth(x.Items[i], y.Items[i], depth) {
				return false
			}
		}
		return true
	case FuncValue:
		y, ok := b.(FuncValue)
		if !ok {
			return false
		}
		if depth == 0 {
			return true
		}
		for _, p := range probes {
			ra, errA := x.Fn(p)
			rb, errB := y.Fn(p)
			if (errA == nil) != (errB == nil) {
				return false
			}
			if errA == nil && !equalDepth(ra, rb, depth-1) {
				return false
			}
		}
		return true
	}
	return false
}

// kindOf names the shape of a value for law selection.
func kindOf(v Value) string {
	switch v.(type) {
	case NumValue:
		return "number"
	case BoolValue:
		return "boolean"
	case StrValue:
		return "string"
	case ListValue:
		return "list"
	case FuncValue:
		return "function"
	}
	return "unknown"
}
