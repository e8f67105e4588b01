package verify

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

var identity = FuncValue{Name: "id", Fn: func(v Value) (Value, error) { return v, nil }}

func unaryNum(name string, fn func(int64) int64) FuncValue {
	return FuncValue{Name: name, Fn: func(v Value) (Value, error) {
		n, ok := v.(NumValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrRuntime, name, kindOf(v))
		}
		return NumValue{fn(n.Val)}, nil
	}}
}

func predicate(name string, fn func(int64) bool) FuncValue {
	return FuncValue{Name: name, Fn: func(v Value) (Value, error) {
		n, ok := v.(NumValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrRuntime, name, kindOf(v))
		}
		return BoolValue{fn(n.Val)}, nil
	}}
}

func binaryNum(name string, fn func(a, b int64) int64) FuncValue {
	return FuncValue{Name: name, Fn: func(a Value) (Value, error) {
		x, ok := a.(NumValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrRuntime, name, kindOf(a))
		}
		return unaryNum(name, func(y int64) int64 { return fn(x.Val, y) }), nil
	}}
}

// prelude holds the pure builtins every term may reference.
var prelude = map[string]Value{
	"inc":        unaryNum("inc", func(n int64) int64 { return n + 1 }),
	"dec":        unaryNum("dec", func(n int64) int64 { return n - 1 }),
	"double":     unaryNum("double", func(n int64) int64 { return n * 2 }),
	"square":     unaryNum("square", func(n int64) int64 { return n * n }),
	"negate":     unaryNum("negate", func(n int64) int64 { return -n }),
	"isEven":     predicate("isEven", func(n int64) bool { return n%2 == 0 }),
	"isOdd":      predicate("isOdd", func(n int64) bool { return n%2 != 0 }),
	"isPositive": predicate("isPositive", func(n int64) bool { return n > 0 }),
	"add":        binaryNum("add", func(a, b int64) int64 { return a + b }),
	"mul":        binaryNum("mul", func(a, b int64) int64 { return a * b }),
	"max":        binaryNum("max", func(a, b int64) int64 { return max(a, b) }),
	"min":        binaryNum("min", func(a, b int64) int64 { return min(a, b) }),
}

// IsBuiltin reports whether name refers to a prelude function.
func IsBuiltin(name string) bool {
	_, ok := prelude[name]
	return ok
}

// Builtins returns the names of the prelude functions, sorted.
func Builtins() []string {
	names := lo.Keys(prelude)
	slices.Sort(names)
	return names
}
