package ir

// Op is a binary operator.
type Op int

const (
	OpAdd Op = iota // +
	OpSub           // -
	OpMul           // *
	OpDiv           // /
	OpEq            // =
	OpLt            // <
	OpGt            // >
	OpAnd           // and
	OpOr            // or
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	default:
		return "?"
	}
}

// IsArithmetic reports whether op maps numbers to a number.
func (op Op) IsArithmetic() bool {
	return op == OpAdd || op == OpSub || op == OpMul || op == OpDiv
}

// IsComparison reports whether op maps two values to a boolean.
func (op Op) IsComparison() bool {
	return op == OpEq || op == OpLt || op == OpGt
}

// IsLogical reports whether op combines booleans.
func (op Op) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// ParseOp returns the operator spelled s.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return OpDiv, true
	case "=":
		return OpEq, true
	case "<":
		return OpLt, true
	case ">":
		return OpGt, true
	case "and":
		return OpAnd, true
	case "or":
		return OpOr, true
	}
	return 0, false
}

// FocusMode selects how a Focus splits its input.
type FocusMode int

const (
	// FocusHard keeps an element when the weight predicate holds.
	FocusHard FocusMode = iota
	// FocusSoft blends Inside and Outside by a numeric attention weight.
	FocusSoft
	// FocusSpatial selects by position rather than by value.
	FocusSpatial
)

func (m FocusMode) String() string {
	switch m {
	case FocusHard:
		return "hard"
	case FocusSoft:
		return "soft"
	case FocusSpatial:
		return "spatial"
	default:
		return "?"
	}
}

// ParseFocusMode returns the mode spelled s.
func ParseFocusMode(s string) (FocusMode, bool) {
	switch s {
	case "hard":
		return FocusHard, true
	case "soft":
		return FocusSoft, true
	case "spatial":
		return FocusSpatial, true
	}
	return 0, false
}
