package rules

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// CostHint records the expected effect of a rule. Rules without a hint are
// neutral reshapings such as reassociation.
type CostHint struct {
	ReduceAllocs int `yaml:"reduce_allocs,omitempty"`
	ReduceCycles int `yaml:"reduce_cycles,omitempty"`
	ReduceBytes  int `yaml:"reduce_bytes,omitempty"`
}

// Rule is an immutable pattern -> rewrite pair with guards.
type Rule struct {
	ID       string
	Name     string
	Pattern  Pattern
	Rewrite  Pattern
	Guards   []Guard
	CostHint *CostHint
}

func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteString(r.ID)
	sb.WriteString(": ")
	sb.WriteString(r.Pattern.String())
	sb.WriteString(" => ")
	sb.WriteString(r.Rewrite.String())
	for _, g := range r.Guards {
		sb.WriteString(" if ")
		sb.WriteString(g.String())
	}
	return sb.String()
}

// RootKind is the node kind the pattern matches at its root.
func (r Rule) RootKind() ir.Kind {
	if n, ok := r.Pattern.(PNode); ok {
		return n.Kind
	}
	return -1
}

// Option configures a rule built by New.
type Option func(*Rule)

// WithName sets a human readable name.
func WithName(name string) Option {
	return func(r *Rule) { r.Name = name }
}

// WithGuards adds guards to the rule.
func WithGuards(guards ...Guard) Option {
	return func(r *Rule) { r.Guards = append(r.Guards, guards...) }
}

// WithCostHint attaches a cost hint.
func WithCostHint(h CostHint) Option {
	return func(r *Rule) { r.CostHint = &h }
}

// New parses pattern and rewrite and validates the resulting rule.
func New(id, pattern, rewrite string, opts ...Option) (Rule, error) {
	pat, err := ParsePattern(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: rule %s: pattern: %w", ErrMalformedRule, id, err)
	}
	rw, err := ParsePattern(rewrite)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: rule %s: rewrite: %w", ErrMalformedRule, id, err)
	}

	r := Rule{ID: id, Name: id, Pattern: pat, Rewrite: rw}
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// MustNew is New for rules known to be valid. It panics on error.
func MustNew(id, pattern, rewrite string, opts ...Option) Rule {
	r, err := New(id, pattern, rewrite, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks that the rule can never fail to instantiate:
// every rewrite variable is bound by the pattern, every guard names a
// pattern variable, and fresh binders only appear in the rewrite.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty rule id", ErrMalformedRule)
	}
	if r.Pattern == nil || r.Rewrite == nil {
		return fmt.Errorf("%w: rule %s: missing pattern or rewrite", ErrMalformedRule, r.ID)
	}
	if _, bare := r.Pattern.(PVar); bare {
		return fmt.Errorf("%w: rule %s: pattern must not be a bare variable", ErrMalformedRule, r.ID)
	}

	bound := Vars(r.Pattern)
	for _, v := range Vars(r.Rewrite).Slice() {
		if !bound.Contains(v) {
			return fmt.Errorf("%w: rule %s: %w: ?%s", ErrMalformedRule, r.ID, ErrUnboundVariable, v)
		}
	}
	for _, g := range r.Guards {
		if !bound.Contains(g.Var) {
			return fmt.Errorf("%w: rule %s: guard %s names an unbound variable", ErrMalformedRule, r.ID, g)
		}
	}

	var bad error
	walkPattern(r.Pattern, func(p Pattern) {
		if n, ok := p.(PNode); ok && IsFreshBinder(n.Payload) && bad == nil {
			bad = fmt.Errorf("%w: rule %s: fresh binder %s in pattern", ErrMalformedRule, r.ID, n.Payload)
		}
	})
	if bad != nil {
		return bad
	}
	if err := checkBinderScopes(r.Rewrite, map[string]bool{}); err != nil {
		return fmt.Errorf("%w: rule %s: %w", ErrMalformedRule, r.ID, err)
	}
	return nil
}

func checkBinderScopes(p Pattern, scope map[string]bool) error {
	n, ok := p.(PNode)
	if !ok {
		return nil
	}
	switch {
	case n.Kind == ir.KindLam && n.Payload == AnyBinder:
		return fmt.Errorf("binder %q in rewrite", AnyBinder)
	case n.Kind == ir.KindLam && IsFreshBinder(n.Payload):
		inner := make(map[string]bool, len(scope)+1)
		for k := range scope {
			inner[k] = true
		}
		inner[n.Payload] = true
		scope = inner
	case n.Kind == ir.KindVar && IsFreshBinder(n.Payload):
		if !scope[n.Payload] {
			return fmt.Errorf("%w: binder %s used outside its lambda", ErrUnboundVariable, n.Payload)
		}
	}
	for _, c := range n.Children {
		if err := checkBinderScopes(c, scope); err != nil {
			return err
		}
	}
	return nil
}

// Apply rewrites t at its root. It reports false when the pattern does not
// match or a guard fails.
func (r Rule) Apply(t ir.Term, pure func(ir.Term) bool) (ir.Term, bool, error) {
	b, ok := Match(r.Pattern, t)
	if !ok {
		return nil, false, nil
	}
	if !r.Admits(TermOracle{Bindings: b, IsPure: pure}) {
		return nil, false, nil
	}
	out, err := Instantiate(r.Rewrite, b)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Admits reports whether every guard holds.
func (r Rule) Admits(o Oracle) bool {
	for _, g := range r.Guards {
		if !g.Holds(o) {
			return false
		}
	}
	return true
}
