package learner

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/rules"
)

// ErrNotNovel is returned when discovery produces an already known pattern.
var ErrNotNovel = errors.New("pattern is not novel")

// ErrTooFewTraces is returned when discovery has fewer than two traces.
var ErrTooFewTraces = errors.New("discovery needs at least two traces")

// Trace is one observed rewrite.
type Trace struct {
	Before    ir.Term
	After     ir.Term
	Rule      string
	CostDelta float64
}

// antiUnifier computes least general generalizations. Pairs of differing
// subterms map to the same variable everywhere, so the generalization of two
// "after" terms can reuse the variables of their "before" terms.
type antiUnifier struct {
	vars map[string]string
	next int
}

func newAntiUnifier() *antiUnifier {
	return &antiUnifier{vars: make(map[string]string)}
}

func (au *antiUnifier) variable(a, b ir.Term) rules.Pattern {
	key := a.String() + "\x00" + b.String()
	name, ok := au.vars[key]
	if !ok {
		au.next++
		name = "x" + strconv.Itoa(au.next)
		au.vars[key] = name
	}
	return rules.PVar{Name: name}
}

// generalize anti-unifies a and b. Variables and lambdas are always
// generalized, since pattern binders cannot name them.
func (au *antiUnifier) generalize(a, b ir.Term) rules.Pattern {
	if a.Kind() != b.Kind() || ir.Payload(a) != ir.Payload(b) {
		return au.variable(a, b)
	}
	switch a.Kind() {
	case ir.KindVar, ir.KindLam:
		return au.variable(a, b)
	}

	ca, cb := ir.Children(a), ir.Children(b)
	children := make([]rules.Pattern, len(ca))
	for i := range ca {
		children[i] = au.generalize(ca[i], cb[i])
	}
	return rules.PNode{Kind: a.Kind(), Payload: ir.Payload(a), Children: children}
}

// AntiUnify returns the least general pattern matching both terms.
func AntiUnify(a, b ir.Term) rules.Pattern {
	return newAntiUnifier().generalize(a, b)
}

// Discoverer proposes rules from pairs of traces.
type Discoverer struct {
	archive *Archive
	count   atomic.Int64
}

// NewDiscoverer creates a discoverer with an empty novelty archive.
func NewDiscoverer() *Discoverer {
	return &Discoverer{archive: NewArchive()}
}

// Archive returns the novelty archive.
func (d *Discoverer) Archive() *Archive {
	return d.archive
}

// Discover anti-unifies the first two traces into a candidate rule. Every
// pattern variable of the candidate carries a purity guard. The pattern is not
// archived until the caller accepts the rule.
func (d *Discoverer) Discover(traces []Trace) (rules.Rule, error) {
	if len(traces) < 2 {
		return rules.Rule{}, ErrTooFewTraces
	}

	au := newAntiUnifier()
	pattern := au.generalize(traces[0].Before, traces[1].Before)
	rewrite := au.generalize(traces[0].After, traces[1].After)
	if _, bare := pattern.(rules.PVar); bare {
		return rules.Rule{}, fmt.Errorf("%w: traces share no structure", rules.ErrMalformedRule)
	}
	if !d.archive.IsNovel(pattern) {
		return rules.Rule{}, ErrNotNovel
	}

	n := d.count.Add(1)
	r := rules.Rule{
		ID:      fmt.Sprintf("discovered-%d", n),
		Name:    "discovered pattern",
		Pattern: pattern,
		Rewrite: rewrite,
	}
	for _, v := range rules.Vars(pattern).Slice() {
		r.Guards = append(r.Guards, rules.Pure(v))
	}
	if err := r.Validate(); err != nil {
		return rules.Rule{}, err
	}
	return r, nil
}

// Accept archives the pattern of a verified rule so it is not proposed again.
func (d *Discoverer) Accept(r rules.Rule) bool {
	return d.archive.Record(r.Pattern)
}
