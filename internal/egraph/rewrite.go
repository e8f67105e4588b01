package egraph

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/rules"
)

// MaxMatches caps the number of matches a single Search returns.
const MaxMatches = 1000

// Match is one occurrence of a rule pattern.
type Match struct {
	Root     ClassID
	Bindings map[string]ClassID
}

// Search finds occurrences of the rule's pattern in the graph.
func (g *EGraph) Search(r rules.Rule) []Match {
	var out []Match
	for _, class := range g.Classes() {
		root := class.ID
		g.matchClass(r.Pattern, root, map[string]ClassID{}, func(b map[string]ClassID) bool {
			out = append(out, Match{Root: root, Bindings: b})
			return len(out) < MaxMatches
		})
		if len(out) >= MaxMatches {
			break
		}
	}
	return out
}

// matchClass calls yield for every way p matches the class. Returning false
// from yield stops the search; matchClass then returns false as well.
func (g *EGraph) matchClass(p rules.Pattern, id ClassID, b map[string]ClassID, yield func(map[string]ClassID) bool) bool {
	id = g.Find(id)

	switch pat := p.(type) {
	case rules.PVar:
		if bound, ok := b[pat.Name]; ok {
			if g.Find(bound) != id {
				return true
			}
			return yield(b)
		}
		next := make(map[string]ClassID, len(b)+1)
		for k, v := range b {
			next[k] = v
		}
		next[pat.Name] = id
		return yield(next)

	case rules.PNode:
		class := g.classes[id]
		for _, n := range class.Nodes {
			if n.Kind != pat.Kind || len(n.Children) != len(pat.Children) || !rules.PayloadMatches(pat, n.Payload) {
				continue
			}
			if !g.matchChildren(pat.Children, n.Children, b, yield) {
				return false
			}
		}
	}
	return true
}

func (g *EGraph) matchChildren(pats []rules.Pattern, ids []ClassID, b map[string]ClassID, yield func(map[string]ClassID) bool) bool {
	if len(pats) == 0 {
		return yield(b)
	}
	return g.matchClass(pats[0], ids[0], b, func(next map[string]ClassID) bool {
		return g.matchChildren(pats[1:], ids[1:], next, yield)
	})
}

// ApplyRule instantiates the rule's rewrite for m and merges it with the
// matched class. It reports whether the graph changed. Matches whose guards
// fail are skipped.
func (g *EGraph) ApplyRule(r rules.Rule, m Match) (bool, error) {
	if !r.Admits(&classOracle{g: g, bindings: m.Bindings}) {
		return false, nil
	}

	fb := &freshBinders{g: g, avoid: set.New[string](4), names: map[string]string{}}
	for _, id := range m.Bindings {
		fb.avoid.InsertSet(g.freeNames(id))
	}
	id, err := g.instantiate(r.Rewrite, m.Bindings, fb)
	if err != nil {
		return false, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	before := g.NodeCount()
	_, merged := g.Union(m.Root, id)
	changed := merged || g.nodes != before
	if changed {
		g.recordApplied(r.ID)
	}
	return changed, nil
}

// Saturate applies every rule to every match until nothing changes or
// maxIterations rounds have run. It returns the number of rounds.
func (g *EGraph) Saturate(rs []rules.Rule, maxIterations int) (int, error) {
	for i := 0; i < maxIterations; i++ {
		changed := false
		for _, r := range rs {
			for _, m := range g.Search(r) {
				ok, err := g.ApplyRule(r, m)
				if err != nil {
					return i, err
				}
				changed = changed || ok
			}
		}
		g.Rebuild()
		if !changed {
			return i + 1, nil
		}
	}
	return maxIterations, nil
}

type freshBinders struct {
	g     *EGraph
	avoid *set.Set[string]
	names map[string]string
	next  int
}

// name returns the generated name of a rewrite binder label. The k-th label
// of a rewrite always receives the k-th admissible name, so applying the same
// rule twice to the same match builds the same nodes.
func (fb *freshBinders) name(label string) string {
	if n, ok := fb.names[label]; ok {
		return n
	}
	for {
		n := fb.g.freshBinder(fb.next)
		fb.next++
		if !fb.avoid.Contains(n) {
			fb.names[label] = n
			return n
		}
	}
}

func (g *EGraph) instantiate(p rules.Pattern, b map[string]ClassID, fb *freshBinders) (ClassID, error) {
	switch pat := p.(type) {
	case rules.PVar:
		id, ok := b[pat.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", rules.ErrUnboundVariable, pat)
		}
		return g.Find(id), nil

	case rules.PNode:
		payload := pat.Payload
		if rules.IsFreshBinder(payload) && (pat.Kind == ir.KindLam || pat.Kind == ir.KindVar) {
			payload = fb.name(payload)
		}
		children := make([]ClassID, len(pat.Children))
		for i, c := range pat.Children {
			id, err := g.instantiate(c, b, fb)
			if err != nil {
				return 0, err
			}
			children[i] = id
		}
		return g.AddNode(ENode{Kind: pat.Kind, Payload: payload, Children: children})
	}
	return 0, fmt.Errorf("%w: unknown pattern %T", rules.ErrMalformedRule, p)
}

// classOracle answers guard questions about e-classes.
type classOracle struct {
	g        *EGraph
	bindings map[string]ClassID
}

func (o *classOracle) Pure(v string) bool {
	id, ok := o.bindings[v]
	if !ok {
		return false
	}
	if o.g.effectful == nil {
		return true
	}
	for name := range o.g.Class(id).names.Items() {
		if o.g.effectful(name) {
			return false
		}
	}
	return true
}

func (o *classOracle) Literal(v string) bool {
	id, ok := o.bindings[v]
	if !ok {
		return false
	}
	return slices.ContainsFunc(o.g.Class(id).Nodes, func(n ENode) bool {
		switch n.Kind {
		case ir.KindNum, ir.KindBool, ir.KindStr:
			return true
		}
		return false
	})
}

func (o *classOracle) Closed(v string) bool {
	id, ok := o.bindings[v]
	return ok && o.g.freeNames(id).Empty()
}

// freeNames over-approximates the free variables of every term in the class.
func (g *EGraph) freeNames(id ClassID) *set.Set[string] {
	return g.Class(id).free
}
