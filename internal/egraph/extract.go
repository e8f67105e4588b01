package egraph

import (
	"cmp"
	"slices"

	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// maxExtractRounds bounds the fixed point in bestTerms.
const maxExtractRounds = 100

// Candidate is a term extracted from the graph together with its cost.
type Candidate struct {
	Term  ir.Term
	Cost  cost.Cost
	Score float64
}

// bestTerms computes, for each class, the lowest scoring term buildable from
// the best terms of its children. Classes with no finite term are absent.
func (g *EGraph) bestTerms(score func(ir.Term) float64) map[ClassID]ir.Term {
	best := make(map[ClassID]ir.Term, len(g.classes))
	scores := make(map[ClassID]float64, len(g.classes))

	for round := 0; round < maxExtractRounds; round++ {
		changed := false
		for _, class := range g.Classes() {
			for _, n := range class.Nodes {
				t, ok := g.build(n, best)
				if !ok {
					continue
				}
				s := score(t)
				if cur, seen := scores[class.ID]; !seen || s < cur {
					best[class.ID] = t
					scores[class.ID] = s
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return best
}

// build assembles n from the chosen terms of its children.
func (g *EGraph) build(n ENode, chosen map[ClassID]ir.Term) (ir.Term, bool) {
	children := make([]ir.Term, len(n.Children))
	for i, c := range n.Children {
		t, ok := chosen[g.Find(c)]
		if !ok {
			return nil, false
		}
		children[i] = t
	}
	t, err := ir.Make(n.Kind, n.Payload, children)
	if err != nil {
		return nil, false
	}
	return t, true
}

// Extract returns the lowest cost term of the class.
func (g *EGraph) Extract(root ClassID, model *cost.Model) (Candidate, bool) {
	out := g.ExtractMinK(root, model, 1)
	if len(out) == 0 {
		return Candidate{}, false
	}
	return out[0], true
}

// ExtractMinK returns up to k distinct low cost terms of the class, cheapest
// first. Besides the best term under each root node, it offers variants that
// swap one child for another member of that child's class.
func (g *EGraph) ExtractMinK(root ClassID, model *cost.Model, k int) []Candidate {
	if k <= 0 {
		return nil
	}
	g.Rebuild()
	best := g.bestTerms(model.Score)

	var terms []ir.Term
	for _, n := range g.Class(root).Nodes {
		if t, ok := g.build(n, best); ok {
			terms = append(terms, t)
		}
		for i, c := range n.Children {
			for _, alt := range g.Class(c).Nodes {
				altTerm, ok := g.build(alt, best)
				if !ok {
					continue
				}
				chosen := make(map[ClassID]ir.Term, len(n.Children))
				for j, other := range n.Children {
					if j == i {
						continue
					}
					chosen[g.Find(other)] = best[g.Find(other)]
				}
				t, ok := g.buildWith(n, i, altTerm, chosen)
				if ok {
					terms = append(terms, t)
				}
			}
		}
	}

	seen := make(map[string]struct{}, len(terms))
	out := make([]Candidate, 0, len(terms))
	for _, t := range terms {
		key := t.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c := model.Compute(t)
		out = append(out, Candidate{Term: t, Cost: c, Score: c.Score(model.Weights())})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Term.String(), b.Term.String())
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func (g *EGraph) buildWith(n ENode, pos int, alt ir.Term, chosen map[ClassID]ir.Term) (ir.Term, bool) {
	children := make([]ir.Term, len(n.Children))
	for i, c := range n.Children {
		if i == pos {
			children[i] = alt
			continue
		}
		t, ok := chosen[g.Find(c)]
		if !ok || t == nil {
			return nil, false
		}
		children[i] = t
	}
	t, err := ir.Make(n.Kind, n.Payload, children)
	if err != nil {
		return nil, false
	}
	return t, true
}
