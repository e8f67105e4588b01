package egraph

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// nodeData computes the variable names and free names of a node from the
// current data of its children.
func (g *EGraph) nodeData(n ENode) (names, free *set.Set[string]) {
	names, free = set.New[string](4), set.New[string](4)
	switch n.Kind {
	case ir.KindVar:
		names.Insert(n.Payload)
		free.Insert(n.Payload)
	case ir.KindLam:
		body := g.Class(n.Children[0])
		names.InsertSet(body.names)
		for name := range body.free.Items() {
			if name != n.Payload {
				free.Insert(name)
			}
		}
	default:
		for _, c := range n.Children {
			child := g.Class(c)
			names.InsertSet(child.names)
			free.InsertSet(child.free)
		}
	}
	return names, free
}

// propagate pushes grown class data up through the parents of id until
// nothing changes. Sets only grow, so this terminates.
func (g *EGraph) propagate(id ClassID) {
	pending := []ClassID{id}
	for len(pending) > 0 {
		c := g.Class(pending[len(pending)-1])
		pending = pending[:len(pending)-1]
		for _, p := range c.parents {
			names, free := g.nodeData(p.node)
			owner := g.Class(p.class)
			grew := owner.names.InsertSet(names)
			grew = owner.free.InsertSet(free) || grew
			if grew {
				pending = append(pending, owner.ID)
			}
		}
	}
}
