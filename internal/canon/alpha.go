package canon

import (
	"strconv"

	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// AlphaNormalize renames every binder of t to v0, v1, ... in pre-order.
// Names that occur free in t are skipped so free variables are never captured.
func AlphaNormalize(t ir.Term) ir.Term {
	r := &renamer{
		free:  ir.FreeVars(t),
		scope: make(map[string]string),
	}
	return r.rename(t)
}

type renamer struct {
	free    *set.Set[string]
	scope   map[string]string
	counter int
}

func (r *renamer) next() string {
	for {
		name := "v" + strconv.Itoa(r.counter)
		r.counter++
		if !r.free.Contains(name) {
			return name
		}
	}
}

func (r *renamer) rename(t ir.Term) ir.Term {
	switch node := t.(type) {
	case ir.Var:
		if mapped, ok := r.scope[node.Name]; ok {
			return ir.Var{Name: mapped}
		}
		return node

	case ir.Lam:
		fresh := r.next()
		prev, shadowed := r.scope[node.Param]
		r.scope[node.Param] = fresh
		body := r.rename(node.Body)
		if shadowed {
			r.scope[node.Param] = prev
		} else {
			delete(r.scope, node.Param)
		}
		return ir.Lam{Param: fresh, Body: body}
	}

	kids := ir.Children(t)
	if len(kids) == 0 {
		return t
	}
	next := make([]ir.Term, len(kids))
	for i, c := range kids {
		next[i] = r.rename(c)
	}
	out, err := ir.Rebuild(t, next)
	if err != nil {
		return t
	}
	return out
}
