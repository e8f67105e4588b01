package egraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

// ErrGraphOverflow is returned when an insertion would exceed the node limit.
var ErrGraphOverflow = errors.New("e-graph node limit exceeded")

// DefaultNodeLimit bounds the number of distinct e-nodes in one graph.
const DefaultNodeLimit = 50_000

// ClassID identifies an equivalence class. Ids are indices into the arena.
type ClassID int

// ENode is a term node whose children are equivalence classes.
type ENode struct {
	Kind     ir.Kind
	Payload  string
	Children []ClassID
}

// key is the hash-cons key of a node with canonical children.
func (n ENode) key() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(n.Kind)))
	sb.WriteByte('|')
	sb.WriteString(n.Payload)
	for _, c := range n.Children {
		sb.WriteByte('|')
		sb.WriteString(strconv.Itoa(int(c)))
	}
	return sb.String()
}

// parent records that node (living in class) uses a class as a child.
type parent struct {
	node  ENode
	class ClassID
}

// EClass is a set of equivalent e-nodes.
type EClass struct {
	ID      ClassID
	Nodes   []ENode
	parents []parent

	// names holds every variable name occurring in a term of the class and
	// free the free ones. Both over-approximate and only grow.
	names *set.Set[string]
	free  *set.Set[string]
}

// EGraph stores many equivalent terms compactly. Classes live in an arena
// indexed by ClassID; merged classes leave a nil slot behind and are reached
// through the union-find.
type EGraph struct {
	uf       []ClassID
	ranks    []uint8
	classes  []*EClass
	memo     map[string]ClassID
	worklist []ClassID

	names *set.Set[string] // variable and binder names of inserted terms
	nodes int
	limit int

	effectful func(string) bool

	applied    []string
	appliedSet *set.Set[string]
}

// Option configures an EGraph.
type Option func(*EGraph)

// WithNodeLimit overrides DefaultNodeLimit.
func WithNodeLimit(limit int) Option {
	return func(g *EGraph) {
		if limit > 0 {
			g.limit = limit
		}
	}
}

// WithEffectful sets the names that make a class fail "pure" guards.
func WithEffectful(effectful func(string) bool) Option {
	return func(g *EGraph) { g.effectful = effectful }
}

// New creates an empty e-graph.
func New(opts ...Option) *EGraph {
	g := &EGraph{
		memo:       make(map[string]ClassID),
		names:      set.New[string](16),
		limit:      DefaultNodeLimit,
		appliedSet: set.New[string](8),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Find returns the canonical id of the class containing id.
func (g *EGraph) Find(id ClassID) ClassID {
	root := id
	for g.uf[root] != root {
		root = g.uf[root]
	}
	for id != root {
		next := g.uf[id]
		g.uf[id] = root
		id = next
	}
	return root
}

// Class returns the live class containing id.
func (g *EGraph) Class(id ClassID) *EClass {
	return g.classes[g.Find(id)]
}

// Add inserts t and returns the class that now contains it.
func (g *EGraph) Add(t ir.Term) (ClassID, error) {
	if err := ir.Validate(t); err != nil {
		return 0, err
	}
	ir.Walk(t, func(n ir.Term) bool {
		switch node := n.(type) {
		case ir.Var:
			g.names.Insert(node.Name)
		case ir.Lam:
			g.names.Insert(node.Param)
		}
		return true
	})
	return g.addTerm(t)
}

func (g *EGraph) addTerm(t ir.Term) (ClassID, error) {
	kids := ir.Children(t)
	children := make([]ClassID, len(kids))
	for i, c := range kids {
		id, err := g.addTerm(c)
		if err != nil {
			return 0, err
		}
		children[i] = id
	}
	return g.AddNode(ENode{Kind: t.Kind(), Payload: ir.Payload(t), Children: children})
}

// AddNode inserts a single e-node whose children are already in the graph.
func (g *EGraph) AddNode(n ENode) (ClassID, error) {
	n = g.canonicalize(n)
	k := n.key()
	if id, ok := g.memo[k]; ok {
		return g.Find(id), nil
	}
	if g.nodes >= g.limit {
		return 0, fmt.Errorf("%w: %d nodes", ErrGraphOverflow, g.limit)
	}

	id := ClassID(len(g.uf))
	names, free := g.nodeData(n)
	g.uf = append(g.uf, id)
	g.ranks = append(g.ranks, 0)
	g.classes = append(g.classes, &EClass{ID: id, Nodes: []ENode{n}, names: names, free: free})
	for _, c := range n.Children {
		child := g.classes[c]
		child.parents = append(child.parents, parent{node: n, class: id})
	}
	g.memo[k] = id
	g.nodes++
	return id, nil
}

func (g *EGraph) canonicalize(n ENode) ENode {
	children := make([]ClassID, len(n.Children))
	for i, c := range n.Children {
		children[i] = g.Find(c)
	}
	return ENode{Kind: n.Kind, Payload: n.Payload, Children: children}
}

// Union merges the classes of a and b. It reports whether anything changed.
// Congruence is restored lazily by Rebuild.
func (g *EGraph) Union(a, b ClassID) (ClassID, bool) {
	ra, rb := g.Find(a), g.Find(b)
	if ra == rb {
		return ra, false
	}

	// union by rank
	if g.ranks[ra] < g.ranks[rb] {
		ra, rb = rb, ra
	}
	g.uf[rb] = ra
	if g.ranks[ra] == g.ranks[rb] {
		g.ranks[ra]++
	}

	dst, src := g.classes[ra], g.classes[rb]
	dst.Nodes = append(dst.Nodes, src.Nodes...)
	dst.parents = append(dst.parents, src.parents...)
	grewDst := dst.names.InsertSet(src.names)
	grewDst = dst.free.InsertSet(src.free) || grewDst
	grewSrc := dst.names.Size() != src.names.Size() || dst.free.Size() != src.free.Size()
	g.classes[rb] = nil

	if grewDst || grewSrc {
		g.propagate(ra)
	}
	g.worklist = append(g.worklist, ra)
	return ra, true
}

// Rebuild restores the congruence invariant: e-nodes with equal kinds,
// payloads and canonical children live in the same class. It returns the
// number of unions it performed.
func (g *EGraph) Rebuild() int {
	unions := 0
	for len(g.worklist) > 0 {
		todo := set.New[ClassID](len(g.worklist))
		for _, id := range g.worklist {
			todo.Insert(g.Find(id))
		}
		g.worklist = g.worklist[:0]
		for id := range todo.Items() {
			unions += g.repair(id)
		}
	}
	g.dedupe()
	return unions
}

func (g *EGraph) repair(id ClassID) int {
	class := g.classes[g.Find(id)]
	if class == nil {
		return 0
	}

	for i, p := range class.parents {
		delete(g.memo, p.node.key())
		p.node = g.canonicalize(p.node)
		g.memo[p.node.key()] = g.Find(p.class)
		class.parents[i] = p
	}

	unions := 0
	seen := make(map[string]int, len(class.parents))
	kept := class.parents[:0]
	for _, p := range class.parents {
		k := g.canonicalize(p.node).key()
		if j, ok := seen[k]; ok {
			if _, merged := g.Union(kept[j].class, p.class); merged {
				unions++
			}
			kept[j].class = g.Find(kept[j].class)
			continue
		}
		p.class = g.Find(p.class)
		seen[k] = len(kept)
		kept = append(kept, p)
	}
	// a union above may have moved this class's parents elsewhere
	if live := g.classes[g.Find(id)]; live == class {
		class.parents = kept
	}
	return unions
}

// dedupe canonicalizes and deduplicates the node lists of all live classes.
func (g *EGraph) dedupe() {
	total := 0
	for _, class := range g.classes {
		if class == nil {
			continue
		}
		seen := make(map[string]struct{}, len(class.Nodes))
		kept := class.Nodes[:0]
		for _, n := range class.Nodes {
			n = g.canonicalize(n)
			k := n.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			g.memo[k] = class.ID
			kept = append(kept, n)
		}
		class.Nodes = kept
		total += len(kept)
	}
	g.nodes = total
}

// Classes returns the live classes.
func (g *EGraph) Classes() []*EClass {
	out := make([]*EClass, 0, len(g.classes))
	for _, c := range g.classes {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ClassCount returns the number of live classes.
func (g *EGraph) ClassCount() int {
	n := 0
	for _, c := range g.classes {
		if c != nil {
			n++
		}
	}
	return n
}

// NodeCount returns the number of distinct e-nodes.
func (g *EGraph) NodeCount() int {
	return g.nodes
}

// Lookup returns the class of t without inserting anything.
func (g *EGraph) Lookup(t ir.Term) (ClassID, bool) {
	kids := ir.Children(t)
	children := make([]ClassID, len(kids))
	for i, c := range kids {
		id, ok := g.Lookup(c)
		if !ok {
			return 0, false
		}
		children[i] = id
	}
	n := g.canonicalize(ENode{Kind: t.Kind(), Payload: ir.Payload(t), Children: children})
	id, ok := g.memo[n.key()]
	if !ok {
		return 0, false
	}
	return g.Find(id), true
}

// Equivalent reports whether a and b are both present and proven equal.
func (g *EGraph) Equivalent(a, b ir.Term) bool {
	ia, ok := g.Lookup(a)
	if !ok {
		return false
	}
	ib, ok := g.Lookup(b)
	return ok && ia == ib
}

// Applied returns the ids of rules that changed the graph, in first-fired order.
func (g *EGraph) Applied() []string {
	out := make([]string, len(g.applied))
	copy(out, g.applied)
	return out
}

func (g *EGraph) recordApplied(id string) {
	if g.appliedSet.Insert(id) {
		g.applied = append(g.applied, id)
	}
}

// freshBinder returns the i-th generated binder name. Generated names avoid
// every name of the inserted terms, and are stable for a given graph so that
// re-applying a rule to the same match reuses the existing nodes.
func (g *EGraph) freshBinder(i int) string {
	n := 0
	for k := 1; ; k++ {
		name := "v_" + strconv.Itoa(k)
		if g.names.Contains(name) {
			continue
		}
		if n == i {
			return name
		}
		n++
	}
}
