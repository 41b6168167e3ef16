// Package callgraph links call sites to the definitions they invoke.
package callgraph

import (
	"codescope/internal/ast"
	"codescope/internal/symbols"
)

type CalleeKind uint8

const (
	CalleeUnresolved CalleeKind = iota
	CalleeFunction
	CalleeClass   // constructor call
	CalleeBuiltin // resolved, but there is no definition to point at
)

func (k CalleeKind) String() string {
	switch k {
	case CalleeFunction:
		return "function"
	case CalleeClass:
		return "class"
	case CalleeBuiltin:
		return "builtin"
	default:
		return "unresolved"
	}
}

// Edge is one call site. Callee is the def or class node for resolved
// edges; Hint renders the callee expression for every edge.
type Edge struct {
	Caller ast.NodeID
	Callee ast.NodeID
	Symbol symbols.SymbolID
	Site   ast.NodeID
	Kind   CalleeKind
	Hint   string
}

func (e Edge) Resolved() bool {
	return e.Kind == CalleeFunction || e.Kind == CalleeClass
}

// Graph holds exactly one edge per call site, ordered by module and then by
// scope and pre-order position within the module.
type Graph struct {
	Edges []Edge

	out    map[ast.NodeID][]int
	in     map[ast.NodeID][]int
	bySite map[ast.NodeID]int
}

func newGraph(edges []Edge) *Graph {
	g := &Graph{
		Edges:  edges,
		out:    make(map[ast.NodeID][]int),
		in:     make(map[ast.NodeID][]int),
		bySite: make(map[ast.NodeID]int, len(edges)),
	}
	for i, e := range edges {
		g.out[e.Caller] = append(g.out[e.Caller], i)
		if e.Callee.IsValid() {
			g.in[e.Callee] = append(g.in[e.Callee], i)
		}
		g.bySite[e.Site] = i
	}
	return g
}

// EdgeAt returns the edge of a call site.
func (g *Graph) EdgeAt(site ast.NodeID) (Edge, bool) {
	i, ok := g.bySite[site]
	if !ok {
		return Edge{}, false
	}
	return g.Edges[i], true
}

// From returns the outgoing edges of a function-like node.
func (g *Graph) From(fn ast.NodeID) []Edge {
	return g.pick(g.out[fn])
}

// To returns the resolved edges pointing at a def or class node.
func (g *Graph) To(fn ast.NodeID) []Edge {
	return g.pick(g.in[fn])
}

func (g *Graph) pick(idx []int) []Edge {
	out := make([]Edge, len(idx))
	for i, e := range idx {
		out[i] = g.Edges[e]
	}
	return out
}

// FanOut counts the call sites in fn, resolved or not.
func (g *Graph) FanOut(fn ast.NodeID) int { return len(g.out[fn]) }

// FanIn counts resolved call sites targeting fn.
func (g *Graph) FanIn(fn ast.NodeID) int { return len(g.in[fn]) }

// Unresolved returns the edges whose callee could not be determined.
func (g *Graph) Unresolved() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Kind == CalleeUnresolved {
			out = append(out, e)
		}
	}
	return out
}
