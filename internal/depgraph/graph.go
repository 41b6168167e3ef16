// Package depgraph aggregates cross-module references into a module graph.
package depgraph

import (
	"slices"

	"codescope/internal/ast"
)

// Edge collapses every reference from one module to another. Site is the
// first import statement of From that points at To, NoNodeID when the
// dependency comes from symbol uses only.
type Edge struct {
	From    ModuleID
	To      ModuleID
	Imports int
	Uses    int
	Site    ast.NodeID
}

type Graph struct {
	Index ModuleIndex
	Edges [][]Edge // Edges[from], sorted by To

	Externals map[string][]string // module -> imported modules outside the Program
}

func newGraph(idx ModuleIndex) *Graph {
	return &Graph{
		Index:     idx,
		Edges:     make([][]Edge, idx.Len()),
		Externals: make(map[string][]string),
	}
}

// Edge returns the collapsed edge from -> to.
func (g *Graph) Edge(from, to string) (Edge, bool) {
	a, okA := g.Index.NameToID[from]
	b, okB := g.Index.NameToID[to]
	if !okA || !okB {
		return Edge{}, false
	}
	i, found := slices.BinarySearchFunc(g.Edges[a], b, func(e Edge, t ModuleID) int {
		return int(e.To) - int(t)
	})
	if !found {
		return Edge{}, false
	}
	return g.Edges[a][i], true
}

// AllEdges lists every edge ordered by (From, To).
func (g *Graph) AllEdges() []Edge {
	var out []Edge
	for _, list := range g.Edges {
		out = append(out, list...)
	}
	return out
}

// Succ returns the names of the modules from depends on.
func (g *Graph) Succ(from string) []string {
	id, ok := g.Index.NameToID[from]
	if !ok {
		return nil
	}
	out := make([]string, len(g.Edges[id]))
	for i, e := range g.Edges[id] {
		out[i] = g.Index.Name(e.To)
	}
	return out
}

type ref struct {
	from, to ModuleID
	imports  int
	uses     int
	site     ast.NodeID
}

// add merges one reference into the graph; edge lists stay sorted by To.
func (g *Graph) add(r ref) {
	list := g.Edges[r.from]
	i, found := slices.BinarySearchFunc(list, r.to, func(e Edge, t ModuleID) int {
		return int(e.To) - int(t)
	})
	if !found {
		list = slices.Insert(list, i, Edge{From: r.from, To: r.to})
		g.Edges[r.from] = list
	}
	e := &g.Edges[r.from][i]
	e.Imports += r.imports
	e.Uses += r.uses
	if !e.Site.IsValid() && r.site.IsValid() {
		e.Site = r.site
	}
}
