package depgraph

import (
	"slices"
)

// Cycle is one strongly connected component that forms a dependency cycle:
// more than one module, or a single module importing itself. Members are
// sorted by name.
type Cycle struct {
	Members []ModuleID
}

// Cycles runs Tarjan's algorithm with an explicit stack and returns the
// cyclic components ordered by their first member.
func (g *Graph) Cycles() []Cycle {
	n := len(g.Edges)
	const unvisited = -1
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	type frame struct {
		node ModuleID
		next int // next edge to explore
	}
	var (
		counter int
		stack   []ModuleID
		cycles  []Cycle
	)

	for root := range n {
		if index[root] != unvisited {
			continue
		}
		call := []frame{{node: toModuleID(root)}}
		index[root], low[root] = counter, counter
		counter++
		stack = append(stack, toModuleID(root))
		onStack[root] = true

		for len(call) > 0 {
			top := &call[len(call)-1]
			v := top.node
			if top.next < len(g.Edges[v]) {
				w := g.Edges[v][top.next].To
				top.next++
				switch {
				case index[w] == unvisited:
					index[w], low[w] = counter, counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					call = append(call, frame{node: w})
				case onStack[w]:
					low[v] = min(low[v], index[w])
				}
				continue
			}

			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := call[len(call)-1].node
				low[parent] = min(low[parent], low[v])
			}
			if low[v] != index[v] {
				continue
			}
			var members []ModuleID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				members = append(members, w)
				if w == v {
					break
				}
			}
			if len(members) > 1 || g.hasSelfEdge(v) {
				slices.Sort(members)
				cycles = append(cycles, Cycle{Members: members})
			}
		}
	}

	slices.SortFunc(cycles, func(a, b Cycle) int {
		return int(a.Members[0]) - int(b.Members[0])
	})
	return cycles
}

func (g *Graph) hasSelfEdge(v ModuleID) bool {
	for _, e := range g.Edges[v] {
		if e.To == v {
			return true
		}
	}
	return false
}

// InCycle reports whether a module belongs to any dependency cycle.
func (g *Graph) InCycle(name string) bool {
	id, ok := g.Index.NameToID[name]
	if !ok {
		return false
	}
	for _, c := range g.Cycles() {
		if slices.Contains(c.Members, id) {
			return true
		}
	}
	return false
}
