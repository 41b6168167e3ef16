package depgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []ModuleID   // линейный порядок: зависимости раньше зависящих
	Batches [][]ModuleID // волны независимых модулей
	Cyclic  bool
	Cycles  []ModuleID // узлы, оставшиеся в цикле
}

// ToposortKahn orders modules so that every module comes after the modules
// it depends on. Edges point from importer to imported, so the sort runs on
// out-degrees. Self edges are ignored here and reported by SCCs.
func ToposortKahn(g *Graph) *Topo {
	nodeCount := len(g.Edges)
	outdeg := make([]int, nodeCount)
	rev := make([][]ModuleID, nodeCount)
	for from, list := range g.Edges {
		for _, e := range list {
			if int(e.To) == from {
				continue
			}
			outdeg[from]++
			rev[e.To] = append(rev[e.To], e.From)
		}
	}

	topo := &Topo{
		Order:   make([]ModuleID, 0, nodeCount),
		Batches: make([][]ModuleID, 0),
	}

	current := make([]ModuleID, 0, nodeCount)
	for i := range nodeCount {
		if outdeg[i] == 0 {
			current = append(current, toModuleID(i))
		}
	}

	visited := 0
	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]ModuleID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, from := range rev[int(id)] {
				outdeg[int(from)]--
				if outdeg[int(from)] == 0 {
					next = append(next, from)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != nodeCount {
		topo.Cyclic = true
		for i := range nodeCount {
			if outdeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, toModuleID(i))
			}
		}
	}
	return topo
}

func toModuleID(i int) ModuleID {
	id, err := safecast.Conv[ModuleID](i)
	if err != nil {
		panic(fmt.Errorf("module id overflow: %w", err))
	}
	return id
}
