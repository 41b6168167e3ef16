package cfg

import (
	"errors"
	"fmt"

	"codescope/internal/ast"
)

// Validate checks structural invariants of a set of graphs: block IDs match
// their index, edges stay inside the graph, the exit has no successors, and
// no statement sits in two blocks of any graph.
func Validate(graphs []*Graph) error {
	var errs []error
	owner := make(map[ast.NodeID]ast.NodeID)
	for _, g := range graphs {
		if g == nil {
			continue
		}
		if err := validateGraph(g); err != nil {
			errs = append(errs, fmt.Errorf("cfg %s: %w", g.Name, err))
		}
		for i := range g.Blocks {
			for _, s := range g.Blocks[i].Stmts {
				if prev, dup := owner[s]; dup {
					errs = append(errs, fmt.Errorf("statement %d in graphs of %d and %d", s, prev, g.Func))
					continue
				}
				owner[s] = g.Func
			}
		}
	}
	return errors.Join(errs...)
}

func validateGraph(g *Graph) error {
	var errs []error
	n := BlockID(len(g.Blocks)) // #nosec G115 -- block count fits in int32
	if !g.Entry.IsValid() || g.Entry >= n {
		errs = append(errs, fmt.Errorf("invalid entry %d", g.Entry))
	}
	if !g.Exit.IsValid() || g.Exit >= n {
		errs = append(errs, fmt.Errorf("invalid exit %d", g.Exit))
	}
	for i := range g.Blocks {
		if g.Blocks[i].ID != BlockID(i) { // #nosec G115 -- block count fits in int32
			errs = append(errs, fmt.Errorf("block %d has id %d", i, g.Blocks[i].ID))
		}
	}
	for _, e := range g.Edges {
		if !e.From.IsValid() || e.From >= n || !e.To.IsValid() || e.To >= n {
			errs = append(errs, fmt.Errorf("edge %d->%d out of range", e.From, e.To))
			continue
		}
		if e.From == g.Exit && g.Entry != g.Exit {
			errs = append(errs, fmt.Errorf("exit block has successor %d", e.To))
		}
	}
	if g.Exit.IsValid() && g.Exit < n && g.Entry != g.Exit && len(g.Blocks[g.Exit].Stmts) > 0 {
		errs = append(errs, errors.New("exit block holds statements"))
	}
	return errors.Join(errs...)
}
