package depgraph

import (
	"fmt"
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
)

// ReportCycles emits one lint warning per dependency cycle, placed on the
// import in the lexicographically first member that leads into the cycle.
func ReportCycles(b *ast.Builder, g *Graph, rep diag.Reporter) []Cycle {
	cycles := g.Cycles()
	for _, c := range cycles {
		names := make([]string, 0, len(c.Members)+1)
		for _, id := range c.Members {
			names = append(names, g.Index.Name(id))
		}
		names = append(names, names[0])
		summary := strings.Join(names, " -> ")

		site := ast.NoNodeID
		first := c.Members[0]
		for _, e := range g.Edges[first] {
			if inCycle(c, e.To) && e.Site.IsValid() {
				site = e.Site
				break
			}
		}
		span := source.Span{}
		if site.IsValid() {
			span = b.Span(site)
		}
		msg := fmt.Sprintf("module %q participates in an import cycle: %s", g.Index.Name(first), summary)
		diag.ReportWarning(rep, diag.LntDependencyCycle, site, span, msg).Emit()
	}
	return cycles
}

func inCycle(c Cycle, id ModuleID) bool {
	for _, m := range c.Members {
		if m == id {
			return true
		}
	}
	return false
}
