package cfg

import (
	"fmt"
	"io"
	"strings"

	"codescope/internal/ast"
)

// Dump writes a human-readable listing of a graph.
func Dump(w io.Writer, b *ast.Builder, g *Graph) error {
	if w == nil || g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "cfg %s blocks=%d edges=%d entry=bb%d exit=bb%d\n",
		g.Name, len(g.Blocks), len(g.Edges), g.Entry, g.Exit); err != nil {
		return err
	}
	for i := range g.Blocks {
		blk := &g.Blocks[i]
		flags := ""
		if !blk.Reachable {
			flags = " unreachable"
		}
		if blk.ID == g.Exit {
			flags += " exit"
		}
		kinds := make([]string, len(blk.Stmts))
		for j, s := range blk.Stmts {
			kinds[j] = fmt.Sprintf("%s#%d", b.Kind(s), s)
		}
		if _, err := fmt.Fprintf(w, "  bb%d%s: [%s]\n", blk.ID, flags, strings.Join(kinds, " ")); err != nil {
			return err
		}
		for _, e := range g.Succs(blk.ID) {
			if _, err := fmt.Fprintf(w, "    -> bb%d (%s)\n", e.To, e.Kind); err != nil {
				return err
			}
		}
	}
	return nil
}
