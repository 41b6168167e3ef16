package lint

import (
	"fmt"

	"codescope/internal/ast"
	"codescope/internal/dataflow"
	"codescope/internal/diag"
)

// unreachableCode reports each run of statements no path from the entry
// reaches, once, at its first statement.
func unreachableCode(s *Snapshot, rep diag.Reporter) {
	dead := make(map[ast.NodeID]bool)
	for _, g := range s.Graphs {
		if g == nil {
			continue
		}
		for _, id := range g.Unreachable() {
			for _, st := range g.Block(id).Stmts {
				dead[st] = true
			}
		}
	}
	b := s.Builder
	for _, g := range s.Graphs {
		if g == nil {
			continue
		}
		for _, id := range g.Unreachable() {
			for _, st := range g.Block(id).Stmts {
				if dead[b.Parent(st)] {
					continue
				}
				if prev := prevSibling(b, st); prev.IsValid() && dead[prev] {
					continue
				}
				diag.ReportWarning(rep, diag.LntUnreachable, st, b.Span(st),
					fmt.Sprintf("unreachable code in %s", b.QualifiedName(g.Func))).Emit()
			}
		}
	}
}

// prevSibling returns the statement before st in the list that holds it.
func prevSibling(b *ast.Builder, st ast.NodeID) ast.NodeID {
	for _, list := range stmtLists(b, b.Parent(st)) {
		for i, x := range list {
			if x != st {
				continue
			}
			if i == 0 {
				return ast.NoNodeID
			}
			return list[i-1]
		}
	}
	return ast.NoNodeID
}

func stmtLists(b *ast.Builder, id ast.NodeID) [][]ast.NodeID {
	switch b.Kind(id) {
	case ast.KindModule, ast.KindFunctionDef, ast.KindClassDef:
		return [][]ast.NodeID{b.Body(id)}
	case ast.KindIf, ast.KindWhile:
		d, _ := b.Cond(id)
		return [][]ast.NodeID{d.Body, d.Else}
	case ast.KindFor:
		d, _ := b.For(id)
		return [][]ast.NodeID{d.Body, d.Else}
	case ast.KindTry:
		d, _ := b.Try(id)
		return [][]ast.NodeID{d.Body, d.Handlers, d.Else, d.Finally}
	case ast.KindExceptHandler:
		d, _ := b.Handler(id)
		return [][]ast.NodeID{d.Body}
	case ast.KindWith:
		d, _ := b.With(id)
		return [][]ast.NodeID{d.Body}
	}
	return nil
}

// deadStore reports plain and augmented assignments inside defs whose value
// is never read. Module bodies are skipped: their globals are read from other
// functions and modules. Captured variables and names with no reads at all
// are left to unused-symbol.
func deadStore(s *Snapshot, rep diag.Reporter) {
	b, t := s.Builder, s.Table
	for i, g := range s.Graphs {
		res := flowAt(s, i)
		if g == nil || res == nil || res.Incomplete || b.Kind(g.Func) == ast.KindModule {
			continue
		}
		for _, d := range res.Defs {
			if d.Live || (d.Kind != dataflow.DefAssign && d.Kind != dataflow.DefAugAssign) {
				continue
			}
			if res.Captured != nil && res.Captured.Contains(uint32(d.Var)) { // #nosec G115 -- variable count fits in uint32
				continue
			}
			name := t.NameOf(d.Symbol)
			if exempt(name) || len(t.UsesOf(d.Symbol)) == 0 {
				continue
			}
			diag.ReportWarning(rep, diag.LntDeadStore, d.Node, b.Span(d.Node),
				fmt.Sprintf("value assigned to %q is never used", name)).Emit()
		}
	}
}

// useBeforeDef reports reachable loads of a local variable that no
// definition reaches.
func useBeforeDef(s *Snapshot, rep diag.Reporter) {
	b, t := s.Builder, s.Table
	for i, g := range s.Graphs {
		res := flowAt(s, i)
		if g == nil || res == nil || res.Incomplete {
			continue
		}
		for _, u := range res.Uses {
			if len(u.Reaching) > 0 || !g.Block(u.Block).Reachable {
				continue
			}
			if res.Captured != nil && res.Captured.Contains(uint32(u.Var)) { // #nosec G115 -- variable count fits in uint32
				continue
			}
			name := t.NameOf(u.Symbol)
			diag.ReportWarning(rep, diag.LntUseBeforeDef, u.Node, b.Span(u.Node),
				fmt.Sprintf("%q may be used before assignment", name)).Emit()
		}
	}
}

func flowAt(s *Snapshot, i int) *dataflow.Result {
	if i < len(s.Flows) {
		return s.Flows[i]
	}
	return nil
}
