package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"codescope/internal/ast"
	"codescope/internal/cfg"
	"codescope/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed module:
// 1) the module span is non-empty and within file content bounds
// 2) every reachable node span points at the same file
// 3) every reachable node span lies inside the module span
func CheckSpanInvariants(b *ast.Builder, root ast.NodeID, sf *source.File) error {
	if b == nil || sf == nil {
		return fmt.Errorf("nil builder or file")
	}
	mod := b.Get(root)
	if mod == nil || mod.Kind != ast.KindModule {
		return fmt.Errorf("node %d is not a module", root)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if len(sf.Content) > 0 && mod.Span.End <= mod.Span.Start {
		return fmt.Errorf("module span is empty: %v", mod.Span)
	}
	if mod.Span.End > lenContent {
		return fmt.Errorf("module span end beyond content: %d > %d", mod.Span.End, lenContent)
	}

	var bad error
	b.Walk(root, func(id ast.NodeID) bool {
		if bad != nil {
			return false
		}
		sp := b.Span(id)
		if sp.File != sf.ID {
			bad = fmt.Errorf("node %d span file mismatch: got=%d want=%d", id, sp.File, sf.ID)
			return false
		}
		if !mod.Span.Contains(sp) {
			bad = fmt.Errorf("node %d span %v is outside module span %v", id, sp, mod.Span)
			return false
		}
		return true
	})
	return bad
}

// CheckUniqueIDs walks every root and fails when a node is reached twice or
// when a child's parent link does not point back at the node that owns it.
func CheckUniqueIDs(b *ast.Builder, roots []ast.NodeID) error {
	seen := make(map[ast.NodeID]bool)
	var bad error
	for _, root := range roots {
		b.Walk(root, func(id ast.NodeID) bool {
			if bad != nil {
				return false
			}
			if seen[id] {
				bad = fmt.Errorf("node %d reached twice", id)
				return false
			}
			seen[id] = true
			for _, child := range b.Children(id) {
				if p := b.Parent(child); p != id {
					bad = fmt.Errorf("node %d: parent of child %d is %d", id, child, p)
					return false
				}
			}
			return true
		})
	}
	return bad
}

// Statements returns every node that appears in a statement list under the
// given roots.
func Statements(b *ast.Builder, roots []ast.NodeID) []ast.NodeID {
	var out []ast.NodeID
	for _, root := range roots {
		b.Walk(root, func(id ast.NodeID) bool {
			out = append(out, statementLists(b, id)...)
			return true
		})
	}
	return out
}

func statementLists(b *ast.Builder, id ast.NodeID) []ast.NodeID {
	switch b.Kind(id) {
	case ast.KindModule, ast.KindFunctionDef, ast.KindClassDef:
		return b.Body(id)
	case ast.KindIf, ast.KindWhile:
		d, _ := b.Cond(id)
		return append(append([]ast.NodeID(nil), d.Body...), d.Else...)
	case ast.KindFor:
		d, _ := b.For(id)
		return append(append([]ast.NodeID(nil), d.Body...), d.Else...)
	case ast.KindTry:
		d, _ := b.Try(id)
		var out []ast.NodeID
		for _, part := range [][]ast.NodeID{d.Body, d.Handlers, d.Else, d.Finally} {
			out = append(out, part...)
		}
		return out
	case ast.KindExceptHandler:
		d, _ := b.Handler(id)
		return d.Body
	case ast.KindWith:
		d, _ := b.With(id)
		return d.Body
	}
	return nil
}

// CheckStatementOwnership verifies that every statement under roots sits in
// exactly one block of exactly one graph.
func CheckStatementOwnership(b *ast.Builder, roots []ast.NodeID, graphs []*cfg.Graph) error {
	count := make(map[ast.NodeID]int)
	for _, g := range graphs {
		for i := range g.Blocks {
			for _, s := range g.Blocks[i].Stmts {
				count[s]++
			}
		}
	}
	for _, s := range Statements(b, roots) {
		if n := count[s]; n != 1 {
			return fmt.Errorf("statement %d (%s) appears in %d blocks", s, b.Kind(s), n)
		}
	}
	return nil
}
