package metrics

import (
	"codescope/internal/ast"
)

type nestItem struct {
	stmt  ast.NodeID
	depth int // depth of the construct enclosing stmt
}

// Nesting returns the deepest nesting of if/while/for/try/with inside the
// own body of a function-like node. Nested defs and lambdas are measured on
// their own; class bodies count inline without adding a level. An elif does
// not nest deeper than its if.
func Nesting(b *ast.Builder, fn ast.NodeID) int {
	if b.Kind(fn) == ast.KindLambda {
		return 0
	}
	deepest := 0
	stack := make([]nestItem, 0, 16)
	push := func(stmts []ast.NodeID, depth int) {
		for i := len(stmts) - 1; i >= 0; i-- {
			stack = append(stack, nestItem{stmt: stmts[i], depth: depth})
		}
	}
	push(b.Body(fn), 0)
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		inner := it.depth + 1
		switch b.Kind(it.stmt) {
		case ast.KindIf:
			d, _ := b.Cond(it.stmt)
			deepest = max(deepest, inner)
			push(d.Body, inner)
			if isElif(b, d.Else) {
				push(d.Else, it.depth)
			} else {
				push(d.Else, inner)
			}
		case ast.KindWhile:
			d, _ := b.Cond(it.stmt)
			deepest = max(deepest, inner)
			push(d.Body, inner)
			push(d.Else, inner)
		case ast.KindFor:
			d, _ := b.For(it.stmt)
			deepest = max(deepest, inner)
			push(d.Body, inner)
			push(d.Else, inner)
		case ast.KindTry:
			d, _ := b.Try(it.stmt)
			deepest = max(deepest, inner)
			push(d.Body, inner)
			for _, h := range d.Handlers {
				if hd, ok := b.Handler(h); ok {
					push(hd.Body, inner)
				}
			}
			push(d.Else, inner)
			push(d.Finally, inner)
		case ast.KindWith:
			d, _ := b.With(it.stmt)
			deepest = max(deepest, inner)
			if len(d.Body) == 1 && isWithItem(b, d.Body[0]) {
				push(d.Body, it.depth)
				continue
			}
			push(d.Body, inner)
		case ast.KindClassDef:
			push(b.Body(it.stmt), it.depth)
		}
	}
	return deepest
}

// isElif reports whether an else branch is a single if, which is how an
// elif chain is stored.
func isElif(b *ast.Builder, orelse []ast.NodeID) bool {
	return len(orelse) == 1 && b.Kind(orelse[0]) == ast.KindIf
}

// isWithItem reports whether id is a later item of `with a, b:`. Such a
// With starts at its context expression rather than at the keyword.
func isWithItem(b *ast.Builder, id ast.NodeID) bool {
	d, ok := b.With(id)
	return ok && b.Span(id).Start == b.Span(d.Context).Start
}
