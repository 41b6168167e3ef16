package symbols

import (
	"slices"

	"codescope/internal/ast"
)

// ScopeBody returns the root nodes of the region evaluated inside owner's
// scope: the statement list, or the body expression of a lambda.
func ScopeBody(b *ast.Builder, owner ast.NodeID) []ast.NodeID {
	return b.Body(owner)
}

// WalkRegion visits, in pre-order with an explicit stack, every node
// evaluated in owner's own scope. A nested def, class or lambda is visited
// itself together with the parts evaluated in the enclosing scope
// (decorators, bases, defaults, annotations), but its body is left to its
// own region.
func WalkRegion(b *ast.Builder, owner ast.NodeID, visit func(id ast.NodeID)) {
	body := ScopeBody(b, owner)
	stack := make([]ast.NodeID, 0, len(body)+16)
	for i := len(body) - 1; i >= 0; i-- {
		stack = append(stack, body[i])
	}
	push := func(ids ...ast.NodeID) {
		for i := len(ids) - 1; i >= 0; i-- {
			if ids[i].IsValid() {
				stack = append(stack, ids[i])
			}
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(id)
		switch b.Kind(id) {
		case ast.KindFunctionDef:
			fn, _ := b.Func(id)
			push(slices.Concat(fn.Decorators, headerParts(b, fn.Params, true), []ast.NodeID{fn.Returns})...)
		case ast.KindLambda:
			lam, _ := b.Lambda(id)
			push(headerParts(b, lam.Params, false)...)
		case ast.KindClassDef:
			cls, _ := b.Class(id)
			push(slices.Concat(cls.Decorators, cls.Bases, cls.Keywords)...)
		default:
			push(b.Children(id)...)
		}
	}
}

// headerParts returns parameter defaults (and annotations) in source order.
func headerParts(b *ast.Builder, params []ast.NodeID, annotations bool) []ast.NodeID {
	var out []ast.NodeID
	for _, p := range params {
		pd, ok := b.Param(p)
		if !ok {
			continue
		}
		if annotations && pd.Annotation.IsValid() {
			out = append(out, pd.Annotation)
		}
		if pd.Default.IsValid() {
			out = append(out, pd.Default)
		}
	}
	return out
}
