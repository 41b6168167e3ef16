package callgraph

import (
	"codescope/internal/ast"
)

// Hint renders a callee expression as short text: names and attribute
// chains verbatim, anything computed as a placeholder.
func Hint(b *ast.Builder, expr ast.NodeID) string {
	switch b.Kind(expr) {
	case ast.KindName:
		n, _ := b.NameOf(expr)
		return b.Name(n.Name)
	case ast.KindAttribute:
		a, _ := b.Attribute(expr)
		return Hint(b, a.Value) + "." + b.Name(a.Attr)
	case ast.KindCall:
		c, _ := b.Call(expr)
		return Hint(b, c.Func) + "()"
	case ast.KindSubscript:
		s, _ := b.Subscript(expr)
		return Hint(b, s.Value) + "[...]"
	case ast.KindLambda:
		return "<lambda>"
	case ast.KindConst:
		return "<const>"
	}
	return "<expr>"
}
