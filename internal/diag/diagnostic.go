package diag

import (
	"codescope/internal/ast"
	"codescope/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding of any stage. Node is the AST node it is attached
// to (NoNodeID for lexical problems that precede node allocation).
type Diagnostic struct {
	Severity Severity
	Code     Code
	Category Category
	Node     ast.NodeID
	Message  string
	Primary  source.Span
	Notes    []Note
}
