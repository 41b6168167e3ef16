package symbols

import (
	"codescope/internal/ast"
	"codescope/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeBuiltin            // shared root above every module
	ScopeModule             // module-level (top-level declarations)
	ScopeFunction           // def body
	ScopeClass              // class body; invisible to nested functions
	ScopeLambda             // lambda body
	ScopeExternal           // pseudo-scope for names that resolve nowhere
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeBuiltin:
		return "builtin"
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	case ScopeLambda:
		return "lambda"
	case ScopeExternal:
		return "external"
	default:
		return "invalid"
	}
}

// Scope models a lexical scope. NameIndex may point at symbols owned by
// another scope: `global` and `nonlocal` names are redirected that way, while
// Symbols lists only the symbols the scope owns.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Owner     ast.NodeID // Module, FunctionDef, ClassDef or Lambda; NoNodeID for builtin
	Module    ScopeID    // enclosing module scope (itself for modules)
	Span      source.Span
	NameIndex map[source.StringID]SymbolID
	Symbols   []SymbolID
	Children  []ScopeID

	Globals   map[source.StringID]ast.NodeID // name -> Global statement
	Nonlocals map[source.StringID]ast.NodeID // name -> Nonlocal statement
	// StarImports lists absolute module keys of `from m import *` (module scopes only).
	StarImports []StarImport
}

type StarImport struct {
	Module string
	Alias  ast.NodeID
}

// IsFunctionLike reports scopes that own a control-flow graph.
func (s *Scope) IsFunctionLike() bool {
	return s.Kind == ScopeModule || s.Kind == ScopeFunction || s.Kind == ScopeLambda
}
