package symbols

import (
	"codescope/internal/ast"
	"codescope/internal/source"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolVariable
	SymbolFunction
	SymbolClass
	SymbolParam
	SymbolImport // from m import x
	SymbolModule // import m
	SymbolBuiltin
	SymbolExternal
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	case SymbolParam:
		return "param"
	case SymbolImport:
		return "import"
	case SymbolModule:
		return "module"
	case SymbolBuiltin:
		return "builtin"
	case SymbolExternal:
		return "external"
	default:
		return "invalid"
	}
}

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint16

const (
	SymbolFlagAnnotated SymbolFlags = 1 << iota
	SymbolFlagGlobal                // bound from an inner scope through `global`
	SymbolFlagNonlocal              // bound from an inner scope through `nonlocal`
	SymbolFlagStarImport            // created by expanding `from m import *`
	SymbolFlagDeleted               // target of `del` somewhere in the scope
)

// Strings returns a slice of textual flag labels.
func (f SymbolFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 4)
	if f&SymbolFlagAnnotated != 0 {
		labels = append(labels, "annotated")
	}
	if f&SymbolFlagGlobal != 0 {
		labels = append(labels, "global")
	}
	if f&SymbolFlagNonlocal != 0 {
		labels = append(labels, "nonlocal")
	}
	if f&SymbolFlagStarImport != 0 {
		labels = append(labels, "star-import")
	}
	if f&SymbolFlagDeleted != 0 {
		labels = append(labels, "deleted")
	}
	return labels
}

// ResolutionState is Resolved for every declared symbol and Unresolved for
// external pseudo-symbols. It only ever moves from Unresolved to Resolved.
type ResolutionState uint8

const (
	Unresolved ResolutionState = iota
	Resolved
)

func (s ResolutionState) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// Symbol describes a named entity available in a scope.
type Symbol struct {
	Name       source.StringID
	Kind       SymbolKind
	Scope      ScopeID
	Decl       ast.NodeID // first declaring node
	Span       source.Span
	Annotation ast.NodeID
	Flags      SymbolFlags
	State      ResolutionState
	// Bindings lists every node that binds the name in its scope, in
	// declaration order; Decl is Bindings[0].
	Bindings []ast.NodeID

	// ImportModule is the absolute module key an import refers to;
	// ImportName is the imported attribute for `from m import x`.
	ImportModule string
	ImportName   string
	// Target is the top-level symbol of another Program module this import
	// resolves to; TargetModule is set when the import names a Program module.
	// Both are written once by Link and never change afterwards.
	Target       SymbolID
	TargetModule string
}

// IsLinked reports whether an import points into the Program.
func (s *Symbol) IsLinked() bool {
	return s.Target.IsValid() || s.TargetModule != ""
}
