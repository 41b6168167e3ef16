package driver

import (
	"path"
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/symbols"
)

// Module is one parsed source file.
type Module struct {
	Key     string
	Path    string
	File    source.FileID
	Node    ast.NodeID
	Package bool
}

// Program owns every module of one analysis input. It is immutable once
// Load or NewProgram returns.
type Program struct {
	Root    string
	Files   *source.FileSet
	Builder *ast.Builder
	// Modules are sorted by key; node IDs were assigned in this order.
	Modules []Module
	// Diagnostics holds the lexical and syntax problems found while parsing.
	Diagnostics *diag.Bag

	byKey map[string]int
}

// Module looks a module up by its dotted key.
func (p *Program) Module(key string) (Module, bool) {
	i, ok := p.byKey[key]
	if !ok {
		return Module{}, false
	}
	return p.Modules[i], true
}

// Roots returns the module nodes in key order.
func (p *Program) Roots() []ast.NodeID {
	out := make([]ast.NodeID, len(p.Modules))
	for i, m := range p.Modules {
		out[i] = m.Node
	}
	return out
}

// Inputs describes the modules for the resolver.
func (p *Program) Inputs() []symbols.ModuleInput {
	out := make([]symbols.ModuleInput, len(p.Modules))
	for i, m := range p.Modules {
		out[i] = symbols.ModuleInput{Node: m.Node, Key: m.Key, Package: m.Package}
	}
	return out
}

// Line returns the 1-based line a node starts on.
func (p *Program) Line(id ast.NodeID) uint32 {
	if !id.IsValid() {
		return 0
	}
	start, _ := p.Files.Resolve(p.Builder.Span(id))
	return start.Line
}

// Position resolves a node to its 1-based line and column.
func (p *Program) Position(id ast.NodeID) source.LineCol {
	if !id.IsValid() {
		return source.LineCol{}
	}
	start, _ := p.Files.Resolve(p.Builder.Span(id))
	return start
}

// PathOf returns the source path of the module holding id.
func (p *Program) PathOf(id ast.NodeID) string {
	if !id.IsValid() {
		return ""
	}
	return p.Files.Get(p.Builder.Span(id).File).Path
}

// ModuleKey maps a slash-separated path relative to the source root to a
// dotted module key: "pkg/util.py" is "pkg.util" and "pkg/__init__.py" is
// the package "pkg". A top-level __init__.py takes the name of the root
// directory, passed as rootName.
func ModuleKey(rel, rootName string) (key string, pkg bool) {
	rel = strings.TrimPrefix(path.Clean(strings.ReplaceAll(rel, "\\", "/")), "./")
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	dir, base := path.Split(rel)
	if base == "__init__" {
		pkg = true
		rel = strings.TrimSuffix(dir, "/")
		if rel == "" {
			rel = rootName
		}
	}
	return strings.ReplaceAll(rel, "/", "."), pkg
}
