package depgraph

import (
	"slices"
	"strings"

	"codescope/internal/ast"
	"codescope/internal/symbols"
)

// Build derives the module graph from resolved modules. It reads the AST and
// the symbol table and writes nothing but the returned graph.
func Build(b *ast.Builder, table *symbols.Table) *Graph {
	g := newGraph(BuildIndex(table.Modules()))
	for _, key := range g.Index.IDToName {
		root, _ := table.ModuleRoot(key)
		s := scanner{b: b, t: table, g: g, key: key, from: g.Index.NameToID[key], pkg: table.IsPackage(key)}
		s.scan(table.Scope(root).Owner)
	}
	for key, ext := range g.Externals {
		slices.Sort(ext)
		g.Externals[key] = slices.Compact(ext)
	}
	return g
}

type scanner struct {
	b    *ast.Builder
	t    *symbols.Table
	g    *Graph
	key  string
	from ModuleID
	pkg  bool
}

func (s *scanner) scan(root ast.NodeID) {
	s.b.Walk(root, func(id ast.NodeID) bool {
		switch s.b.Kind(id) {
		case ast.KindImport:
			imp, _ := s.b.Import(id)
			for _, a := range imp.Names {
				alias, _ := s.b.Alias(a)
				s.importOf(s.b.Name(alias.Name), id)
			}
		case ast.KindImportFrom:
			imp, _ := s.b.Import(id)
			module := symbols.AbsoluteModule(s.key, s.pkg, imp.Level, s.b.Name(imp.Module))
			for _, a := range imp.Names {
				alias, _ := s.b.Alias(a)
				name := s.b.Name(alias.Name)
				if sub := module + "." + name; name != "*" && s.known(sub) {
					s.importOf(sub, id)
					continue
				}
				s.importOf(module, id)
			}
		case ast.KindName:
			if s.b.Get(id).Ctx == ast.CtxLoad {
				s.use(id)
			}
		}
		return true
	})
}

func (s *scanner) known(key string) bool {
	_, ok := s.g.Index.NameToID[key]
	return ok
}

// importOf records an import of a dotted module name. The deepest prefix
// that is a Program module is the dependency; `import a.b` with only `a`
// analysed still depends on `a`.
func (s *scanner) importOf(name string, site ast.NodeID) {
	for cur := name; cur != ""; {
		if to, ok := s.g.Index.NameToID[cur]; ok {
			s.g.add(ref{from: s.from, to: to, imports: 1, site: site})
			return
		}
		i := strings.LastIndexByte(cur, '.')
		if i < 0 {
			break
		}
		cur = cur[:i]
	}
	if name != "" {
		s.g.Externals[s.key] = append(s.g.Externals[s.key], name)
	}
}

// use records a load that resolves into another module, either directly or
// through an attribute on an imported module.
func (s *scanner) use(name ast.NodeID) {
	sym := s.t.Symbol(s.t.Final(s.t.SymbolOf(name)))
	if sym == nil {
		return
	}
	if sym.Kind == symbols.SymbolBuiltin || sym.Kind == symbols.SymbolExternal {
		return
	}
	if sc := s.t.Scope(sym.Scope); sc != nil {
		if owner := s.t.ModuleKey(sc.Module); owner != "" && owner != s.key {
			s.g.add(ref{from: s.from, to: s.g.Index.NameToID[owner], uses: 1})
			return
		}
	}
	if sym.TargetModule == "" {
		return
	}
	parent := s.b.Parent(name)
	attr, ok := s.b.Attribute(parent)
	if !ok || attr.Value != name {
		return
	}
	target := sym.TargetModule
	if sub := target + "." + s.b.Name(attr.Attr); s.known(sub) {
		target = sub
	}
	if to, ok := s.g.Index.NameToID[target]; ok && target != s.key {
		s.g.add(ref{from: s.from, to: to, uses: 1})
	}
}
