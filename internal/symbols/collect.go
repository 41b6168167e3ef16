package symbols

import (
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
)

// ModuleInput describes one parsed module handed to Collect.
type ModuleInput struct {
	Node    ast.NodeID
	Key     string // dotted module key, e.g. "pkg.util"
	Package bool   // module is a package's __init__
}

type collector struct {
	t      *Table
	b      *ast.Builder
	rep    diag.Reporter
	module ScopeID
	key    string
	pkg    bool
}

// Collect runs the declaration pass for one module: it creates every scope of
// the module and declares every binding. Scopes are processed breadth-first,
// so an enclosing scope is complete before any nested scope is visited; that
// is what lets `nonlocal` bind at collection time.
func (t *Table) Collect(b *ast.Builder, in ModuleInput, rep diag.Reporter) ScopeID {
	if id, ok := t.modRoot[in.Key]; ok {
		return id
	}
	mod := t.Scopes.New(ScopeModule, t.Builtins, in.Node, b.Span(in.Node))
	t.Scopes.Get(mod).Module = mod
	t.modRoot[in.Key] = mod
	t.modKey[mod] = in.Key
	t.modules = append(t.modules, in.Key)
	if in.Package {
		t.packages[in.Key] = true
	}
	t.ownerScope[in.Node] = mod

	c := collector{t: t, b: b, rep: rep, module: mod, key: in.Key, pkg: in.Package}
	queue := []ScopeID{mod}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		queue = c.collectScope(s, queue)
	}
	return mod
}

func (c *collector) collectScope(s ScopeID, queue []ScopeID) []ScopeID {
	owner := c.t.Scopes.Get(s).Owner
	c.declareParams(s, owner)
	c.prescan(s, owner)

	WalkRegion(c.b, owner, func(id ast.NodeID) {
		switch c.b.Kind(id) {
		case ast.KindName:
			n := c.b.Get(id)
			if n.Ctx == ast.CtxLoad {
				return
			}
			name, _ := c.b.NameOf(id)
			sym := c.declare(s, name.Name, SymbolVariable, id, n.Span)
			if n.Ctx == ast.CtxDel {
				c.t.Symbols.Get(sym).Flags |= SymbolFlagDeleted
			}
		case ast.KindAnnAssign:
			aa, _ := c.b.AnnAssign(id)
			if name, ok := c.b.NameOf(aa.Target); ok {
				sym := c.declare(s, name.Name, SymbolVariable, aa.Target, c.b.Span(aa.Target))
				if ps := c.t.Symbols.Get(sym); !ps.Annotation.IsValid() {
					ps.Annotation = aa.Annotation
					ps.Flags |= SymbolFlagAnnotated
				}
			}
		case ast.KindFunctionDef:
			fn, _ := c.b.Func(id)
			c.declare(s, fn.Name, SymbolFunction, id, fn.NameSpan)
			queue = append(queue, c.newScope(ScopeFunction, s, id))
		case ast.KindClassDef:
			cls, _ := c.b.Class(id)
			c.declare(s, cls.Name, SymbolClass, id, cls.NameSpan)
			queue = append(queue, c.newScope(ScopeClass, s, id))
		case ast.KindLambda:
			queue = append(queue, c.newScope(ScopeLambda, s, id))
		case ast.KindImport:
			c.declareImport(s, id)
		case ast.KindImportFrom:
			c.declareImportFrom(s, id)
		case ast.KindExceptHandler:
			h, _ := c.b.Handler(id)
			if h.Name != source.NoStringID {
				c.declare(s, h.Name, SymbolVariable, id, h.NameSpan)
			}
		}
	})
	return queue
}

func (c *collector) newScope(kind ScopeKind, parent ScopeID, owner ast.NodeID) ScopeID {
	id := c.t.Scopes.New(kind, parent, owner, c.b.Span(owner))
	c.t.Scopes.Get(id).Module = c.module
	c.t.ownerScope[owner] = id
	return id
}

func (c *collector) declareParams(s ScopeID, owner ast.NodeID) {
	var params []ast.NodeID
	switch c.b.Kind(owner) {
	case ast.KindFunctionDef:
		fn, _ := c.b.Func(owner)
		params = fn.Params
	case ast.KindLambda:
		lam, _ := c.b.Lambda(owner)
		params = lam.Params
	default:
		return
	}
	for _, p := range params {
		pd, ok := c.b.Param(p)
		if !ok {
			continue
		}
		if prev, dup := c.t.Scopes.Get(s).NameIndex[pd.Name]; dup {
			diag.ReportError(c.rep, diag.ResDuplicateParam, p, c.b.Span(p),
				"duplicate argument '"+c.b.Name(pd.Name)+"' in function definition").
				WithNote(c.t.Symbols.Get(prev).Span, "first declared here").Emit()
			c.t.nodeSymbol[p] = prev
			continue
		}
		id := c.t.newSymbol(s, pd.Name, SymbolParam, p, c.b.Span(p))
		if pd.Annotation.IsValid() {
			sym := c.t.Symbols.Get(id)
			sym.Annotation = pd.Annotation
			sym.Flags |= SymbolFlagAnnotated
		}
		c.t.nodeSymbol[p] = id
	}
}

// prescan handles `global` and `nonlocal` before any binding of the scope is
// declared, so the redirect applies to the whole body.
func (c *collector) prescan(s ScopeID, owner ast.NodeID) {
	WalkRegion(c.b, owner, func(id ast.NodeID) {
		kind := c.b.Kind(id)
		if kind != ast.KindGlobal && kind != ast.KindNonlocal {
			return
		}
		list, _ := c.b.NameList(id)
		for _, name := range list.Names {
			if kind == ast.KindGlobal {
				c.bindGlobal(s, name, id)
			} else {
				c.bindNonlocal(s, name, id)
			}
		}
	})
}

func (c *collector) bindGlobal(s ScopeID, name source.StringID, stmt ast.NodeID) {
	if s == c.module {
		return
	}
	sc := c.t.Scopes.Get(s)
	if sc.Globals == nil {
		sc.Globals = make(map[source.StringID]ast.NodeID)
	}
	sc.Globals[name] = stmt
	if id, ok := c.t.Scopes.Get(c.module).NameIndex[name]; ok {
		sc.NameIndex[name] = id
	}
}

func (c *collector) bindNonlocal(s ScopeID, name source.StringID, stmt ast.NodeID) {
	if s == c.module {
		diag.ReportError(c.rep, diag.ResNonlocalAtModule, stmt, c.b.Span(stmt),
			"nonlocal declaration not allowed at module level").Emit()
		return
	}
	for cur := c.t.Scopes.Get(s).Parent; cur.IsValid(); {
		enclosing := c.t.Scopes.Get(cur)
		if enclosing.Kind == ScopeModule || enclosing.Kind == ScopeBuiltin {
			break
		}
		if enclosing.Kind != ScopeClass {
			if id, ok := enclosing.NameIndex[name]; ok {
				sc := c.t.Scopes.Get(s)
				if sc.Nonlocals == nil {
					sc.Nonlocals = make(map[source.StringID]ast.NodeID)
				}
				sc.Nonlocals[name] = stmt
				sc.NameIndex[name] = id
				c.t.Symbols.Get(id).Flags |= SymbolFlagNonlocal
				return
			}
		}
		cur = enclosing.Parent
	}
	diag.ReportError(c.rep, diag.ResNonlocalNotFound, stmt, c.b.Span(stmt),
		"no binding for nonlocal '"+c.b.Name(name)+"' found").Emit()
}

// declare binds name in scope s, honouring global and nonlocal redirects, and
// returns the symbol the node now refers to.
func (c *collector) declare(s ScopeID, name source.StringID, kind SymbolKind, node ast.NodeID, span source.Span) SymbolID {
	sc := c.t.Scopes.Get(s)
	if id, ok := sc.NameIndex[name]; ok {
		c.addBinding(id, node)
		return id
	}
	target := s
	var flags SymbolFlags
	if _, global := sc.Globals[name]; global {
		target = c.module
		flags = SymbolFlagGlobal
		if id, ok := c.t.Scopes.Get(c.module).NameIndex[name]; ok {
			c.t.Scopes.Get(s).NameIndex[name] = id
			c.addBinding(id, node)
			return id
		}
	}
	id := c.t.newSymbol(target, name, kind, node, span)
	c.t.Symbols.Get(id).Flags |= flags
	if target != s {
		c.t.Scopes.Get(s).NameIndex[name] = id
	}
	c.t.nodeSymbol[node] = id
	return id
}

func (c *collector) addBinding(id SymbolID, node ast.NodeID) {
	sym := c.t.Symbols.Get(id)
	if n := len(sym.Bindings); n == 0 || sym.Bindings[n-1] != node {
		sym.Bindings = append(sym.Bindings, node)
	}
	c.t.nodeSymbol[node] = id
}

// declareImport: `import a.b` binds `a`; `import a.b as c` binds `c` to a.b.
func (c *collector) declareImport(s ScopeID, id ast.NodeID) {
	imp, _ := c.b.Import(id)
	for _, aliasID := range imp.Names {
		alias, ok := c.b.Alias(aliasID)
		if !ok {
			continue
		}
		full := c.b.Name(alias.Name)
		bound, module := alias.AsName, full
		if bound == source.NoStringID {
			first, _, _ := strings.Cut(full, ".")
			bound, module = c.t.Strings.Intern(first), first
		}
		sym := c.declare(s, bound, SymbolModule, aliasID, c.b.Span(aliasID))
		if ps := c.t.Symbols.Get(sym); ps.ImportModule == "" {
			ps.ImportModule = module
		}
	}
}

func (c *collector) declareImportFrom(s ScopeID, id ast.NodeID) {
	imp, _ := c.b.Import(id)
	module := AbsoluteModule(c.key, c.pkg, imp.Level, c.b.Name(imp.Module))
	for _, aliasID := range imp.Names {
		alias, ok := c.b.Alias(aliasID)
		if !ok {
			continue
		}
		name := c.b.Name(alias.Name)
		if name == "*" {
			if s == c.module {
				sc := c.t.Scopes.Get(s)
				sc.StarImports = append(sc.StarImports, StarImport{Module: module, Alias: aliasID})
			}
			continue
		}
		bound := alias.AsName
		if bound == source.NoStringID {
			bound = alias.Name
		}
		sym := c.declare(s, bound, SymbolImport, aliasID, c.b.Span(aliasID))
		if ps := c.t.Symbols.Get(sym); ps.ImportModule == "" {
			ps.ImportModule, ps.ImportName = module, name
		}
	}
}

// AbsoluteModule turns a possibly relative `from` target into a module key.
// key is the importing module; pkg tells whether it is a package __init__.
func AbsoluteModule(key string, pkg bool, level int, module string) string {
	if level == 0 {
		return module
	}
	parts := strings.Split(key, ".")
	if !pkg {
		parts = parts[:len(parts)-1]
	}
	drop := min(level-1, len(parts))
	parts = parts[:len(parts)-drop]
	if module != "" {
		parts = append(parts, module)
	}
	return strings.Join(parts, ".")
}
