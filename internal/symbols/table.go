package symbols

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"codescope/internal/ast"
	"codescope/internal/source"
)

// Hints provide optional capacity suggestions for the symbol table arenas.
type Hints struct{ Scopes, Symbols uint }

// Table aggregates symbol-related arenas and shared resources. It is written
// by Collect, Link and the merge step of ResolveUses, all single-threaded;
// the parallel part of ResolveUses only reads it.
type Table struct {
	Scopes   *Scopes
	Symbols  *Symbols
	Strings  *source.Interner
	Builtins ScopeID

	modRoot    map[string]ScopeID
	modKey     map[ScopeID]string
	modules    []string
	packages   map[string]bool
	ownerScope map[ast.NodeID]ScopeID
	nodeSymbol map[ast.NodeID]SymbolID
	uses       map[SymbolID][]ast.NodeID
	externals  map[ScopeID]ScopeID // module scope -> its external pseudo-scope
}

// NewTable builds a fresh table with optional capacity hints and installs the
// builtin scope. If strings is nil, a fresh interner is allocated.
func NewTable(h Hints, strings *source.Interner) *Table {
	scopeCap, err := safecast.Conv[uint32](h.Scopes)
	if err != nil {
		panic(fmt.Errorf("scope capacity overflow: %w", err))
	}
	symCap, err := safecast.Conv[uint32](h.Symbols)
	if err != nil {
		panic(fmt.Errorf("symbol capacity overflow: %w", err))
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	t := &Table{
		Scopes:     NewScopes(scopeCap),
		Symbols:    NewSymbols(symCap),
		Strings:    strings,
		modRoot:    make(map[string]ScopeID),
		modKey:     make(map[ScopeID]string),
		packages:   make(map[string]bool),
		ownerScope: make(map[ast.NodeID]ScopeID),
		nodeSymbol: make(map[ast.NodeID]SymbolID),
		uses:       make(map[SymbolID][]ast.NodeID),
		externals:  make(map[ScopeID]ScopeID),
	}
	t.Builtins = t.Scopes.New(ScopeBuiltin, NoScopeID, ast.NoNodeID, source.Span{})
	for _, name := range builtinNames {
		t.newSymbol(t.Builtins, t.Strings.Intern(name), SymbolBuiltin, ast.NoNodeID, source.Span{})
	}
	return t
}

// ModuleRoot returns the module scope registered for key.
func (t *Table) ModuleRoot(key string) (ScopeID, bool) {
	id, ok := t.modRoot[key]
	return id, ok
}

// ModuleKey returns the key of a module scope, "" for other scopes.
func (t *Table) ModuleKey(scope ScopeID) string {
	return t.modKey[scope]
}

// Modules lists module keys in collection order.
func (t *Table) Modules() []string {
	return slices.Clone(t.modules)
}

// IsPackage reports whether key names a package (`__init__` module).
func (t *Table) IsPackage(key string) bool {
	return t.packages[key]
}

func (t *Table) Scope(id ScopeID) *Scope { return t.Scopes.Get(id) }

func (t *Table) Symbol(id SymbolID) *Symbol { return t.Symbols.Get(id) }

// ScopeOf returns the scope owned by a Module, FunctionDef, ClassDef or
// Lambda node.
func (t *Table) ScopeOf(owner ast.NodeID) ScopeID {
	return t.ownerScope[owner]
}

// SymbolOf returns the symbol a node binds or references: Name nodes in any
// context, plus FunctionDef, ClassDef, Param, Alias and named ExceptHandler.
func (t *Table) SymbolOf(node ast.NodeID) SymbolID {
	return t.nodeSymbol[node]
}

// UsesOf returns the load sites of sym in resolution order: scopes by ID,
// nodes in pre-order within each scope.
func (t *Table) UsesOf(sym SymbolID) []ast.NodeID {
	return t.uses[sym]
}

// NameOf returns the text of a symbol's name.
func (t *Table) NameOf(sym SymbolID) string {
	if s := t.Symbols.Get(sym); s != nil {
		name, _ := t.Strings.Lookup(s.Name)
		return name
	}
	return ""
}

// Lookup finds name in scope itself, without walking parents.
func (t *Table) Lookup(scope ScopeID, name string) SymbolID {
	id, ok := t.Strings.Find(name)
	if !ok {
		return NoSymbolID
	}
	if sc := t.Scopes.Get(scope); sc != nil {
		return sc.NameIndex[id]
	}
	return NoSymbolID
}

// Resolve performs the lexical lookup used for name loads: the starting
// scope, then enclosing scopes skipping class bodies, then the module and
// the builtins.
func (t *Table) Resolve(scope ScopeID, name source.StringID) SymbolID {
	first := true
	for cur := scope; cur.IsValid(); {
		sc := t.Scopes.Get(cur)
		if sc == nil {
			break
		}
		if first || sc.Kind != ScopeClass {
			if id, ok := sc.NameIndex[name]; ok {
				return id
			}
		}
		if _, global := sc.Globals[name]; first && global {
			first = false
			cur = sc.Module
			continue
		}
		first = false
		cur = sc.Parent
	}
	return NoSymbolID
}

// Final follows import targets to the symbol that actually defines a name.
// Re-export chains are followed up to a fixed depth so cycles terminate.
func (t *Table) Final(id SymbolID) SymbolID {
	for range 32 {
		sym := t.Symbols.Get(id)
		if sym == nil || sym.Kind != SymbolImport || !sym.Target.IsValid() {
			return id
		}
		id = sym.Target
	}
	return id
}

// FunctionScopes returns every module, function and lambda scope in creation
// order, which is the unit of parallel work for later stages.
func (t *Table) FunctionScopes() []ScopeID {
	out := make([]ScopeID, 0, t.Scopes.Len())
	for i := 1; i <= t.Scopes.Len(); i++ {
		id := ScopeID(i) // #nosec G115 -- bounded by arena size
		if t.Scopes.Get(id).IsFunctionLike() {
			out = append(out, id)
		}
	}
	return out
}

// IsBuiltinName reports whether name is a builtin.
func (t *Table) IsBuiltinName(name source.StringID) bool {
	_, ok := t.Scopes.Get(t.Builtins).NameIndex[name]
	return ok
}

func (t *Table) newSymbol(scope ScopeID, name source.StringID, kind SymbolKind, decl ast.NodeID, span source.Span) SymbolID {
	state := Resolved
	if kind == SymbolExternal {
		state = Unresolved
	}
	sym := Symbol{Name: name, Kind: kind, Scope: scope, Decl: decl, Span: span, State: state}
	if decl.IsValid() {
		sym.Bindings = []ast.NodeID{decl}
	}
	id := t.Symbols.New(&sym)
	sc := t.Scopes.Get(scope)
	sc.Symbols = append(sc.Symbols, id)
	sc.NameIndex[name] = id
	return id
}

// externalScope returns (creating once) the external pseudo-scope of a module.
func (t *Table) externalScope(module ScopeID) ScopeID {
	if id, ok := t.externals[module]; ok {
		return id
	}
	id := t.Scopes.New(ScopeExternal, NoScopeID, ast.NoNodeID, source.Span{})
	t.Scopes.Get(id).Module = module
	t.externals[module] = id
	return id
}

// External returns the external pseudo-symbol for name in module, creating it
// on first request. There is exactly one per (module, name).
func (t *Table) External(module ScopeID, name source.StringID) SymbolID {
	ext := t.externalScope(module)
	if id, ok := t.Scopes.Get(ext).NameIndex[name]; ok {
		return id
	}
	return t.newSymbol(ext, name, SymbolExternal, ast.NoNodeID, source.Span{})
}
