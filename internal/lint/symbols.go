package lint

import (
	"fmt"
	"strings"

	"codescope/internal/ast"
	"codescope/internal/depgraph"
	"codescope/internal/diag"
	"codescope/internal/symbols"
)

// unusedSymbol reports local variables, imports and nested defs and classes
// that are never read. Module level only imports are considered, and only
// when no other module re-imports them and the module is not a package.
func unusedSymbol(s *Snapshot, rep diag.Reporter) {
	t, b := s.Table, s.Builder
	reexported := make(map[symbols.SymbolID]bool)
	eachSymbol(t, func(_ symbols.SymbolID, sym *symbols.Symbol) {
		if sym.Target.IsValid() {
			reexported[sym.Target] = true
		}
	})
	eachSymbol(t, func(id symbols.SymbolID, sym *symbols.Symbol) {
		sc := t.Scope(sym.Scope)
		if sc == nil || !sym.Decl.IsValid() || sym.Flags&symbols.SymbolFlagStarImport != 0 {
			return
		}
		name := t.NameOf(id)
		if exempt(name) || len(t.UsesOf(id)) > 0 || readByAugAssign(b, sym) {
			return
		}
		var what string
		switch sc.Kind {
		case symbols.ScopeFunction:
			switch sym.Kind {
			case symbols.SymbolVariable:
				what = "local variable"
			case symbols.SymbolImport, symbols.SymbolModule:
				what = "import"
			case symbols.SymbolFunction:
				what = "nested function"
			case symbols.SymbolClass:
				what = "nested class"
			}
		case symbols.ScopeModule:
			if (sym.Kind == symbols.SymbolImport || sym.Kind == symbols.SymbolModule) &&
				!reexported[id] && !t.IsPackage(t.ModuleKey(sc.Module)) {
				what = "import"
			}
		}
		if what == "" {
			return
		}
		diag.ReportWarning(rep, diag.LntUnusedSymbol, sym.Decl, b.Span(sym.Decl),
			fmt.Sprintf("%s %q is never used", what, name)).Emit()
	})
}

// readByAugAssign reports whether `x += ...` reads the symbol; such targets
// are stores in the symbol table.
func readByAugAssign(b *ast.Builder, sym *symbols.Symbol) bool {
	for _, n := range sym.Bindings {
		if b.Kind(b.Parent(n)) == ast.KindAugAssign {
			return true
		}
	}
	return false
}

// shadowedBuiltin reports declarations that hide a builtin name. Class
// attributes do not hide anything outside the class body and are skipped,
// and so are dunder module attributes.
func shadowedBuiltin(s *Snapshot, rep diag.Reporter) {
	t, b := s.Table, s.Builder
	eachSymbol(t, func(id symbols.SymbolID, sym *symbols.Symbol) {
		switch sym.Kind {
		case symbols.SymbolBuiltin, symbols.SymbolExternal, symbols.SymbolInvalid:
			return
		}
		sc := t.Scope(sym.Scope)
		if sc == nil || sc.Kind == symbols.ScopeClass || !sym.Decl.IsValid() || !t.IsBuiltinName(sym.Name) {
			return
		}
		name := t.NameOf(id)
		if strings.HasPrefix(name, "__") {
			return
		}
		diag.ReportWarning(rep, diag.LntShadowedBuiltin, sym.Decl, b.Span(sym.Decl),
			fmt.Sprintf("%s %q shadows a builtin", sym.Kind, name)).Emit()
	})
}

func dependencyCycle(s *Snapshot, rep diag.Reporter) {
	if s.Deps == nil || s.CyclesReported {
		return
	}
	depgraph.ReportCycles(s.Builder, s.Deps, rep)
}

func unresolvedCall(s *Snapshot, rep diag.Reporter) {
	if s.Calls == nil {
		return
	}
	b := s.Builder
	for _, e := range s.Calls.Unresolved() {
		diag.ReportInfo(rep, diag.LntUnresolvedCall, e.Site, b.Span(e.Site),
			fmt.Sprintf("call to %s in %s cannot be resolved statically", e.Hint, b.QualifiedName(e.Caller))).Emit()
	}
}

// eachSymbol visits every symbol in ID order.
func eachSymbol(t *symbols.Table, visit func(id symbols.SymbolID, sym *symbols.Symbol)) {
	for i := 1; i <= t.Symbols.Len(); i++ {
		id := symbols.SymbolID(i) // #nosec G115 -- bounded by arena size
		if sym := t.Symbol(id); sym != nil {
			visit(id, sym)
		}
	}
}
