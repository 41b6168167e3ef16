package symbols

import (
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
)

// Link connects import symbols across modules once every module has been
// collected. Star imports are expanded first so that later `from m import x`
// can see names m pulled in with `*`. A symbol's Target is written at most
// once; linking never unresolves anything.
func (t *Table) Link(b *ast.Builder, rep diag.Reporter) {
	for _, key := range t.modules {
		mod := t.modRoot[key]
		stars := t.Scopes.Get(mod).StarImports
		for _, star := range stars {
			t.expandStar(b, mod, star)
		}
	}

	for i := 1; i <= t.Symbols.Len(); i++ {
		id := SymbolID(i) // #nosec G115 -- bounded by arena size
		sym := t.Symbols.Get(id)
		if sym.IsLinked() {
			continue
		}
		switch sym.Kind {
		case SymbolModule:
			if _, ok := t.modRoot[sym.ImportModule]; ok {
				sym.TargetModule = sym.ImportModule
			}
		case SymbolImport:
			t.linkImport(b, id, rep)
		}
	}
}

func (t *Table) linkImport(b *ast.Builder, id SymbolID, rep diag.Reporter) {
	sym := t.Symbols.Get(id)
	qualified := sym.ImportModule + "." + sym.ImportName
	if sym.ImportModule == "" {
		qualified = sym.ImportName
	}
	root, ok := t.modRoot[sym.ImportModule]
	if !ok {
		// `from pkg import sub` where only pkg.sub is part of the program.
		if _, sub := t.modRoot[qualified]; sub {
			sym.TargetModule = qualified
		}
		return
	}
	if target := t.Lookup(root, sym.ImportName); target.IsValid() {
		sym.Target = target
		return
	}
	if _, sub := t.modRoot[qualified]; sub {
		sym.TargetModule = qualified
		return
	}
	if len(t.Scopes.Get(root).StarImports) > 0 {
		// may come from a star import of a module outside the program
		return
	}
	diag.ReportWarning(rep, diag.ResImportedNameAbsent, sym.Decl, sym.Span,
		"module '"+sym.ImportModule+"' has no name '"+sym.ImportName+"'").Emit()
}

// expandStar binds every public module-level name of the star target that the
// importer does not already define.
func (t *Table) expandStar(b *ast.Builder, importer ScopeID, star StarImport) {
	root, ok := t.modRoot[star.Module]
	if !ok || root == importer {
		return
	}
	exported := t.Scopes.Get(root).Symbols
	span := b.Span(star.Alias)
	for _, src := range exported {
		name := t.Symbols.Get(src).Name
		text, _ := t.Strings.Lookup(name)
		if strings.HasPrefix(text, "_") {
			continue
		}
		if _, taken := t.Scopes.Get(importer).NameIndex[name]; taken {
			continue
		}
		id := t.newSymbol(importer, name, SymbolImport, star.Alias, span)
		sym := t.Symbols.Get(id)
		sym.ImportModule, sym.ImportName = star.Module, text
		sym.Target = src
		sym.Flags |= SymbolFlagStarImport
	}
}
