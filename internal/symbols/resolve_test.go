package symbols

import (
	"context"
	"errors"
	"testing"

	"codescope/internal/ast"
	"codescope/internal/diag"
)

const scopesSrc = `x = 1
def f(a, b=x):
    y = a
    return y + z
class C:
    attr = x
    def m(self):
        return attr
`

func TestScopesAndUses(t *testing.T) {
	b, table, roots, bag := resolveProgram(t, 4, moduleSrc{key: "main", src: scopesSrc})
	mod, ok := table.ModuleRoot("main")
	if !ok {
		t.Fatalf("module scope not registered")
	}
	for _, name := range []string{"x", "f", "C"} {
		if !table.Lookup(mod, name).IsValid() {
			t.Errorf("module scope lacks %q", name)
		}
	}

	body := b.Body(roots[0])
	fScope := table.ScopeOf(body[1])
	if table.Scope(fScope).Kind != ScopeFunction || table.Scope(fScope).Parent != mod {
		t.Fatalf("f scope = %+v", table.Scope(fScope))
	}
	for _, name := range []string{"a", "b", "y"} {
		if !table.Lookup(fScope, name).IsValid() {
			t.Errorf("f scope lacks %q", name)
		}
	}
	if table.Symbol(table.Lookup(fScope, "a")).Kind != SymbolParam {
		t.Errorf("a should be a parameter")
	}

	// the default `b=x` is evaluated in the module scope
	moduleX := table.Lookup(mod, "x")
	xLoads := namesIn(b, roots[0], "x", ast.CtxLoad)
	if len(xLoads) != 2 {
		t.Fatalf("expected 2 loads of x, got %d", len(xLoads))
	}
	for _, id := range xLoads {
		if got := table.SymbolOf(id); got != moduleX {
			t.Errorf("load %d of x resolved to %d, want %d", id, got, moduleX)
		}
	}
	if uses := table.UsesOf(moduleX); len(uses) != 2 {
		t.Errorf("UsesOf(x) = %v", uses)
	}

	// class attributes are invisible from methods
	attrLoad := namesIn(b, roots[0], "attr", ast.CtxLoad)
	if len(attrLoad) != 1 {
		t.Fatalf("attr loads = %v", attrLoad)
	}
	ext := table.Symbol(table.SymbolOf(attrLoad[0]))
	if ext.Kind != SymbolExternal {
		t.Errorf("attr inside method resolved to %s, want external", ext.Kind)
	}

	if got := countCode(bag, diag.ResUnresolvedName); got != 2 {
		t.Fatalf("unresolved warnings = %d (%s)", got, summary(bag))
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %s", summary(bag))
	}
}

func TestGlobalAndNonlocal(t *testing.T) {
	src := `counter = 0
def bump():
    global counter
    counter = counter + 1
def outer():
    n = 0
    def inner():
        nonlocal n
        n = n + 1
    return inner
`
	b, table, roots, bag := resolveProgram(t, 2, moduleSrc{key: "main", src: src})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", summary(bag))
	}
	mod, _ := table.ModuleRoot("main")
	counter := table.Lookup(mod, "counter")
	for _, id := range namesIn(b, roots[0], "counter", ast.CtxStore) {
		if table.SymbolOf(id) != counter {
			t.Errorf("store of counter at %d not bound to module symbol", id)
		}
	}
	if got := len(table.Symbol(counter).Bindings); got != 2 {
		t.Errorf("counter bindings = %d, want 2", got)
	}

	outer := b.Body(roots[0])[2]
	outerN := table.Lookup(table.ScopeOf(outer), "n")
	stores := namesIn(b, outer, "n", ast.CtxStore)
	if len(stores) != 2 {
		t.Fatalf("n stores = %v", stores)
	}
	for _, id := range stores {
		if table.SymbolOf(id) != outerN {
			t.Errorf("store of n at %d bound to %d, want %d", id, table.SymbolOf(id), outerN)
		}
	}
	if table.Symbol(outerN).Flags&SymbolFlagNonlocal == 0 {
		t.Errorf("outer n should carry the nonlocal flag")
	}
}

func TestResolutionErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"nonlocal at module", "nonlocal x\n", diag.ResNonlocalAtModule},
		{"nonlocal without binding", "def f():\n    nonlocal q\n    q = 1\n", diag.ResNonlocalNotFound},
		{"duplicate parameter", "def f(a, a):\n    return a\n", diag.ResDuplicateParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, bag := resolveProgram(t, 1, moduleSrc{key: "main", src: tt.src})
			if got := countCode(bag, tt.code); got != 1 {
				t.Fatalf("expected one %s, got %s", tt.code.ID(), summary(bag))
			}
		})
	}
}

func TestImportsAcrossModules(t *testing.T) {
	b, table, roots, bag := resolveProgram(t, 4,
		moduleSrc{key: "pkg", pkg: true, src: "from .util import helper\nVERSION = 1\n"},
		moduleSrc{key: "pkg.util", src: "def helper():\n    return 1\ndef other():\n    return 2\n_private = 3\n"},
		moduleSrc{key: "app", src: "import pkg.util\nfrom pkg import helper, missing\nfrom pkg.util import *\nimport os\nhelper()\n"},
	)
	app, _ := table.ModuleRoot("app")
	util, _ := table.ModuleRoot("pkg.util")
	pkg, _ := table.ModuleRoot("pkg")

	pkgSym := table.Symbol(table.Lookup(app, "pkg"))
	if pkgSym.Kind != SymbolModule || pkgSym.ImportModule != "pkg" || pkgSym.TargetModule != "pkg" {
		t.Errorf("pkg import = %+v", pkgSym)
	}
	osSym := table.Symbol(table.Lookup(app, "os"))
	if osSym.TargetModule != "" || osSym.IsLinked() {
		t.Errorf("os must stay external: %+v", osSym)
	}

	helper := table.Lookup(app, "helper")
	if got := table.Symbol(helper).Target; got != table.Lookup(pkg, "helper") {
		t.Errorf("helper target = %d, want pkg re-export", got)
	}
	if got := table.Final(helper); got != table.Lookup(util, "helper") {
		t.Errorf("Final(helper) = %d, want pkg.util function", got)
	}
	if table.Symbol(table.Final(helper)).Kind != SymbolFunction {
		t.Errorf("final helper is not a function")
	}

	other := table.Symbol(table.Lookup(app, "other"))
	if other.Flags&SymbolFlagStarImport == 0 || other.Target != table.Lookup(util, "other") {
		t.Errorf("star import of other = %+v", other)
	}
	if table.Lookup(app, "_private").IsValid() {
		t.Errorf("private names must not be star-imported")
	}

	calls := namesIn(b, roots[2], "helper", ast.CtxLoad)
	if len(calls) != 1 || table.SymbolOf(calls[0]) != helper {
		t.Errorf("helper() load not bound to import symbol")
	}

	if got := countCode(bag, diag.ResImportedNameAbsent); got != 1 {
		t.Errorf("absent-name warnings = %d (%s)", got, summary(bag))
	}
	if got := countCode(bag, diag.ResUnresolvedName); got != 0 {
		t.Errorf("unexpected unresolved names: %s", summary(bag))
	}
}

func TestBindingFlavours(t *testing.T) {
	src := `try:
    pass
except ValueError as err:
    print(err)
x: int = 1
del x
f = lambda v: v + len(v)
`
	b, table, roots, bag := resolveProgram(t, 1, moduleSrc{key: "main", src: src})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", summary(bag))
	}
	mod, _ := table.ModuleRoot("main")

	errSym := table.Lookup(mod, "err")
	if !errSym.IsValid() {
		t.Fatalf("except handler name not bound")
	}
	if loads := namesIn(b, roots[0], "err", ast.CtxLoad); len(loads) != 1 || table.SymbolOf(loads[0]) != errSym {
		t.Errorf("print(err) not bound to handler name")
	}

	x := table.Symbol(table.Lookup(mod, "x"))
	if x.Flags&SymbolFlagAnnotated == 0 || x.Flags&SymbolFlagDeleted == 0 {
		t.Errorf("x flags = %v", x.Flags.Strings())
	}
	if !x.Annotation.IsValid() {
		t.Errorf("x annotation not recorded")
	}

	lenLoad := namesIn(b, roots[0], "len", ast.CtxLoad)
	if len(lenLoad) != 1 || table.Symbol(table.SymbolOf(lenLoad[0])).Kind != SymbolBuiltin {
		t.Errorf("len should resolve to the builtin")
	}
	for _, id := range namesIn(b, roots[0], "v", ast.CtxLoad) {
		if table.Symbol(table.SymbolOf(id)).Kind != SymbolParam {
			t.Errorf("lambda body v at %d does not resolve to its parameter", id)
		}
	}
}

func TestResolveIndependentOfJobs(t *testing.T) {
	mods := []moduleSrc{
		{key: "lib", src: "def g(q):\n    return q * 2\n"},
		{key: "main", src: scopesSrc + "from lib import g\nprint(g(x), unknown)\n"},
	}
	b1, t1, _, bag1 := resolveProgram(t, 1, mods...)
	b8, t8, _, bag8 := resolveProgram(t, 8, mods...)
	if b1.Count() != b8.Count() {
		t.Fatalf("node counts differ: %d vs %d", b1.Count(), b8.Count())
	}
	for i := uint32(1); i <= b1.Count(); i++ {
		id := ast.NodeID(i)
		if t1.SymbolOf(id) != t8.SymbolOf(id) {
			t.Fatalf("node %d: symbol %d vs %d", id, t1.SymbolOf(id), t8.SymbolOf(id))
		}
	}
	if summary(bag1) != summary(bag8) {
		t.Fatalf("diagnostics differ:\n%s\n%s", summary(bag1), summary(bag8))
	}
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := ast.NewBuilder(ast.Hints{}, nil)
	_, err := Resolve(ctx, b, []ModuleInput{{Key: "main"}}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
