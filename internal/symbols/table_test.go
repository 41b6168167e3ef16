package symbols

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/parser"
	"codescope/internal/source"
)

type moduleSrc struct {
	key string
	src string
	pkg bool
}

func resolveProgram(t *testing.T, jobs int, mods ...moduleSrc) (*ast.Builder, *Table, []ast.NodeID, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	bag := diag.NewBag(200)
	rep := diag.BagReporter{Bag: bag}
	b := ast.NewBuilder(ast.Hints{}, nil)
	inputs := make([]ModuleInput, 0, len(mods))
	roots := make([]ast.NodeID, 0, len(mods))
	for _, m := range mods {
		path := strings.ReplaceAll(m.key, ".", "/") + ".py"
		file := fs.Get(fs.AddVirtual(path, []byte(m.src)))
		res := parser.Parse(b, file, m.key, parser.Options{MaxErrors: 100, Reporter: rep})
		if res.Errors > 0 {
			t.Fatalf("parse %s: %s", m.key, summary(bag))
		}
		inputs = append(inputs, ModuleInput{Node: res.Module, Key: m.key, Package: m.pkg})
		roots = append(roots, res.Module)
	}
	table, err := Resolve(context.Background(), b, inputs, Options{Reporter: rep, Jobs: jobs})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return b, table, roots, bag
}

func summary(bag *diag.Bag) string {
	var lines []string
	for _, d := range bag.Items() {
		lines = append(lines, fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message))
	}
	if len(lines) == 0 {
		return "<none>"
	}
	return strings.Join(lines, "; ")
}

func countCode(bag *diag.Bag, code diag.Code) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Code == code {
			n++
		}
	}
	return n
}

// namesIn returns Name nodes spelled text under root, in pre-order.
func namesIn(b *ast.Builder, root ast.NodeID, text string, ctx ast.Ctx) []ast.NodeID {
	var out []ast.NodeID
	b.Walk(root, func(id ast.NodeID) bool {
		if n, ok := b.NameOf(id); ok && b.Name(n.Name) == text && b.Get(id).Ctx == ctx {
			out = append(out, id)
		}
		return true
	})
	return out
}

func TestNewTableInstallsBuiltins(t *testing.T) {
	table := NewTable(Hints{}, nil)
	if got := table.Scope(table.Builtins).Kind; got != ScopeBuiltin {
		t.Fatalf("builtin scope kind = %s", got)
	}
	id := table.Lookup(table.Builtins, "len")
	if !id.IsValid() || table.Symbol(id).Kind != SymbolBuiltin {
		t.Fatalf("len is not a builtin symbol: %v", id)
	}
	if table.Lookup(table.Builtins, "definitely_not_builtin").IsValid() {
		t.Fatalf("unexpected builtin")
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestExternalIsUniquePerModuleAndName(t *testing.T) {
	table := NewTable(Hints{}, nil)
	modA := table.Scopes.New(ScopeModule, table.Builtins, ast.NoNodeID, source.Span{})
	modB := table.Scopes.New(ScopeModule, table.Builtins, ast.NoNodeID, source.Span{})
	name := table.Strings.Intern("ghost")

	a1 := table.External(modA, name)
	a2 := table.External(modA, name)
	b1 := table.External(modB, name)
	if a1 != a2 {
		t.Fatalf("expected one external per (module, name), got %d and %d", a1, a2)
	}
	if a1 == b1 {
		t.Fatalf("externals of different modules must differ")
	}
	if table.Symbol(a1).State != Unresolved {
		t.Fatalf("external must be unresolved")
	}
}

func TestAbsoluteModule(t *testing.T) {
	tests := []struct {
		key    string
		pkg    bool
		level  int
		module string
		want   string
	}{
		{"m", false, 0, "x.y", "x.y"},
		{"a.b.c", false, 1, "d", "a.b.d"},
		{"a.b.c", false, 2, "", "a"},
		{"a.b", true, 1, "c", "a.b.c"},
		{"m", false, 1, "x", "x"},
		{"a.b.c", false, 5, "", ""},
	}
	for _, tt := range tests {
		if got := AbsoluteModule(tt.key, tt.pkg, tt.level, tt.module); got != tt.want {
			t.Errorf("AbsoluteModule(%q, %v, %d, %q) = %q, want %q", tt.key, tt.pkg, tt.level, tt.module, got, tt.want)
		}
	}
}
