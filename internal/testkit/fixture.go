package testkit

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/parser"
	"codescope/internal/source"
	"codescope/internal/symbols"
)

// Source is one module of a test program.
type Source struct {
	Key     string
	Text    string
	Package bool
}

// Fixture is a parsed and resolved test program.
type Fixture struct {
	Files   *source.FileSet
	Builder *ast.Builder
	Roots   []ast.NodeID
	Inputs  []symbols.ModuleInput
	Table   *symbols.Table
	Bag     *diag.Bag
}

// Module is a shorthand for a single non-package module.
func Module(key, text string) Source {
	return Source{Key: key, Text: text}
}

// Parse parses the sources in order into one builder without resolving.
func Parse(tb testing.TB, srcs ...Source) *Fixture {
	tb.Helper()
	fx := &Fixture{
		Files:   source.NewFileSet(),
		Builder: ast.NewBuilder(ast.Hints{}, nil),
		Bag:     diag.NewBag(500),
	}
	rep := diag.BagReporter{Bag: fx.Bag}
	for _, src := range srcs {
		path := strings.ReplaceAll(src.Key, ".", "/") + ".py"
		if src.Package {
			path = strings.ReplaceAll(src.Key, ".", "/") + "/__init__.py"
		}
		file := fx.Files.Get(fx.Files.AddVirtual(path, []byte(src.Text)))
		res := parser.Parse(fx.Builder, file, src.Key, parser.Options{MaxErrors: 100, Reporter: rep})
		fx.Roots = append(fx.Roots, res.Module)
		fx.Inputs = append(fx.Inputs, symbols.ModuleInput{Node: res.Module, Key: src.Key, Package: src.Package})
	}
	return fx
}

// Resolve parses and resolves the sources; syntax errors fail the test.
func Resolve(tb testing.TB, srcs ...Source) *Fixture {
	tb.Helper()
	fx := Parse(tb, srcs...)
	if fx.Bag.HasErrors() {
		tb.Fatalf("syntax errors: %s", Summary(fx.Bag))
	}
	table, err := symbols.Resolve(context.Background(), fx.Builder, fx.Inputs, symbols.Options{
		Reporter: diag.BagReporter{Bag: fx.Bag},
		Jobs:     4,
	})
	if err != nil {
		tb.Fatalf("resolve: %v", err)
	}
	fx.Table = table
	return fx
}

// Reporter returns a reporter that appends to the fixture's bag.
func (fx *Fixture) Reporter() diag.Reporter {
	return diag.BagReporter{Bag: fx.Bag}
}

// Body returns the top-level statements of the i-th module.
func (fx *Fixture) Body(i int) []ast.NodeID {
	return fx.Builder.Body(fx.Roots[i])
}

// Func finds a def by qualified name ("f", "C.m", "outer.inner").
func (fx *Fixture) Func(tb testing.TB, qualified string) ast.NodeID {
	tb.Helper()
	found := ast.NoNodeID
	for _, root := range fx.Roots {
		fx.Builder.Walk(root, func(id ast.NodeID) bool {
			if fx.Builder.Kind(id) == ast.KindFunctionDef && fx.Builder.QualifiedName(id) == qualified {
				found = id
			}
			return !found.IsValid()
		})
		if found.IsValid() {
			return found
		}
	}
	tb.Fatalf("function %q not found", qualified)
	return ast.NoNodeID
}

// Count returns how many diagnostics carry code.
func (fx *Fixture) Count(code diag.Code) int {
	n := 0
	for _, d := range fx.Bag.Items() {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Summary renders a bag as one line per diagnostic for failure messages.
func Summary(bag *diag.Bag) string {
	items := bag.Items()
	if len(items) == 0 {
		return "<none>"
	}
	lines := make([]string, len(items))
	for i, d := range items {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}
