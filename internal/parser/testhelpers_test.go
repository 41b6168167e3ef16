package parser

import (
	"fmt"
	"strings"
	"testing"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
)

func diagnosticsSummary(bag *diag.Bag) string {
	if bag == nil {
		return "<nil bag>"
	}
	diags := bag.Items()
	if len(diags) == 0 {
		return "<none>"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func parseSource(t *testing.T, input string) (*ast.Builder, ast.NodeID, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.py", []byte(input)))
	bag := diag.NewBag(100)
	builder := ast.NewBuilder(ast.Hints{}, nil)
	res := Parse(builder, file, "test", Options{MaxErrors: 100, Reporter: diag.BagReporter{Bag: bag}})
	return builder, res.Module, bag
}

func mustParse(t *testing.T, input string) (*ast.Builder, []ast.NodeID) {
	t.Helper()
	b, mod, bag := parseSource(t, input)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	return b, b.Body(mod)
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func expectKind(t *testing.T, b *ast.Builder, id ast.NodeID, want ast.Kind) {
	t.Helper()
	if got := b.Kind(id); got != want {
		t.Fatalf("node %d: got %s, want %s", id, got, want)
	}
}

// valueOf returns the value of an assignment or expression statement.
func valueOf(t *testing.T, b *ast.Builder, stmt ast.NodeID) ast.NodeID {
	t.Helper()
	if a, ok := b.Assign(stmt); ok {
		return a.Value
	}
	if v, ok := b.Value(stmt); ok {
		return v.Value
	}
	t.Fatalf("node %d (%s) has no value", stmt, b.Kind(stmt))
	return ast.NoNodeID
}
