package parser

import (
	"testing"

	"codescope/internal/ast"
	"codescope/internal/diag"
)

const sample = `import os
from .util import helper as h

class Shape(Base, metaclass=Meta):
    sides: int = 0

    def area(self, scale: float = 1.0) -> float:
        total = 0
        for i, side in enumerate(self.sides):
            if side > 0:
                total += side
            elif side == 0:
                continue
            else:
                break
        else:
            total = -1
        while total > 100:
            total //= 2
        try:
            return total * scale
        except ValueError as exc:
            raise RuntimeError("bad") from exc
        finally:
            pass

@decorator
def main(*args, **kwargs):
    global counter
    with open("f") as fh, lock:
        data = fh.read()
    del data
    assert args, "need args"
    yield
    return None
`

func TestParseSample(t *testing.T) {
	b, body := mustParse(t, sample)
	kinds := []ast.Kind{ast.KindImport, ast.KindImportFrom, ast.KindClassDef, ast.KindFunctionDef}
	if len(body) != len(kinds) {
		t.Fatalf("got %d top-level statements, want %d", len(body), len(kinds))
	}
	for i, k := range kinds {
		expectKind(t, b, body[i], k)
	}

	cls, _ := b.Class(body[2])
	if len(cls.Bases) != 1 || len(cls.Keywords) != 1 || len(cls.Body) != 2 {
		t.Fatalf("unexpected class shape: bases=%d keywords=%d body=%d", len(cls.Bases), len(cls.Keywords), len(cls.Body))
	}
	expectKind(t, b, cls.Body[0], ast.KindAnnAssign)
	area, _ := b.Func(cls.Body[1])
	if b.Name(area.Name) != "area" || len(area.Params) != 2 || !area.Returns.IsValid() {
		t.Fatalf("unexpected method shape")
	}
	if got := b.QualifiedName(cls.Body[1]); got != "Shape.area" {
		t.Fatalf("qualified name = %q", got)
	}

	loop, _ := b.For(area.Body[1])
	if len(loop.Else) != 1 {
		t.Fatalf("expected for-else body")
	}
	expectKind(t, b, loop.Target, ast.KindTuple)

	main, _ := b.Func(body[3])
	if len(main.Decorators) != 1 || len(main.Params) != 2 {
		t.Fatalf("unexpected main signature")
	}
	if p, _ := b.Param(main.Params[0]); p.Kind != ast.ParamVarArgs {
		t.Fatalf("expected *args")
	}
}

func TestElifChainNests(t *testing.T) {
	b, body := mustParse(t, "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n")
	top, _ := b.Cond(body[0])
	if len(top.Else) != 1 {
		t.Fatalf("expected elif in else branch")
	}
	inner, ok := b.Cond(top.Else[0])
	if !ok || len(inner.Else) != 1 {
		t.Fatalf("expected else under elif")
	}
}

func TestAssignTargetsGetStoreContext(t *testing.T) {
	b, body := mustParse(t, "a, *rest = c = d\n")
	assign, _ := b.Assign(body[0])
	if len(assign.Targets) != 2 {
		t.Fatalf("expected chained assignment with 2 targets")
	}
	tuple, _ := b.Seq(assign.Targets[0])
	for _, elt := range tuple.Elts {
		if b.Get(elt).Ctx != ast.CtxStore {
			t.Fatalf("tuple element %s not in store context", b.Kind(elt))
		}
	}
	star, _ := b.Unary(tuple.Elts[1])
	if b.Get(star.Operand).Ctx != ast.CtxStore {
		t.Fatalf("starred operand not in store context")
	}
	if b.Get(assign.Targets[1]).Ctx != ast.CtxStore || b.Get(assign.Value).Ctx != ast.CtxLoad {
		t.Fatalf("wrong contexts on chained assignment")
	}
}

func TestWithItemsNest(t *testing.T) {
	b, body := mustParse(t, "with a as x, b:\n    pass\n")
	outer, _ := b.With(body[0])
	if len(outer.Body) != 1 {
		t.Fatalf("expected nested with")
	}
	inner, ok := b.With(outer.Body[0])
	if !ok || inner.Target.IsValid() {
		t.Fatalf("inner with should have no target")
	}
	if b.Get(outer.Target).Ctx != ast.CtxStore {
		t.Fatalf("with target not in store context")
	}
}

func TestImports(t *testing.T) {
	b, body := mustParse(t, "import os.path as p, sys\nfrom ..pkg import (a, b as c)\nfrom . import x\nfrom m import *\n")
	imp, _ := b.Import(body[0])
	alias, _ := b.Alias(imp.Names[0])
	if len(imp.Names) != 2 || b.Name(alias.Name) != "os.path" || b.Name(alias.AsName) != "p" {
		t.Fatalf("unexpected import aliases")
	}
	from, _ := b.Import(body[1])
	if from.Level != 2 || b.Name(from.Module) != "pkg" || len(from.Names) != 2 {
		t.Fatalf("unexpected relative import %+v", from)
	}
	rel, _ := b.Import(body[2])
	if rel.Level != 1 || rel.Module != 0 {
		t.Fatalf("expected bare relative import")
	}
	star, _ := b.Import(body[3])
	if a, _ := b.Alias(star.Names[0]); b.Name(a.Name) != "*" {
		t.Fatalf("expected star import")
	}
}

func TestSyntaxErrorRecovery(t *testing.T) {
	b, mod, bag := parseSource(t, "x = = 1\ny = 2\n")
	if bag.Len() != 1 || !hasCode(bag, diag.SynExpectExpression) {
		t.Fatalf("expected one expression error, got %s", diagnosticsSummary(bag))
	}
	body := b.Body(mod)
	if len(body) != 2 {
		t.Fatalf("expected 2 statements after recovery, got %d", len(body))
	}
	expectKind(t, b, body[0], ast.KindBad)
	expectKind(t, b, body[1], ast.KindAssign)
}

func TestBrokenHeaderSkipsBlock(t *testing.T) {
	b, mod, bag := parseSource(t, "if x y:\n    a = 1\n    b = 2\nz = 3\n")
	if bag.Len() != 1 {
		t.Fatalf("expected a single diagnostic, got %s", diagnosticsSummary(bag))
	}
	body := b.Body(mod)
	if len(body) != 2 {
		t.Fatalf("expected Bad and Assign, got %d statements", len(body))
	}
	expectKind(t, b, body[1], ast.KindAssign)
}

func TestContextErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"break outside loop", "while x:\n    break\nbreak\n", diag.SynBreakOutsideLoop},
		{"continue in nested def", "for i in x:\n    def g():\n        continue\n", diag.SynBreakOutsideLoop},
		{"return at module", "return 1\n", diag.SynReturnOutsideFunction},
		{"return in class body", "def f():\n    class A:\n        return 1\n", diag.SynReturnOutsideFunction},
		{"try without handler", "try:\n    pass\nx = 1\n", diag.SynTryWithoutHandler},
		{"call target", "f() = 1\n", diag.SynInvalidTarget},
		{"literal aug target", "1 += 2\n", diag.SynInvalidTarget},
		{"missing in", "for x y:\n    pass\n", diag.SynForMissingIn},
		{"missing colon", "while x\n    pass\n", diag.SynExpectColon},
		{"unexpected indent", "x = 1\n    y = 2\n", diag.SynUnexpectedIndent},
		{"missing block", "def f():\nx = 1\n", diag.SynExpectIndentedBlock},
		{"stray else", "else:\n    pass\n", diag.SynUnexpectedToken},
		{"bad param", "def f(1):\n    pass\n", diag.SynBadParameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, bag := parseSource(t, tc.src)
			if !hasCode(bag, tc.code) {
				t.Fatalf("expected %s, got %s", tc.code.ID(), diagnosticsSummary(bag))
			}
		})
	}
}

func TestNodeIDsStableAndUnique(t *testing.T) {
	first, mod1, _ := parseSource(t, sample)
	second, mod2, _ := parseSource(t, sample)
	if first.Count() != second.Count() || mod1 != mod2 {
		t.Fatalf("node counts differ: %d vs %d", first.Count(), second.Count())
	}

	seen := map[ast.NodeID]bool{}
	first.Walk(mod1, func(id ast.NodeID) bool {
		if seen[id] {
			t.Fatalf("node %d visited twice", id)
		}
		seen[id] = true
		if first.Kind(id) != second.Kind(id) || first.Span(id) != second.Span(id) {
			t.Fatalf("node %d differs between runs", id)
		}
		for _, c := range first.Children(id) {
			if first.Parent(c) != id {
				t.Fatalf("child %d of %d has parent %d", c, id, first.Parent(c))
			}
		}
		return true
	})
	if len(seen) != int(first.Count()) {
		t.Fatalf("walk reached %d of %d nodes", len(seen), first.Count())
	}
}
