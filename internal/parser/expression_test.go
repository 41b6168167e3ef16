package parser

import (
	"testing"

	"codescope/internal/ast"
	"codescope/internal/diag"
)

func TestOperatorPrecedence(t *testing.T) {
	b, body := mustParse(t, "x = 1 + 2 * 3 ** -4\n")
	add, ok := b.Binary(valueOf(t, b, body[0]))
	if !ok || add.Op != ast.OpAdd {
		t.Fatalf("expected top-level '+', got %s", b.Kind(valueOf(t, b, body[0])))
	}
	mul, ok := b.Binary(add.Right)
	if !ok || mul.Op != ast.OpMul {
		t.Fatalf("expected '*' on the right of '+'")
	}
	pow, ok := b.Binary(mul.Right)
	if !ok || pow.Op != ast.OpPow {
		t.Fatalf("expected '**' on the right of '*'")
	}
	neg, ok := b.Unary(pow.Right)
	if !ok || neg.Op != ast.OpNeg {
		t.Fatalf("expected unary minus as exponent")
	}
}

func TestUnaryMinusBindsLooserThanPower(t *testing.T) {
	b, body := mustParse(t, "-2 ** 2\n")
	u, ok := b.Unary(valueOf(t, b, body[0]))
	if !ok || u.Op != ast.OpNeg {
		t.Fatalf("expected unary minus at the top")
	}
	expectKind(t, b, u.Operand, ast.KindBinary)
}

func TestComparisonChain(t *testing.T) {
	b, body := mustParse(t, "a < b <= c\nx not in y\np is not q\n")
	cmp, ok := b.Compare(valueOf(t, b, body[0]))
	if !ok || len(cmp.Ops) != 2 || cmp.Ops[0] != ast.OpLt || cmp.Ops[1] != ast.OpLtE {
		t.Fatalf("unexpected compare chain %+v", cmp)
	}
	if c, _ := b.Compare(valueOf(t, b, body[1])); c == nil || c.Ops[0] != ast.OpNotIn {
		t.Fatalf("expected 'not in'")
	}
	if c, _ := b.Compare(valueOf(t, b, body[2])); c == nil || c.Ops[0] != ast.OpIsNot {
		t.Fatalf("expected 'is not'")
	}
}

func TestBoolOpsNest(t *testing.T) {
	b, body := mustParse(t, "not a and b or c\n")
	or, ok := b.BoolOp(valueOf(t, b, body[0]))
	if !ok || or.Op != ast.OpOr || len(or.Values) != 2 {
		t.Fatalf("expected 'or' with two operands")
	}
	and, ok := b.BoolOp(or.Values[0])
	if !ok || and.Op != ast.OpAnd {
		t.Fatalf("expected 'and' inside 'or'")
	}
	not, ok := b.Unary(and.Values[0])
	if !ok || not.Op != ast.OpNot {
		t.Fatalf("expected 'not' as first conjunct")
	}
}

func TestConditionalAndLambda(t *testing.T) {
	b, body := mustParse(t, "f = lambda x, y=2, *r, **kw: x if y else r\n")
	lam, ok := b.Lambda(valueOf(t, b, body[0]))
	if !ok || len(lam.Params) != 4 {
		t.Fatalf("expected lambda with 4 params")
	}
	if p, _ := b.Param(lam.Params[3]); p == nil || p.Kind != ast.ParamKwArgs {
		t.Fatalf("expected **kw parameter")
	}
	expectKind(t, b, lam.Body, ast.KindIfExp)
}

func TestCallArguments(t *testing.T) {
	b, body := mustParse(t, "f(a, *b, k=1, **kw).attr[0]\n")
	sub, ok := b.Subscript(valueOf(t, b, body[0]))
	if !ok {
		t.Fatalf("expected subscript at the top")
	}
	attr, ok := b.Attribute(sub.Value)
	if !ok || b.Name(attr.Attr) != "attr" {
		t.Fatalf("expected attribute 'attr'")
	}
	call, ok := b.Call(attr.Value)
	if !ok || len(call.Args) != 2 || len(call.Keywords) != 2 {
		t.Fatalf("unexpected call shape %+v", call)
	}
	expectKind(t, b, call.Args[1], ast.KindStarred)
	if kw, _ := b.Keyword(call.Keywords[1]); kw == nil || kw.Name != 0 {
		t.Fatalf("expected '**' keyword without name")
	}
}

func TestDisplays(t *testing.T) {
	b, body := mustParse(t, "a = [1, 2]\nb = {1: 'x', **d}\nc = {1, 2}\nd = ()\ne = (1,)\nf = {}\n")
	expectKind(t, b, valueOf(t, b, body[0]), ast.KindList)
	dict, ok := b.Dict(valueOf(t, b, body[1]))
	if !ok || len(dict.Keys) != 2 || dict.Keys[1].IsValid() {
		t.Fatalf("expected dict with a '**' entry")
	}
	expectKind(t, b, valueOf(t, b, body[2]), ast.KindSet)
	expectKind(t, b, valueOf(t, b, body[3]), ast.KindTuple)
	if seq, _ := b.Seq(valueOf(t, b, body[4])); seq == nil || len(seq.Elts) != 1 {
		t.Fatalf("expected one-element tuple")
	}
	expectKind(t, b, valueOf(t, b, body[5]), ast.KindDict)
}

func TestSliceBecomesTupleIndex(t *testing.T) {
	b, body := mustParse(t, "a[1:2]\na[::2]\n")
	sub, _ := b.Subscript(valueOf(t, b, body[0]))
	if seq, ok := b.Seq(sub.Index); !ok || len(seq.Elts) != 2 {
		t.Fatalf("expected slice bounds in a tuple")
	}
	sub, _ = b.Subscript(valueOf(t, b, body[1]))
	if seq, ok := b.Seq(sub.Index); !ok || len(seq.Elts) != 1 {
		t.Fatalf("expected one slice bound")
	}
}

func TestAdjacentStringsJoin(t *testing.T) {
	b, body := mustParse(t, "s = 'a' \"b\"\nbs = b'x' 'y'\n")
	c, ok := b.Const(valueOf(t, b, body[0]))
	if !ok || c.Kind != ast.ConstStr {
		t.Fatalf("expected str constant")
	}
	if c, _ := b.Const(valueOf(t, b, body[1])); c == nil || c.Kind != ast.ConstBytes {
		t.Fatalf("expected bytes constant")
	}
}

func TestComprehensionReported(t *testing.T) {
	b, mod, bag := parseSource(t, "xs = [x for x in y]\nz = 1\n")
	if !hasCode(bag, diag.SynUnexpectedToken) {
		t.Fatalf("expected comprehension diagnostic, got %s", diagnosticsSummary(bag))
	}
	body := b.Body(mod)
	if len(body) != 2 {
		t.Fatalf("expected parsing to continue, got %d statements", len(body))
	}
	expectKind(t, b, valueOf(t, b, body[0]), ast.KindBad)
}
