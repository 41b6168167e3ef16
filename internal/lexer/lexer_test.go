package lexer

import (
	"testing"

	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

func lexSource(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.py", []byte(src))
	bag := diag.NewBag(100)
	toks := Tokenize(fs.Get(id), Options{Reporter: diag.BagReporter{Bag: bag}})
	return toks, bag
}

func kindsOf(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Kind)
	}
	return out
}

func expectKinds(t *testing.T, got []token.Token, want ...token.Kind) {
	t.Helper()
	kinds := kindsOf(got)
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(kinds), kinds, len(want), want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v (all: %v)", i, kinds[i], want[i], kinds)
		}
	}
}

func TestIndentDedent(t *testing.T) {
	src := "def f(x):\n    if x:\n        return 1\n    return 2\n"
	toks, bag := lexSource(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	expectKinds(t, toks,
		token.KwDef, token.Ident, token.LParen, token.Ident, token.RParen, token.Colon, token.Newline,
		token.Indent, token.KwIf, token.Ident, token.Colon, token.Newline,
		token.Indent, token.KwReturn, token.IntLit, token.Newline,
		token.Dedent, token.KwReturn, token.IntLit, token.Newline,
		token.Dedent, token.EOF)
}

func TestNewlinesInsideBracketsIgnored(t *testing.T) {
	toks, _ := lexSource(t, "x = (1,\n  2)\ny")
	expectKinds(t, toks,
		token.Ident, token.Assign, token.LParen, token.IntLit, token.Comma, token.IntLit, token.RParen, token.Newline,
		token.Ident, token.Newline, token.EOF)
}

func TestBlankLinesAndComments(t *testing.T) {
	toks, _ := lexSource(t, "a\n\n   # comment\nb  # trailing\n")
	expectKinds(t, toks, token.Ident, token.Newline, token.Ident, token.Newline, token.EOF)
}

func TestLineContinuation(t *testing.T) {
	toks, _ := lexSource(t, "x = 1 + \\\n    2\n")
	expectKinds(t, toks, token.Ident, token.Assign, token.IntLit, token.Plus, token.IntLit, token.Newline, token.EOF)
}

func TestInconsistentDedent(t *testing.T) {
	toks, bag := lexSource(t, "if a:\n    b\n  c\n")
	expectKinds(t, toks,
		token.KwIf, token.Ident, token.Colon, token.Newline,
		token.Indent, token.Ident, token.Newline,
		token.Dedent, token.Ident, token.Newline, token.EOF)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.LexInconsistentDedent {
		t.Fatalf("expected one dedent diagnostic, got %+v", bag.Items())
	}
}

func TestLiterals(t *testing.T) {
	toks, bag := lexSource(t, "s = rb'x' + \"y\" + '''a\nb'''\nn = 0x1F + 1.5e3 + .5 + 2j\n")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	expectKinds(t, toks,
		token.Ident, token.Assign, token.BytesLit, token.Plus, token.StringLit, token.Plus, token.StringLit, token.Newline,
		token.Ident, token.Assign, token.IntLit, token.Plus, token.FloatLit, token.Plus, token.FloatLit, token.Plus, token.FloatLit, token.Newline,
		token.EOF)
	if toks[6].Text != "'''a\nb'''" {
		t.Fatalf("triple-quoted text = %q", toks[6].Text)
	}
}

func TestOperatorsGreedy(t *testing.T) {
	toks, _ := lexSource(t, "a **= b // c -> d != e\n")
	expectKinds(t, toks,
		token.Ident, token.PowAssign, token.Ident, token.SlashSlash, token.Ident, token.Arrow, token.Ident,
		token.BangEq, token.Ident, token.Newline, token.EOF)
}

func TestIdentifierNormalization(t *testing.T) {
	toks, _ := lexSource(t, "\ufb01le = 1\n")
	if toks[0].Kind != token.Ident || toks[0].Text != "file" {
		t.Fatalf("got %v %q, want Ident \"file\"", toks[0].Kind, toks[0].Text)
	}
}

func TestUnknownCharacterAndUnterminatedString(t *testing.T) {
	toks, bag := lexSource(t, "x = $\ny = 'abc\n")
	if toks[2].Kind != token.Invalid {
		t.Fatalf("expected Invalid token, got %v", toks[2].Kind)
	}
	codes := map[diag.Code]bool{}
	for _, d := range bag.Items() {
		codes[d.Code] = true
		if d.Category != diag.CatSyntax {
			t.Fatalf("lexer diagnostic has category %v", d.Category)
		}
	}
	if !codes[diag.LexUnknownChar] || !codes[diag.LexUnterminatedString] {
		t.Fatalf("missing diagnostics: %+v", bag.Items())
	}
}

func TestEOFIsSticky(t *testing.T) {
	fs := source.NewFileSet()
	lx := New(fs.Get(fs.AddVirtual("e.py", []byte("x"))), Options{})
	for i := 0; i < 3; i++ {
		lx.Next()
	}
	for i := 0; i < 3; i++ {
		if tok := lx.Next(); tok.Kind != token.EOF {
			t.Fatalf("expected EOF, got %v", tok.Kind)
		}
	}
}
