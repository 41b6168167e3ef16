package lexer

import (
	"codescope/internal/diag"
	"codescope/internal/token"
)

// операторы упорядочены по длине: жадное сопоставление
var operators = []struct {
	text string
	kind token.Kind
}{
	{"**=", token.PowAssign},
	{"//=", token.FloorAssign},
	{"<<=", token.ShlAssign},
	{">>=", token.ShrAssign},
	{"...", token.Ellipsis},
	{"**", token.StarStar},
	{"//", token.SlashSlash},
	{"<<", token.Shl},
	{">>", token.Shr},
	{"<=", token.LtEq},
	{">=", token.GtEq},
	{"==", token.EqEq},
	{"!=", token.BangEq},
	{"->", token.Arrow},
	{"+=", token.PlusAssign},
	{"-=", token.MinusAssign},
	{"*=", token.StarAssign},
	{"/=", token.SlashAssign},
	{"%=", token.PctAssign},
	{"&=", token.AmpAssign},
	{"|=", token.PipeAssign},
	{"^=", token.CaretAssign},
	{":=", token.ColonAssign},
	{"+", token.Plus},
	{"-", token.Minus},
	{"*", token.Star},
	{"/", token.Slash},
	{"%", token.Percent},
	{"@", token.At},
	{"&", token.Amp},
	{"|", token.Pipe},
	{"^", token.Caret},
	{"~", token.Tilde},
	{"<", token.Lt},
	{">", token.Gt},
	{"=", token.Assign},
	{"(", token.LParen},
	{")", token.RParen},
	{"[", token.LBracket},
	{"]", token.RBracket},
	{"{", token.LBrace},
	{"}", token.RBrace},
	{",", token.Comma},
	{":", token.Colon},
	{".", token.Dot},
	{";", token.Semicolon},
}

func (lx *Lexer) scanOperator() token.Token {
	start := lx.cursor.Mark()
	for _, op := range operators {
		if lx.cursor.EatString(op.text) {
			return token.Token{Kind: op.kind, Span: lx.cursor.SpanFrom(start), Text: op.text}
		}
	}
	lx.cursor.Bump()
	sp := lx.cursor.SpanFrom(start)
	lx.report(diag.LexUnknownChar, sp, "unknown character "+quoteByte(lx.text(sp)))
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

func quoteByte(s string) string {
	return "'" + s + "'"
}
