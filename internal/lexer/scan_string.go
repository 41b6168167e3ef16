package lexer

import (
	"codescope/internal/diag"
	"codescope/internal/token"
)

// scanString reads a quoted literal starting at the cursor (after any prefix,
// which begins at start). Triple-quoted strings may span lines; a single-quoted
// one ends at the newline with a diagnostic.
func (lx *Lexer) scanString(start Mark, kind token.Kind) token.Token {
	quote := lx.cursor.Bump()
	triple := lx.cursor.Peek() == quote && lx.cursor.PeekAt(1) == quote
	if triple {
		lx.cursor.Bump()
		lx.cursor.Bump()
	}

	for {
		if lx.cursor.EOF() {
			sp := lx.cursor.SpanFrom(start)
			lx.report(diag.LexUnterminatedString, sp, "unterminated string literal")
			return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
		}
		ch := lx.cursor.Peek()
		switch {
		case ch == '\\':
			lx.cursor.Bump()
			lx.cursor.Bump()
		case ch == '\n' && !triple:
			sp := lx.cursor.SpanFrom(start)
			lx.report(diag.LexUnterminatedString, sp, "unterminated string literal")
			return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
		case ch == quote:
			lx.cursor.Bump()
			if !triple {
				sp := lx.cursor.SpanFrom(start)
				return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
			}
			if lx.cursor.Peek() == quote && lx.cursor.PeekAt(1) == quote {
				lx.cursor.Bump()
				lx.cursor.Bump()
				sp := lx.cursor.SpanFrom(start)
				return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
			}
		default:
			lx.cursor.Bump()
		}
	}
}
