package lexer

import (
	"codescope/internal/diag"
	"codescope/internal/token"
)

// Поддержка: 0, 123, 1_000, 0b..., 0o..., 0x..., 1.0, .5, 1e-3, 2j.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if lx.cursor.Peek() == '0' {
		switch lx.cursor.PeekAt(1) | 0x20 {
		case 'x', 'o', 'b':
			base := lx.cursor.PeekAt(1) | 0x20
			lx.cursor.Bump()
			lx.cursor.Bump()
			digits := 0
			for {
				b := lx.cursor.Peek()
				ok := b == '_' ||
					(base == 'x' && isHex(b)) ||
					(base == 'o' && b >= '0' && b <= '7') ||
					(base == 'b' && (b == '0' || b == '1'))
				if !ok {
					break
				}
				if b != '_' {
					digits++
				}
				lx.cursor.Bump()
			}
			sp := lx.cursor.SpanFrom(start)
			if digits == 0 {
				lx.report(diag.LexBadNumber, sp, "missing digits after base prefix")
			}
			return token.Token{Kind: token.IntLit, Span: sp, Text: lx.text(sp)}
		}
	}

	lx.eatDigits()
	if lx.cursor.Peek() == '.' && lx.cursor.PeekAt(1) != '.' {
		kind = token.FloatLit
		lx.cursor.Bump()
		lx.eatDigits()
	}
	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		lx.cursor.Bump()
		if s := lx.cursor.Peek(); s == '+' || s == '-' {
			lx.cursor.Bump()
		}
		if !isDec(lx.cursor.Peek()) {
			sp := lx.cursor.SpanFrom(start)
			lx.report(diag.LexBadNumber, sp, "malformed exponent")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
		}
		kind = token.FloatLit
		lx.eatDigits()
	}
	if b := lx.cursor.Peek(); b == 'j' || b == 'J' {
		lx.cursor.Bump()
		kind = token.FloatLit
	}
	sp := lx.cursor.SpanFrom(start)
	if isIdentStartByte(lx.cursor.Peek()) {
		lx.report(diag.LexBadNumber, sp, "invalid suffix on numeric literal")
	}
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) eatDigits() {
	for b := lx.cursor.Peek(); isDec(b) || b == '_'; b = lx.cursor.Peek() {
		lx.cursor.Bump()
	}
}
