package lexer

import (
	"golang.org/x/text/unicode/norm"

	"codescope/internal/diag"
	"codescope/internal/token"
)

// scanIdentOrKeyword reads an identifier. Non-ASCII identifiers are NFKC
// normalised so that visually equal spellings bind to the same symbol.
// A string prefix (r, b, f, rb, ...) directly followed by a quote starts a
// string literal instead.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	ascii := true

	r, sz := lx.peekRune()
	if sz == 1 && r < 0x80 {
		lx.cursor.Bump()
	} else {
		if !isIdentStartRune(r) {
			lx.cursor.Off += uint32(max(sz, 1)) // #nosec G115 -- rune width
			sp := lx.cursor.SpanFrom(start)
			lx.report(diag.LexUnknownChar, sp, "invalid character in identifier")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
		}
		ascii = false
		lx.cursor.Off += uint32(sz) // #nosec G115
	}

	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b < 0x80 {
			if !isIdentContinueByte(b) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		r, sz := lx.peekRune()
		if !isIdentContinueRune(r) {
			break
		}
		ascii = false
		lx.cursor.Off += uint32(sz) // #nosec G115
	}

	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	if next := lx.cursor.Peek(); (next == '"' || next == '\'') && isStringPrefix(text) {
		kind := token.StringLit
		if text[0]|0x20 == 'b' || (len(text) == 2 && text[1]|0x20 == 'b') {
			kind = token.BytesLit
		}
		return lx.scanString(start, kind)
	}
	if !ascii {
		text = norm.NFKC.String(text)
	}
	if kw, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: kw, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: text}
}
