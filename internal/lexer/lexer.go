package lexer

import (
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

// Lexer turns indentation-structured source into tokens, synthesising
// NEWLINE, INDENT and DEDENT from line structure. Newlines inside brackets
// and after a backslash continuation are not significant.
type Lexer struct {
	file    *source.File
	cursor  Cursor
	opts    Options
	indents []int
	depth   int // глубина скобок
	pending []token.Token
	// atLineStart is set after a significant newline; indentation is measured
	// before the next token.
	atLineStart bool
	last        token.Kind
	done        bool
}

func New(file *source.File, opts Options) *Lexer {
	if opts.TabWidth <= 0 {
		opts.TabWidth = 8
	}
	return &Lexer{
		file:        file,
		cursor:      NewCursor(file),
		opts:        opts,
		indents:     []int{0},
		atLineStart: true,
		last:        token.Newline,
	}
}

// Tokenize runs the lexer to completion; the last token is always EOF.
func Tokenize(file *source.File, opts Options) []token.Token {
	lx := New(file, opts)
	out := make([]token.Token, 0, len(file.Content)/4+1)
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// Next возвращает следующий значимый токен. После EOF всегда возвращает EOF.
func (lx *Lexer) Next() token.Token {
	for {
		if len(lx.pending) > 0 {
			tok := lx.pending[0]
			lx.pending = lx.pending[1:]
			lx.last = tok.Kind
			return tok
		}
		if lx.done {
			return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
		}
		if lx.atLineStart && lx.depth == 0 {
			lx.atLineStart = false
			lx.measureIndent()
			continue
		}

		lx.skipInsignificant()
		if lx.cursor.EOF() {
			lx.finish()
			continue
		}

		ch := lx.cursor.Peek()
		if ch == '\n' {
			start := lx.cursor.Mark()
			lx.cursor.Bump()
			lx.atLineStart = true
			if lx.last == token.Newline || lx.last == token.Indent || lx.last == token.Dedent {
				// пустая строка
				continue
			}
			lx.last = token.Newline
			return token.Token{Kind: token.Newline, Span: lx.cursor.SpanFrom(start), Text: "\n"}
		}

		tok := lx.scanToken(ch)
		lx.last = tok.Kind
		return tok
	}
}

func (lx *Lexer) scanToken(ch byte) token.Token {
	switch {
	case isIdentStartByte(ch) || ch >= 0x80:
		return lx.scanIdentOrKeyword()
	case isDec(ch):
		return lx.scanNumber()
	case ch == '.' && isDec(lx.cursor.PeekAt(1)):
		return lx.scanNumber()
	case ch == '"' || ch == '\'':
		return lx.scanString(lx.cursor.Mark(), token.StringLit)
	default:
		tok := lx.scanOperator()
		switch {
		case tok.Kind.IsOpenBracket():
			lx.depth++
		case tok.Kind.IsCloseBracket():
			if lx.depth == 0 {
				lx.report(diag.LexUnbalancedBracket, tok.Span, "unmatched '"+tok.Text+"'")
			} else {
				lx.depth--
			}
		}
		return tok
	}
}

// skipInsignificant skips blanks, comments, line continuations and, inside
// brackets, newlines.
func (lx *Lexer) skipInsignificant() {
	for !lx.cursor.EOF() {
		switch ch := lx.cursor.Peek(); ch {
		case ' ', '\t', '\f', '\r':
			lx.cursor.Bump()
		case '#':
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
		case '\\':
			if lx.cursor.PeekAt(1) != '\n' {
				return
			}
			lx.cursor.Bump()
			lx.cursor.Bump()
		case '\n':
			if lx.depth == 0 {
				return
			}
			lx.cursor.Bump()
		default:
			return
		}
	}
}

// measureIndent reads the leading whitespace of a logical line and queues
// INDENT or DEDENT tokens. Blank and comment-only lines leave the stack alone.
func (lx *Lexer) measureIndent() {
	start := lx.cursor.Mark()
	col := 0
	sawSpace, mixed := false, false
scan:
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case ' ':
			col++
			sawSpace = true
		case '\t':
			col = (col/lx.opts.TabWidth + 1) * lx.opts.TabWidth
			mixed = mixed || sawSpace
		case '\f':
			col = 0
		default:
			break scan
		}
		lx.cursor.Bump()
	}
	if lx.cursor.EOF() {
		return
	}
	switch lx.cursor.Peek() {
	case '\n', '#', '\r':
		return
	}
	sp := lx.cursor.SpanFrom(start)
	if mixed {
		lx.warn(diag.LexTabAfterSpaces, sp, "indentation mixes tabs after spaces")
	}

	top := lx.indents[len(lx.indents)-1]
	switch {
	case col > top:
		lx.indents = append(lx.indents, col)
		lx.pending = append(lx.pending, token.Token{Kind: token.Indent, Span: sp})
	case col < top:
		for len(lx.indents) > 1 && col < lx.indents[len(lx.indents)-1] {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.pending = append(lx.pending, token.Token{Kind: token.Dedent, Span: lx.emptySpan()})
		}
		if col != lx.indents[len(lx.indents)-1] {
			// восстанавливаемся на ближайшем внешнем уровне
			lx.report(diag.LexInconsistentDedent, sp, "unindent does not match any outer indentation level")
		}
	}
}

// finish queues the closing NEWLINE and DEDENTs followed by EOF.
func (lx *Lexer) finish() {
	sp := lx.emptySpan()
	if lx.last != token.Newline && lx.last != token.Dedent && lx.last != token.Indent {
		lx.pending = append(lx.pending, token.Token{Kind: token.Newline, Span: sp})
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.pending = append(lx.pending, token.Token{Kind: token.Dedent, Span: sp})
	}
	lx.pending = append(lx.pending, token.Token{Kind: token.EOF, Span: sp})
	lx.done = true
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) text(sp source.Span) string {
	return string(lx.file.Content[sp.Start:sp.End])
}
