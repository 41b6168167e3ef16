package parser

import (
	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

// advance съедает следующий токен и обновляет lastSpan. EOF не съедается.
func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
		p.lastSpan = tok.Span
	}
	return tok
}

// getDiagnosticSpan выбирает лучший span для диагностики. На синтетических токенах
// нулевой длины указываем на конец последнего съеденного токена.
func (p *Parser) getDiagnosticSpan() source.Span {
	peek := p.peek()
	if peek.Span.Empty() && p.lastSpan.End > 0 {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return peek.Span
}

// expect ожидает конкретный токен. Если его нет, репортим и возвращаем (invalid,false).
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	sp := p.getDiagnosticSpan()
	p.report(code, diag.SevError, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp}, false
}

// eat consumes k if present.
func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) err(code diag.Code, msg string) bool {
	return p.report(code, diag.SevError, p.getDiagnosticSpan(), msg)
}

func (p *Parser) errAt(code diag.Code, sp source.Span, msg string) bool {
	return p.report(code, diag.SevError, sp, msg)
}

func (p *Parser) report(code diag.Code, sev diag.Severity, sp source.Span, msg string) bool {
	if sev == diag.SevError {
		if p.opts.Enough() {
			return false // достигли максимального количества ошибок
		}
		p.opts.CurrentErrors++
	}
	if p.opts.Reporter == nil {
		return false
	}
	p.opts.Reporter.Report(code, sev, ast.NoNodeID, sp, msg, nil)
	return true
}

// resyncStatement пропускает токены до конца логической строки. Если за ней
// начинается вложенный блок, он тоже пропускается целиком, чтобы не получить
// каскад "unexpected indent".
func (p *Parser) resyncStatement() {
	for {
		switch p.peek().Kind {
		case token.EOF, token.Dedent:
			return
		case token.Newline:
			p.advance()
			if p.at(token.Indent) {
				p.skipBlock()
			}
			return
		case token.Indent:
			p.skipBlock()
			return
		default:
			p.advance()
		}
	}
}

// skipBlock consumes an INDENT ... DEDENT run including nested blocks.
func (p *Parser) skipBlock() {
	depth := 0
	for !p.at(token.EOF) {
		switch p.advance().Kind {
		case token.Indent:
			depth++
		case token.Dedent:
			depth--
			if depth <= 0 {
				return
			}
		}
	}
}

// skipToClose skips to the bracket closing the current group and consumes it.
func (p *Parser) skipToClose(closer token.Kind) {
	depth := 0
	for !p.at(token.EOF) && !p.at(token.Newline) {
		tok := p.peek()
		switch {
		case tok.Kind.IsOpenBracket():
			depth++
		case tok.Kind.IsCloseBracket():
			if depth == 0 {
				if tok.Kind == closer {
					p.advance()
				}
				return
			}
			depth--
		}
		p.advance()
	}
}

func (p *Parser) span(id ast.NodeID) source.Span {
	return p.b.Span(id)
}

// spanFrom covers start through the last consumed token.
func (p *Parser) spanFrom(start source.Span) source.Span {
	return start.Cover(p.lastSpan)
}
