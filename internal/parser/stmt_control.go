package parser

import (
	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

// headerFailed drops the rest of a broken compound statement, including its
// indented body, and leaves a Bad node in its place.
func (p *Parser) headerFailed(start source.Span) ast.NodeID {
	p.resyncStatement()
	return p.b.NewBad(p.badSpan(start))
}

// parseIf handles both `if` and `elif`; an elif chain nests in Else.
func (p *Parser) parseIf() ast.NodeID {
	start := p.advance().Span
	test, ok := p.parseTest()
	if !ok {
		return p.headerFailed(start)
	}
	body := p.parseBlock("if condition")
	var orelse []ast.NodeID
	switch {
	case p.at(token.KwElif):
		orelse = []ast.NodeID{p.parseIf()}
	case p.at(token.KwElse):
		p.advance()
		orelse = p.parseBlock("'else'")
	}
	return p.b.NewIf(p.spanFrom(start), test, body, orelse)
}

func (p *Parser) parseWhile() ast.NodeID {
	start := p.advance().Span
	test, ok := p.parseTest()
	if !ok {
		return p.headerFailed(start)
	}
	body := p.parseLoopBody("while condition")
	orelse := p.parseLoopElse()
	return p.b.NewWhile(p.spanFrom(start), test, body, orelse)
}

func (p *Parser) parseFor() ast.NodeID {
	start := p.advance().Span
	target, ok := p.parseExprList()
	if !ok {
		return p.headerFailed(start)
	}
	p.checkTarget(target, "assign to")
	if _, ok := p.expect(token.KwIn, diag.SynForMissingIn, "expected 'in' after for-loop target"); !ok {
		return p.headerFailed(start)
	}
	iter, ok := p.parseTestList()
	if !ok {
		return p.headerFailed(start)
	}
	body := p.parseLoopBody("for-loop header")
	orelse := p.parseLoopElse()
	return p.b.NewFor(p.spanFrom(start), target, iter, body, orelse)
}

func (p *Parser) parseLoopBody(what string) []ast.NodeID {
	p.loopDepth++
	body := p.parseBlock(what)
	p.loopDepth--
	return body
}

// parseLoopElse: else-ветка цикла выполняется вне самого цикла.
func (p *Parser) parseLoopElse() []ast.NodeID {
	if !p.eat(token.KwElse) {
		return nil
	}
	return p.parseBlock("'else'")
}

func (p *Parser) parseTry() ast.NodeID {
	start := p.advance().Span
	body := p.parseBlock("'try'")

	var handlers []ast.NodeID
	for p.at(token.KwExcept) {
		hstart := p.advance().Span
		typ := ast.NoNodeID
		name, nameSpan := "", source.Span{}
		if !p.at(token.Colon) {
			t, ok := p.parseTest()
			if !ok {
				handlers = append(handlers, p.headerFailed(hstart))
				continue
			}
			typ = t
			if p.eat(token.KwAs) {
				n, sp, ok := p.parseIdent("exception variable name")
				if !ok {
					handlers = append(handlers, p.headerFailed(hstart))
					continue
				}
				name, nameSpan = n, sp
			}
		}
		hbody := p.parseBlock("except clause")
		handlers = append(handlers, p.b.NewExceptHandler(p.spanFrom(hstart), typ, name, nameSpan, hbody))
	}

	var orelse, finally []ast.NodeID
	if p.eat(token.KwElse) {
		orelse = p.parseBlock("'else'")
	}
	hasFinally := p.eat(token.KwFinally)
	if hasFinally {
		finally = p.parseBlock("'finally'")
	}
	if len(handlers) == 0 && !hasFinally {
		p.errAt(diag.SynTryWithoutHandler, start, "'try' requires at least one 'except' or a 'finally' clause")
	}
	return p.b.NewTry(p.spanFrom(start), body, handlers, orelse, finally)
}

// parseWith desugars `with a as x, b as y:` into nested With nodes.
func (p *Parser) parseWith() ast.NodeID {
	start := p.advance().Span
	type item struct {
		start   source.Span
		context ast.NodeID
		target  ast.NodeID
	}
	var items []item
	for {
		istart := p.peek().Span
		ctx, ok := p.parseTest()
		if !ok {
			return p.headerFailed(start)
		}
		target := ast.NoNodeID
		if p.eat(token.KwAs) {
			t, ok := p.parseExpr()
			if !ok {
				return p.headerFailed(start)
			}
			p.checkTarget(t, "assign to")
			target = t
		}
		items = append(items, item{start: istart, context: ctx, target: target})
		if !p.eat(token.Comma) {
			break
		}
	}
	items[0].start = start
	body := p.parseBlock("'with' items")
	end := p.lastSpan
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		w := p.b.NewWith(it.start.Cover(end), it.context, it.target, body)
		body = []ast.NodeID{w}
	}
	return body[0]
}
