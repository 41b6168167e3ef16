package parser

import (
	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

// parseDecorated collects `@expr NEWLINE` lines and attaches them to the
// following def or class.
func (p *Parser) parseDecorated() ast.NodeID {
	start := p.peek().Span
	var decorators []ast.NodeID
	for p.eat(token.At) {
		d, ok := p.parseTest()
		if !ok {
			return p.headerFailed(start)
		}
		decorators = append(decorators, d)
		if _, ok := p.expect(token.Newline, diag.SynExpectNewline, "expected end of line after decorator"); !ok {
			return p.headerFailed(start)
		}
	}
	switch p.peek().Kind {
	case token.KwDef:
		return p.parseFunctionDef(decorators, start)
	case token.KwClass:
		return p.parseClassDef(decorators, start)
	}
	p.err(diag.SynUnexpectedToken, "expected 'def' or 'class' after decorator")
	return p.headerFailed(start)
}

func (p *Parser) parseFunctionDef(decorators []ast.NodeID, start source.Span) ast.NodeID {
	p.advance() // def
	name, nameSpan, ok := p.parseIdent("function name")
	if !ok {
		return p.headerFailed(start)
	}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after function name"); !ok {
		return p.headerFailed(start)
	}
	params, ok := p.parseParams()
	if !ok {
		return p.headerFailed(start)
	}
	returns := ast.NoNodeID
	if p.eat(token.Arrow) {
		r, ok := p.parseTest()
		if !ok {
			return p.headerFailed(start)
		}
		returns = r
	}

	savedLoop := p.loopDepth
	p.loopDepth = 0
	p.funcDepth++
	body := p.parseBlock("function signature")
	p.funcDepth--
	p.loopDepth = savedLoop

	return p.b.NewFunctionDef(p.spanFrom(start), ast.FuncData{
		Name:       p.b.Strings.Intern(name),
		NameSpan:   nameSpan,
		Decorators: decorators,
		Params:     params,
		Returns:    returns,
		Body:       body,
	})
}

// parseParams reads parameters up to and including ')'.
func (p *Parser) parseParams() ([]ast.NodeID, bool) {
	var params []ast.NodeID
	for !p.at(token.RParen) && !p.at(token.EOF) {
		param, ok := p.parseParam(true)
		if !ok {
			p.skipToClose(token.RParen)
			return params, false
		}
		if param.IsValid() {
			params = append(params, param)
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close parameter list"); !ok {
		return params, false
	}
	return params, true
}

// parseParam разбирает один параметр. Маркеры `*` и `/` без имени не дают
// узла и возвращают NoNodeID.
func (p *Parser) parseParam(annotated bool) (ast.NodeID, bool) {
	start := p.peek().Span
	kind := ast.ParamNormal
	switch p.peek().Kind {
	case token.Slash:
		p.advance()
		return ast.NoNodeID, true
	case token.Star:
		p.advance()
		if !p.at(token.Ident) {
			return ast.NoNodeID, true
		}
		kind = ast.ParamVarArgs
	case token.StarStar:
		p.advance()
		kind = ast.ParamKwArgs
	case token.Ident:
	default:
		p.err(diag.SynBadParameter, "expected parameter name, got "+describe(p.peek()))
		return ast.NoNodeID, false
	}
	name, _, ok := p.parseIdent("parameter name")
	if !ok {
		return ast.NoNodeID, false
	}
	annotation, def := ast.NoNodeID, ast.NoNodeID
	if annotated && p.eat(token.Colon) {
		a, ok := p.parseTest()
		if !ok {
			return ast.NoNodeID, false
		}
		annotation = a
	}
	if p.at(token.Assign) {
		eq := p.advance()
		if kind != ast.ParamNormal {
			p.errAt(diag.SynBadParameter, eq.Span, "variadic parameter cannot have a default value")
		}
		d, ok := p.parseTest()
		if !ok {
			return ast.NoNodeID, false
		}
		def = d
	}
	return p.b.NewParam(p.spanFrom(start), name, kind, annotation, def), true
}

func (p *Parser) parseClassDef(decorators []ast.NodeID, start source.Span) ast.NodeID {
	p.advance() // class
	name, nameSpan, ok := p.parseIdent("class name")
	if !ok {
		return p.headerFailed(start)
	}
	var bases, keywords []ast.NodeID
	if p.eat(token.LParen) {
		for !p.at(token.RParen) && !p.at(token.EOF) {
			argStart := p.peek().Span
			switch {
			case p.at(token.Ident) && p.peekAt(1).Kind == token.Assign:
				kw := p.advance().Text
				p.advance()
				v, ok := p.parseTest()
				if !ok {
					return p.headerFailed(start)
				}
				keywords = append(keywords, p.b.NewKeyword(argStart.Cover(p.span(v)), kw, v))
			case p.at(token.StarStar):
				p.advance()
				v, ok := p.parseTest()
				if !ok {
					return p.headerFailed(start)
				}
				keywords = append(keywords, p.b.NewKeyword(argStart.Cover(p.span(v)), "", v))
			default:
				v, ok := p.parseStarOrTest()
				if !ok {
					return p.headerFailed(start)
				}
				bases = append(bases, v)
			}
			if !p.eat(token.Comma) {
				break
			}
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' after base classes"); !ok {
			return p.headerFailed(start)
		}
	}

	savedLoop, savedFunc := p.loopDepth, p.funcDepth
	p.loopDepth, p.funcDepth = 0, 0
	body := p.parseBlock("class definition")
	p.loopDepth, p.funcDepth = savedLoop, savedFunc

	return p.b.NewClassDef(p.spanFrom(start), ast.ClassData{
		Name:       p.b.Strings.Intern(name),
		NameSpan:   nameSpan,
		Decorators: decorators,
		Bases:      bases,
		Keywords:   keywords,
		Body:       body,
	})
}
