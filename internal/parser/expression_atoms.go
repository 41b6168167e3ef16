package parser

import (
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/token"
)

func (p *Parser) parseAtom() (ast.NodeID, bool) {
	tok := p.peek()
	switch tok.Kind {
	case token.Ident:
		p.advance()
		return p.b.NewName(tok.Span, tok.Text), true
	case token.IntLit:
		p.advance()
		return p.b.NewConst(tok.Span, ast.ConstInt, tok.Text), true
	case token.FloatLit:
		p.advance()
		return p.b.NewConst(tok.Span, ast.ConstFloat, tok.Text), true
	case token.StringLit, token.BytesLit:
		return p.parseStrings(), true
	case token.KwNone:
		p.advance()
		return p.b.NewConst(tok.Span, ast.ConstNone, tok.Text), true
	case token.KwTrue, token.KwFalse:
		p.advance()
		return p.b.NewConst(tok.Span, ast.ConstBool, tok.Text), true
	case token.Ellipsis:
		p.advance()
		return p.b.NewConst(tok.Span, ast.ConstEllipsis, tok.Text), true
	case token.LParen:
		return p.parseParen()
	case token.LBracket:
		return p.parseList()
	case token.LBrace:
		return p.parseBraces()
	case token.Invalid:
		// лексер уже сообщил об ошибке
		p.advance()
		return p.b.NewBad(tok.Span), true
	default:
		p.err(diag.SynExpectExpression, "expected expression, got "+describe(tok))
		return ast.NoNodeID, false
	}
}

// parseStrings joins adjacent literals; any bytes piece makes the whole
// constant bytes.
func (p *Parser) parseStrings() ast.NodeID {
	start := p.peek().Span
	kind := ast.ConstStr
	var parts []string
	for p.atOr(token.StringLit, token.BytesLit) {
		tok := p.advance()
		if tok.Kind == token.BytesLit {
			kind = ast.ConstBytes
		}
		parts = append(parts, tok.Text)
	}
	return p.b.NewConst(p.spanFrom(start), kind, strings.Join(parts, " "))
}

func (p *Parser) parseParen() (ast.NodeID, bool) {
	open := p.advance().Span
	if p.at(token.RParen) {
		p.advance()
		return p.b.NewSeq(ast.KindTuple, p.spanFrom(open), nil), true
	}
	if p.at(token.KwYield) {
		y, ok := p.parseYield()
		if !ok {
			return y, false
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
			return y, false
		}
		return y, true
	}
	first, ok := p.parseStarOrTest()
	if !ok {
		return first, false
	}
	if p.at(token.KwFor) {
		return p.unsupportedComprehension(open, token.RParen), true
	}
	if !p.at(token.Comma) {
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
			return first, false
		}
		return first, true
	}
	elts := []ast.NodeID{first}
	for p.eat(token.Comma) && !p.at(token.RParen) {
		next, ok := p.parseStarOrTest()
		if !ok {
			return next, false
		}
		elts = append(elts, next)
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close tuple"); !ok {
		return first, false
	}
	return p.b.NewSeq(ast.KindTuple, p.spanFrom(open), elts), true
}

func (p *Parser) parseList() (ast.NodeID, bool) {
	open := p.advance().Span
	var elts []ast.NodeID
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		elt, ok := p.parseStarOrTest()
		if !ok {
			return elt, false
		}
		if len(elts) == 0 && p.at(token.KwFor) {
			return p.unsupportedComprehension(open, token.RBracket), true
		}
		elts = append(elts, elt)
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close list"); !ok {
		return ast.NoNodeID, false
	}
	return p.b.NewSeq(ast.KindList, p.spanFrom(open), elts), true
}

// parseBraces decides between a dict and a set display by the first entry.
func (p *Parser) parseBraces() (ast.NodeID, bool) {
	open := p.advance().Span
	if p.eat(token.RBrace) {
		return p.b.NewDict(p.spanFrom(open), nil, nil), true
	}
	var keys, values []ast.NodeID
	isDict := false
	first := true
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		switch {
		case p.at(token.StarStar) && (first || isDict):
			isDict = true
			p.advance()
			v, ok := p.parseExpr()
			if !ok {
				return v, false
			}
			keys = append(keys, ast.NoNodeID)
			values = append(values, v)
		default:
			k, ok := p.parseStarOrTest()
			if !ok {
				return k, false
			}
			if first && p.at(token.Colon) {
				isDict = true
			}
			if isDict {
				if _, ok := p.expect(token.Colon, diag.SynExpectColon, "expected ':' in dict entry"); !ok {
					return k, false
				}
				v, ok := p.parseTest()
				if !ok {
					return v, false
				}
				keys = append(keys, k)
				values = append(values, v)
			} else {
				values = append(values, k)
			}
		}
		if first && p.at(token.KwFor) {
			return p.unsupportedComprehension(open, token.RBrace), true
		}
		first = false
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}'"); !ok {
		return ast.NoNodeID, false
	}
	if isDict {
		return p.b.NewDict(p.spanFrom(open), keys, values), true
	}
	return p.b.NewSeq(ast.KindSet, p.spanFrom(open), values), true
}
