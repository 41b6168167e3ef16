package parser

import (
	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

// parseTest: главная точка входа для выражений: условное выражение или lambda.
func (p *Parser) parseTest() (ast.NodeID, bool) {
	if p.at(token.KwLambda) {
		return p.parseLambda()
	}
	body, ok := p.parseOrTest()
	if !ok || !p.at(token.KwIf) {
		return body, ok
	}
	p.advance()
	test, ok := p.parseOrTest()
	if !ok {
		return test, false
	}
	if _, ok := p.expect(token.KwElse, diag.SynUnexpectedToken, "expected 'else' in conditional expression"); !ok {
		return body, false
	}
	orelse, ok := p.parseTest()
	if !ok {
		return orelse, false
	}
	return p.b.NewIfExp(p.span(body).Cover(p.span(orelse)), test, body, orelse), true
}

func (p *Parser) parseOrTest() (ast.NodeID, bool) {
	return p.parseBoolChain(token.KwOr, ast.OpOr, p.parseAndTest)
}

func (p *Parser) parseAndTest() (ast.NodeID, bool) {
	return p.parseBoolChain(token.KwAnd, ast.OpAnd, p.parseNotTest)
}

// parseBoolChain flattens `a or b or c` into one BoolOp.
func (p *Parser) parseBoolChain(kw token.Kind, op ast.Op, operand func() (ast.NodeID, bool)) (ast.NodeID, bool) {
	first, ok := operand()
	if !ok || !p.at(kw) {
		return first, ok
	}
	values := []ast.NodeID{first}
	for p.eat(kw) {
		next, ok := operand()
		if !ok {
			return next, false
		}
		values = append(values, next)
	}
	sp := p.span(first).Cover(p.span(values[len(values)-1]))
	return p.b.NewBoolOp(sp, op, values), true
}

func (p *Parser) parseNotTest() (ast.NodeID, bool) {
	if !p.at(token.KwNot) {
		return p.parseComparison()
	}
	start := p.advance().Span
	operand, ok := p.parseNotTest()
	if !ok {
		return operand, false
	}
	return p.b.NewUnary(start.Cover(p.span(operand)), ast.OpNot, operand), true
}

// parseComparison builds one Compare node for a chain like `a < b <= c`.
func (p *Parser) parseComparison() (ast.NodeID, bool) {
	left, ok := p.parseExpr()
	if !ok {
		return left, false
	}
	var ops []ast.Op
	var comparators []ast.NodeID
	for {
		op, isCmp := p.compareOp()
		if !isCmp {
			break
		}
		right, ok := p.parseExpr()
		if !ok {
			p.err(diag.SynExpectExpression, "expected expression after comparison operator")
			return right, false
		}
		ops = append(ops, op)
		comparators = append(comparators, right)
	}
	if len(ops) == 0 {
		return left, true
	}
	sp := p.span(left).Cover(p.span(comparators[len(comparators)-1]))
	return p.b.NewCompare(sp, left, ops, comparators), true
}

// parseExpr разбирает уровень побитовых и арифметических операторов.
func (p *Parser) parseExpr() (ast.NodeID, bool) {
	return p.parseBinaryExpr(0)
}

// parseBinaryExpr реализует Pratt parsing; minPrec - минимальный приоритет
// для текущего уровня.
func (p *Parser) parseBinaryExpr(minPrec int) (ast.NodeID, bool) {
	left, ok := p.parseFactor()
	if !ok {
		return left, false
	}
	for {
		prec := binaryPrec(p.peek().Kind)
		if prec < 0 || prec < minPrec {
			break
		}
		opTok := p.advance()
		right, ok := p.parseBinaryExpr(prec + 1)
		if !ok {
			return right, false
		}
		sp := p.span(left).Cover(p.span(right))
		left = p.b.NewBinary(sp, binaryOps[opTok.Kind], left, right)
	}
	return left, true
}

func (p *Parser) parseFactor() (ast.NodeID, bool) {
	op, isUnary := unaryOps[p.peek().Kind]
	if !isUnary {
		return p.parsePower()
	}
	start := p.advance().Span
	operand, ok := p.parseFactor()
	if !ok {
		return operand, false
	}
	return p.b.NewUnary(start.Cover(p.span(operand)), op, operand), true
}

// parsePower: ** правоассоциативен и связывает сильнее унарного минуса слева.
func (p *Parser) parsePower() (ast.NodeID, bool) {
	base, ok := p.parsePostfix()
	if !ok || !p.at(token.StarStar) {
		return base, ok
	}
	p.advance()
	exp, ok := p.parseFactor()
	if !ok {
		return exp, false
	}
	return p.b.NewBinary(p.span(base).Cover(p.span(exp)), ast.OpPow, base, exp), true
}

func (p *Parser) parsePostfix() (ast.NodeID, bool) {
	expr, ok := p.parseAtom()
	if !ok {
		return expr, false
	}
	for {
		switch p.peek().Kind {
		case token.LParen:
			expr, ok = p.parseCall(expr)
		case token.Dot:
			p.advance()
			name, nameSpan, found := p.parseIdent("attribute name")
			if !found {
				return expr, false
			}
			expr = p.b.NewAttribute(p.span(expr).Cover(nameSpan), expr, name, nameSpan)
		case token.LBracket:
			expr, ok = p.parseSubscript(expr)
		default:
			return expr, true
		}
		if !ok {
			return expr, false
		}
	}
}

func (p *Parser) parseCall(fn ast.NodeID) (ast.NodeID, bool) {
	p.advance() // (
	var args, keywords []ast.NodeID
	for !p.at(token.RParen) && !p.at(token.EOF) {
		start := p.peek().Span
		switch {
		case p.at(token.Star):
			p.advance()
			v, ok := p.parseTest()
			if !ok {
				return v, false
			}
			args = append(args, p.b.NewStarred(start.Cover(p.span(v)), v))
		case p.at(token.StarStar):
			p.advance()
			v, ok := p.parseTest()
			if !ok {
				return v, false
			}
			keywords = append(keywords, p.b.NewKeyword(start.Cover(p.span(v)), "", v))
		case p.at(token.Ident) && p.peekAt(1).Kind == token.Assign:
			name := p.advance().Text
			p.advance()
			v, ok := p.parseTest()
			if !ok {
				return v, false
			}
			keywords = append(keywords, p.b.NewKeyword(start.Cover(p.span(v)), name, v))
		default:
			v, ok := p.parseTest()
			if !ok {
				return v, false
			}
			if p.at(token.KwFor) {
				return p.unsupportedComprehension(start, token.RParen), true
			}
			args = append(args, v)
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	closeTok, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close call arguments")
	if !ok {
		return fn, false
	}
	return p.b.NewCall(p.span(fn).Cover(closeTok.Span), fn, args, keywords), true
}

func (p *Parser) parseSubscript(value ast.NodeID) (ast.NodeID, bool) {
	open := p.advance().Span
	first, ok := p.parseSliceItem()
	if !ok {
		return first, false
	}
	index := first
	if p.at(token.Comma) {
		items := []ast.NodeID{first}
		for p.eat(token.Comma) && !p.at(token.RBracket) {
			item, ok := p.parseSliceItem()
			if !ok {
				return item, false
			}
			items = append(items, item)
		}
		index = p.b.NewSeq(ast.KindTuple, open.Cover(p.lastSpan), items)
	}
	closeTok, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close subscript")
	if !ok {
		return value, false
	}
	return p.b.NewSubscript(p.span(value).Cover(closeTok.Span), value, index), true
}

// parseSliceItem returns either a plain index or, for `lo:hi:step`, a Tuple
// holding whichever bounds are present.
func (p *Parser) parseSliceItem() (ast.NodeID, bool) {
	start := p.peek().Span
	var parts []ast.NodeID
	if !p.at(token.Colon) {
		lower, ok := p.parseTest()
		if !ok || !p.at(token.Colon) {
			return lower, ok
		}
		parts = append(parts, lower)
	}
	for i := 0; i < 2 && p.eat(token.Colon); i++ {
		if startsExpr(p.peek().Kind) {
			bound, ok := p.parseTest()
			if !ok {
				return bound, false
			}
			parts = append(parts, bound)
		}
	}
	return p.b.NewSeq(ast.KindTuple, p.spanFrom(start), parts), true
}

func (p *Parser) parseLambda() (ast.NodeID, bool) {
	start := p.advance().Span
	var params []ast.NodeID
	for !p.at(token.Colon) && !p.at(token.EOF) && !p.at(token.Newline) {
		param, ok := p.parseParam(false)
		if !ok {
			return ast.NoNodeID, false
		}
		if param.IsValid() {
			params = append(params, param)
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.Colon, diag.SynExpectColon, "expected ':' after lambda parameters"); !ok {
		return ast.NoNodeID, false
	}
	body, ok := p.parseTest()
	if !ok {
		return body, false
	}
	return p.b.NewLambda(start.Cover(p.span(body)), params, body), true
}

// parseStarOrTest допускает `*expr` в списках и целях присваивания.
func (p *Parser) parseStarOrTest() (ast.NodeID, bool) {
	if !p.at(token.Star) {
		return p.parseTest()
	}
	start := p.advance().Span
	operand, ok := p.parseExpr()
	if !ok {
		return operand, false
	}
	return p.b.NewStarred(start.Cover(p.span(operand)), operand), true
}

func (p *Parser) parseStarOrExpr() (ast.NodeID, bool) {
	if !p.at(token.Star) {
		return p.parseExpr()
	}
	start := p.advance().Span
	operand, ok := p.parseExpr()
	if !ok {
		return operand, false
	}
	return p.b.NewStarred(start.Cover(p.span(operand)), operand), true
}

// parseTestList parses `a, b, *c` and returns a bare Tuple when a comma is
// present, otherwise the single element.
func (p *Parser) parseTestList() (ast.NodeID, bool) {
	return p.parseSequence(p.parseStarOrTest)
}

// parseExprList is parseTestList at the `expr` level, used for loop and del
// targets where `in` must not be consumed as a comparison.
func (p *Parser) parseExprList() (ast.NodeID, bool) {
	return p.parseSequence(p.parseStarOrExpr)
}

func (p *Parser) parseSequence(elem func() (ast.NodeID, bool)) (ast.NodeID, bool) {
	first, ok := elem()
	if !ok || !p.at(token.Comma) {
		return first, ok
	}
	elts := []ast.NodeID{first}
	for p.eat(token.Comma) && startsExpr(p.peek().Kind) {
		next, ok := elem()
		if !ok {
			return next, false
		}
		elts = append(elts, next)
	}
	return p.b.NewSeq(ast.KindTuple, p.span(first).Cover(p.lastSpan), elts), true
}

// parseYield handles `yield`, `yield value` and `yield from value`.
func (p *Parser) parseYield() (ast.NodeID, bool) {
	start := p.advance().Span
	if p.eat(token.KwFrom) {
		v, ok := p.parseTest()
		if !ok {
			return v, false
		}
		return p.b.NewYield(start.Cover(p.span(v)), v), true
	}
	if !startsExpr(p.peek().Kind) {
		return p.b.NewYield(start, ast.NoNodeID), true
	}
	v, ok := p.parseTestList()
	if !ok {
		return v, false
	}
	return p.b.NewYield(start.Cover(p.span(v)), v), true
}

func (p *Parser) parseTestListOrYield() (ast.NodeID, bool) {
	if p.at(token.KwYield) {
		return p.parseYield()
	}
	return p.parseTestList()
}

// unsupportedComprehension reports a comprehension and replaces the whole
// bracketed group with a Bad node.
func (p *Parser) unsupportedComprehension(start source.Span, closer token.Kind) ast.NodeID {
	p.err(diag.SynUnexpectedToken, "comprehensions are not supported")
	p.skipToClose(closer)
	return p.b.NewBad(p.spanFrom(start))
}

// startsExpr reports whether k can begin an expression.
func startsExpr(k token.Kind) bool {
	switch k {
	case token.Ident, token.IntLit, token.FloatLit, token.StringLit, token.BytesLit,
		token.KwNone, token.KwTrue, token.KwFalse, token.Ellipsis,
		token.LParen, token.LBracket, token.LBrace,
		token.Minus, token.Plus, token.Tilde, token.Star,
		token.KwNot, token.KwLambda, token.Invalid:
		return true
	}
	return false
}
