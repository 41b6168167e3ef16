package parser

import (
	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

// parseSimpleStatements разбирает `a; b; c NEWLINE`. При ошибке вместо
// оператора остаётся Bad-узел, а парсер пропускает строку.
func (p *Parser) parseSimpleStatements() []ast.NodeID {
	var out []ast.NodeID
	for {
		start := p.peek().Span
		stmt, ok := p.parseSmallStatement()
		if !ok {
			p.resyncStatement()
			return append(out, p.b.NewBad(p.badSpan(start)))
		}
		out = append(out, stmt)
		if !p.eat(token.Semicolon) || p.atOr(token.Newline, token.EOF) {
			break
		}
	}
	if p.eat(token.Newline) || p.atOr(token.EOF, token.Dedent) {
		return out
	}
	p.err(diag.SynExpectNewline, "expected end of line, got "+describe(p.peek()))
	p.resyncStatement()
	return out
}

// badSpan covers start..lastSpan, or just start when nothing was consumed.
func (p *Parser) badSpan(start source.Span) source.Span {
	if p.lastSpan.End < start.Start || p.lastSpan.File != start.File {
		return start
	}
	return start.Cover(p.lastSpan)
}

func (p *Parser) parseSmallStatement() (ast.NodeID, bool) {
	tok := p.peek()
	switch tok.Kind {
	case token.KwPass:
		p.advance()
		return p.b.NewSimple(ast.KindPass, tok.Span), true
	case token.KwBreak, token.KwContinue:
		p.advance()
		if p.loopDepth == 0 {
			p.errAt(diag.SynBreakOutsideLoop, tok.Span, "'"+tok.Text+"' outside loop")
		}
		kind := ast.KindBreak
		if tok.Kind == token.KwContinue {
			kind = ast.KindContinue
		}
		return p.b.NewSimple(kind, tok.Span), true
	case token.KwReturn:
		return p.parseReturn()
	case token.KwRaise:
		return p.parseRaise()
	case token.KwGlobal, token.KwNonlocal:
		return p.parseNameList()
	case token.KwDel:
		return p.parseDel()
	case token.KwAssert:
		return p.parseAssert()
	case token.KwImport:
		return p.parseImport()
	case token.KwFrom:
		return p.parseImportFrom()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseReturn() (ast.NodeID, bool) {
	start := p.advance().Span
	value := ast.NoNodeID
	if startsExpr(p.peek().Kind) {
		v, ok := p.parseTestList()
		if !ok {
			return v, false
		}
		value = v
	}
	sp := p.spanFrom(start)
	if p.funcDepth == 0 {
		p.errAt(diag.SynReturnOutsideFunction, sp, "'return' outside function")
	}
	return p.b.NewReturn(sp, value), true
}

func (p *Parser) parseRaise() (ast.NodeID, bool) {
	start := p.advance().Span
	exc, cause := ast.NoNodeID, ast.NoNodeID
	if startsExpr(p.peek().Kind) {
		v, ok := p.parseTest()
		if !ok {
			return v, false
		}
		exc = v
		if p.eat(token.KwFrom) {
			c, ok := p.parseTest()
			if !ok {
				return c, false
			}
			cause = c
		}
	}
	return p.b.NewRaise(p.spanFrom(start), exc, cause), true
}

func (p *Parser) parseNameList() (ast.NodeID, bool) {
	kw := p.advance()
	kind := ast.KindGlobal
	if kw.Kind == token.KwNonlocal {
		kind = ast.KindNonlocal
	}
	var names []string
	for {
		name, _, ok := p.parseIdent("name")
		if !ok {
			return ast.NoNodeID, false
		}
		names = append(names, name)
		if !p.eat(token.Comma) {
			break
		}
	}
	return p.b.NewNameList(kind, p.spanFrom(kw.Span), names), true
}

func (p *Parser) parseDel() (ast.NodeID, bool) {
	start := p.advance().Span
	var targets []ast.NodeID
	for {
		t, ok := p.parseExpr()
		if !ok {
			return t, false
		}
		p.checkTarget(t, "delete")
		targets = append(targets, t)
		if !p.eat(token.Comma) || !startsExpr(p.peek().Kind) {
			break
		}
	}
	return p.b.NewDel(p.spanFrom(start), targets), true
}

func (p *Parser) parseAssert() (ast.NodeID, bool) {
	start := p.advance().Span
	test, ok := p.parseTest()
	if !ok {
		return test, false
	}
	msg := ast.NoNodeID
	if p.eat(token.Comma) {
		m, ok := p.parseTest()
		if !ok {
			return m, false
		}
		msg = m
	}
	return p.b.NewAssert(p.spanFrom(start), test, msg), true
}

// parseExprStatement covers bare expressions and every assignment form.
func (p *Parser) parseExprStatement() (ast.NodeID, bool) {
	start := p.peek().Span
	first, ok := p.parseTestListOrYield()
	if !ok {
		return first, false
	}
	next := p.peek()
	switch {
	case next.Kind == token.Colon:
		p.advance()
		if !isSingleTarget(p.b.Kind(first)) {
			p.errAt(diag.SynInvalidTarget, p.span(first), "only a single name, attribute or subscript can be annotated")
		}
		ann, ok := p.parseTest()
		if !ok {
			return ann, false
		}
		value := ast.NoNodeID
		if p.eat(token.Assign) {
			v, ok := p.parseTestListOrYield()
			if !ok {
				return v, false
			}
			value = v
		}
		return p.b.NewAnnAssign(p.spanFrom(start), first, ann, value), true

	case next.Kind.IsAugAssign():
		p.advance()
		if !isSingleTarget(p.b.Kind(first)) {
			p.errAt(diag.SynInvalidTarget, p.span(first), "illegal expression for augmented assignment")
		}
		value, ok := p.parseTestListOrYield()
		if !ok {
			return value, false
		}
		return p.b.NewAugAssign(p.spanFrom(start), first, augOps[next.Kind], value), true

	case next.Kind == token.Assign:
		exprs := []ast.NodeID{first}
		for p.eat(token.Assign) {
			e, ok := p.parseTestListOrYield()
			if !ok {
				return e, false
			}
			exprs = append(exprs, e)
		}
		targets := exprs[:len(exprs)-1]
		for _, t := range targets {
			p.checkTarget(t, "assign to")
		}
		return p.b.NewAssign(p.spanFrom(start), targets, exprs[len(exprs)-1]), true

	case next.Kind == token.ColonAssign:
		p.err(diag.SynUnexpectedToken, "assignment expressions are not supported")
		return first, false
	}
	return p.b.NewExprStmt(p.span(first), first), true
}

func isSingleTarget(k ast.Kind) bool {
	return k == ast.KindName || k == ast.KindAttribute || k == ast.KindSubscript
}

// checkTarget reports expressions that cannot be stored to or deleted.
func (p *Parser) checkTarget(id ast.NodeID, verb string) {
	stack := []ast.NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch k := p.b.Kind(cur); k {
		case ast.KindName, ast.KindAttribute, ast.KindSubscript, ast.KindBad:
		case ast.KindTuple, ast.KindList:
			seq, _ := p.b.Seq(cur)
			stack = append(stack, seq.Elts...)
		case ast.KindStarred:
			u, _ := p.b.Unary(cur)
			stack = append(stack, u.Operand)
		default:
			p.errAt(diag.SynInvalidTarget, p.span(cur), "cannot "+verb+" "+targetNoun(k))
		}
	}
}

func targetNoun(k ast.Kind) string {
	switch k {
	case ast.KindConst:
		return "literal"
	case ast.KindCall:
		return "function call"
	case ast.KindDict, ast.KindSet:
		return "display"
	default:
		return "expression"
	}
}
