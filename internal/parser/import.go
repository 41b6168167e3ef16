package parser

import (
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/token"
)

// parseImport: import a.b [as c], d
func (p *Parser) parseImport() (ast.NodeID, bool) {
	start := p.advance().Span
	var names []ast.NodeID
	for {
		alias, ok := p.parseAlias(true)
		if !ok {
			return ast.NoNodeID, false
		}
		names = append(names, alias)
		if !p.eat(token.Comma) {
			break
		}
	}
	return p.b.NewImport(p.spanFrom(start), names), true
}

// parseImportFrom: from ..pkg.mod import x [as y], (z, w) | *
func (p *Parser) parseImportFrom() (ast.NodeID, bool) {
	start := p.advance().Span
	level := 0
	for {
		if p.eat(token.Dot) {
			level++
		} else if p.eat(token.Ellipsis) {
			level += 3
		} else {
			break
		}
	}
	module := ""
	if p.at(token.Ident) {
		name, _, ok := p.parseDottedName()
		if !ok {
			return ast.NoNodeID, false
		}
		module = name
	} else if level == 0 {
		p.err(diag.SynExpectIdentifier, "expected module name after 'from'")
		return ast.NoNodeID, false
	}
	if _, ok := p.expect(token.KwImport, diag.SynUnexpectedToken, "expected 'import'"); !ok {
		return ast.NoNodeID, false
	}

	var names []ast.NodeID
	if star := p.peek(); star.Kind == token.Star {
		p.advance()
		names = append(names, p.b.NewAlias(star.Span, "*", ""))
		return p.b.NewImportFrom(p.spanFrom(start), module, level, names), true
	}
	paren := p.eat(token.LParen)
	for {
		alias, ok := p.parseAlias(false)
		if !ok {
			return ast.NoNodeID, false
		}
		names = append(names, alias)
		if !p.eat(token.Comma) || paren && p.at(token.RParen) {
			break
		}
	}
	if paren {
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' after imported names"); !ok {
			return ast.NoNodeID, false
		}
	}
	return p.b.NewImportFrom(p.spanFrom(start), module, level, names), true
}

func (p *Parser) parseAlias(dotted bool) (ast.NodeID, bool) {
	var (
		name string
		sp   source.Span
		ok   bool
	)
	if dotted {
		name, sp, ok = p.parseDottedName()
	} else {
		name, sp, ok = p.parseIdent("imported name")
	}
	if !ok {
		return ast.NoNodeID, false
	}
	asName := ""
	if p.eat(token.KwAs) {
		as, asSpan, ok := p.parseIdent("alias name")
		if !ok {
			return ast.NoNodeID, false
		}
		asName = as
		sp = sp.Cover(asSpan)
	}
	return p.b.NewAlias(sp, name, asName), true
}

func (p *Parser) parseDottedName() (string, source.Span, bool) {
	first, sp, ok := p.parseIdent("module name")
	if !ok {
		return "", sp, false
	}
	parts := []string{first}
	for p.at(token.Dot) && p.peekAt(1).Kind == token.Ident {
		p.advance()
		tok := p.advance()
		parts = append(parts, tok.Text)
		sp = sp.Cover(tok.Span)
	}
	return strings.Join(parts, "."), sp, true
}
