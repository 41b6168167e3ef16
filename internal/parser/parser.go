package parser

import (
	"slices"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/lexer"
	"codescope/internal/source"
	"codescope/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough - проверить, достигли ли мы максимального количества ошибок
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

type Result struct {
	Module ast.NodeID
	Errors uint
}

// Parser хранит состояние парсера на один файл
type Parser struct {
	toks     []token.Token
	pos      int
	b        *ast.Builder
	file     *source.File
	opts     Options
	lastSpan source.Span // span последнего съеденного токена

	loopDepth int
	funcDepth int
}

// ParseFile builds the module tree for file from an already tokenized stream.
// toks must end with EOF, which lexer.Tokenize guarantees.
func ParseFile(b *ast.Builder, file *source.File, key string, toks []token.Token, opts Options) Result {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		toks = append(toks, token.Token{Kind: token.EOF, Span: source.Span{File: file.ID, Start: uint32(len(file.Content)), End: uint32(len(file.Content))}})
	}
	p := Parser{
		toks: toks,
		b:    b,
		file: file,
		opts: opts,
	}
	p.lastSpan = source.Span{File: file.ID}

	body := p.parseStatements(token.EOF)
	span := source.Span{File: file.ID, Start: 0, End: uint32(len(file.Content))}
	mod := b.NewModule(span, file.ID, key, body)
	return Result{Module: mod, Errors: p.opts.CurrentErrors}
}

// Parse lexes and parses file in one step, reporting lexical and syntax
// problems to the same reporter.
func Parse(b *ast.Builder, file *source.File, key string, opts Options) Result {
	toks := lexer.Tokenize(file, lexer.Options{Reporter: opts.Reporter})
	return ParseFile(b, file, key, toks, opts)
}

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

// parseStatements читает операторы до stop (EOF или DEDENT).
func (p *Parser) parseStatements(stop token.Kind) []ast.NodeID {
	var body []ast.NodeID
	for !p.at(stop) && !p.at(token.EOF) {
		if p.at(token.Dedent) {
			// лишний DEDENT после восстановления
			p.advance()
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	return body
}

// parseStatement returns one compound statement or every small statement of
// a `;`-separated line.
func (p *Parser) parseStatement() []ast.NodeID {
	switch p.peek().Kind {
	case token.Indent:
		p.err(diag.SynUnexpectedIndent, "unexpected indent")
		p.advance()
		body := p.parseStatements(token.Dedent)
		if p.at(token.Dedent) {
			p.advance()
		}
		return body
	case token.KwIf:
		return []ast.NodeID{p.parseIf()}
	case token.KwWhile:
		return []ast.NodeID{p.parseWhile()}
	case token.KwFor:
		return []ast.NodeID{p.parseFor()}
	case token.KwTry:
		return []ast.NodeID{p.parseTry()}
	case token.KwWith:
		return []ast.NodeID{p.parseWith()}
	case token.KwDef:
		return []ast.NodeID{p.parseFunctionDef(nil, p.peek().Span)}
	case token.KwClass:
		return []ast.NodeID{p.parseClassDef(nil, p.peek().Span)}
	case token.At:
		return []ast.NodeID{p.parseDecorated()}
	case token.KwElif, token.KwElse, token.KwExcept, token.KwFinally:
		start := p.peek().Span
		p.err(diag.SynUnexpectedToken, "unexpected '"+p.peek().Text+"' without a matching block")
		p.resyncStatement()
		return []ast.NodeID{p.b.NewBad(start.Cover(p.lastSpan))}
	default:
		return p.parseSimpleStatements()
	}
}

// parseSuite parses the body after a block colon: either the rest of the
// line or an indented block.
func (p *Parser) parseSuite() []ast.NodeID {
	if !p.at(token.Newline) {
		return p.parseSimpleStatements()
	}
	p.advance()
	if !p.at(token.Indent) {
		p.err(diag.SynExpectIndentedBlock, "expected an indented block")
		return nil
	}
	p.advance()
	body := p.parseStatements(token.Dedent)
	if p.at(token.Dedent) {
		p.advance()
	}
	return body
}

// parseBlock expects ':' and a suite.
func (p *Parser) parseBlock(what string) []ast.NodeID {
	if _, ok := p.expect(token.Colon, diag.SynExpectColon, "expected ':' after "+what); !ok {
		p.resyncStatement()
		return nil
	}
	return p.parseSuite()
}

// parseIdent ожидает Ident и возвращает его текст и span.
func (p *Parser) parseIdent(what string) (string, source.Span, bool) {
	if p.at(token.Ident) {
		tok := p.advance()
		return tok.Text, tok.Span, true
	}
	p.err(diag.SynExpectIdentifier, "expected "+what+", got "+describe(p.peek()))
	return "", p.peek().Span, false
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of file"
	case token.Newline:
		return "end of line"
	case token.Indent:
		return "indent"
	case token.Dedent:
		return "dedent"
	}
	return "'" + tok.Text + "'"
}
