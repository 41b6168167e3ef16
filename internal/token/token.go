package token

import (
	"codescope/internal/source"
)

// Token represents a single source token with its location. Text holds the
// source slice, or the NFKC-normalized name for identifiers.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsLiteral reports whether the token is a numeric, string or keyword literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, BytesLit, KwTrue, KwFalse, KwNone:
		return true
	default:
		return false
	}
}

func (t Token) IsIdent() bool { return t.Kind == Ident }

func (t Token) IsKeyword() bool { return t.Kind.IsKeyword() }
