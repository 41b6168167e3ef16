package parser

import (
	"codescope/internal/ast"
	"codescope/internal/token"
)

// Таблица приоритетов для бинарных операторов уровня "expr".
// Чем больше число, тем выше приоритет. ** разбирается отдельно в parsePower.
const (
	precBitwiseOr      = 1 // |
	precBitwiseXor     = 2 // ^
	precBitwiseAnd     = 3 // &
	precShift          = 4 // << >>
	precAdditive       = 5 // + -
	precMultiplicative = 6 // * / // %
)

// binaryPrec возвращает приоритет оператора или -1. Все операторы этого
// уровня левоассоциативны.
func binaryPrec(kind token.Kind) int {
	switch kind {
	case token.Pipe:
		return precBitwiseOr
	case token.Caret:
		return precBitwiseXor
	case token.Amp:
		return precBitwiseAnd
	case token.Shl, token.Shr:
		return precShift
	case token.Plus, token.Minus:
		return precAdditive
	case token.Star, token.Slash, token.SlashSlash, token.Percent:
		return precMultiplicative
	default:
		return -1
	}
}

var binaryOps = map[token.Kind]ast.Op{
	token.Plus:       ast.OpAdd,
	token.Minus:      ast.OpSub,
	token.Star:       ast.OpMul,
	token.Slash:      ast.OpDiv,
	token.SlashSlash: ast.OpFloorDiv,
	token.Percent:    ast.OpMod,
	token.StarStar:   ast.OpPow,
	token.Amp:        ast.OpBitAnd,
	token.Pipe:       ast.OpBitOr,
	token.Caret:      ast.OpBitXor,
	token.Shl:        ast.OpLShift,
	token.Shr:        ast.OpRShift,
}

// augOps maps compound assignment tokens to the underlying binary operator.
var augOps = map[token.Kind]ast.Op{
	token.PlusAssign:  ast.OpAdd,
	token.MinusAssign: ast.OpSub,
	token.StarAssign:  ast.OpMul,
	token.SlashAssign: ast.OpDiv,
	token.FloorAssign: ast.OpFloorDiv,
	token.PctAssign:   ast.OpMod,
	token.PowAssign:   ast.OpPow,
	token.AmpAssign:   ast.OpBitAnd,
	token.PipeAssign:  ast.OpBitOr,
	token.CaretAssign: ast.OpBitXor,
	token.ShlAssign:   ast.OpLShift,
	token.ShrAssign:   ast.OpRShift,
}

var unaryOps = map[token.Kind]ast.Op{
	token.Minus: ast.OpNeg,
	token.Plus:  ast.OpPos,
	token.Tilde: ast.OpInvert,
}

// compareOp reads one comparison operator, including the two-token forms
// `not in` and `is not`. ok is false when the next token does not start one.
func (p *Parser) compareOp() (ast.Op, bool) {
	switch p.peek().Kind {
	case token.EqEq:
		p.advance()
		return ast.OpEq, true
	case token.BangEq:
		p.advance()
		return ast.OpNotEq, true
	case token.Lt:
		p.advance()
		return ast.OpLt, true
	case token.LtEq:
		p.advance()
		return ast.OpLtE, true
	case token.Gt:
		p.advance()
		return ast.OpGt, true
	case token.GtEq:
		p.advance()
		return ast.OpGtE, true
	case token.KwIn:
		p.advance()
		return ast.OpIn, true
	case token.KwNot:
		if p.peekAt(1).Kind == token.KwIn {
			p.advance()
			p.advance()
			return ast.OpNotIn, true
		}
	case token.KwIs:
		p.advance()
		if p.eat(token.KwNot) {
			return ast.OpIsNot, true
		}
		return ast.OpIs, true
	}
	return ast.OpInvalid, false
}
