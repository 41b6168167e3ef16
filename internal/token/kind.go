package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// layout
	Newline
	Indent
	Dedent

	Ident
	IntLit
	FloatLit
	StringLit
	BytesLit

	// keywords
	KwFalse
	KwNone
	KwTrue
	KwAnd
	KwAs
	KwAssert
	KwBreak
	KwClass
	KwContinue
	KwDef
	KwDel
	KwElif
	KwElse
	KwExcept
	KwFinally
	KwFor
	KwFrom
	KwGlobal
	KwIf
	KwImport
	KwIn
	KwIs
	KwLambda
	KwNonlocal
	KwNot
	KwOr
	KwPass
	KwRaise
	KwReturn
	KwTry
	KwWhile
	KwWith
	KwYield

	// operators and punctuation
	Plus         // +
	Minus        // -
	Star         // *
	StarStar     // **
	Slash        // /
	SlashSlash   // //
	Percent      // %
	At           // @
	Amp          // &
	Pipe         // |
	Caret        // ^
	Tilde        // ~
	Shl          // <<
	Shr          // >>
	Lt           // <
	Gt           // >
	LtEq         // <=
	GtEq         // >=
	EqEq         // ==
	BangEq       // !=
	Assign       // =
	PlusAssign   // +=
	MinusAssign  // -=
	StarAssign   // *=
	SlashAssign  // /=
	FloorAssign  // //=
	PctAssign    // %=
	PowAssign    // **=
	AmpAssign    // &=
	PipeAssign   // |=
	CaretAssign  // ^=
	ShlAssign    // <<=
	ShrAssign    // >>=
	LParen       // (
	RParen       // )
	LBracket     // [
	RBracket     // ]
	LBrace       // {
	RBrace       // }
	Comma        // ,
	Colon        // :
	Dot          // .
	Semicolon    // ;
	Arrow        // ->
	Ellipsis     // ...
	ColonAssign  // :=
)

var kindNames = map[Kind]string{
	Invalid: "Invalid", EOF: "EOF", Newline: "NEWLINE", Indent: "INDENT", Dedent: "DEDENT",
	Ident: "Ident", IntLit: "IntLit", FloatLit: "FloatLit", StringLit: "StringLit", BytesLit: "BytesLit",
	Plus: "+", Minus: "-", Star: "*", StarStar: "**", Slash: "/", SlashSlash: "//", Percent: "%",
	At: "@", Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Shl: "<<", Shr: ">>",
	Lt: "<", Gt: ">", LtEq: "<=", GtEq: ">=", EqEq: "==", BangEq: "!=",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	FloorAssign: "//=", PctAssign: "%=", PowAssign: "**=", AmpAssign: "&=", PipeAssign: "|=",
	CaretAssign: "^=", ShlAssign: "<<=", ShrAssign: ">>=",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
	Comma: ",", Colon: ":", Dot: ".", Semicolon: ";", Arrow: "->", Ellipsis: "...", ColonAssign: ":=",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	for word, kw := range keywords {
		if kw == k {
			return word
		}
	}
	return "Kind(?)"
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= KwFalse && k <= KwYield
}

// IsAugAssign reports compound assignment operators.
func (k Kind) IsAugAssign() bool {
	return k >= PlusAssign && k <= ShrAssign
}

// IsOpenBracket / IsCloseBracket drive the lexer's nesting depth.
func (k Kind) IsOpenBracket() bool {
	return k == LParen || k == LBracket || k == LBrace
}

func (k Kind) IsCloseBracket() bool {
	return k == RParen || k == RBracket || k == RBrace
}
