package ast

// Op covers binary, unary, comparison and boolean operators.
type Op uint8

const (
	OpInvalid Op = iota
	// binary
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLShift
	OpRShift
	// unary
	OpNeg
	OpPos
	OpNot
	OpInvert
	// comparison
	OpEq
	OpNotEq
	OpLt
	OpLtE
	OpGt
	OpGtE
	OpIn
	OpNotIn
	OpIs
	OpIsNot
	// boolean
	OpAnd
	OpOr
)

var opText = map[Op]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "**",
	OpBitAnd:   "&",
	OpBitOr:    "|",
	OpBitXor:   "^",
	OpLShift:   "<<",
	OpRShift:   ">>",
	OpNeg:      "-",
	OpPos:      "+",
	OpNot:      "not",
	OpInvert:   "~",
	OpEq:       "==",
	OpNotEq:    "!=",
	OpLt:       "<",
	OpLtE:      "<=",
	OpGt:       ">",
	OpGtE:      ">=",
	OpIn:       "in",
	OpNotIn:    "not in",
	OpIs:       "is",
	OpIsNot:    "is not",
	OpAnd:      "and",
	OpOr:       "or",
}

func (op Op) String() string {
	if s, ok := opText[op]; ok {
		return s
	}
	return "?"
}

// IsArithmetic reports operators whose operands are numeric in the common case.
func (op Op) IsArithmetic() bool {
	return op >= OpAdd && op <= OpPow
}

func (op Op) IsBitwise() bool {
	return op >= OpBitAnd && op <= OpRShift
}
