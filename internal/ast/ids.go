package ast

// NodeID identifies a node within a Program. IDs come from one counter and are
// never reused; NoNodeID marks an absent child.
type NodeID uint32

const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }

// Kind is the closed set of node variants. Every pipeline stage dispatches on
// it with an exhaustive switch; adding a kind means updating each of them.
type Kind uint8

const (
	KindBad Kind = iota // placeholder for unparseable input
	KindModule

	// statements
	KindExprStmt
	KindAssign
	KindAnnAssign
	KindAugAssign
	KindIf
	KindWhile
	KindFor
	KindBreak
	KindContinue
	KindPass
	KindReturn
	KindRaise
	KindAssert
	KindTry
	KindExceptHandler
	KindWith
	KindFunctionDef
	KindClassDef
	KindImport
	KindImportFrom
	KindGlobal
	KindNonlocal
	KindDel

	// expressions
	KindName
	KindConst
	KindAttribute
	KindSubscript
	KindCall
	KindKeyword
	KindUnary
	KindStarred
	KindBinary
	KindBoolOp
	KindCompare
	KindIfExp
	KindLambda
	KindList
	KindTuple
	KindSet
	KindDict
	KindYield

	// auxiliary
	KindParam
	KindAlias

	kindCount
)

var kindNames = [kindCount]string{
	KindBad:           "Bad",
	KindModule:        "Module",
	KindExprStmt:      "ExprStmt",
	KindAssign:        "Assign",
	KindAnnAssign:     "AnnAssign",
	KindAugAssign:     "AugAssign",
	KindIf:            "If",
	KindWhile:         "While",
	KindFor:           "For",
	KindBreak:         "Break",
	KindContinue:      "Continue",
	KindPass:          "Pass",
	KindReturn:        "Return",
	KindRaise:         "Raise",
	KindAssert:        "Assert",
	KindTry:           "Try",
	KindExceptHandler: "ExceptHandler",
	KindWith:          "With",
	KindFunctionDef:   "FunctionDef",
	KindClassDef:      "ClassDef",
	KindImport:        "Import",
	KindImportFrom:    "ImportFrom",
	KindGlobal:        "Global",
	KindNonlocal:      "Nonlocal",
	KindDel:           "Del",
	KindName:          "Name",
	KindConst:         "Const",
	KindAttribute:     "Attribute",
	KindSubscript:     "Subscript",
	KindCall:          "Call",
	KindKeyword:       "Keyword",
	KindUnary:         "Unary",
	KindStarred:       "Starred",
	KindBinary:        "Binary",
	KindBoolOp:        "BoolOp",
	KindCompare:       "Compare",
	KindIfExp:         "IfExp",
	KindLambda:        "Lambda",
	KindList:          "List",
	KindTuple:         "Tuple",
	KindSet:           "Set",
	KindDict:          "Dict",
	KindYield:         "Yield",
	KindParam:         "Param",
	KindAlias:         "Alias",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsStmt reports whether k appears in statement position. KindBad counts as
// both a statement and an expression.
func (k Kind) IsStmt() bool {
	return k == KindBad || (k >= KindExprStmt && k <= KindDel)
}

func (k Kind) IsExpr() bool {
	return k == KindBad || (k >= KindName && k <= KindYield)
}

// IsScope reports kinds that introduce a lexical scope.
func (k Kind) IsScope() bool {
	switch k {
	case KindModule, KindFunctionDef, KindClassDef, KindLambda:
		return true
	}
	return false
}

// IsFunctionLike reports kinds that get their own control-flow graph.
func (k Kind) IsFunctionLike() bool {
	return k == KindModule || k == KindFunctionDef || k == KindLambda
}

// Ctx is the expression context of a name-like node.
type Ctx uint8

const (
	CtxLoad Ctx = iota
	CtxStore
	CtxDel
)

func (c Ctx) String() string {
	switch c {
	case CtxStore:
		return "Store"
	case CtxDel:
		return "Del"
	default:
		return "Load"
	}
}
