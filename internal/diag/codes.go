package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexInconsistentDedent Code = 1004
	LexUnbalancedBracket  Code = 1005
	LexTabAfterSpaces     Code = 1006

	// Парсерные
	SynInfo                  Code = 2000
	SynUnexpectedToken       Code = 2001
	SynExpectExpression      Code = 2002
	SynExpectColon           Code = 2003
	SynExpectIdentifier      Code = 2004
	SynExpectIndentedBlock   Code = 2005
	SynUnclosedDelimiter     Code = 2006
	SynUnexpectedIndent      Code = 2007
	SynInvalidTarget         Code = 2008
	SynExpectNewline         Code = 2009
	SynForMissingIn          Code = 2010
	SynBadParameter          Code = 2011
	SynBreakOutsideLoop      Code = 2012
	SynReturnOutsideFunction Code = 2013
	SynTryWithoutHandler     Code = 2014

	// Разрешение имён
	ResInfo               Code = 3000
	ResUnresolvedName     Code = 3001
	ResDuplicateParam     Code = 3002
	ResImportedNameAbsent Code = 3003
	ResNonlocalAtModule   Code = 3004
	ResNonlocalNotFound   Code = 3005

	// Типы
	TypInfo           Code = 4000
	TypMismatch       Code = 4001
	TypInfinite       Code = 4002
	TypArity          Code = 4003
	TypUnknownKeyword Code = 4004
	TypBadOperand     Code = 4005
	TypNotCallable    Code = 4006
	TypBadReturn      Code = 4007
	TypNotIterable    Code = 4008
	TypNotIndexable   Code = 4009

	// Линтер
	LntInfo            Code = 5000
	LntUnreachable     Code = 5001
	LntUnusedSymbol    Code = 5002
	LntDependencyCycle Code = 5003
	LntDeadStore       Code = 5004
	LntUseBeforeDef    Code = 5005
	LntUnresolvedCall  Code = 5006
	LntShadowedBuiltin Code = 5007

	// Метрики
	CpxInfo       Code = 6000
	CpxCyclomatic Code = 6001
	CpxNesting    Code = 6002
	CpxFanOut     Code = 6003

	// Служебные
	AnaInfo               Code = 7000
	AnaNotConverged       Code = 7001
	AnaTimeout            Code = 7002
	AnaCancelled          Code = 7003
	AnaTooManyDiagnostics Code = 7004
)

var codeDescription = map[Code]string{
	UnknownCode:              "Unknown error",
	LexInfo:                  "Lexical information",
	LexUnknownChar:           "Unknown character",
	LexUnterminatedString:    "Unterminated string literal",
	LexBadNumber:             "Malformed numeric literal",
	LexInconsistentDedent:    "Dedent does not match any outer indentation level",
	LexUnbalancedBracket:     "Unbalanced bracket",
	LexTabAfterSpaces:        "Inconsistent use of tabs and spaces in indentation",
	SynInfo:                  "Syntax information",
	SynUnexpectedToken:       "Unexpected token",
	SynExpectExpression:      "Expected expression",
	SynExpectColon:           "Expected ':'",
	SynExpectIdentifier:      "Expected identifier",
	SynExpectIndentedBlock:   "Expected an indented block",
	SynUnclosedDelimiter:     "Unclosed delimiter",
	SynUnexpectedIndent:      "Unexpected indent",
	SynInvalidTarget:         "Invalid assignment target",
	SynExpectNewline:         "Expected end of statement",
	SynForMissingIn:          "Expected 'in' in for statement",
	SynBadParameter:          "Malformed parameter list",
	SynBreakOutsideLoop:      "'break' or 'continue' outside loop",
	SynReturnOutsideFunction: "'return' outside function",
	SynTryWithoutHandler:     "'try' without 'except' or 'finally'",
	ResInfo:                  "Resolution information",
	ResUnresolvedName:        "Unresolved name",
	ResDuplicateParam:        "Duplicate parameter name",
	ResImportedNameAbsent:    "Imported name not declared in module",
	ResNonlocalAtModule:      "nonlocal declaration at module level",
	ResNonlocalNotFound:      "No binding for nonlocal name",
	TypInfo:                  "Type information",
	TypMismatch:              "Incompatible types",
	TypInfinite:              "Infinite type",
	TypArity:                 "Wrong number of arguments",
	TypUnknownKeyword:        "Unexpected keyword argument",
	TypBadOperand:            "Unsupported operand types",
	TypNotCallable:           "Value is not callable",
	TypBadReturn:             "Incompatible return value",
	TypNotIterable:           "Value is not iterable",
	TypNotIndexable:          "Value is not subscriptable",
	LntInfo:                  "Lint information",
	LntUnreachable:           "Unreachable code",
	LntUnusedSymbol:          "Unused symbol",
	LntDependencyCycle:       "Module dependency cycle",
	LntDeadStore:             "Value assigned but never used",
	LntUseBeforeDef:          "Name may be used before assignment",
	LntUnresolvedCall:        "Call target cannot be resolved statically",
	LntShadowedBuiltin:       "Declaration shadows a builtin",
	CpxInfo:                  "Complexity information",
	CpxCyclomatic:            "Cyclomatic complexity too high",
	CpxNesting:               "Nesting too deep",
	CpxFanOut:                "Too many outgoing calls",
	AnaInfo:                  "Analysis information",
	AnaNotConverged:          "Analysis did not converge",
	AnaTimeout:               "Analysis timed out",
	AnaCancelled:             "Analysis cancelled",
	AnaTooManyDiagnostics:    "Too many diagnostics",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("LNT%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CPX%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("ANA%04d", ic)
	}
	return "E0000"
}

// Category is derived from the code range.
func (c Code) Category() Category {
	switch ic := int(c); {
	case ic < 3000:
		return CatSyntax
	case ic < 4000:
		return CatResolution
	case ic < 5000:
		return CatType
	case ic < 6000:
		return CatLint
	case ic < 7000:
		return CatComplexity
	}
	return CatAnalysis
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
