package diag

// Category groups diagnostics by the stage that produced them.
type Category uint8

const (
	CatSyntax Category = iota
	CatResolution
	CatType
	CatLint
	CatComplexity
	// CatAnalysis covers convergence failures, timeouts and cancellation.
	CatAnalysis
)

func (c Category) String() string {
	switch c {
	case CatSyntax:
		return "syntax"
	case CatResolution:
		return "resolution"
	case CatType:
		return "type"
	case CatLint:
		return "lint"
	case CatComplexity:
		return "complexity"
	case CatAnalysis:
		return "analysis"
	}
	return "unknown"
}
