// Package dataflow computes reaching definitions and live variables over the
// control-flow graph of one function. Fact sets are roaring bitmaps: def IDs
// for reaching definitions, variable indexes for liveness.
package dataflow

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"codescope/internal/ast"
	"codescope/internal/cfg"
	"codescope/internal/diag"
	"codescope/internal/symbols"
)

type DefID = uint32

type DefKind uint8

const (
	DefAssign DefKind = iota
	DefParam
	DefAugAssign
	DefFor
	DefImport
	DefFunction
	DefClass
	DefExcept
	DefWith
)

var defKindNames = [...]string{
	DefAssign:    "assign",
	DefParam:     "param",
	DefAugAssign: "augassign",
	DefFor:       "for",
	DefImport:    "import",
	DefFunction:  "def",
	DefClass:     "class",
	DefExcept:    "except",
	DefWith:      "with",
}

func (k DefKind) String() string {
	if int(k) < len(defKindNames) {
		return defKindNames[k]
	}
	return "?"
}

// Def is one definition site of a variable. Live tells whether the value may
// be read before it is overwritten or the function returns.
type Def struct {
	ID     DefID
	Var    int
	Symbol symbols.SymbolID
	Kind   DefKind
	Node   ast.NodeID // binding node: Name, Param, Alias, def, class or handler
	Stmt   ast.NodeID
	Block  cfg.BlockID
	Live   bool
}

// Use is a load of a variable together with the definitions reaching it.
type Use struct {
	Var      int
	Symbol   symbols.SymbolID
	Node     ast.NodeID
	Stmt     ast.NodeID
	Block    cfg.BlockID
	Reaching []DefID
}

// Result holds the facts of one function. Block-indexed slices follow
// Graph.Blocks. Incomplete results keep whatever facts were reached.
type Result struct {
	Func ast.NodeID
	Name string

	Vars []symbols.SymbolID
	Defs []Def
	Uses []Use
	// Captured marks variables read or written from a nested scope; their
	// liveness cannot be decided from this function alone.
	Captured *roaring.Bitmap

	ReachIn  []*roaring.Bitmap
	ReachOut []*roaring.Bitmap
	LiveIn   []*roaring.Bitmap
	LiveOut  []*roaring.Bitmap

	Iterations int
	Incomplete bool
}

// VarName returns the display name of a variable index.
func (r *Result) VarName(t *symbols.Table, v int) string {
	return t.NameOf(r.Vars[v])
}

// DefsOf lists definitions of one variable in creation order.
func (r *Result) DefsOf(v int) []Def {
	var out []Def
	for _, d := range r.Defs {
		if d.Var == v {
			out = append(out, d)
		}
	}
	return out
}

// VarIndex returns the index of a symbol among the function's variables.
func (r *Result) VarIndex(sym symbols.SymbolID) (int, bool) {
	for i, s := range r.Vars {
		if s == sym {
			return i, true
		}
	}
	return -1, false
}

type Options struct {
	Reporter diag.Reporter
	// Seed is a previous result for the same graph; its facts are the
	// starting point of the iteration.
	Seed *Result
	// Timeout bounds one function; zero means none.
	Timeout time.Duration
	// MaxIterations overrides the computed worklist bound when positive.
	MaxIterations int
}

// Bound is the worklist budget for a graph with the given domain size.
func Bound(blocks, domain int) int {
	return blocks*max(1, domain) + blocks
}

func bitmaps(n int) []*roaring.Bitmap {
	out := make([]*roaring.Bitmap, n)
	for i := range out {
		out[i] = roaring.New()
	}
	return out
}

func cloneAll(src []*roaring.Bitmap) []*roaring.Bitmap {
	out := make([]*roaring.Bitmap, len(src))
	for i, bm := range src {
		out[i] = bm.Clone()
	}
	return out
}
