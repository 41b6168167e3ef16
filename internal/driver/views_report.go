package driver

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"codescope/internal/ast"
	"codescope/internal/dataflow"
	"codescope/internal/diag"
	"codescope/internal/lint"
	"codescope/internal/metrics"
	"codescope/internal/symbols"
)

// ---- dataflow ----

type FlowDef struct {
	ID   uint32 `json:"id" msgpack:"id"`
	Var  string `json:"var" msgpack:"var"`
	Kind string `json:"kind" msgpack:"kind"`
	Line uint32 `json:"line" msgpack:"line"`
	Live bool   `json:"live" msgpack:"live"`
}

type FlowUse struct {
	Var      string   `json:"var" msgpack:"var"`
	Line     uint32   `json:"line" msgpack:"line"`
	Reaching []uint32 `json:"reaching" msgpack:"reaching"`
}

// FlowBlock holds the per-block fact sets: def IDs for reaching
// definitions, variable names for liveness.
type FlowBlock struct {
	ID       int32    `json:"id" msgpack:"id"`
	ReachIn  []uint32 `json:"reach_in" msgpack:"reach_in"`
	ReachOut []uint32 `json:"reach_out" msgpack:"reach_out"`
	LiveIn   []string `json:"live_in" msgpack:"live_in"`
	LiveOut  []string `json:"live_out" msgpack:"live_out"`
}

type FlowFunction struct {
	Name       string      `json:"name" msgpack:"name"`
	Position   Position    `json:"position" msgpack:"position"`
	Iterations int         `json:"iterations" msgpack:"iterations"`
	Incomplete bool        `json:"incomplete,omitempty" msgpack:"incomplete,omitempty"`
	Defs       []FlowDef   `json:"defs" msgpack:"defs"`
	Uses       []FlowUse   `json:"uses" msgpack:"uses"`
	Blocks     []FlowBlock `json:"blocks" msgpack:"blocks"`
}

type DataflowView struct {
	Functions []FlowFunction `json:"functions" msgpack:"functions"`
}

func (*DataflowView) Task() string { return "dataflow" }

func newDataflowView(r *Result) *DataflowView {
	prog, t := r.Program, r.Table
	v := &DataflowView{Functions: make([]FlowFunction, 0, len(r.Flows))}
	for _, f := range r.Flows {
		if f == nil {
			continue
		}
		fn := FlowFunction{
			Name:       prog.qualify(f.Func),
			Position:   prog.pos(f.Func),
			Iterations: f.Iterations,
			Incomplete: f.Incomplete,
			Defs:       make([]FlowDef, len(f.Defs)),
			Uses:       make([]FlowUse, len(f.Uses)),
			Blocks:     make([]FlowBlock, len(f.ReachIn)),
		}
		for i, d := range f.Defs {
			fn.Defs[i] = FlowDef{ID: d.ID, Var: t.NameOf(d.Symbol), Kind: d.Kind.String(), Line: prog.pos(d.Node).Line, Live: d.Live}
		}
		for i, u := range f.Uses {
			fn.Uses[i] = FlowUse{Var: t.NameOf(u.Symbol), Line: prog.pos(u.Node).Line, Reaching: slices.Clone(u.Reaching)}
		}
		for i := range fn.Blocks {
			fn.Blocks[i] = FlowBlock{
				ID:       int32(i), // #nosec G115 -- block count fits the graph's BlockID
				ReachIn:  bits(f.ReachIn, i),
				ReachOut: bits(f.ReachOut, i),
				LiveIn:   varNames(t, f, f.LiveIn, i),
				LiveOut:  varNames(t, f, f.LiveOut, i),
			}
		}
		v.Functions = append(v.Functions, fn)
	}
	return v
}

func bits(sets []*roaring.Bitmap, i int) []uint32 {
	if i >= len(sets) || sets[i] == nil {
		return nil
	}
	return sets[i].ToArray()
}

func varNames(t *symbols.Table, f *dataflow.Result, sets []*roaring.Bitmap, i int) []string {
	idx := bits(sets, i)
	out := make([]string, 0, len(idx))
	for _, v := range idx {
		if int(v) < len(f.Vars) {
			out = append(out, t.NameOf(f.Vars[v]))
		}
	}
	slices.Sort(out)
	return out
}

func (v *DataflowView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, fn := range v.Functions {
		ew.printf("function %s at %s (%d iterations", fn.Name, fn.Position, fn.Iterations)
		if fn.Incomplete {
			ew.printf(", incomplete")
		}
		ew.printf(")\n")
		for _, d := range fn.Defs {
			live := "dead"
			if d.Live {
				live = "live"
			}
			ew.printf("  def d%d %s = %s line %d %s\n", d.ID, d.Var, d.Kind, d.Line, live)
		}
		for _, u := range fn.Uses {
			ew.printf("  use %s line %d <- %s\n", u.Var, u.Line, defList(u.Reaching))
		}
		for _, blk := range fn.Blocks {
			ew.printf("  block %d reach in %s out %s live in [%s] out [%s]\n", blk.ID,
				defList(blk.ReachIn), defList(blk.ReachOut),
				strings.Join(blk.LiveIn, " "), strings.Join(blk.LiveOut, " "))
		}
	}
	return ew.err
}

func defList(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "d" + strconv.FormatUint(uint64(id), 10)
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// ---- typecheck ----

type TypedSymbol struct {
	Scope string `json:"scope" msgpack:"scope"`
	Name  string `json:"name" msgpack:"name"`
	Type  string `json:"type" msgpack:"type"`
	Line  uint32 `json:"line,omitempty" msgpack:"line,omitempty"`
}

// TypecheckView lists the inferred type of every typed symbol and the type
// errors. Incomplete names functions whose checking stopped early.
type TypecheckView struct {
	Symbols    []TypedSymbol    `json:"symbols" msgpack:"symbols"`
	Errors     []DiagnosticView `json:"errors" msgpack:"errors"`
	Incomplete []string         `json:"incomplete,omitempty" msgpack:"incomplete,omitempty"`
}

func (*TypecheckView) Task() string { return "typecheck" }

func newTypecheckView(r *Result) *TypecheckView {
	prog, t, tr := r.Program, r.Table, r.Types
	v := &TypecheckView{Errors: diagnosticsOf(r, diag.CatType)}
	ids := make([]symbols.SymbolID, 0, len(tr.SymbolTypes))
	for id := range tr.SymbolTypes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		sym := t.Symbol(id)
		if sym == nil {
			continue
		}
		owner := ast.NoNodeID
		if sc := t.Scope(sym.Scope); sc != nil {
			owner = sc.Owner
		}
		v.Symbols = append(v.Symbols, TypedSymbol{
			Scope: prog.qualify(owner),
			Name:  t.NameOf(id),
			Type:  tr.TypeInterner.String(tr.SymbolTypes[id]),
			Line:  prog.pos(sym.Decl).Line,
		})
	}
	for _, id := range tr.Incomplete {
		v.Incomplete = append(v.Incomplete, prog.qualify(id))
	}
	return v
}

func (v *TypecheckView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, s := range v.Symbols {
		ew.printf("%s.%s: %s\n", s.Scope, s.Name, s.Type)
	}
	for _, name := range v.Incomplete {
		ew.printf("incomplete: %s\n", name)
	}
	for _, d := range v.Errors {
		ew.printf("%s\n", d)
	}
	return ew.err
}

// ---- complexity ----

// ComplexityView carries per-function metrics. Text output follows the
// familiar "F line:col name - rank (cc)" layout grouped by module.
type ComplexityView struct {
	Functions []metrics.Function `json:"functions" msgpack:"functions"`
	Summary   metrics.Summary    `json:"summary" msgpack:"summary"`
	Findings  []DiagnosticView   `json:"findings,omitempty" msgpack:"findings,omitempty"`
}

func (*ComplexityView) Task() string { return "complexity" }

func newComplexityView(r *Result) *ComplexityView {
	return &ComplexityView{
		Functions: slices.Clone(r.Metrics.Functions),
		Summary:   r.Metrics.Summary,
		Findings:  diagnosticsOf(r, diag.CatComplexity),
	}
}

func (v *ComplexityView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	module := ""
	for i, f := range v.Functions {
		if i == 0 || f.Module != module {
			module = f.Module
			ew.printf("%s\n", module)
		}
		ew.printf("    F %d:0 %s - %s (%d) nesting %d fan-in %d fan-out %d\n",
			f.Line, f.Name, f.Rank, f.Cyclomatic, f.Nesting, f.FanIn, f.FanOut)
	}
	s := v.Summary
	ew.printf("\n%d blocks analyzed.\n", s.Functions)
	ew.printf("Average complexity: %s (%.2f)\n", s.AvgRank, s.AvgCyclomatic)
	for _, d := range v.Findings {
		ew.printf("%s\n", d)
	}
	return ew.err
}

// ---- lint ----

type RuleCount struct {
	Rule  string `json:"rule" msgpack:"rule"`
	Count int    `json:"count" msgpack:"count"`
}

type LintView struct {
	Rules    []RuleCount      `json:"rules" msgpack:"rules"`
	Findings []DiagnosticView `json:"findings" msgpack:"findings"`
}

func (*LintView) Task() string { return "lint" }

func newLintView(r *Result) *LintView {
	v := &LintView{Findings: diagnosticsOf(r, diag.CatLint)}
	// считаем по кодам: циклы импорта сообщает стадия deps, а не сам rule
	codes := make(map[string]diag.Code)
	for _, rule := range lint.Rules() {
		codes[rule.Name] = rule.Code
	}
	for _, rr := range r.Lint.Rules {
		n := 0
		for _, d := range v.Findings {
			if d.Code == codes[rr.Rule].ID() {
				n++
			}
		}
		v.Rules = append(v.Rules, RuleCount{Rule: rr.Rule, Count: n})
	}
	return v
}

func (v *LintView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, d := range v.Findings {
		ew.printf("%s\n", d)
	}
	total := 0
	for _, rc := range v.Rules {
		total += rc.Count
	}
	ew.printf("%d findings from %d rules\n", total, len(v.Rules))
	return ew.err
}
