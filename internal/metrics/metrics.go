// Package metrics measures per-function complexity over the CFG and call
// graph and reports functions that exceed configured limits.
package metrics

import (
	"fmt"

	"codescope/internal/ast"
	"codescope/internal/callgraph"
	"codescope/internal/cfg"
	"codescope/internal/diag"
)

// Thresholds bound the metrics; a zero field disables its check.
type Thresholds struct {
	MaxCyclomatic int
	MaxNesting    int
	MaxFanOut     int
}

// Function holds the metrics of one function-like node.
type Function struct {
	Func       ast.NodeID `json:"func" msgpack:"func"`
	Name       string     `json:"name" msgpack:"name"`
	Module     string     `json:"module" msgpack:"module"`
	Line       uint32     `json:"line" msgpack:"line"`
	Cyclomatic int        `json:"cyclomatic" msgpack:"cyclomatic"`
	Rank       Rank       `json:"rank" msgpack:"rank"`
	Nesting    int        `json:"nesting" msgpack:"nesting"`
	FanIn      int        `json:"fan_in" msgpack:"fan_in"`
	FanOut     int        `json:"fan_out" msgpack:"fan_out"`
	Statements int        `json:"statements" msgpack:"statements"`
}

// Summary aggregates a Report.
type Summary struct {
	Functions     int     `json:"functions" msgpack:"functions"`
	MaxCyclomatic int     `json:"max_cyclomatic" msgpack:"max_cyclomatic"`
	AvgCyclomatic float64 `json:"avg_cyclomatic" msgpack:"avg_cyclomatic"`
	AvgRank       Rank    `json:"avg_rank" msgpack:"avg_rank"`
	MaxNesting    int     `json:"max_nesting" msgpack:"max_nesting"`
}

type Report struct {
	Functions []Function `json:"functions" msgpack:"functions"`
	Summary   Summary    `json:"summary" msgpack:"summary"`
}

// Lines is where positions come from; a nil Lines leaves Line zero.
type Lines func(id ast.NodeID) uint32

// Compute measures every graph, in graph order, and emits a Complexity
// warning for each limit a function exceeds. calls may be nil when the call
// graph was not built; fan-in and fan-out are then zero.
func Compute(b *ast.Builder, graphs []*cfg.Graph, calls *callgraph.Graph, th Thresholds, lines Lines, rep diag.Reporter) *Report {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	r := &Report{Functions: make([]Function, 0, len(graphs))}
	for _, g := range graphs {
		if g == nil {
			continue
		}
		m := measure(b, g, calls)
		if lines != nil {
			m.Line = lines(g.Func)
		}
		r.Functions = append(r.Functions, m)
		check(b, m, th, rep)
	}
	r.Summary = summarize(r.Functions)
	return r
}

func measure(b *ast.Builder, g *cfg.Graph, calls *callgraph.Graph) Function {
	m := Function{
		Func:       g.Func,
		Name:       b.QualifiedName(g.Func),
		Cyclomatic: g.Complexity(),
		Nesting:    Nesting(b, g.Func),
	}
	if mod, ok := b.Module(b.ModuleOf(g.Func)); ok {
		m.Module = b.Name(mod.Key)
	}
	m.Rank = RankOf(m.Cyclomatic)
	for i := range g.Blocks {
		m.Statements += len(g.Blocks[i].Stmts)
	}
	if calls != nil {
		m.FanIn = calls.FanIn(g.Func)
		m.FanOut = calls.FanOut(g.Func)
	}
	return m
}

func check(b *ast.Builder, m Function, th Thresholds, rep diag.Reporter) {
	span := b.Span(m.Func)
	if th.MaxCyclomatic > 0 && m.Cyclomatic > th.MaxCyclomatic {
		diag.ReportWarning(rep, diag.CpxCyclomatic, m.Func, span,
			fmt.Sprintf("%s has cyclomatic complexity %d (limit %d)", m.Name, m.Cyclomatic, th.MaxCyclomatic)).Emit()
	}
	if th.MaxNesting > 0 && m.Nesting > th.MaxNesting {
		diag.ReportWarning(rep, diag.CpxNesting, m.Func, span,
			fmt.Sprintf("%s nests control flow %d levels deep (limit %d)", m.Name, m.Nesting, th.MaxNesting)).Emit()
	}
	if th.MaxFanOut > 0 && m.FanOut > th.MaxFanOut {
		diag.ReportWarning(rep, diag.CpxFanOut, m.Func, span,
			fmt.Sprintf("%s makes %d calls (limit %d)", m.Name, m.FanOut, th.MaxFanOut)).Emit()
	}
}

func summarize(fns []Function) Summary {
	s := Summary{Functions: len(fns), AvgRank: RankA}
	if len(fns) == 0 {
		return s
	}
	total := 0
	for _, f := range fns {
		total += f.Cyclomatic
		s.MaxCyclomatic = max(s.MaxCyclomatic, f.Cyclomatic)
		s.MaxNesting = max(s.MaxNesting, f.Nesting)
	}
	s.AvgCyclomatic = float64(total) / float64(len(fns))
	s.AvgRank = RankOf(int(s.AvgCyclomatic + 0.5))
	return s
}
