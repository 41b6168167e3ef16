package driver

import (
	"fmt"

	"codescope/internal/callgraph"
	"codescope/internal/cfg"
	"codescope/internal/dataflow"
	"codescope/internal/depgraph"
	"codescope/internal/diag"
	"codescope/internal/lint"
	"codescope/internal/metrics"
	"codescope/internal/observ"
	"codescope/internal/sema"
	"codescope/internal/symbols"
)

// Result is everything one Analyze call produced. Raw stage outputs are nil
// for stages that were not needed, did not finish, or when the result came
// from the cache; views stay available in every case they were computed.
type Result struct {
	RunID   string
	Tasks   []string
	Program *Program

	Table   *symbols.Table
	Graphs  []*cfg.Graph
	Flows   []*dataflow.Result
	Calls   *callgraph.Graph
	Deps    *depgraph.Graph
	Topo    *depgraph.Topo
	Types   *sema.Result
	Metrics *metrics.Report
	Lint    *lint.Report

	// Diagnostics are sorted and deduplicated. When the bag overflowed the
	// last entry reports how many were dropped.
	Diagnostics []diag.Diagnostic
	Dropped     int
	// Partial is set when the run was cancelled; finished views are kept.
	Partial bool
	Cached  bool
	Timings observ.Report

	views map[string]View
}

// View returns the view of a task by name or alias. An unknown name is a
// ConfigurationError; a known task that was not selected or did not finish
// yields ErrViewUnavailable.
func (r *Result) View(name string) (View, error) {
	t, ok := LookupTask(name)
	if !ok {
		return nil, &ConfigurationError{Task: name, Err: ErrUnknownTask}
	}
	v, ok := r.views[t.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewUnavailable, t.Name)
	}
	return v, nil
}

// Views returns the computed views in task order.
func (r *Result) Views() []View {
	out := make([]View, 0, len(r.views))
	for _, name := range r.Tasks {
		if v, ok := r.views[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// Count returns how many diagnostics have the given severity.
func (r *Result) Count(sev diag.Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
