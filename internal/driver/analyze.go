package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"codescope/internal/ast"
	"codescope/internal/callgraph"
	"codescope/internal/cfg"
	"codescope/internal/dataflow"
	"codescope/internal/depgraph"
	"codescope/internal/diag"
	"codescope/internal/lint"
	"codescope/internal/metrics"
	"codescope/internal/sema"
	"codescope/internal/source"
	"codescope/internal/symbols"
)

// Analyze runs the stages the selected tasks need over prog and builds
// their views.
//
// The returned error is non-nil only for configuration problems: an unknown
// task or lint rule. Cancellation of ctx is not an error; the result then
// has Partial set and keeps every view whose stages finished.
func Analyze(ctx context.Context, prog *Program, opts Options) (*Result, error) {
	if prog == nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("%w: no program", ErrMissingInput)}
	}
	names, err := ResolveTasks(opts.Tasks)
	if err != nil {
		return nil, err
	}
	if err := (lint.Options{Disable: opts.LintDisable}).Validate(); err != nil {
		return nil, &ConfigurationError{Field: "lint.disable", Err: err}
	}
	need := plan(names)

	var key Digest
	if opts.Cache != nil {
		key = cacheKey(prog, names, opts)
		if entry, ok := opts.Cache.Get(key); ok {
			res, err := entry.result(prog)
			if err == nil {
				if opts.Metrics != nil {
					opts.Metrics.CacheHit()
				}
				return res, nil
			}
			if opts.Logger != nil {
				opts.Logger.Warn("ignoring cache entry", slog.String("key", key.String()), slog.Any("err", err))
			}
		}
	}

	ac := newAnalysisContext(opts, need.count())
	ctx = ac.begin(ctx)
	ac.Logger.Info("analysis started",
		slog.Int("modules", len(prog.Modules)), slog.Any("tasks", names))

	res := &Result{RunID: ac.RunID.String(), Tasks: names, Program: prog}
	ac.Bag.Merge(prog.Diagnostics)

	p := &pipeline{ac: ac, prog: prog, res: res}
	p.run(ctx, need)
	res.Partial = p.stopped != nil

	if res.Partial {
		diag.ReportWarning(ac.Reporter, diag.AnaCancelled, ast.NoNodeID, source.Span{},
			fmt.Sprintf("analysis stopped during %s: %v", p.stoppedAt, p.stopped)).Emit()
	}
	ac.Bag.Sort()
	ac.Bag.Dedup()
	res.Diagnostics = ac.Bag.Items()
	if res.Dropped = ac.Bag.Dropped(); res.Dropped > 0 {
		res.Diagnostics = append(res.Diagnostics, diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.AnaTooManyDiagnostics,
			Category: diag.CatAnalysis,
			Message:  fmt.Sprintf("%d more diagnostics were dropped after the limit of %d", res.Dropped, ac.Bag.Cap()),
		})
	}

	res.views = make(map[string]View, len(names))
	for _, name := range names {
		t := mustTask(name)
		if p.done.covers(t.needs) {
			res.views[name] = t.view(res)
		}
	}
	ac.end(res.Partial)
	res.Timings = ac.Timer.Report()

	if m := ac.Metrics; m != nil {
		m.CountDiagnostics(res.Diagnostics)
		m.AddFiles(len(prog.Modules))
		m.AddFunctions(len(res.Graphs))
		m.SetPartial(res.Partial)
	}
	ac.Logger.Info("analysis finished",
		slog.Int("diagnostics", len(res.Diagnostics)),
		slog.Bool("partial", res.Partial),
		slog.Float64("total_ms", res.Timings.TotalMS))

	if opts.Cache != nil && !res.Partial {
		if err := opts.Cache.Put(key, newCacheEntry(res)); err != nil {
			ac.Logger.Warn("cache store failed", slog.Any("err", err))
		}
	}
	return res, nil
}

// pipeline holds the state of one run while stages execute in order.
type pipeline struct {
	ac   *AnalysisContext
	prog *Program
	res  *Result

	done      stageSet
	stopped   error
	stoppedAt string
}

func (p *pipeline) run(ctx context.Context, need stageSet) {
	steps := [stageCount]func(ctx context.Context) error{
		stageResolve: p.resolve,
		stageCFG:     p.cfg,
		stageCalls:   p.calls,
		stageDeps:    p.deps,
		stageFlow:    p.flow,
		stageTypes:   p.types,
		stageMetrics: p.metrics,
		stageLint:    p.lint,
	}
	for s := range stageCount {
		if !need.has(s) {
			continue
		}
		if p.stopped != nil {
			p.ac.skip(s.String(), p.stopped)
			continue
		}
		err := p.ac.stage(ctx, s.String(), steps[s])
		switch {
		case err == nil:
			p.done |= 1 << s
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			p.stopped, p.stoppedAt = err, s.String()
		default:
			// stages only fail through the context; anything else is a bug
			// that should not take the finished views down with it
			p.ac.Logger.Error("stage failed", slog.String("stage", s.String()), slog.Any("err", err))
			p.stopped, p.stoppedAt = err, s.String()
		}
	}
}

func (p *pipeline) jobs() int { return p.ac.Options.Jobs }

func (p *pipeline) resolve(ctx context.Context) error {
	table, err := symbols.Resolve(ctx, p.prog.Builder, p.prog.Inputs(), symbols.Options{
		Reporter: p.ac.Reporter,
		Jobs:     p.jobs(),
	})
	if err != nil {
		return err
	}
	p.res.Table = table
	return nil
}

func (p *pipeline) cfg(ctx context.Context) error {
	b := p.prog.Builder
	graphs, err := cfg.BuildAll(ctx, b, cfg.Functions(b, p.prog.Roots()), p.jobs())
	if err != nil {
		return err
	}
	p.res.Graphs = graphs
	for _, g := range graphs {
		p.ac.point(ctx, "cfg:"+g.Name, "blocks=%d edges=%d", len(g.Blocks), len(g.Edges))
	}
	return nil
}

func (p *pipeline) calls(ctx context.Context) error {
	t := p.res.Table
	calls, err := callgraph.Build(ctx, p.prog.Builder, t, t.Modules(), p.jobs())
	if err != nil {
		return err
	}
	p.res.Calls = calls
	return nil
}

// deps builds the module graph and reports its import cycles, unless the
// dependency-cycle rule is disabled.
func (p *pipeline) deps(context.Context) error {
	deps := depgraph.Build(p.prog.Builder, p.res.Table)
	p.res.Deps = deps
	if !slices.Contains(p.ac.Options.LintDisable, lint.RuleDependencyCycle) {
		depgraph.ReportCycles(p.prog.Builder, deps, p.ac.Reporter)
	}
	p.res.Topo = depgraph.ToposortKahn(deps)
	return nil
}

func (p *pipeline) flow(ctx context.Context) error {
	flows, err := dataflow.AnalyzeAll(ctx, p.prog.Builder, p.res.Table, p.res.Graphs, dataflow.AllOptions{
		Reporter: p.ac.Reporter,
		Jobs:     p.jobs(),
		Timeout:  p.ac.Options.FunctionTimeout,
	})
	// незавершённые факты остаются доступны, но вид не строится
	p.res.Flows = flows
	if err != nil {
		return err
	}
	for _, f := range flows {
		if f != nil {
			p.ac.point(ctx, "dataflow:"+f.Name, "defs=%d iterations=%d", len(f.Defs), f.Iterations)
		}
	}
	return nil
}

func (p *pipeline) types(ctx context.Context) error {
	res, err := sema.Check(ctx, p.prog.Builder, p.res.Table, sema.Options{
		Reporter: p.ac.Reporter,
		Jobs:     p.jobs(),
		Timeout:  p.ac.Options.FunctionTimeout,
		MaxSteps: p.ac.Options.MaxSteps,
		Order:    p.order(),
	})
	p.res.Types = res
	return err
}

// order lists module roots dependencies first; members of import cycles
// follow in key order.
func (p *pipeline) order() []ast.NodeID {
	topo := p.res.Topo
	if topo == nil {
		return nil
	}
	idx := p.res.Deps.Index
	out := make([]ast.NodeID, 0, idx.Len())
	add := func(ids []depgraph.ModuleID) {
		for _, id := range ids {
			if m, ok := p.prog.Module(idx.Name(id)); ok {
				out = append(out, m.Node)
			}
		}
	}
	add(topo.Order)
	add(topo.Cycles)
	return out
}

func (p *pipeline) metrics(context.Context) error {
	th := p.ac.Options.Thresholds
	p.res.Metrics = metrics.Compute(p.prog.Builder, p.res.Graphs, p.res.Calls, th, p.prog.Line, p.ac.Reporter)
	return nil
}

func (p *pipeline) lint(ctx context.Context) error {
	rep, err := lint.Run(ctx, &lint.Snapshot{
		Builder: p.prog.Builder,
		Table:   p.res.Table,
		Graphs:  p.res.Graphs,
		Flows:   p.res.Flows,
		Calls:   p.res.Calls,
		Deps:    p.res.Deps,

		// the deps stage already reported them
		CyclesReported: p.res.Deps != nil,
	}, lint.Options{
		Reporter: p.ac.Reporter,
		Disable:  p.ac.Options.LintDisable,
		Jobs:     p.jobs(),
	})
	p.res.Lint = rep
	return err
}
