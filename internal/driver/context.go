package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"codescope/internal/diag"
	"codescope/internal/observ"
	"codescope/internal/trace"
)

// AnalysisContext carries the per-run collaborators through the stages. It
// is created by Analyze and discarded when the run returns.
type AnalysisContext struct {
	RunID    uuid.UUID
	Options  Options
	Bag      *diag.Bag
	Reporter diag.Reporter
	Tracer   trace.Tracer
	Logger   *slog.Logger
	Metrics  *observ.Metrics
	Timer    *observ.Timer

	total int
	index int
	span  *trace.Span
}

func newAnalysisContext(opts Options, total int) *AnalysisContext {
	bag := diag.NewBag(opts.MaxDiagnostics)
	ac := &AnalysisContext{
		RunID:    uuid.New(),
		Options:  opts,
		Bag:      bag,
		Reporter: diag.BagReporter{Bag: bag},
		Tracer:   opts.Tracer,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Timer:    opts.Timer,
		total:    total,
	}
	if ac.Tracer == nil {
		ac.Tracer = trace.Nop
	}
	if ac.Logger == nil {
		ac.Logger = slog.New(slog.DiscardHandler)
	}
	ac.Logger = ac.Logger.With(slog.String("run", ac.RunID.String()))
	if ac.Timer == nil {
		ac.Timer = observ.NewTimer()
	}
	if ac.Metrics != nil {
		ac.Timer.Observe(ac.Metrics)
	}
	return ac
}

// begin opens the driver span that parents every stage span.
func (ac *AnalysisContext) begin(ctx context.Context) context.Context {
	ac.span = trace.Begin(ac.Tracer, trace.ScopeDriver, "analyze", trace.CurrentSpan(ctx))
	ac.span.WithExtra("run", ac.RunID.String())
	ctx = trace.WithTracer(ctx, ac.Tracer)
	return trace.WithSpan(ctx, ac.span)
}

func (ac *AnalysisContext) end(partial bool) {
	detail := "ok"
	if partial {
		detail = "partial"
	}
	ac.span.End(detail)
	if err := ac.Tracer.Flush(); err != nil {
		ac.Logger.Warn("trace flush failed", slog.Any("err", err))
	}
}

// stage runs one pipeline step. The context is checked first; a cancelled
// run skips the step and returns the context error without calling fn.
func (ac *AnalysisContext) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ac.index++
	if err := ctx.Err(); err != nil {
		ac.notify(StageEvent{Name: name, Status: StageSkipped, Index: ac.index, Total: ac.total, Err: err})
		return err
	}
	ac.notify(StageEvent{Name: name, Status: StageStart, Index: ac.index, Total: ac.total})
	ac.Logger.Debug("stage start", slog.String("stage", name))

	sctx, span := trace.Start(ctx, trace.ScopeStage, name)
	idx := ac.Timer.Begin(name)
	start := time.Now()
	err := fn(sctx)
	elapsed := time.Since(start)

	note := ""
	if err != nil {
		note = err.Error()
	}
	ac.Timer.End(idx, note)
	span.End(note)

	ac.notify(StageEvent{Name: name, Status: StageEnd, Index: ac.index, Total: ac.total, Elapsed: elapsed, Err: err})
	ac.Logger.Debug("stage done", slog.String("stage", name), slog.Duration("elapsed", elapsed), slog.Any("err", err))
	return err
}

// skip reports a planned stage that will not run.
func (ac *AnalysisContext) skip(name string, err error) {
	ac.index++
	ac.notify(StageEvent{Name: name, Status: StageSkipped, Index: ac.index, Total: ac.total, Err: err})
}

func (ac *AnalysisContext) notify(ev StageEvent) {
	if ac.Options.Observer != nil {
		ac.Options.Observer(ev)
	}
}

// point emits a debug-level trace point for one finished function.
func (ac *AnalysisContext) point(ctx context.Context, name string, format string, args ...any) {
	if !ac.Tracer.Enabled() || !ac.Tracer.Level().Records(trace.ScopeFunc) {
		return
	}
	trace.Point(ac.Tracer, trace.ScopeFunc, name, fmt.Sprintf(format, args...), trace.CurrentSpan(ctx))
}
