package dataflow

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"codescope/internal/ast"
	"codescope/internal/cfg"
	"codescope/internal/diag"
	"codescope/internal/symbols"
)

// Analyze computes reaching definitions and live variables for one graph.
//
// A function that exceeds its iteration bound or its timeout yields an
// Analysis warning and an Incomplete result with a nil error. Only the
// cancellation of ctx itself is returned as an error.
func Analyze(ctx context.Context, b *ast.Builder, t *symbols.Table, g *cfg.Graph, opts Options) (*Result, error) {
	c := newCollector(b, t, g)
	params, evs := c.events()
	c.captured()
	res := c.res

	n := len(g.Blocks)
	rd := &problem{forward: true, in: bitmaps(n), out: bitmaps(n), boundary: paramDefs(params)}
	lv := &problem{in: bitmaps(n), out: bitmaps(n)}
	rd.gen, rd.kill = reachingTransfer(evs, res)
	lv.gen, lv.kill = liveTransfer(evs)
	if seed := opts.Seed; seedFits(seed, res, n) {
		rd.in, rd.out = cloneAll(seed.ReachIn), cloneAll(seed.ReachOut)
		lv.in, lv.out = cloneAll(seed.LiveIn), cloneAll(seed.LiveOut)
	}
	res.ReachIn, res.ReachOut = rd.in, rd.out
	res.LiveIn, res.LiveOut = lv.in, lv.out

	fctx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	rdBound, lvBound := Bound(n, len(res.Defs)), Bound(n, len(res.Vars))
	if opts.MaxIterations > 0 {
		rdBound, lvBound = opts.MaxIterations, opts.MaxIterations
	}
	iters, err := solve(fctx, g, rd, rdBound)
	res.Iterations += iters
	res.ReachIn, res.ReachOut = rd.in, rd.out
	if err == nil {
		iters, err = solve(fctx, g, lv, lvBound)
		res.Iterations += iters
		res.LiveIn, res.LiveOut = lv.in, lv.out
	}
	if err != nil {
		res.Incomplete = true
		return res, fail(ctx, b, g, res, err, opts)
	}

	replayReaching(evs, res)
	replayLiveness(evs, res)
	for _, ev := range params {
		res.Defs[ev.def].Live = res.LiveIn[g.Entry].Contains(uint32(ev.v)) // #nosec G115 -- variable count fits in uint32
	}
	return res, nil
}

// paramDefs is the reaching-definitions fact on the way into the entry
// block: every parameter binding.
func paramDefs(params []event) *roaring.Bitmap {
	out := roaring.New()
	for _, ev := range params {
		out.Add(ev.def)
	}
	return out
}

func fail(ctx context.Context, b *ast.Builder, g *cfg.Graph, res *Result, err error, opts Options) error {
	name := b.QualifiedName(g.Func)
	span := b.Span(g.Func)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errNotConverged):
		diag.ReportWarning(opts.Reporter, diag.AnaNotConverged, g.Func, span,
			fmt.Sprintf("data-flow analysis of %q did not converge after %d iterations", name, res.Iterations)).Emit()
	case errors.Is(err, context.DeadlineExceeded):
		diag.ReportWarning(opts.Reporter, diag.AnaTimeout, g.Func, span,
			fmt.Sprintf("data-flow analysis of %q timed out after %s", name, opts.Timeout)).Emit()
	default:
		return err
	}
	return nil
}

func seedFits(seed, res *Result, blocks int) bool {
	return seed != nil && !seed.Incomplete && seed.Func == res.Func &&
		len(seed.ReachIn) == blocks && len(seed.LiveIn) == blocks &&
		len(seed.Defs) == len(res.Defs) && len(seed.Vars) == len(res.Vars)
}

// defsByVar groups def IDs per variable.
func defsByVar(res *Result) []*roaring.Bitmap {
	out := bitmaps(len(res.Vars))
	for _, d := range res.Defs {
		out[d.Var].Add(d.ID)
	}
	return out
}

func reachingTransfer(evs [][]event, res *Result) (gen, kill []*roaring.Bitmap) {
	byVar := defsByVar(res)
	gen, kill = bitmaps(len(evs)), bitmaps(len(evs))
	for blk, list := range evs {
		for _, ev := range list {
			switch ev.kind {
			case evDef:
				kill[blk].Or(byVar[ev.v])
				gen[blk].AndNot(byVar[ev.v])
				gen[blk].Add(ev.def)
			case evKill:
				kill[blk].Or(byVar[ev.v])
				gen[blk].AndNot(byVar[ev.v])
			}
		}
	}
	return gen, kill
}

// liveTransfer: gen holds variables read before any write in the block.
func liveTransfer(evs [][]event) (gen, kill []*roaring.Bitmap) {
	gen, kill = bitmaps(len(evs)), bitmaps(len(evs))
	for blk, list := range evs {
		for i := len(list) - 1; i >= 0; i-- {
			v := uint32(list[i].v) // #nosec G115 -- variable count fits in uint32
			switch list[i].kind {
			case evUse:
				gen[blk].Add(v)
			case evDef, evKill:
				gen[blk].Remove(v)
				kill[blk].Add(v)
			}
		}
	}
	return gen, kill
}

func replayReaching(evs [][]event, res *Result) {
	byVar := defsByVar(res)
	for blk, list := range evs {
		cur := res.ReachIn[blk].Clone()
		for _, ev := range list {
			switch ev.kind {
			case evUse:
				res.Uses = append(res.Uses, Use{
					Var:      ev.v,
					Symbol:   res.Vars[ev.v],
					Node:     ev.node,
					Stmt:     ev.stmt,
					Block:    cfg.BlockID(blk), // #nosec G115 -- block count fits in int32
					Reaching: roaring.And(cur, byVar[ev.v]).ToArray(),
				})
			case evDef:
				cur.AndNot(byVar[ev.v])
				cur.Add(ev.def)
			case evKill:
				cur.AndNot(byVar[ev.v])
			}
		}
	}
}

func replayLiveness(evs [][]event, res *Result) {
	for blk, list := range evs {
		live := res.LiveOut[blk].Clone()
		for i := len(list) - 1; i >= 0; i-- {
			ev := list[i]
			v := uint32(ev.v) // #nosec G115 -- variable count fits in uint32
			switch ev.kind {
			case evUse:
				live.Add(v)
			case evDef:
				res.Defs[ev.def].Live = live.Contains(v)
				live.Remove(v)
			case evKill:
				live.Remove(v)
			}
		}
	}
}

// AllOptions configures AnalyzeAll.
type AllOptions struct {
	Reporter diag.Reporter
	Jobs     int
	Timeout  time.Duration
	Seeds    []*Result // indexed like graphs; nil entries are fine
}

// AnalyzeAll analyzes every graph in parallel. Results are indexed like
// graphs; diagnostics are forwarded to the reporter in graph order once all
// workers are done. On cancellation unfinished slots keep partial results
// marked Incomplete, or nil when the worker never started.
func AnalyzeAll(ctx context.Context, b *ast.Builder, t *symbols.Table, graphs []*cfg.Graph, opts AllOptions) ([]*Result, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	out := make([]*Result, len(graphs))
	bags := make([]*diag.Bag, len(graphs))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, g := range graphs {
		if g == nil {
			continue
		}
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			bags[i] = diag.NewBag(0)
			fo := Options{Reporter: diag.BagReporter{Bag: bags[i]}, Timeout: opts.Timeout}
			if i < len(opts.Seeds) {
				fo.Seed = opts.Seeds[i]
			}
			res, err := Analyze(ectx, b, t, g, fo)
			out[i] = res
			return err
		})
	}
	err := eg.Wait()
	for _, bag := range bags {
		if bag != nil {
			diag.Forward(opts.Reporter, bag.Items())
		}
	}
	return out, err
}
