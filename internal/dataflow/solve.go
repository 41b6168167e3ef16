package dataflow

import (
	"context"
	"errors"

	"github.com/RoaringBitmap/roaring/v2"

	"codescope/internal/cfg"
)

var errNotConverged = errors.New("analysis did not converge")

// problem is a union data-flow problem: out = gen ∪ (in − kill) for forward
// problems, in = gen ∪ (out − kill) for backward ones.
type problem struct {
	forward bool
	gen     []*roaring.Bitmap
	kill    []*roaring.Bitmap
	in      []*roaring.Bitmap
	out     []*roaring.Bitmap

	// boundary flows into the entry block of a forward problem.
	boundary *roaring.Bitmap
}

// solve runs a FIFO worklist until no block changes. It stops with
// errNotConverged after bound pops and with the context error when ctx is
// done; the facts reached so far stay in p.
func solve(ctx context.Context, g *cfg.Graph, p *problem, bound int) (int, error) {
	n := len(g.Blocks)
	queue := make([]cfg.BlockID, 0, n)
	queued := make([]bool, n)
	for i := range n {
		id := cfg.BlockID(i) // #nosec G115 -- block count fits in int32
		if !p.forward {
			id = cfg.BlockID(n - 1 - i) // #nosec G115 -- block count fits in int32
		}
		queue = append(queue, id)
		queued[id] = true
	}

	iters := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return iters, err
		}
		if iters >= bound {
			return iters, errNotConverged
		}
		iters++
		blk := queue[0]
		queue = queue[1:]
		queued[blk] = false

		if p.forward {
			in := roaring.New()
			if blk == g.Entry && p.boundary != nil {
				in.Or(p.boundary)
			}
			for _, e := range g.Preds(blk) {
				in.Or(p.out[e.From])
			}
			p.in[blk] = in
			out := roaring.AndNot(in, p.kill[blk])
			out.Or(p.gen[blk])
			if out.Equals(p.out[blk]) {
				continue
			}
			p.out[blk] = out
			for _, e := range g.Succs(blk) {
				if !queued[e.To] {
					queued[e.To] = true
					queue = append(queue, e.To)
				}
			}
			continue
		}

		out := roaring.New()
		for _, e := range g.Succs(blk) {
			out.Or(p.in[e.To])
		}
		p.out[blk] = out
		in := roaring.AndNot(out, p.kill[blk])
		in.Or(p.gen[blk])
		if in.Equals(p.in[blk]) {
			continue
		}
		p.in[blk] = in
		for _, e := range g.Preds(blk) {
			if !queued[e.From] {
				queued[e.From] = true
				queue = append(queue, e.From)
			}
		}
	}
	return iters, nil
}
