package cfg

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"codescope/internal/ast"
)

// Functions lists the function-like nodes under the given module roots in
// pre-order: each module first, then its defs and lambdas as they appear.
func Functions(b *ast.Builder, roots []ast.NodeID) []ast.NodeID {
	var out []ast.NodeID
	for _, root := range roots {
		b.Walk(root, func(id ast.NodeID) bool {
			switch b.Kind(id) {
			case ast.KindModule, ast.KindFunctionDef, ast.KindLambda:
				out = append(out, id)
			}
			return true
		})
	}
	return out
}

// BuildAll builds one graph per function in parallel. The result is indexed
// like fns; on cancellation the slots of unfinished functions stay nil and
// the context error is returned.
func BuildAll(ctx context.Context, b *ast.Builder, fns []ast.NodeID, jobs int) ([]*Graph, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	out := make([]*Graph, len(fns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, fn := range fns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = Build(b, fn)
			return nil
		})
	}
	return out, g.Wait()
}
