package cfg_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/ast"
	"codescope/internal/cfg"
	"codescope/internal/testkit"
)

func build(t *testing.T, src, fn string) (*testkit.Fixture, *cfg.Graph) {
	t.Helper()
	fx := testkit.Parse(t, testkit.Module("main", src))
	require.False(t, fx.Bag.HasErrors(), testkit.Summary(fx.Bag))
	owner := fx.Roots[0]
	if fn != "" {
		owner = fx.Func(t, fn)
	}
	g := cfg.Build(fx.Builder, owner)
	require.NoError(t, cfg.Validate([]*cfg.Graph{g}))
	return fx, g
}

func edgeKinds(g *cfg.Graph) map[cfg.EdgeKind]int {
	out := make(map[cfg.EdgeKind]int)
	for _, e := range g.Edges {
		out[e.Kind]++
	}
	return out
}

func hasEdge(g *cfg.Graph, from, to cfg.BlockID, kind cfg.EdgeKind) bool {
	for _, e := range g.Succs(from) {
		if e.To == to && e.Kind == kind {
			return true
		}
	}
	return false
}

func TestIfElseBothReturn(t *testing.T) {
	_, g := build(t, "def f(x):\n    if x:\n        return 1\n    else:\n        return 2\n", "f")

	assert.Len(t, g.Blocks, 4)
	assert.Len(t, g.Edges, 4)
	assert.Equal(t, 2, g.Complexity())
	assert.Empty(t, g.Unreachable())

	entry := g.Block(g.Entry)
	require.NotNil(t, entry)
	assert.True(t, entry.Cond.IsValid())

	kinds := edgeKinds(g)
	assert.Equal(t, 1, kinds[cfg.BranchTrue])
	assert.Equal(t, 1, kinds[cfg.BranchFalse])
	assert.Equal(t, 2, kinds[cfg.Fallthrough])
	for _, e := range g.Preds(g.Exit) {
		assert.Equal(t, cfg.Fallthrough, e.Kind)
	}
	assert.Empty(t, g.Succs(g.Exit))
}

func TestEmptyModuleIsSingleBlock(t *testing.T) {
	_, g := build(t, "", "")
	assert.Len(t, g.Blocks, 1)
	assert.Equal(t, g.Entry, g.Exit)
	assert.Empty(t, g.Edges)
	assert.Equal(t, 1, g.Complexity())
}

func TestIfWithoutElseJoins(t *testing.T) {
	fx, g := build(t, "def f(x):\n    if x:\n        x = 1\n    return x\n", "f")
	// entry, exit, then, join
	assert.Len(t, g.Blocks, 4)
	assert.Equal(t, 2, g.Complexity())
	ret := fx.Builder.Body(fx.Func(t, "f"))[1]
	blk, ok := g.BlockOf(ret)
	require.True(t, ok)
	assert.NotEqual(t, g.Entry, blk)
	assert.Len(t, g.Preds(blk), 2)
}

const loopSrc = `def g(n):
    i = 0
    while i < n:
        if i == 3:
            break
        i += 1
        continue
    else:
        i = -1
    return i
`

func TestWhileWithBreakContinueElse(t *testing.T) {
	fx, g := build(t, loopSrc, "g")
	assert.Len(t, g.Blocks, 8)
	assert.Len(t, g.Edges, 9)
	assert.Equal(t, 3, g.Complexity())
	assert.Empty(t, g.Unreachable())

	while := fx.Builder.Body(fx.Func(t, "g"))[1]
	require.Equal(t, ast.KindWhile, fx.Builder.Kind(while))
	header, ok := g.BlockOf(while)
	require.True(t, ok)
	assert.Equal(t, while, g.Block(header).Cond)
	assert.Equal(t, []ast.NodeID{while}, g.Block(header).Stmts)

	kinds := edgeKinds(g)
	assert.Equal(t, 1, kinds[cfg.LoopBack], "continue jumps back to the header")
	assert.Equal(t, 2, kinds[cfg.BranchTrue])
	assert.Equal(t, 2, kinds[cfg.BranchFalse])

	var loopBack cfg.Edge
	for _, e := range g.Edges {
		if e.Kind == cfg.LoopBack {
			loopBack = e
		}
	}
	assert.Equal(t, header, loopBack.To)

	conds := g.Conditions(fx.Builder)
	require.Len(t, conds, 2)
	assert.Equal(t, while, conds[0].Stmt)
	assert.Equal(t, ast.KindCompare, fx.Builder.Kind(conds[0].Test))
}

func TestForLoopCondition(t *testing.T) {
	fx, g := build(t, "for x in xs:\n    pass\n", "")
	conds := g.Conditions(fx.Builder)
	require.Len(t, conds, 1)
	assert.Equal(t, ast.KindName, fx.Builder.Kind(conds[0].Test))
	assert.Equal(t, 2, g.Complexity())
}

const trySrc = `def h():
    try:
        a = 1
        if a:
            raise ValueError()
    except ValueError as e:
        a = 2
    except Exception:
        a = 3
    else:
        a = 4
    finally:
        a = 5
    return a
`

func TestTryExceptElseFinally(t *testing.T) {
	fx, g := build(t, trySrc, "h")
	b := fx.Builder
	assert.Empty(t, g.Unreachable())

	try := b.Body(fx.Func(t, "h"))[0]
	td, _ := b.Try(try)
	require.Len(t, td.Handlers, 2)

	var handlerBlocks []cfg.BlockID
	for _, h := range td.Handlers {
		blk, ok := g.BlockOf(h)
		require.True(t, ok)
		assert.Equal(t, h, g.Block(blk).Stmts[0], "handler node opens its block")
		handlerBlocks = append(handlerBlocks, blk)
	}

	// every block of the guarded body reaches both handlers
	guarded := map[cfg.BlockID]bool{}
	for _, s := range td.Body {
		blk, ok := g.BlockOf(s)
		require.True(t, ok)
		guarded[blk] = true
	}
	ifNode := td.Body[1]
	ifd, _ := b.Cond(ifNode)
	raiseBlk, _ := g.BlockOf(ifd.Body[0])
	guarded[raiseBlk] = true
	for blk := range guarded {
		for _, h := range handlerBlocks {
			assert.True(t, hasEdge(g, blk, h, cfg.ExceptionEdge), "bb%d -> handler bb%d", blk, h)
		}
	}
	// raise inside the guarded body has no normal successor
	for _, e := range g.Succs(raiseBlk) {
		assert.Equal(t, cfg.ExceptionEdge, e.Kind)
	}

	// finally joins the else branch and both handlers
	finBlk, ok := g.BlockOf(td.Finally[0])
	require.True(t, ok)
	assert.Len(t, g.Preds(finBlk), 3)
	elseBlk, _ := g.BlockOf(td.Else[0])
	assert.True(t, hasEdge(g, elseBlk, finBlk, cfg.Fallthrough))
	assert.False(t, guarded[elseBlk], "else is not guarded")
}

func TestStatementsAfterTerminatorAreUnreachable(t *testing.T) {
	fx, g := build(t, "def u():\n    return 1\n    x = 2\n", "u")
	dead := fx.Builder.Body(fx.Func(t, "u"))[1]
	blk, ok := g.BlockOf(dead)
	require.True(t, ok)
	assert.False(t, g.Block(blk).Reachable)
	assert.Equal(t, []cfg.BlockID{blk}, g.Unreachable())
}

func TestRaiseOutsideTryGoesToExit(t *testing.T) {
	_, g := build(t, "def r():\n    raise ValueError()\n", "r")
	require.Len(t, g.Edges, 1)
	assert.Equal(t, cfg.Edge{From: g.Entry, To: g.Exit, Kind: cfg.ExceptionEdge}, g.Edges[0])
}

func TestClassBodyInlineAndLambdaGraph(t *testing.T) {
	src := "class C:\n    x = 1\n    def m(self):\n        return self\nf = lambda v: v\n"
	fx := testkit.Parse(t, testkit.Module("main", src))
	fns := cfg.Functions(fx.Builder, fx.Roots)
	require.Len(t, fns, 3)
	assert.Equal(t, ast.KindModule, fx.Builder.Kind(fns[0]))

	graphs, err := cfg.BuildAll(context.Background(), fx.Builder, fns, 2)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(graphs))

	mod := graphs[0]
	cls := fx.Body(0)[0]
	clsBody := fx.Builder.Body(cls)
	for _, s := range append([]ast.NodeID{cls}, clsBody...) {
		blk, ok := mod.BlockOf(s)
		require.True(t, ok, "class statement %d in module graph", s)
		assert.Equal(t, mod.Entry, blk)
	}

	var lambda *cfg.Graph
	for _, g := range graphs {
		if fx.Builder.Kind(g.Func) == ast.KindLambda {
			lambda = g
		}
	}
	require.NotNil(t, lambda)
	assert.Len(t, lambda.Blocks, 2)
	assert.Equal(t, 1, lambda.Complexity())
	assert.True(t, strings.HasSuffix(lambda.Name, "<lambda>"))
}

func TestEveryStatementInExactlyOneBlock(t *testing.T) {
	src := loopSrc + trySrc + `
class K:
    def m(self):
        with open(self) as fh:
            for line in fh:
                if line:
                    continue
                del line
        return None
total = 0
while total < 10:
    total += 1
`
	fx := testkit.Parse(t, testkit.Module("main", src))
	require.False(t, fx.Bag.HasErrors(), testkit.Summary(fx.Bag))
	graphs, err := cfg.BuildAll(context.Background(), fx.Builder, cfg.Functions(fx.Builder, fx.Roots), 4)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(graphs))
	require.NoError(t, testkit.CheckStatementOwnership(fx.Builder, fx.Roots, graphs))
	for _, g := range graphs {
		assert.True(t, g.Block(g.Entry).Reachable, g.Name)
		var sb strings.Builder
		require.NoError(t, cfg.Dump(&sb, fx.Builder, g))
		assert.Contains(t, sb.String(), "cfg "+g.Name)
	}
}

func TestBuildAllCancelled(t *testing.T) {
	fx := testkit.Parse(t, testkit.Module("main", loopSrc))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cfg.BuildAll(ctx, fx.Builder, cfg.Functions(fx.Builder, fx.Roots), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
