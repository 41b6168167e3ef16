package dataflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/cfg"
	"codescope/internal/dataflow"
	"codescope/internal/diag"
	"codescope/internal/testkit"
)

type analyzed struct {
	fx  *testkit.Fixture
	g   *cfg.Graph
	res *dataflow.Result
}

func analyze(t *testing.T, src, fn string, opts dataflow.Options) analyzed {
	t.Helper()
	fx := testkit.Resolve(t, testkit.Module("m", src))
	g := cfg.Build(fx.Builder, fx.Func(t, fn))
	if opts.Reporter == nil {
		opts.Reporter = fx.Reporter()
	}
	res, err := dataflow.Analyze(context.Background(), fx.Builder, fx.Table, g, opts)
	require.NoError(t, err)
	return analyzed{fx: fx, g: g, res: res}
}

func (a analyzed) defs(name string) []dataflow.Def {
	var out []dataflow.Def
	for _, d := range a.res.Defs {
		if a.res.VarName(a.fx.Table, d.Var) == name {
			out = append(out, d)
		}
	}
	return out
}

func (a analyzed) uses(name string) []dataflow.Use {
	var out []dataflow.Use
	for _, u := range a.res.Uses {
		if a.res.VarName(a.fx.Table, u.Var) == name {
			out = append(out, u)
		}
	}
	return out
}

func TestStraightLine(t *testing.T) {
	a := analyze(t, `def f(a):
    x = 1
    y = x + a
    x = 2
    return y
`, "f", dataflow.Options{})
	require.False(t, a.res.Incomplete)

	params := a.defs("a")
	require.Len(t, params, 1)
	assert.Equal(t, dataflow.DefParam, params[0].Kind)
	assert.Equal(t, a.g.Entry, params[0].Block)

	xs := a.defs("x")
	require.Len(t, xs, 2)
	assert.True(t, xs[0].Live, "first x is read by y = x + a")
	assert.False(t, xs[1].Live, "second x is never read")

	ux := a.uses("x")
	require.Len(t, ux, 1)
	assert.Equal(t, []dataflow.DefID{xs[0].ID}, ux[0].Reaching)

	uy := a.uses("y")
	require.Len(t, uy, 1)
	assert.Equal(t, []dataflow.DefID{a.defs("y")[0].ID}, uy[0].Reaching)
	assert.Empty(t, a.fx.Bag.Items())
}

func TestBranchesMerge(t *testing.T) {
	a := analyze(t, `def g(c):
    if c:
        v = 1
    else:
        v = 2
    return v
`, "g", dataflow.Options{})

	vs := a.defs("v")
	require.Len(t, vs, 2)
	uv := a.uses("v")
	require.Len(t, uv, 1)
	assert.ElementsMatch(t, []dataflow.DefID{vs[0].ID, vs[1].ID}, uv[0].Reaching)
	assert.True(t, vs[0].Live)
	assert.True(t, vs[1].Live)

	idx, ok := a.res.VarIndex(vs[0].Symbol)
	require.True(t, ok)
	assert.True(t, a.res.LiveIn[a.g.Entry].Contains(uint32(a.defs("c")[0].Var)))
	assert.False(t, a.res.LiveIn[a.g.Entry].Contains(uint32(idx)), "v is defined on every path before its use")
}

func TestParametersBoundBeforeEntry(t *testing.T) {
	a := analyze(t, `def p(a, b):
    b = 0
    return a + b
`, "p", dataflow.Options{})

	pa, pb := a.defs("a"), a.defs("b")
	require.Len(t, pa, 1)
	require.Len(t, pb, 2)
	assert.Equal(t, dataflow.DefParam, pb[0].Kind)

	entryIn := a.res.ReachIn[a.g.Entry]
	assert.True(t, entryIn.Contains(pa[0].ID))
	assert.True(t, entryIn.Contains(pb[0].ID))

	live := a.res.LiveIn[a.g.Entry]
	assert.True(t, live.Contains(uint32(pa[0].Var)), "a is read at entry")
	assert.False(t, live.Contains(uint32(pb[0].Var)), "b is overwritten before any read")
	assert.True(t, pa[0].Live)
	assert.False(t, pb[0].Live)

	ua := a.uses("a")
	require.Len(t, ua, 1)
	assert.Equal(t, []dataflow.DefID{pa[0].ID}, ua[0].Reaching)
	ub := a.uses("b")
	require.Len(t, ub, 1)
	assert.Equal(t, []dataflow.DefID{pb[1].ID}, ub[0].Reaching)
}

func TestUseWithoutReachingDefinition(t *testing.T) {
	a := analyze(t, `def h():
    print(z)
    z = 1
`, "h", dataflow.Options{})
	uz := a.uses("z")
	require.Len(t, uz, 1)
	assert.Empty(t, uz[0].Reaching)
}

func TestLoopCarriesDefinitions(t *testing.T) {
	a := analyze(t, `def k(n):
    total = 0
    for i in range(n):
        total += i
    return total
`, "k", dataflow.Options{})

	totals := a.defs("total")
	require.Len(t, totals, 2)
	assert.Equal(t, dataflow.DefAssign, totals[0].Kind)
	assert.Equal(t, dataflow.DefAugAssign, totals[1].Kind)
	is := a.defs("i")
	require.Len(t, is, 1)
	assert.Equal(t, dataflow.DefFor, is[0].Kind)

	both := []dataflow.DefID{totals[0].ID, totals[1].ID}
	for _, u := range a.uses("total") {
		assert.ElementsMatch(t, both, u.Reaching)
	}
	assert.Len(t, a.uses("total"), 2)
}

func TestDelKillsDefinitions(t *testing.T) {
	a := analyze(t, `def d():
    x = 1
    del x
    return x
`, "d", dataflow.Options{})
	ux := a.uses("x")
	require.Len(t, ux, 1)
	assert.Empty(t, ux[0].Reaching)
	assert.False(t, a.defs("x")[0].Live)
}

func TestCapturedVariables(t *testing.T) {
	a := analyze(t, `def outer():
    count = 0
    flag = 1
    def inc():
        nonlocal count
        count += 1
    inc()
    return flag
`, "outer", dataflow.Options{})

	count := a.defs("count")
	require.NotEmpty(t, count)
	flag := a.defs("flag")
	require.NotEmpty(t, flag)
	assert.True(t, a.res.Captured.Contains(uint32(count[0].Var)))
	assert.False(t, a.res.Captured.Contains(uint32(flag[0].Var)))
	require.Len(t, a.defs("inc"), 1)
	assert.Equal(t, dataflow.DefFunction, a.defs("inc")[0].Kind)
}

func TestIterationBound(t *testing.T) {
	assert.Equal(t, 8, dataflow.Bound(4, 0))
	assert.Equal(t, 16, dataflow.Bound(4, 3))

	fx := testkit.Resolve(t, testkit.Module("m", `def k(n):
    total = 0
    while n:
        total += n
        n -= 1
    return total
`))
	g := cfg.Build(fx.Builder, fx.Func(t, "k"))
	bag := diag.NewBag(10)
	res, err := dataflow.Analyze(context.Background(), fx.Builder, fx.Table, g, dataflow.Options{
		Reporter:      diag.BagReporter{Bag: bag},
		MaxIterations: 1,
	})
	require.NoError(t, err)
	assert.True(t, res.Incomplete)
	require.Equal(t, 1, bag.Len())
	d := bag.Items()[0]
	assert.Equal(t, diag.AnaNotConverged, d.Code)
	assert.Equal(t, diag.SevWarning, d.Severity)
	assert.Equal(t, g.Func, d.Node)
	assert.Contains(t, d.Message, "did not converge")
}

func TestSeedingIsIdempotent(t *testing.T) {
	src := `def k(n):
    total = 0
    while n:
        if n > 2:
            total += n
        n -= 1
    return total
`
	first := analyze(t, src, "k", dataflow.Options{})
	second, err := dataflow.Analyze(context.Background(), first.fx.Builder, first.fx.Table, first.g,
		dataflow.Options{Seed: first.res})
	require.NoError(t, err)

	for i := range first.g.Blocks {
		assert.True(t, first.res.ReachIn[i].Equals(second.ReachIn[i]), "reach in of block %d", i)
		assert.True(t, first.res.ReachOut[i].Equals(second.ReachOut[i]), "reach out of block %d", i)
		assert.True(t, first.res.LiveIn[i].Equals(second.LiveIn[i]), "live in of block %d", i)
		assert.True(t, first.res.LiveOut[i].Equals(second.LiveOut[i]), "live out of block %d", i)
	}
	assert.Equal(t, first.res.Defs, second.Defs)
	assert.Equal(t, first.res.Uses, second.Uses)
	// a seeded fixed point is confirmed with one pass per problem
	assert.Equal(t, 2*len(first.g.Blocks), second.Iterations)
}

func TestAnalyzeAll(t *testing.T) {
	fx := testkit.Resolve(t, testkit.Module("m", `x = 1
def f(a):
    return a + x
g = lambda y: y
`))
	graphs, err := cfg.BuildAll(context.Background(), fx.Builder, cfg.Functions(fx.Builder, fx.Roots), 2)
	require.NoError(t, err)

	results, err := dataflow.AnalyzeAll(context.Background(), fx.Builder, fx.Table, graphs, dataflow.AllOptions{
		Reporter: fx.Reporter(),
		Jobs:     2,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, graphs[i].Func, res.Func)
		assert.False(t, res.Incomplete)
	}
	// module scope: x, f, g; x is read from f
	mod := results[0]
	require.Len(t, mod.Vars, 3)
	captured := map[string]bool{}
	for v := range mod.Vars {
		captured[mod.VarName(fx.Table, v)] = mod.Captured.Contains(uint32(v))
	}
	assert.Equal(t, map[string]bool{"x": true, "f": false, "g": false}, captured)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dataflow.AnalyzeAll(cancelled, fx.Builder, fx.Table, graphs, dataflow.AllOptions{Jobs: 1})
	require.ErrorIs(t, err, context.Canceled)
}
