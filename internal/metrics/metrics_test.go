package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/callgraph"
	"codescope/internal/cfg"
	"codescope/internal/diag"
	"codescope/internal/metrics"
	"codescope/internal/testkit"
)

func compute(t *testing.T, th metrics.Thresholds, src string) (*testkit.Fixture, *metrics.Report) {
	t.Helper()
	ctx := context.Background()
	fx := testkit.Resolve(t, testkit.Module("m", src))
	graphs, err := cfg.BuildAll(ctx, fx.Builder, cfg.Functions(fx.Builder, fx.Roots), 2)
	require.NoError(t, err)
	calls, err := callgraph.Build(ctx, fx.Builder, fx.Table, fx.Table.Modules(), 2)
	require.NoError(t, err)
	return fx, metrics.Compute(fx.Builder, graphs, calls, th, nil, fx.Reporter())
}

func byName(t *testing.T, r *metrics.Report, name string) metrics.Function {
	t.Helper()
	for _, f := range r.Functions {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no metrics for %q", name)
	return metrics.Function{}
}

func TestIfElseComplexity(t *testing.T) {
	_, r := compute(t, metrics.Thresholds{}, "def f(x):\n    if x:\n        return 1\n    else:\n        return 2\n")
	f := byName(t, r, "f")
	assert.Equal(t, 2, f.Cyclomatic)
	assert.Equal(t, metrics.RankA, f.Rank)
	assert.Equal(t, 1, f.Nesting)
	assert.Equal(t, "m", f.Module)
	assert.Equal(t, 3, f.Statements)

	mod := byName(t, r, "<module>")
	assert.Equal(t, 1, mod.Cyclomatic)
	assert.Equal(t, 0, mod.Nesting)
}

func TestNestingDepth(t *testing.T) {
	src := `def f(xs):
    for x in xs:
        if x:
            while x:
                x -= 1
        elif x is None:
            pass
        elif x == 0:
            pass
    try:
        pass
    except ValueError:
        pass
    return 0


def chained(a, b):
    with a, b:
        if a:
            pass


def nested(a, b):
    with a:
        with b:
            if a:
                pass


def outer():
    if True:
        def inner():
            if True:
                if True:
                    pass
        return inner
    return None


class C:
    if True:
        y = 1
`
	_, r := compute(t, metrics.Thresholds{}, src)
	cases := map[string]int{
		"f":           3,
		"chained":     2,
		"nested":      3,
		"outer":       1,
		"outer.inner": 2,
		"<module>":    1,
	}
	for name, want := range cases {
		assert.Equal(t, want, byName(t, r, name).Nesting, name)
	}
}

func TestFanInFanOutAndLimits(t *testing.T) {
	src := `def a():
    b()
    b()
    c()


def b():
    return 1


def c():
    return b()
`
	fx, r := compute(t, metrics.Thresholds{MaxFanOut: 2}, src)
	assert.Equal(t, 3, byName(t, r, "a").FanOut)
	assert.Equal(t, 0, byName(t, r, "a").FanIn)
	assert.Equal(t, 3, byName(t, r, "b").FanIn)
	assert.Equal(t, 1, byName(t, r, "c").FanIn)
	assert.Equal(t, 1, byName(t, r, "c").FanOut)

	got := fx.Bag.Filter(diag.CatComplexity)
	require.Len(t, got, 1, testkit.Summary(fx.Bag))
	assert.Equal(t, diag.CpxFanOut, got[0].Code)
	assert.Equal(t, diag.SevWarning, got[0].Severity)
	assert.Equal(t, byName(t, r, "a").Func, got[0].Node)
}

func TestCyclomaticAndNestingLimits(t *testing.T) {
	src := `def f(x):
    if x == 1:
        return 1
    if x == 2:
        return 2
    if x == 3:
        return 3
    return 0


def g(x):
    while x:
        if x:
            x -= 1
`
	fx, r := compute(t, metrics.Thresholds{MaxCyclomatic: 3, MaxNesting: 1}, src)
	assert.Equal(t, 4, byName(t, r, "f").Cyclomatic)
	assert.Equal(t, 2, byName(t, r, "g").Nesting)
	assert.Equal(t, 1, fx.Count(diag.CpxCyclomatic), testkit.Summary(fx.Bag))
	assert.Equal(t, 1, fx.Count(diag.CpxNesting))
	assert.Contains(t, fx.Bag.Filter(diag.CatComplexity)[0].Message, "f has cyclomatic complexity 4")
}

func TestZeroThresholdsReportNothing(t *testing.T) {
	fx, _ := compute(t, metrics.Thresholds{}, "def f(x):\n    while x:\n        while x:\n            while x:\n                x -= 1\n")
	assert.Empty(t, fx.Bag.Filter(diag.CatComplexity))
}

func TestRankOf(t *testing.T) {
	cases := []struct {
		cc   int
		want metrics.Rank
	}{
		{1, metrics.RankA}, {5, metrics.RankA}, {6, metrics.RankB}, {10, metrics.RankB},
		{11, metrics.RankC}, {20, metrics.RankC}, {21, metrics.RankD}, {30, metrics.RankD},
		{31, metrics.RankE}, {40, metrics.RankE}, {41, metrics.RankF}, {99, metrics.RankF},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, metrics.RankOf(tc.cc), "cc=%d", tc.cc)
	}
}

func TestSummary(t *testing.T) {
	_, r := compute(t, metrics.Thresholds{}, "def f(x):\n    if x:\n        return 1\n    return 2\n\n\ndef g():\n    pass\n")
	s := r.Summary
	assert.Equal(t, 3, s.Functions)
	assert.Equal(t, 2, s.MaxCyclomatic)
	assert.InDelta(t, 4.0/3.0, s.AvgCyclomatic, 1e-9)
	assert.Equal(t, metrics.RankA, s.AvgRank)
	assert.Equal(t, 1, s.MaxNesting)
}
