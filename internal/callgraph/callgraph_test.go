package callgraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/ast"
	"codescope/internal/callgraph"
	"codescope/internal/testkit"
)

const libSrc = `def helper():
    return 1
class Box:
    def __init__(self):
        pass
`

const mainSrc = `import lib
from lib import helper as h, Box
def run(items):
    result = h()
    lib.helper()
    b = Box()
    items.append(1)
    len(items)
    unknown()
    (lambda: 1)()
    return result
run([])
class K:
    x = run([])
def g(a=run([])):
    pass
`

func buildGraph(t *testing.T, srcs ...testkit.Source) (*testkit.Fixture, *callgraph.Graph) {
	t.Helper()
	fx := testkit.Resolve(t, srcs...)
	g, err := callgraph.Build(context.Background(), fx.Builder, fx.Table, fx.Table.Modules(), 4)
	require.NoError(t, err)
	return fx, g
}

func callsUnder(b *ast.Builder, roots []ast.NodeID) []ast.NodeID {
	var out []ast.NodeID
	for _, root := range roots {
		b.Walk(root, func(id ast.NodeID) bool {
			if b.Kind(id) == ast.KindCall {
				out = append(out, id)
			}
			return true
		})
	}
	return out
}

func siteByHint(t *testing.T, g *callgraph.Graph, caller ast.NodeID, hint string) callgraph.Edge {
	t.Helper()
	for _, e := range g.From(caller) {
		if e.Hint == hint {
			return e
		}
	}
	t.Fatalf("no call %q from %d", hint, caller)
	return callgraph.Edge{}
}

func TestOneEdgePerCallSite(t *testing.T) {
	fx, g := buildGraph(t, testkit.Module("lib", libSrc), testkit.Module("main", mainSrc))
	calls := callsUnder(fx.Builder, fx.Roots)
	require.Len(t, g.Edges, len(calls))
	seen := map[ast.NodeID]bool{}
	for _, e := range g.Edges {
		assert.False(t, seen[e.Site], "site %d has two edges", e.Site)
		seen[e.Site] = true
	}
	for _, c := range calls {
		_, ok := g.EdgeAt(c)
		assert.True(t, ok, "call %d has no edge", c)
	}
}

func TestCalleeResolution(t *testing.T) {
	fx, g := buildGraph(t, testkit.Module("lib", libSrc), testkit.Module("main", mainSrc))
	run := fx.Func(t, "run")
	helper := fx.Func(t, "helper")
	box := fx.Body(0)[1]
	require.Equal(t, ast.KindClassDef, fx.Builder.Kind(box))

	viaImport := siteByHint(t, g, run, "h")
	assert.Equal(t, callgraph.CalleeFunction, viaImport.Kind)
	assert.Equal(t, helper, viaImport.Callee)

	viaModule := siteByHint(t, g, run, "lib.helper")
	assert.Equal(t, callgraph.CalleeFunction, viaModule.Kind)
	assert.Equal(t, helper, viaModule.Callee)

	ctor := siteByHint(t, g, run, "Box")
	assert.Equal(t, callgraph.CalleeClass, ctor.Kind)
	assert.Equal(t, box, ctor.Callee)

	assert.Equal(t, callgraph.CalleeUnresolved, siteByHint(t, g, run, "items.append").Kind)
	assert.Equal(t, callgraph.CalleeBuiltin, siteByHint(t, g, run, "len").Kind)
	assert.Equal(t, callgraph.CalleeUnresolved, siteByHint(t, g, run, "unknown").Kind)
	computed := siteByHint(t, g, run, "<lambda>")
	assert.Equal(t, callgraph.CalleeUnresolved, computed.Kind)
	assert.False(t, computed.Callee.IsValid())

	assert.Equal(t, 2, g.FanIn(helper))
	assert.Equal(t, 7, g.FanOut(run))
	assert.Len(t, g.Unresolved(), 3)
}

func TestCallerOfClassBodyAndDefaults(t *testing.T) {
	fx, g := buildGraph(t, testkit.Module("lib", libSrc), testkit.Module("main", mainSrc))
	run := fx.Func(t, "run")
	module := fx.Roots[1]

	// module call, class-body call and default-argument call all run in the
	// module body
	edges := g.To(run)
	require.Len(t, edges, 3)
	for _, e := range edges {
		assert.Equal(t, module, e.Caller)
	}
	assert.Equal(t, 3, g.FanIn(run))
	assert.Empty(t, g.From(fx.Func(t, "g")))
}

func TestPackageAttributeChain(t *testing.T) {
	fx, g := buildGraph(t,
		testkit.Source{Key: "pkg", Package: true, Text: "VERSION = 1\n"},
		testkit.Module("pkg.util", "def f():\n    return 0\n"),
		testkit.Module("app", "import pkg.util\npkg.util.f()\nimport os\nos.path.join('a')\n"),
	)
	f := fx.Func(t, "f")
	edges := g.From(fx.Roots[2])
	require.Len(t, edges, 2)
	assert.Equal(t, f, edges[0].Callee)
	assert.Equal(t, "pkg.util.f", edges[0].Hint)
	assert.Equal(t, callgraph.CalleeUnresolved, edges[1].Kind)
	assert.Equal(t, "os.path.join", edges[1].Hint)
}

func TestBuildCancelled(t *testing.T) {
	fx := testkit.Resolve(t, testkit.Module("main", mainSrc))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := callgraph.Build(ctx, fx.Builder, fx.Table, fx.Table.Modules(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
