package driver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"codescope/internal/diag"
	"codescope/internal/driver"
)

const libSrc = `def helper(x: int) -> int:
    if x > 0:
        return x
    return -x
`

const appSrc = `from lib import helper


class Base:
    def run(self):
        return 1


class Child(Base):
    def run(self):
        return helper(2)


def main():
    c = Child()
    return c.run() + unknown()
`

func program(t *testing.T, srcs ...driver.Source) *driver.Program {
	t.Helper()
	if len(srcs) == 0 {
		srcs = []driver.Source{{Path: "lib.py", Text: libSrc}, {Path: "app.py", Text: appSrc}}
	}
	prog, err := driver.NewProgram(context.Background(), srcs, driver.LoadOptions{Jobs: 2})
	require.NoError(t, err)
	return prog
}

func analyze(t *testing.T, prog *driver.Program, opts driver.Options) *driver.Result {
	t.Helper()
	res, err := driver.Analyze(context.Background(), prog, opts)
	require.NoError(t, err)
	return res
}

func view[T driver.View](t *testing.T, res *driver.Result, name string) T {
	t.Helper()
	v, err := res.View(name)
	require.NoError(t, err)
	out, ok := v.(T)
	require.True(t, ok, "view %s has type %T", name, v)
	return out
}

func text(t *testing.T, v driver.View) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, v.WriteText(&buf))
	return buf.String()
}

func TestModuleKey(t *testing.T) {
	cases := []struct {
		rel string
		key string
		pkg bool
	}{
		{"main.py", "main", false},
		{"pkg/util.py", "pkg.util", false},
		{"pkg/__init__.py", "pkg", true},
		{"pkg/sub/__init__.py", "pkg.sub", true},
		{"./a/b.py", "a.b", false},
		{`a\b.py`, "a.b", false},
		{"__init__.py", "root", true},
	}
	for _, tc := range cases {
		key, pkg := driver.ModuleKey(tc.rel, "root")
		assert.Equal(t, tc.key, key, tc.rel)
		assert.Equal(t, tc.pkg, pkg, tc.rel)
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root
}

func keys(prog *driver.Program) []string {
	out := make([]string, len(prog.Modules))
	for i, m := range prog.Modules {
		out[i] = m.Key
	}
	return out
}

func TestLoadDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":                "import pkg.util\n",
		"pkg/__init__.py":        "",
		"pkg/util.py":            "def f():\n    return 1\n",
		"pkg/notes.txt":          "not python",
		".venv/site.py":          "x = 1\n",
		"pkg/__pycache__/old.py": "x = 1\n",
		"build/gen.py":           "x = 1\n",
		"tests/test_util.py":     "x = 1\n",
	})
	prog, err := driver.Load(context.Background(), root, driver.LoadOptions{
		Exclude: func(rel string) bool { return rel == "build" || strings.HasPrefix(rel, "tests/") },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "pkg", "pkg.util"}, keys(prog))

	m, ok := prog.Module("pkg")
	require.True(t, ok)
	assert.True(t, m.Package)
	assert.Equal(t, "pkg/__init__.py", prog.RelPath(m.File))
	assert.Zero(t, prog.Diagnostics.Len())
}

func TestLoadSingleFile(t *testing.T) {
	root := writeTree(t, map[string]string{"tool.py": "print(1)\n"})
	prog, err := driver.Load(context.Background(), filepath.Join(root, "tool.py"), driver.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"tool"}, keys(prog))
}

func TestLoadMissingInput(t *testing.T) {
	for name, root := range map[string]string{
		"missing": filepath.Join(t.TempDir(), "nope"),
		"empty":   writeTree(t, map[string]string{"README.md": "hi"}),
	} {
		_, err := driver.Load(context.Background(), root, driver.LoadOptions{})
		require.Error(t, err, name)
		assert.ErrorIs(t, err, driver.ErrMissingInput, name)
		var cfgErr *driver.ConfigurationError
		require.ErrorAs(t, err, &cfgErr, name)
		assert.Equal(t, root, cfgErr.Path, name)
	}
}

func TestPackageShadowsModule(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg.py":          "x = 1\n",
		"pkg/__init__.py": "y = 2\n",
	})
	prog, err := driver.Load(context.Background(), root, driver.LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"pkg"}, keys(prog))
	assert.True(t, prog.Modules[0].Package)
}

func TestSyntaxErrorsDoNotStopOtherModules(t *testing.T) {
	prog := program(t,
		driver.Source{Path: "bad.py", Text: "def f(:\n    pass\n"},
		driver.Source{Path: "good.py", Text: "def g():\n    return 1\n"},
	)
	assert.True(t, prog.Diagnostics.HasErrors())
	res := analyze(t, prog, driver.Options{Tasks: []string{"cfg"}})
	assert.True(t, res.HasErrors())
	cfgView := view[*driver.CFGView](t, res, "cfg")
	var names []string
	for _, fn := range cfgView.Functions {
		names = append(names, fn.Name)
	}
	assert.Contains(t, names, "good.g")
}

func TestAnalyzeAllTasks(t *testing.T) {
	res := analyze(t, program(t), driver.Options{})
	require.False(t, res.Partial)
	assert.Equal(t, []string{"ast", "symbols", "cfg", "callgraph", "depgraph", "dataflow", "typecheck", "complexity", "lint", "classes"}, res.Tasks)
	assert.Len(t, res.Views(), len(res.Tasks))
	assert.NotEmpty(t, res.RunID)

	calls := view[*driver.CallGraphView](t, res, "callgraph")
	var resolved []string
	for _, e := range calls.Edges {
		if e.Kind == "function" || e.Kind == "class" {
			resolved = append(resolved, e.Caller+" -> "+e.Callee)
		}
	}
	assert.ElementsMatch(t, []string{"app.Child.run -> lib.helper", "app.main -> app.Child"}, resolved)

	deps := view[*driver.DepGraphView](t, res, "depgraph")
	assert.Equal(t, []string{"lib", "app"}, deps.Order)
	require.Len(t, deps.Edges, 1)
	assert.Equal(t, "app", deps.Edges[0].From)
	assert.Equal(t, "lib", deps.Edges[0].To)

	classes := view[*driver.ClassesView](t, res, "classes")
	require.Len(t, classes.Classes, 2)
	assert.Equal(t, "app.Child", classes.Classes[1].Name)
	assert.Equal(t, []string{"app.Base"}, classes.Classes[1].Bases)
	assert.Contains(t, classes.Classes[1].Methods, "run")

	syms := view[*driver.SymbolsView](t, res, "symbols")
	var sigs []string
	for _, s := range syms.Signatures {
		sigs = append(sigs, s.String())
	}
	assert.Contains(t, sigs, "lib.helper(x: int) -> int")
	var unresolved []string
	for _, u := range syms.Unresolved {
		unresolved = append(unresolved, u.Module+"."+u.Name)
	}
	assert.Equal(t, []string{"app.unknown"}, unresolved)

	cfgView := view[*driver.CFGView](t, res, "cfg")
	var conds []string
	for _, fn := range cfgView.Functions {
		for _, c := range fn.Conditions {
			conds = append(conds, fn.Name+": "+c.Kind+" "+c.Test)
		}
	}
	assert.Equal(t, []string{"lib.helper: If x > 0"}, conds)

	cx := view[*driver.ComplexityView](t, res, "complexity")
	assert.Contains(t, text(t, cx), "F 1:0 helper - A (2)")

	var codes []diag.Code
	for _, d := range res.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, diag.ResUnresolvedName)
}

func TestDependencyCycleReportedByDepGraph(t *testing.T) {
	srcs := []driver.Source{
		{Path: "a.py", Text: "import b\n"},
		{Path: "b.py", Text: "import a\n"},
	}
	cycles := func(res *driver.Result) int {
		n := 0
		for _, d := range res.Diagnostics {
			if d.Code == diag.LntDependencyCycle {
				n++
			}
		}
		return n
	}

	only := analyze(t, program(t, srcs...), driver.Options{Tasks: []string{"depgraph"}})
	assert.Equal(t, 1, cycles(only))
	assert.Len(t, view[*driver.DepGraphView](t, only, "depgraph").Cycles, 1)

	all := analyze(t, program(t, srcs...), driver.Options{})
	assert.Equal(t, 1, cycles(all), "lint must not report the cycle a second time")
	for _, rc := range view[*driver.LintView](t, all, "lint").Rules {
		if rc.Rule == "dependency-cycle" {
			assert.Equal(t, 1, rc.Count)
		}
	}

	off := analyze(t, program(t, srcs...), driver.Options{
		Tasks:       []string{"depgraph"},
		LintDisable: []string{"dependency-cycle"},
	})
	assert.Zero(t, cycles(off))
}

func TestTaskAliases(t *testing.T) {
	res := analyze(t, program(t), driver.Options{Tasks: []string{"static", "call_graph", "CallGraph"}})
	assert.Equal(t, []string{"callgraph", "lint"}, res.Tasks)

	v, err := res.View("call_graph")
	require.NoError(t, err)
	assert.Equal(t, "callgraph", v.Task())

	_, err = res.View("data_flow")
	assert.ErrorIs(t, err, driver.ErrViewUnavailable)
}

func TestUnknownTask(t *testing.T) {
	_, err := driver.Analyze(context.Background(), program(t), driver.Options{Tasks: []string{"cfg", "nope"}})
	var cfgErr *driver.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "nope", cfgErr.Task)
	assert.ErrorIs(t, err, driver.ErrUnknownTask)

	res := analyze(t, program(t), driver.Options{Tasks: []string{"ast"}})
	_, err = res.View("nope")
	assert.ErrorIs(t, err, driver.ErrUnknownTask)
}

func TestUnknownLintRule(t *testing.T) {
	_, err := driver.Analyze(context.Background(), program(t), driver.Options{LintDisable: []string{"no-such-rule"}})
	var cfgErr *driver.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "lint.disable", cfgErr.Field)
}

func TestCancelledRunIsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var events []driver.StageEvent
	res, err := driver.Analyze(ctx, program(t), driver.Options{
		Tasks:    []string{"ast", "cfg"},
		Observer: func(ev driver.StageEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)
	assert.True(t, res.Partial)

	_, err = res.View("ast")
	assert.NoError(t, err)
	_, err = res.View("cfg")
	assert.ErrorIs(t, err, driver.ErrViewUnavailable)

	var cancelled []string
	for _, d := range res.Diagnostics {
		if d.Code == diag.AnaCancelled {
			cancelled = append(cancelled, d.Message)
		}
	}
	require.Len(t, cancelled, 1)
	assert.Contains(t, cancelled[0], "analysis stopped during cfg")
	require.Len(t, events, 1)
	assert.Equal(t, driver.StageSkipped, events[0].Status)
	assert.ErrorIs(t, events[0].Err, context.Canceled)
}

func TestStageObserver(t *testing.T) {
	var events []driver.StageEvent
	analyze(t, program(t), driver.Options{
		Tasks:    []string{"depgraph"},
		Observer: func(ev driver.StageEvent) { events = append(events, ev) },
	})
	var got []string
	for _, ev := range events {
		status := "start"
		if ev.Status == driver.StageEnd {
			status = "end"
		}
		got = append(got, ev.Name+":"+status)
		assert.Equal(t, 2, ev.Total)
	}
	assert.Equal(t, []string{"resolve:start", "resolve:end", "depgraph:start", "depgraph:end"}, got)

	planned, err := driver.PlannedStages([]string{"depgraph"})
	require.NoError(t, err)
	assert.Equal(t, []string{"resolve", "depgraph"}, planned)
	planned, err = driver.PlannedStages([]string{"lint"})
	require.NoError(t, err)
	assert.Equal(t, []string{"resolve", "cfg", "callgraph", "depgraph", "dataflow", "lint"}, planned)
}

func TestDiagnosticOverflowIsReported(t *testing.T) {
	prog := program(t, driver.Source{Path: "m.py", Text: "a\nb\nc\nd\ne\n"})
	res := analyze(t, prog, driver.Options{Tasks: []string{"symbols"}, MaxDiagnostics: 2})
	require.Len(t, res.Diagnostics, 3)
	assert.GreaterOrEqual(t, res.Dropped, 3)
	assert.Equal(t, diag.AnaTooManyDiagnostics, res.Diagnostics[2].Code)
	assert.Contains(t, res.Diagnostics[2].Message, "after the limit of 2")
}

func TestDeterministicAcrossJobs(t *testing.T) {
	render := func(jobs int) map[string]string {
		res := analyze(t, program(t), driver.Options{Jobs: jobs})
		out := make(map[string]string)
		for _, v := range res.Views() {
			var buf bytes.Buffer
			require.NoError(t, driver.WriteView(&buf, v, driver.FormatJSON))
			out[v.Task()] = buf.String()
		}
		return out
	}
	assert.Equal(t, render(1), render(8))
}

func TestWriteViewFormats(t *testing.T) {
	res := analyze(t, program(t), driver.Options{Tasks: []string{"callgraph", "lint", "depgraph"}})
	calls := view[*driver.CallGraphView](t, res, "callgraph")

	var js bytes.Buffer
	require.NoError(t, driver.WriteView(&js, calls, driver.FormatJSON))
	var decoded driver.CallGraphView
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Len(t, decoded.Edges, len(calls.Edges))

	var mp bytes.Buffer
	require.NoError(t, driver.WriteView(&mp, calls, driver.FormatMsgpack))
	var fromMsgpack driver.CallGraphView
	require.NoError(t, msgpack.Unmarshal(mp.Bytes(), &fromMsgpack))
	assert.Equal(t, calls.Edges, fromMsgpack.Edges)

	var dot bytes.Buffer
	require.NoError(t, driver.WriteView(&dot, view[*driver.DepGraphView](t, res, "depgraph"), driver.FormatDot))
	assert.Contains(t, dot.String(), `"app" -> "lib"`)

	err := driver.WriteView(&dot, view[*driver.LintView](t, res, "lint"), driver.FormatDot)
	assert.ErrorIs(t, err, driver.ErrUnsupportedFormat)
}

func TestParseFormats(t *testing.T) {
	got, err := driver.ParseFormats("text, JSON,dot")
	require.NoError(t, err)
	assert.Equal(t, []driver.Format{driver.FormatText, driver.FormatJSON, driver.FormatDot}, got)

	got, err = driver.ParseFormats("")
	require.NoError(t, err)
	assert.Equal(t, []driver.Format{driver.FormatText}, got)

	_, err = driver.ParseFormats("svg")
	assert.ErrorIs(t, err, driver.ErrUnsupportedFormat)
}

func TestWriteOutputs(t *testing.T) {
	res := analyze(t, program(t), driver.Options{Tasks: []string{"cfg", "lint"}})
	dir := filepath.Join(t.TempDir(), "out")
	written, err := driver.WriteOutputs(dir, res, []driver.Format{driver.FormatText, driver.FormatDot})
	require.NoError(t, err)

	var names []string
	for _, p := range written {
		names = append(names, filepath.Base(p))
	}
	slices.Sort(names)
	assert.Equal(t, []string{"cfg.dot", "cfg.txt", "diagnostics.txt", "lint.txt"}, names)
	data, err := os.ReadFile(filepath.Join(dir, "cfg.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "function lib.helper")
}

func TestCacheReusesReport(t *testing.T) {
	dir := t.TempDir()
	opts := driver.Options{Cache: driver.NewCache(dir)}
	first := analyze(t, program(t), opts)
	require.False(t, first.Cached)

	second := analyze(t, program(t), opts)
	require.True(t, second.Cached)
	assert.Equal(t, first.Tasks, second.Tasks)
	assert.Len(t, second.Diagnostics, len(first.Diagnostics))
	for _, name := range first.Tasks {
		a, err := first.View(name)
		require.NoError(t, err)
		b, err := second.View(name)
		require.NoError(t, err)
		assert.Equal(t, text(t, a), text(t, b), name)
	}

	// a fresh process sees the entry on disk
	third := analyze(t, program(t), driver.Options{Cache: driver.NewCache(dir)})
	assert.True(t, third.Cached)

	// changed input misses
	changed := program(t, driver.Source{Path: "lib.py", Text: libSrc + "\n\nX = 1\n"}, driver.Source{Path: "app.py", Text: appSrc})
	assert.False(t, analyze(t, changed, opts).Cached)
}

func TestResolveTasks(t *testing.T) {
	all, err := driver.ResolveTasks(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(driver.Tasks()))

	got, err := driver.ResolveTasks([]string{"type_check", "all"})
	require.NoError(t, err)
	assert.Equal(t, all, got)

	got, err = driver.ResolveTasks([]string{"class_hierarchy", "semantic", "cyclomatic_complexity", "dependency_graph"})
	require.NoError(t, err)
	assert.Equal(t, []string{"symbols", "depgraph", "complexity", "classes"}, got)

	_, err = driver.ResolveTasks([]string{"bogus"})
	assert.True(t, errors.Is(err, driver.ErrUnknownTask))
}
