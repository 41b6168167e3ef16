package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/driver"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

var cleanProject = map[string]string{
	"lib.py": "def f():\n    return 1\n",
	"app.py": "from lib import f\n\n\ndef main():\n    return f()\n",
}

func TestAnalyzeToStdout(t *testing.T) {
	dir := project(t, cleanProject)
	stdout, _, err := execute(t, "analyze", dir, "--ui=off", "--no-cache",
		"--tasks", "callgraph,dependency_graph", "--diagnostics", "none")
	require.NoError(t, err)
	assert.Contains(t, stdout, "== callgraph ==\n")
	assert.Contains(t, stdout, "app.main -> lib.f [function]")
	assert.Contains(t, stdout, "== depgraph ==\n")
	assert.Contains(t, stdout, "order: lib, app")
	assert.NotContains(t, stdout, "== cfg ==")
}

func TestAnalyzeWritesOutputs(t *testing.T) {
	dir := project(t, cleanProject)
	out := filepath.Join(t.TempDir(), "reports")
	stdout, _, err := execute(t, "analyze", dir, "--ui=off", "--no-cache",
		"-t", "callgraph,lint", "-f", "json,dot", "-o", out, "--timings")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	for _, name := range []string{"callgraph.json", "callgraph.dot", "lint.json", "diagnostics.json"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(out, "lint.dot"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(out, "callgraph.json"))
	require.NoError(t, err)
	var view driver.CallGraphView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.NotEmpty(t, view.Edges)
}

func TestAnalyzeFailsOnErrors(t *testing.T) {
	dir := project(t, map[string]string{"bad.py": "def f(:\n    pass\n"})
	_, stderr, err := execute(t, "analyze", dir, "--ui=off", "--no-cache", "-t", "ast", "--diagnostics", "short")
	require.ErrorIs(t, err, errFindings)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, stderr, "bad.py:1:")
	assert.Contains(t, stderr, "ERROR SYN")

	_, _, err = execute(t, "analyze", dir, "--ui=off", "--no-cache", "-t", "ast", "--diagnostics", "none", "--fail-on", "none")
	assert.NoError(t, err)
}

func TestAnalyzeJSONDiagnostics(t *testing.T) {
	dir := project(t, map[string]string{"m.py": "print(missing)\n"})
	_, stderr, err := execute(t, "analyze", dir, "--ui=off", "--no-cache", "-t", "symbols",
		"--diagnostics", "json", "--fail-on", "warning", "-o", t.TempDir())
	require.ErrorIs(t, err, errFindings)
	var out struct {
		Diagnostics []struct {
			Code     string `json:"code"`
			Severity string `json:"severity"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(stderr), &out))
	require.NotEmpty(t, out.Diagnostics)
	assert.Equal(t, "RES3001", out.Diagnostics[0].Code)
}

func TestConfigFileIsDiscovered(t *testing.T) {
	files := map[string]string{"codescope.toml": "[analysis]\ntasks = [\"depgraph\"]\n"}
	for k, v := range cleanProject {
		files["src/"+k] = v
	}
	dir := project(t, files)
	stdout, _, err := execute(t, "analyze", filepath.Join(dir, "src"), "--ui=off", "--no-cache")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "== depgraph ==\n"), stdout)
	assert.Equal(t, 1, strings.Count(stdout, "== "))

	// флаг важнее файла
	stdout, _, err = execute(t, "analyze", filepath.Join(dir, "src"), "--ui=off", "--no-cache", "-t", "cfg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "== cfg ==\n"), stdout)
}

func TestAnalyzeConfigurationErrors(t *testing.T) {
	_, _, err := execute(t, "analyze", filepath.Join(t.TempDir(), "absent"), "--ui=off", "--no-cache")
	require.ErrorIs(t, err, driver.ErrMissingInput)
	assert.Equal(t, 2, exitCode(err))

	dir := project(t, cleanProject)
	_, _, err = execute(t, "analyze", dir, "--ui=off", "--no-cache", "-t", "bogus")
	assert.ErrorIs(t, err, driver.ErrUnknownTask)

	_, _, err = execute(t, "analyze", dir, "--ui=sometimes")
	assert.ErrorContains(t, err, "--ui")

	_, _, err = execute(t, "analyze", dir, "--ui=off", "--format", "svg")
	assert.ErrorIs(t, err, driver.ErrUnsupportedFormat)

	_, _, err = execute(t, "analyze", dir, "--ui=off", "--fail-on", "sometimes")
	assert.ErrorContains(t, err, "--fail-on")

	_, _, err = execute(t, "analyze", dir, "--ui=off", "--no-cache", "--lint-disable", "no-such-rule")
	var cfgErr *driver.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestTasksCommand(t *testing.T) {
	stdout, _, err := execute(t, "tasks", "--format", "json")
	require.NoError(t, err)
	var tasks []taskPayload
	require.NoError(t, json.Unmarshal([]byte(stdout), &tasks))
	require.Len(t, tasks, len(driver.Tasks()))
	assert.Equal(t, "ast", tasks[0].Name)
	assert.Empty(t, tasks[0].Stages)

	stdout, _, err = execute(t, "tasks")
	require.NoError(t, err)
	assert.Contains(t, stdout, "aliases: call_graph")
	assert.Contains(t, stdout, "lint rules: unreachable-code")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version", "--format", "json", "--full")
	require.NoError(t, err)
	var payload versionPayload
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "codescope", payload.Tool)
	assert.NotEmpty(t, payload.Version)
	assert.NotEmpty(t, payload.GitCommit)

	stdout, _, err = execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "codescope "))
	assert.NotContains(t, stdout, "\x1b[")
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, levelFor(0))
	assert.Equal(t, slog.LevelInfo, levelFor(1))
	assert.Equal(t, slog.LevelDebug, levelFor(5))
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := readUIMode("maybe")
	assert.Error(t, err)
	assert.False(t, shouldUseTUI(uiModeOff))
	assert.True(t, shouldUseTUI(uiModeOn))
}
