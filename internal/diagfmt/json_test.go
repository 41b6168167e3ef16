package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/diag"
)

func TestJSONOutput(t *testing.T) {
	fs, id := fileSet(t, "x = foo\ny = bar\n")
	first := unresolved(id, 4, 7)
	first.Notes = []diag.Note{{Span: first.Primary, Msg: "first use"}}
	second := unresolved(id, 12, 15)
	second.Severity = diag.SevWarning
	run := diag.Diagnostic{Severity: diag.SevWarning, Code: diag.AnaCancelled, Category: diag.CatAnalysis, Message: "stopped"}

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, []diag.Diagnostic{first, second, run}, fs, JSONOpts{
		IncludePositions: true,
		PathMode:         PathModeRelative,
		IncludeNotes:     true,
	}))
	var out DiagnosticsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, 3, out.Count)
	assert.Equal(t, 1, out.Errors)
	assert.Equal(t, 2, out.Warnings)
	assert.False(t, out.Truncated)

	d := out.Diagnostics[0]
	assert.Equal(t, "ERROR", d.Severity)
	assert.Equal(t, "RES3001", d.Code)
	assert.Equal(t, diag.CatResolution.String(), d.Category)
	require.NotNil(t, d.Location)
	assert.Equal(t, LocationJSON{File: "src/m.py", StartByte: 4, EndByte: 7, StartLine: 1, StartCol: 5, EndLine: 1, EndCol: 8}, *d.Location)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "first use", d.Notes[0].Message)

	assert.Equal(t, uint32(2), out.Diagnostics[1].Location.StartLine)
	assert.Nil(t, out.Diagnostics[2].Location)
}

func TestJSONMaxKeepsTotals(t *testing.T) {
	fs, id := fileSet(t, "x = foo\n")
	items := []diag.Diagnostic{unresolved(id, 4, 7), unresolved(id, 4, 7), unresolved(id, 4, 7)}
	out := BuildDiagnosticsOutput(items, fs, JSONOpts{Max: 1})
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, 3, out.Errors)
	assert.True(t, out.Truncated)
	assert.Zero(t, out.Diagnostics[0].Location.StartLine)
	assert.Empty(t, out.Diagnostics[0].Notes)
}

func TestSarif(t *testing.T) {
	fs, id := fileSet(t, "x = foo\n")
	lint := diag.Diagnostic{
		Severity: diag.SevInfo, Code: diag.LntUnresolvedCall, Category: diag.CatLint,
		Node: 2, Message: "call cannot be resolved", Primary: unresolved(id, 4, 7).Primary,
	}
	var buf bytes.Buffer
	require.NoError(t, Sarif(&buf, []diag.Diagnostic{lint, unresolved(id, 4, 7)}, fs, SarifRunMeta{
		ToolName: "codescope", ToolVersion: "1.0.0", InvocationArgs: []string{"analyze", "."},
	}))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, "codescope", run.Tool.Driver.Name)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "RES3001", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, "LNT5006", run.Tool.Driver.Rules[1].ID)

	require.Len(t, run.Results, 2)
	assert.Equal(t, "note", run.Results[0].Level)
	assert.Equal(t, 1, run.Results[0].RuleIndex)
	assert.Equal(t, "error", run.Results[1].Level)
	assert.Equal(t, "src/m.py", run.Results[1].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, uint32(5), run.Results[1].Locations[0].PhysicalLocation.Region.StartColumn)
	require.Len(t, run.Invocations, 1)
	assert.False(t, run.Invocations[0].ExecutionSuccessful)
}
