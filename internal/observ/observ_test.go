package observ_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/diag"
	"codescope/internal/observ"
)

func TestTimerReport(t *testing.T) {
	tm := observ.NewTimer()
	a := tm.Begin("parse")
	b := tm.Begin("resolve")
	tm.End(b, "3 modules")
	tm.End(a, "")
	tm.End(99, "ignored")

	r := tm.Report()
	require.Len(t, r.Stages, 2)
	assert.Equal(t, "parse", r.Stages[0].Name)
	assert.Equal(t, "3 modules", r.Stages[1].Note)
	assert.InDelta(t, r.Stages[0].DurationMS+r.Stages[1].DurationMS, r.TotalMS, 1e-9)

	s := tm.Summary()
	assert.Contains(t, s, "timings:")
	assert.Contains(t, s, "// 3 modules")
	assert.Contains(t, s, "total")
}

func TestEmptyTimer(t *testing.T) {
	assert.Equal(t, observ.Report{}, observ.NewTimer().Report())
}

func TestTimerFeedsMetrics(t *testing.T) {
	m := observ.NewMetrics(false)
	tm := observ.NewTimer()
	tm.Observe(m)
	i := tm.Begin("cfg")
	time.Sleep(time.Millisecond)
	tm.End(i, "")
	tm.End(i, "")

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))
	assert.Contains(t, buf.String(), `codescope_stage_duration_seconds_count{stage="cfg"} 1`)
}

func TestCountDiagnostics(t *testing.T) {
	m := observ.NewMetrics(false)
	m.CountDiagnostics([]diag.Diagnostic{
		{Severity: diag.SevWarning, Category: diag.CatLint},
		{Severity: diag.SevWarning, Category: diag.CatLint},
		{Severity: diag.SevError, Category: diag.CatSyntax},
	})
	m.AddFiles(4)
	m.AddFunctions(7)
	m.CacheHit()
	m.SetPartial(true)

	expected := `
# HELP codescope_diagnostics_total Diagnostics emitted by category and severity
# TYPE codescope_diagnostics_total counter
codescope_diagnostics_total{category="lint",severity="warning"} 2
codescope_diagnostics_total{category="syntax",severity="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "codescope_diagnostics_total"))
	n, err := testutil.GatherAndCount(m.Registry(), "codescope_files_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "codescope_files_total 4")
	assert.Contains(t, out, "codescope_functions_total 7")
	assert.Contains(t, out, "codescope_cache_hits_total 1")
	assert.Contains(t, out, "codescope_partial 1")
}
