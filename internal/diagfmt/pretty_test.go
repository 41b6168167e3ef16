package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescope/internal/diag"
	"codescope/internal/source"
)

func fileSet(t *testing.T, content string) (*source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSetWithBase("/home/user/project")
	id := fs.AddVirtual("/home/user/project/src/m.py", []byte(content))
	return fs, id
}

func unresolved(file source.FileID, start, end uint32) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.ResUnresolvedName,
		Category: diag.CatResolution,
		Node:     1,
		Message:  "unresolved name 'foo'",
		Primary:  source.Span{File: file, Start: start, End: end},
	}
}

func pretty(t *testing.T, items []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, items, fs, opts))
	return buf.String()
}

func TestPathModes(t *testing.T) {
	fs, id := fileSet(t, "x = foo\n")
	items := []diag.Diagnostic{unresolved(id, 4, 7)}

	tests := []struct {
		mode PathMode
		want string
	}{
		{PathModeAbsolute, "/home/user/project/src/m.py:1:5: "},
		{PathModeRelative, "src/m.py:1:5: "},
		{PathModeBasename, "m.py:1:5: "},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			out := pretty(t, items, fs, PrettyOpts{PathMode: tt.mode})
			assert.True(t, strings.HasPrefix(out, tt.want), out)
			assert.Contains(t, out, "ERROR RES3001: unresolved name 'foo'")
		})
	}
}

func TestPreviewUnderline(t *testing.T) {
	fs, id := fileSet(t, "a = 1\nx = foo\n")
	out := pretty(t, []diag.Diagnostic{unresolved(id, 10, 13)}, fs, PrettyOpts{
		PathMode:    PathModeRelative,
		ShowPreview: true,
		Context:     1,
	})
	want := "src/m.py:2:5: ERROR RES3001: unresolved name 'foo'\n" +
		" 1 | a = 1\n" +
		" 2 | x = foo\n" +
		"   |     ^~~\n"
	assert.Equal(t, want, out)
}

func TestPreviewWideRunesAndTabs(t *testing.T) {
	fs, id := fileSet(t, "s = '日本' + bar\n")
	out := pretty(t, []diag.Diagnostic{unresolved(id, 15, 18)}, fs, PrettyOpts{ShowPreview: true})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "   | "+strings.Repeat(" ", 13)+"^~~", lines[2])

	fs, id = fileSet(t, "if x:\n\tfoo\n")
	out = pretty(t, []diag.Diagnostic{unresolved(id, 7, 10)}, fs, PrettyOpts{ShowPreview: true, TabWidth: 2})
	assert.Contains(t, out, " 2 |   foo\n   |   ^~~\n")
}

func TestPreviewWidth(t *testing.T) {
	fs, id := fileSet(t, "value = some_function(argument)\n")
	out := pretty(t, []diag.Diagnostic{unresolved(id, 8, 21)}, fs, PrettyOpts{ShowPreview: true, Width: 12})
	assert.Contains(t, out, " 1 | value = som…\n")
	assert.Contains(t, out, "   |         ^~~~\n")
}

func TestColorIsOptIn(t *testing.T) {
	fs, id := fileSet(t, "x = foo\n")
	items := []diag.Diagnostic{unresolved(id, 4, 7)}
	assert.NotContains(t, pretty(t, items, fs, PrettyOpts{}), "\x1b[")
	assert.Contains(t, pretty(t, items, fs, PrettyOpts{Color: true}), "\x1b[")
}

func TestNotesAndRunLevelDiagnostics(t *testing.T) {
	fs, id := fileSet(t, "x = foo\ny = foo\n")
	d := unresolved(id, 4, 7)
	d.Notes = []diag.Note{{Span: source.Span{File: id, Start: 12, End: 15}, Msg: "also used here"}}
	run := diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.AnaCancelled,
		Category: diag.CatAnalysis,
		Message:  "analysis stopped",
	}
	out := pretty(t, []diag.Diagnostic{d, run}, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	assert.Equal(t, "m.py:1:5: ERROR RES3001: unresolved name 'foo'\n"+
		"  note: m.py:2:5: also used here\n"+
		"WARNING ANA7003: analysis stopped\n", out)
}

func TestParsePathMode(t *testing.T) {
	for _, s := range []string{"auto", "absolute", "relative", "basename"} {
		m, ok := ParsePathMode(s)
		require.True(t, ok, s)
		assert.Equal(t, s, m.String())
	}
	_, ok := ParsePathMode("weird")
	assert.False(t, ok)
}
