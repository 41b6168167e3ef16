package diag

import (
	"fmt"
	"sort"
	"strings"

	"codescope/internal/source"
)

// FormatShort renders one line per diagnostic:
//
//	path:line:col: SEVERITY CODE message
//
// Lines are sorted by path and position so the output is stable for tests
// and for the text emitter.
func FormatShort(diags []Diagnostic, fs *source.FileSet) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	type row struct {
		path      string
		line, col uint32
		text      string
	}
	rows := make([]row, 0, len(diags))
	for _, d := range diags {
		start, _ := fs.Resolve(d.Primary)
		path := fs.Get(d.Primary.File).Path
		rows = append(rows, row{
			path: path, line: start.Line, col: start.Col,
			text: fmt.Sprintf("%s:%d:%d: %s %s %s", path, start.Line, start.Col, d.Severity, d.Code.ID(), d.Message),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].path != rows[j].path {
			return rows[i].path < rows[j].path
		}
		if rows[i].line != rows[j].line {
			return rows[i].line < rows[j].line
		}
		if rows[i].col != rows[j].col {
			return rows[i].col < rows[j].col
		}
		return rows[i].text < rows[j].text
	})
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(r.text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
