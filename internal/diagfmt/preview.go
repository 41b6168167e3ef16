package diagfmt

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/mattn/go-runewidth"

	"codescope/internal/diag"
	"codescope/internal/source"
)

// snippetLine is one source line shown under a diagnostic. Mark columns are
// display cells after tab expansion, so wide runes line up with the caret.
type snippetLine struct {
	num       uint32
	text      string
	mark      bool
	markStart int
	markWidth int
}

// located reports whether d points into fs. Run-level diagnostics carry a
// zero span and no node.
func located(fs *source.FileSet, d diag.Diagnostic) bool {
	if fs == nil || int(d.Primary.File) >= fs.Len() {
		return false
	}
	return d.Primary != (source.Span{}) || d.Node.IsValid()
}

func buildSnippet(fs *source.FileSet, span source.Span, context, tabWidth int) ([]snippetLine, error) {
	if fs == nil || int(span.File) >= fs.Len() {
		return nil, fmt.Errorf("file %d not found in FileSet", span.File)
	}
	f := fs.Get(span.File)
	startPos, endPos := fs.Resolve(span)
	if startPos.Line == 0 {
		return nil, fmt.Errorf("span %s has no line", span)
	}

	var out []snippetLine
	first := uint32(1)
	if c, err := safecast.Conv[uint32](max(context, 0)); err == nil && startPos.Line > c {
		first = startPos.Line - c
	}
	for n := first; n < startPos.Line; n++ {
		out = append(out, snippetLine{num: n, text: expandTabs(f.GetLine(n), tabWidth)})
	}

	raw := f.GetLine(startPos.Line)
	lineStart, err := lineStartOffset(f, startPos.Line)
	if err != nil {
		return nil, err
	}
	from := clamp(int(span.Start)-int(lineStart), len(raw))
	to := len(raw)
	if endPos.Line == startPos.Line {
		to = clamp(int(span.End)-int(lineStart), len(raw))
	}
	to = max(to, from)

	prefix := expandTabs(raw[:from], tabWidth)
	marked := expandTabs(raw[from:to], tabWidth)
	out = append(out, snippetLine{
		num:       startPos.Line,
		text:      expandTabs(raw, tabWidth),
		mark:      true,
		markStart: runewidth.StringWidth(prefix),
		markWidth: max(runewidth.StringWidth(marked), 1),
	})
	return out, nil
}

func lineStartOffset(f *source.File, line uint32) (uint32, error) {
	if line <= 1 {
		return 0, nil
	}
	idx := line - 2
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1, nil
	}
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return 0, fmt.Errorf("len file content overflow: %w", err)
	}
	return n, nil
}

func expandTabs(s string, width int) string {
	if width <= 0 {
		width = 4
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", width))
}

func clamp(v, hi int) int {
	return min(max(v, 0), hi)
}
