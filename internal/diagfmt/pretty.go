package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"codescope/internal/diag"
	"codescope/internal/source"
)

type palette struct {
	sev    map[diag.Severity]*color.Color
	bold   *color.Color
	gutter *color.Color
	note   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		bold:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		note:   color.New(color.FgGreen),
	}
	// color.NoColor глобальный; переопределяем на каждом объекте
	for _, c := range []*color.Color{p.sev[diag.SevError], p.sev[diag.SevWarning], p.sev[diag.SevInfo], p.bold, p.gutter, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Ожидает уже отсортированный список.
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, items []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	ew := &errWriter{w: w}
	for i, d := range items {
		if i > 0 && opts.ShowPreview {
			ew.print("\n")
		}
		sev := pal.sev[d.Severity]
		if sev == nil {
			sev = pal.bold
		}
		where := ""
		if located(fs, d) {
			where = location(fs, d.Primary, opts.PathMode) + ": "
		}
		ew.print(pal.bold.Sprint(where) + sev.Sprint(d.Severity.String()+" "+d.Code.ID()) + ": " + pal.bold.Sprint(d.Message) + "\n")

		if opts.ShowPreview && located(fs, d) {
			if lines, err := buildSnippet(fs, d.Primary, opts.Context, opts.TabWidth); err == nil {
				writeSnippet(ew, lines, pal, sev, opts.Width)
			}
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				prefix := ""
				if fs != nil && int(n.Span.File) < fs.Len() {
					prefix = location(fs, n.Span, opts.PathMode) + ": "
				}
				ew.print("  " + pal.note.Sprint("note") + ": " + prefix + n.Msg + "\n")
			}
		}
	}
	return ew.err
}

func writeSnippet(ew *errWriter, lines []snippetLine, pal palette, sev *color.Color, width int) {
	gutterWidth := len(strconv.FormatUint(uint64(lines[len(lines)-1].num), 10))
	blank := strings.Repeat(" ", gutterWidth)
	for _, l := range lines {
		text := l.text
		if width > 0 && runewidth.StringWidth(text) > width {
			text = runewidth.Truncate(text, width, "…")
		}
		num := fmt.Sprintf("%*d", gutterWidth, l.num)
		ew.print(" " + pal.gutter.Sprint(num+" | ") + text + "\n")
		if !l.mark {
			continue
		}
		if width > 0 && l.markStart >= width {
			continue
		}
		markWidth := l.markWidth
		if width > 0 {
			markWidth = min(markWidth, width-l.markStart)
		}
		underline := "^" + strings.Repeat("~", max(markWidth-1, 0))
		ew.print(" " + pal.gutter.Sprint(blank+" | ") + strings.Repeat(" ", l.markStart) + sev.Sprint(underline) + "\n")
	}
}

// location renders path:line:col for a span.
func location(fs *source.FileSet, span source.Span, mode PathMode) string {
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(fs, span.File, mode), start.Line, start.Col)
}

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	}
	return f.FormatPath("auto", "")
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) print(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}
