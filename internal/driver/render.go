package driver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects how a view is serialized.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatDot     Format = "dot"
)

var formats = []Format{FormatText, FormatJSON, FormatMsgpack, FormatDot}

// ParseFormats parses a comma separated list of formats.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		f := Format(part)
		if f == "txt" {
			f = FormatText
		}
		if !slices.Contains(formats, f) {
			return nil, fmt.Errorf("%w: %q (expected text|json|msgpack|dot)", ErrUnsupportedFormat, part)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		out = []Format{FormatText}
	}
	return out, nil
}

// Ext is the file extension used for output files.
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// WriteView serializes one view. DOT is only available for graph views.
func WriteView(w io.Writer, v View, f Format) error {
	switch f {
	case FormatText:
		return v.WriteText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(v)
	case FormatDot:
		dv, ok := v.(DotView)
		if !ok {
			return fmt.Errorf("%w: %s has no dot rendering", ErrUnsupportedFormat, v.Task())
		}
		return dv.WriteDot(w)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// DiagnosticsView is the flat list of every diagnostic of a run.
type DiagnosticsView struct {
	Diagnostics []DiagnosticView `json:"diagnostics" msgpack:"diagnostics"`
	Partial     bool             `json:"partial,omitempty" msgpack:"partial,omitempty"`
}

func (*DiagnosticsView) Task() string { return "diagnostics" }

func (v *DiagnosticsView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, d := range v.Diagnostics {
		ew.printf("%s\n", d)
		for _, n := range d.Notes {
			ew.printf("    note: %s\n", n)
		}
	}
	if v.Partial {
		ew.printf("analysis was interrupted; results are partial\n")
	}
	return ew.err
}

// DiagnosticsView resolves every diagnostic of the run.
func (r *Result) DiagnosticsView() *DiagnosticsView {
	return &DiagnosticsView{Diagnostics: r.Program.DiagnosticViews(r.Diagnostics), Partial: r.Partial}
}

// WriteOutputs writes one file per (view, format) into dir, named
// "<task>.<ext>", plus "diagnostics.<ext>". Graph-only formats are skipped
// for views that cannot render them. It returns the written paths.
func WriteOutputs(dir string, res *Result, fs []Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	views := append(res.Views(), View(res.DiagnosticsView()))
	var written []string
	for _, v := range views {
		for _, f := range fs {
			if _, ok := v.(DotView); f == FormatDot && !ok {
				continue
			}
			path := filepath.Join(dir, v.Task()+"."+f.Ext())
			if err := writeFile(path, v, f); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func writeFile(path string, v View, f Format) (err error) {
	// #nosec G304 -- the output directory is chosen by the user
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(file)
	if err := WriteView(w, v, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return w.Flush()
}
