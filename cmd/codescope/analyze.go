package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"codescope/internal/config"
	"codescope/internal/diag"
	"codescope/internal/diagfmt"
	"codescope/internal/driver"
	"codescope/internal/observ"
	"codescope/internal/version"
)

type analyzeFlags struct {
	output      string
	tasks       []string
	format      string
	configFile  string
	diagnostics string
	pathMode    string
	failOn      string
	ui          string
	cacheDir    string
	metricsOut  string
	lintDisable []string
	exclude     []string

	jobs           int
	maxDiagnostics int
	timeout        time.Duration
	runTimeout     time.Duration

	timings   bool
	noCache   bool
	withNotes bool
	preview   bool
}

func newAnalyzeCmd() *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [flags] <path>",
		Short: "Analyze a Python file or source tree",
		Long: `Analyze parses every *.py file under path and runs the selected tasks.
Without --output the reports go to stdout in the first --format; with it,
one file per task and format is written into the directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "write reports into this directory")
	fl.StringSliceVarP(&f.tasks, "tasks", "t", nil, "comma-separated tasks to run (see 'codescope tasks'); default all")
	fl.StringVarP(&f.format, "format", "f", "text", "report formats, comma-separated (text|json|msgpack|dot)")
	fl.StringVarP(&f.configFile, "config", "c", "", "config file (default: nearest codescope.toml or codescope.yaml)")
	fl.StringVar(&f.diagnostics, "diagnostics", "pretty", "diagnostics on stderr (pretty|short|json|sarif|none)")
	fl.StringVar(&f.pathMode, "path-mode", "relative", "paths in diagnostics (auto|absolute|relative|basename)")
	fl.StringVar(&f.failOn, "fail-on", "error", "exit with status 1 on diagnostics of this severity (error|warning|none)")
	fl.StringVar(&f.ui, "ui", "auto", "progress UI (auto|on|off)")
	fl.StringVar(&f.cacheDir, "cache-dir", "", "result cache directory (default: user cache dir)")
	fl.StringVar(&f.metricsOut, "metrics-out", "", "write Prometheus metrics in text format to file")
	fl.StringSliceVar(&f.lintDisable, "lint-disable", nil, "lint rules to disable")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "path patterns to skip, relative to the source root")
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "max parallel workers (0=auto)")
	fl.IntVar(&f.maxDiagnostics, "max-diagnostics", 0, "keep at most this many diagnostics (0=unlimited)")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-function budget for data flow and type checking")
	fl.DurationVar(&f.runTimeout, "run-timeout", 0, "stop the whole run after this long and report partial results")
	fl.BoolVar(&f.timings, "timings", false, "print stage timings to stderr")
	fl.BoolVar(&f.noCache, "no-cache", false, "do not read or write the result cache")
	fl.BoolVar(&f.withNotes, "with-notes", false, "include diagnostic notes")
	fl.BoolVar(&f.preview, "preview", true, "show the source line under each diagnostic")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, f *analyzeFlags) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	formats, err := driver.ParseFormats(f.format)
	if err != nil {
		return err
	}
	mode, err := readUIMode(f.ui)
	if err != nil {
		return err
	}
	pathMode, ok := diagfmt.ParsePathMode(f.pathMode)
	if !ok {
		return fmt.Errorf("invalid --path-mode value %q", f.pathMode)
	}
	if !validDiagnosticsFormat(f.diagnostics) {
		return fmt.Errorf("invalid --diagnostics value %q (expected pretty|short|json|sarif|none)", f.diagnostics)
	}
	if err := failOn(&driver.Result{}, f.failOn); err != nil {
		return err
	}
	cfg, err := config.Discover(f.configFile, path)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := driver.FromConfig(cfg)
	if opts.Logger, err = setupLogger(cmd, stderr); err != nil {
		return err
	}
	if cfg.Path != "" {
		opts.Logger.Info("config loaded", slog.String("path", cfg.Path))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, tracer, cleanupTrace, err := setupTracing(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanupTrace()
	opts.Tracer = tracer

	cleanupProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanupProf()

	timer := observ.NewTimer()
	opts.Timer = timer
	if f.metricsOut != "" {
		opts.Metrics = observ.NewMetrics(true)
	}
	if !f.noCache {
		opts.Cache = openCache(f.cacheDir, opts.Logger)
	}

	idx := timer.Begin("load")
	prog, err := driver.Load(ctx, path, opts.LoadOptions(cfg.Analysis.Excluded))
	if err != nil {
		timer.End(idx, "failed")
		return err
	}
	timer.End(idx, fmt.Sprintf("%d modules", len(prog.Modules)))

	if f.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.runTimeout)
		defer cancel()
	}

	var res *driver.Result
	if shouldUseTUI(mode) {
		res, err = runAnalyzeWithUI(ctx, "analyzing "+path, prog, opts)
	} else {
		res, err = driver.Analyze(ctx, prog, opts)
	}
	if err != nil {
		return err
	}
	if res.Cached {
		opts.Logger.Info("reusing cached report", slog.String("run", res.RunID))
	}

	if f.output != "" {
		written, err := driver.WriteOutputs(f.output, res, formats)
		if err != nil {
			return err
		}
		opts.Logger.Info("reports written", slog.String("dir", f.output), slog.Int("files", len(written)))
	} else if err := writeViews(stdout, res, formats[0]); err != nil {
		return err
	}

	if err := printDiagnostics(cmd, stderr, res, f.diagnostics, diagfmt.PrettyOpts{
		PathMode:    pathMode,
		ShowNotes:   f.withNotes,
		ShowPreview: f.preview,
	}); err != nil {
		return err
	}
	if f.timings {
		fmt.Fprint(stderr, timer.Summary())
	}
	if opts.Metrics != nil {
		if err := opts.Metrics.WriteFile(f.metricsOut); err != nil {
			return err
		}
	}
	if res.Partial {
		opts.Logger.Warn("analysis is partial", slog.String("run", res.RunID))
	}
	return failOn(res, f.failOn)
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f *analyzeFlags) {
	fl := cmd.Flags()
	if fl.Changed("tasks") {
		cfg.Analysis.Tasks = f.tasks
	}
	if fl.Changed("jobs") {
		cfg.Analysis.Jobs = f.jobs
	}
	if fl.Changed("max-diagnostics") {
		cfg.Analysis.MaxDiagnostics = f.maxDiagnostics
	}
	if fl.Changed("timeout") {
		cfg.Timeouts.Function = f.timeout
	}
	cfg.Analysis.Exclude = append(cfg.Analysis.Exclude, f.exclude...)
	cfg.Lint.Disable = append(cfg.Lint.Disable, f.lintDisable...)
}

func openCache(dir string, log *slog.Logger) *driver.Cache {
	if dir == "" {
		var err error
		if dir, err = driver.DefaultCacheDir(); err != nil {
			log.Warn("result cache disabled", slog.Any("err", err))
			return nil
		}
	}
	return driver.NewCache(dir)
}

// writeViews prints every view in one format. Views that cannot be rendered
// in it, such as non-graph views as DOT, are skipped.
func writeViews(w io.Writer, res *driver.Result, format driver.Format) error {
	for _, v := range res.Views() {
		if format == driver.FormatText {
			if _, err := fmt.Fprintf(w, "== %s ==\n", v.Task()); err != nil {
				return err
			}
		}
		err := driver.WriteView(w, v, format)
		if errors.Is(err, driver.ErrUnsupportedFormat) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", v.Task(), err)
		}
	}
	return nil
}

func validDiagnosticsFormat(s string) bool {
	switch strings.ToLower(s) {
	case "", "pretty", "short", "json", "sarif", "none":
		return true
	}
	return false
}

func printDiagnostics(cmd *cobra.Command, w io.Writer, res *driver.Result, format string, opts diagfmt.PrettyOpts) error {
	items := res.Diagnostics
	files := res.Program.Files
	switch strings.ToLower(format) {
	case "none":
		return nil
	case "short":
		for _, d := range res.DiagnosticsView().Diagnostics {
			if _, err := fmt.Fprintln(w, d); err != nil {
				return err
			}
		}
		return nil
	case "json":
		return diagfmt.JSON(w, items, files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.PathMode,
			IncludeNotes:     opts.ShowNotes,
		})
	case "sarif":
		return diagfmt.Sarif(w, items, files, diagfmt.SarifRunMeta{
			ToolName:       "codescope",
			ToolVersion:    version.Current().Version,
			InvocationArgs: os.Args[1:],
		})
	case "pretty", "":
		color, err := useColor(cmd, w)
		if err != nil {
			return err
		}
		opts.Color = color
		if err := diagfmt.Pretty(w, items, files, opts); err != nil {
			return err
		}
		if len(items) > 0 {
			_, err = fmt.Fprintf(w, "%d errors, %d warnings\n", res.Count(diag.SevError), res.Count(diag.SevWarning))
		}
		return err
	}
	return fmt.Errorf("invalid --diagnostics value %q (expected pretty|short|json|sarif|none)", format)
}

func failOn(res *driver.Result, level string) error {
	switch strings.ToLower(level) {
	case "none", "never":
		return nil
	case "warning":
		if res.HasErrors() || res.Count(diag.SevWarning) > 0 {
			return errFindings
		}
		return nil
	case "error", "":
		if res.HasErrors() {
			return errFindings
		}
		return nil
	}
	return fmt.Errorf("invalid --fail-on value %q (expected error|warning|none)", level)
}
