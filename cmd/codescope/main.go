package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"codescope/internal/version"
)

// errFindings is returned when the run succeeded but reported diagnostics at
// or above --fail-on. The message was already printed.
var errFindings = errors.New("analysis reported findings")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codescope",
		Short:         "Static analysis for Python sources",
		Long:          `codescope parses a Python source tree and builds control flow, call, dependency and data flow views, type information, complexity metrics and lint findings.`,
		Version:       version.Current().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Глобальные флаги
	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.IntP("verbosity", "v", 0, "log verbosity: 0 warnings, 1 info, 2 debug")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "ring buffer size for --trace-mode=ring")
	flags.Duration("trace-heartbeat", 0, "emit heartbeat trace events at this interval")
	flags.String("cpuprofile", "", "write a CPU profile of the analyzer to file")
	flags.String("memprofile", "", "write a heap profile of the analyzer to file")
	flags.String("runtime-trace", "", "write a Go runtime trace to file")

	root.AddCommand(newAnalyzeCmd(), newTasksCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "codescope: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode: 1 for findings, 2 for configuration and runtime errors.
func exitCode(err error) int {
	if errors.Is(err, errFindings) {
		return 1
	}
	return 2
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}

// useColor resolves --color against the terminal state of w; writers that
// are not files never get color in auto mode.
func useColor(cmd *cobra.Command, w io.Writer) (bool, error) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto", "":
		f, ok := w.(*os.File)
		return ok && os.Getenv("NO_COLOR") == "" && isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
}
