package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

func levelFor(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// setupLogger builds the run logger from --verbosity. Logs go to w, which
// is stderr in the CLI so that stdout carries only reports.
func setupLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	verbosity, err := cmd.Root().PersistentFlags().GetInt("verbosity")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbosity flag: %w", err)
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFor(verbosity)})
	return slog.New(h).With(slog.String("tool", "codescope")), nil
}
