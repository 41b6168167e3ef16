package driver

import (
	"log/slog"
	"time"

	"codescope/internal/config"
	"codescope/internal/metrics"
	"codescope/internal/observ"
	"codescope/internal/trace"
)

// Options configure one Analyze call. Collaborators left nil get inert
// defaults.
type Options struct {
	// Tasks selects views by name or alias; empty means every task.
	Tasks []string
	Jobs  int
	// FunctionTimeout bounds data flow and type checking of each function.
	FunctionTimeout time.Duration
	// MaxSteps bounds unification steps per function; 0 keeps the checker
	// default.
	MaxSteps       int
	MaxDiagnostics int
	Thresholds     metrics.Thresholds
	LintDisable    []string

	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  *observ.Metrics
	Timer    *observ.Timer
	Observer StageObserver
	Cache    *Cache
}

// FromConfig maps a config file onto Options. Collaborators stay unset.
func FromConfig(cfg *config.Config) Options {
	if cfg == nil {
		cfg = config.Default()
	}
	return Options{
		Tasks:           cfg.Analysis.Tasks,
		Jobs:            cfg.Analysis.Jobs,
		FunctionTimeout: cfg.Timeouts.Function,
		MaxDiagnostics:  cfg.Analysis.MaxDiagnostics,
		Thresholds: metrics.Thresholds{
			MaxCyclomatic: cfg.Complexity.MaxCyclomatic,
			MaxNesting:    cfg.Complexity.MaxNesting,
			MaxFanOut:     cfg.Complexity.MaxFanOut,
		},
		LintDisable: cfg.Lint.Disable,
	}
}

// LoadOptions derives program loading options from the analysis ones.
func (o Options) LoadOptions(exclude func(string) bool) LoadOptions {
	return LoadOptions{
		Jobs:           o.Jobs,
		MaxDiagnostics: o.MaxDiagnostics,
		Exclude:        exclude,
		Logger:         o.Logger,
	}
}
