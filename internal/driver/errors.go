package driver

import (
	"errors"

	"codescope/internal/config"
)

// ConfigurationError is fatal to a run; see config.ConfigurationError.
type ConfigurationError = config.ConfigurationError

var (
	ErrUnknownTask  = config.ErrUnknownTask
	ErrMissingInput = config.ErrMissingInput

	// ErrViewUnavailable is returned by Result.View for a selected task whose
	// stages did not finish, which only happens in a partial run.
	ErrViewUnavailable = errors.New("view not computed")
	// ErrUnsupportedFormat is returned when a view cannot be rendered in the
	// requested format, e.g. DOT for a non-graph view.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)
