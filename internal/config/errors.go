package config

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTask is wrapped when a task name matches no view.
	ErrUnknownTask = errors.New("unknown task")
	// ErrMissingInput is wrapped when the source path is absent or holds no
	// modules.
	ErrMissingInput = errors.New("missing input")
	// ErrInvalidValue is wrapped for malformed or out-of-range settings.
	ErrInvalidValue = errors.New("invalid value")
)

// ConfigurationError is fatal to a run: bad settings, bad task names or no
// input at all. Exactly one of Task, Path or Field is usually set.
type ConfigurationError struct {
	Task  string
	Path  string
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	var where string
	switch {
	case e.Task != "":
		where = fmt.Sprintf("task %q", e.Task)
	case e.Field != "" && e.Path != "":
		where = fmt.Sprintf("%s: %s", e.Path, e.Field)
	case e.Field != "":
		where = e.Field
	case e.Path != "":
		where = e.Path
	}
	if where == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", where, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Field: field,
		Err:   fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...)),
	}
}
