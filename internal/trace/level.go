package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // only kept for failure dumps
	LevelPhase               // driver + stage boundaries
	LevelDetail              // module-level events
	LevelDebug               // everything including function-level
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelPhase:
		return "phase"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "phase":
		return LevelPhase, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopeStage
	case LevelDetail:
		return scope <= ScopeModule
	case LevelDebug:
		return true
	}
	// off и error ничего не пишут по ходу работы
	return false
}

// Records reports whether a tracer at this level keeps events of the scope.
// Unlike ShouldEmit it treats LevelError like LevelPhase: the ring buffer
// still needs stage boundaries to explain a failure.
func (l Level) Records(scope Scope) bool {
	if l == LevelError {
		return scope <= ScopeStage
	}
	return l.ShouldEmit(scope)
}
