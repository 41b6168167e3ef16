package driver

import "time"

// StageStatus reports whether a stage started or finished.
type StageStatus int

const (
	StageStart StageStatus = iota
	StageEnd
	// StageSkipped is sent for a planned stage that never ran because the
	// run was cancelled.
	StageSkipped
)

// StageEvent describes a pipeline stage boundary. Index counts from 1 up to
// Total, the number of stages the selected tasks need.
type StageEvent struct {
	Name    string
	Status  StageStatus
	Index   int
	Total   int
	Elapsed time.Duration
	Err     error
}

// StageObserver receives stage events. It is called from the goroutine
// running Analyze, never concurrently.
type StageObserver func(StageEvent)
