package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage records the duration of one pipeline stage.
type Stage struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the stages of one analysis run. Stages may be begun and
// ended from different goroutines.
type Timer struct {
	mu     sync.Mutex
	stages []Stage
	// необязательный приёмник длительностей, обычно Metrics
	sink func(name string, d time.Duration)
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{stages: make([]Stage, 0, 12)} }

// Observe forwards every finished stage to m as well.
func (t *Timer) Observe(m *Metrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m == nil {
		t.sink = nil
		return
	}
	t.sink = m.ObserveStage
}

// Begin starts a new stage and returns its index.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, Stage{Name: name, Start: time.Now()})
	return len(t.stages) - 1
}

// End finishes a stage by its index. Ending twice keeps the first duration.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	if idx < 0 || idx >= len(t.stages) || t.stages[idx].Dur > 0 {
		t.mu.Unlock()
		return
	}
	s := &t.stages[idx]
	s.Dur = time.Since(s.Start)
	s.Note = note
	name, dur, sink := s.Name, s.Dur, t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(name, dur)
	}
}

// Summary returns a human-readable string summarizing all tracked stages.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, s := range report.Stages {
		fmt.Fprintf(&sb, "  %-20s %7.2f ms", s.Name, s.DurationMS)
		if s.Note != "" {
			sb.WriteString("  // " + s.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-20s %7.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// StageReport сжатая информация о стадии для сериализации.
type StageReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Stages  []StageReport `json:"stages" msgpack:"stages"`
}

// Report возвращает стадии и общую длительность в миллисекундах.
// Total is the sum of stage durations, not wall time.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.stages) == 0 {
		return Report{}
	}
	report := Report{Stages: make([]StageReport, len(t.stages))}
	var total time.Duration
	for i, s := range t.stages {
		total += s.Dur
		report.Stages[i] = StageReport{
			Name:       s.Name,
			DurationMS: durationToMillis(s.Dur),
			Note:       s.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
