package observ

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"

	"codescope/internal/diag"
)

// Metrics holds the counters of one analysis run. Every run gets its own
// registry, so concurrent runs in one process never share series.
type Metrics struct {
	reg *prometheus.Registry

	diagnostics *prometheus.CounterVec
	stages      *prometheus.HistogramVec
	files       prometheus.Counter
	functions   prometheus.Counter
	cacheHits   prometheus.Counter
	partial     prometheus.Gauge
}

// NewMetrics registers the run collectors, plus the Go runtime collector
// when withRuntime is set.
func NewMetrics(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codescope",
			Name:      "diagnostics_total",
			Help:      "Diagnostics emitted by category and severity",
		}, []string{"category", "severity"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codescope",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"stage"}),
		files: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "codescope",
			Name:      "files_total",
			Help:      "Source files loaded",
		}),
		functions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "codescope",
			Name:      "functions_total",
			Help:      "Function bodies analyzed, module bodies included",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "codescope",
			Name:      "cache_hits_total",
			Help:      "Runs answered from the result cache",
		}),
		partial: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codescope",
			Name:      "partial",
			Help:      "1 when the last run stopped before finishing every stage",
		}),
	}
	reg.MustRegister(m.diagnostics, m.stages, m.files, m.functions, m.cacheHits, m.partial)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector())
	}
	return m
}

// Registry exposes the underlying registry, for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveStage records a finished stage.
func (m *Metrics) ObserveStage(name string, d time.Duration) {
	m.stages.WithLabelValues(name).Observe(d.Seconds())
}

// CountDiagnostics adds every diagnostic of the bag.
func (m *Metrics) CountDiagnostics(items []diag.Diagnostic) {
	for _, d := range items {
		m.diagnostics.WithLabelValues(d.Category.String(), strings.ToLower(d.Severity.String())).Inc()
	}
}

func (m *Metrics) AddFiles(n int) { m.files.Add(float64(n)) }

func (m *Metrics) AddFunctions(n int) { m.functions.Add(float64(n)) }

func (m *Metrics) CacheHit() { m.cacheHits.Inc() }

// SetPartial marks whether the run was cut short.
func (m *Metrics) SetPartial(partial bool) {
	if partial {
		m.partial.Set(1)
		return
	}
	m.partial.Set(0)
}

// Write encodes every series in the Prometheus text format.
func (m *Metrics) Write(w io.Writer) error {
	families, err := m.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the text exposition to path ("-" for stdout).
func (m *Metrics) WriteFile(path string) (err error) {
	if path == "-" {
		return m.Write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return m.Write(f)
}
