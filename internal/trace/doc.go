// Package trace records what the analysis driver is doing while it runs.
//
// Spans mark the boundaries of the run, of each pipeline stage, of each
// module and, at debug level, of each function body. A stuck run keeps
// emitting heartbeats without closing spans, which is usually enough to see
// where it hangs.
//
// # Usage
//
//	codescope analyze ./src --trace=run.chrome.json --trace-level=detail
//
// Tracers travel through the pipeline in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "dataflow", parent)
//	defer span.End("")
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: nothing is streamed; the ring is kept for failure dumps
//   - LevelPhase: driver and stage boundaries
//   - LevelDetail: per-module events
//   - LevelDebug: everything including per-function events
//
// # Formats
//
// Text is meant for a terminal, NDJSON for scripts, and the Chrome format
// loads into chrome://tracing or Perfetto.
package trace
