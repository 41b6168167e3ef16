package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		emit  bool
		keep  bool
	}{
		{LevelOff, ScopeDriver, false, false},
		{LevelError, ScopeStage, false, true},
		{LevelError, ScopeModule, false, false},
		{LevelPhase, ScopeStage, true, true},
		{LevelPhase, ScopeModule, false, false},
		{LevelDetail, ScopeModule, true, true},
		{LevelDetail, ScopeFunc, false, false},
		{LevelDebug, ScopeFunc, true, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.emit {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.emit)
		}
		if got := tc.level.Records(tc.scope); got != tc.keep {
			t.Errorf("%s.Records(%s) = %v, want %v", tc.level, tc.scope, got, tc.keep)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel(DETAIL) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode(both) = %v, %v", m, err)
	}
	if f, err := ParseFormat("chrome"); err != nil || f != FormatChrome {
		t.Fatalf("ParseFormat(chrome) = %v, %v", f, err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"":                FormatText,
		"-":               FormatText,
		"run.ndjson":      FormatNDJSON,
		"run.json":        FormatChrome,
		"run.chrome.json": FormatChrome,
		"run.log":         FormatText,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestStreamTextNestsSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	root := Begin(tr, ScopeDriver, "analyze", 0)
	stage := Begin(tr, ScopeStage, "cfg", root.ID())
	fn := Begin(tr, ScopeFunc, "f", stage.ID()) // below detail, inert
	fn.End("")
	stage.WithExtra("graphs", "3").End("")
	root.End("ok")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "→ analyze") {
		t.Errorf("first line %q", lines[0])
	}
	if !strings.Contains(lines[2], "  ← cfg {graphs=3}") {
		t.Errorf("stage end line %q", lines[2])
	}
	if !strings.Contains(lines[3], "analyze (ok)") {
		t.Errorf("last line %q", lines[3])
	}
}

func TestInertSpanKeepsParent(t *testing.T) {
	tr := NewRingTracer(8, LevelPhase)
	root := Begin(tr, ScopeDriver, "analyze", 0)
	mod := Begin(tr, ScopeModule, "module:m", root.ID())
	if mod.ID() != root.ID() {
		t.Fatalf("inert span ID = %d, want parent %d", mod.ID(), root.ID())
	}
	if d := mod.End(""); d != 0 {
		t.Fatalf("inert span duration = %v", d)
	}
	if n := len(tr.Snapshot()); n != 1 {
		t.Fatalf("ring holds %d events, want 1", n)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	Point(tr, ScopeStage, "cache", "hit", 0)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("bad ndjson %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["scope"] != "stage" || got["detail"] != "hit" {
		t.Fatalf("unexpected event %v", got)
	}
}

func TestStreamChromeIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	s := Begin(tr, ScopeStage, "parse", 0)
	s.End("")
	Point(tr, ScopeFunc, "f", "", s.ID())
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	var doc struct {
		TraceEvents []struct {
			Name string `json:"name"`
			Ph   string `json:"ph"`
		} `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome trace %q: %v", buf.String(), err)
	}
	var phases []string
	for _, ev := range doc.TraceEvents {
		phases = append(phases, ev.Ph)
	}
	if strings.Join(phases, "") != "BEi" {
		t.Fatalf("phases = %v", phases)
	}
}

func TestRingWrapsAndDumps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for i := range 5 {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopeStage, Seq: uint64(i + 1), Name: "e"})
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Seq != 3 || snap[2].Seq != 5 {
		t.Fatalf("snapshot = %+v", snap)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("dump has %d lines", n)
	}
}

func TestNewBothExposesRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelError, Mode: ModeBoth, Output: &buf, RingSize: 16})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeStage, "sema", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("error level streamed %q", buf.String())
	}
	ring := Ring(tr)
	if ring == nil || len(ring.Snapshot()) != 2 {
		t.Fatal("ring should keep stage events at error level")
	}

	off, err := New(Config{Level: LevelOff})
	if err != nil || off.Enabled() || Ring(off) != nil {
		t.Fatalf("off tracer = %v, %v", off, err)
	}
}

func TestContextPropagation(t *testing.T) {
	tr := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), tr)
	ctx, outer := Start(ctx, ScopeStage, "dataflow")
	_, inner := Start(ctx, ScopeFunc, "f")
	inner.End("")
	outer.End("")

	evs := tr.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("got %d events", len(evs))
	}
	if evs[1].ParentID != outer.ID() {
		t.Fatalf("inner parent = %d, want %d", evs[1].ParentID, outer.ID())
	}
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context should give Nop")
	}
}

func TestHeartbeat(t *testing.T) {
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	evs := r.Snapshot()
	if len(evs) == 0 || evs[0].Kind != KindHeartbeat {
		t.Fatalf("no heartbeat recorded: %+v", evs)
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("disabled tracer should not start a heartbeat")
	}
}
