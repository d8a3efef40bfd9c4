package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLevelRecords(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePlan, true},
		{LevelPhase, ScopeItem, false},
		{LevelItem, ScopeItem, true},
		{LevelItem, ScopeStep, false},
		{LevelStep, ScopeStep, true},
	}
	for _, tc := range cases {
		if got := tc.level.Records(tc.scope); got != tc.want {
			t.Fatalf("%s.Records(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
	if _, err := ParseLevel("detail"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if l, err := ParseLevel("STEP"); err != nil || l != LevelStep {
		t.Fatalf("ParseLevel(STEP) = %v, %v", l, err)
	}
}

func TestSpansNestThroughContext(t *testing.T) {
	var buf bytes.Buffer
	tr := NewWriter(&buf, LevelItem, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, run := Start(ctx, ScopeDriver, "compile")
	itemCtx, item := Start(ctx, ScopeItem, "item:Counter")
	_, step := Start(itemCtx, ScopeStep, "step:hidden")
	if step != nil {
		t.Fatalf("step span must not be recorded at item level")
	}
	step.Set("ignored", "x").End("")
	item.Set("completed", "3").End("done")
	run.End("")

	out := buf.String()
	for _, want := range []string{"> compile", "  > item:Counter", "< item:Counter (done)", "{completed=3}"} {
		if !strings.Contains(out, want) {
			t.Fatalf("trace lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("step leaked:\n%s", out)
	}
}

func TestSpanParentIsEnclosingSpan(t *testing.T) {
	ring := NewRing(8, LevelStep, nil, FormatText)
	ctx := WithTracer(context.Background(), ring)
	ctx, outer := Start(ctx, ScopePlan, "build-plan")
	_, inner := Start(ctx, ScopeStep, "step:x")
	inner.End("")
	outer.End("")

	evs := ring.Events()
	if len(evs) != 4 {
		t.Fatalf("events = %d, want 4", len(evs))
	}
	if evs[1].Parent != evs[0].Span || evs[0].Parent != 0 {
		t.Fatalf("bad parent chain: %+v", evs)
	}
}

func TestRingKeepsTailAndWritesOnClose(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRing(2, LevelStep, &buf, FormatText)
	ctx := WithTracer(context.Background(), ring)
	for _, name := range []string{"a", "b", "c"} {
		Point(ctx, ScopeStep, name, "")
	}
	evs := ring.Events()
	if len(evs) != 2 || evs[0].Name != "b" || evs[1].Name != "c" {
		t.Fatalf("events = %+v", evs)
	}
	if buf.Len() != 0 {
		t.Fatalf("ring wrote before Close")
	}
	if err := ring.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if out := buf.String(); strings.Contains(out, ". a") || !strings.Contains(out, ". c") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
}

func TestFromContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop tracer")
	}
	ctx, span := Start(context.Background(), ScopeDriver, "x")
	if span != nil || ctx == nil {
		t.Fatalf("nop tracer must not open spans")
	}
	if span.End("") != 0 {
		t.Fatalf("nil span must report zero duration")
	}
}

func TestNDJSONFormat(t *testing.T) {
	ev := &Event{Kind: KindEnd, Scope: ScopePlan, Name: "build-plan", Seq: 3, Elapsed: 1500 * time.Microsecond}
	out := string(FormatEvent(ev, FormatNDJSON))
	for _, want := range []string{`"name":"build-plan"`, `"scope":"plan"`, `"kind":"end"`, `"elapsed_us":1500`} {
		if !strings.Contains(out, want) {
			t.Fatalf("ndjson lacks %s: %s", want, out)
		}
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := NewRing(64, LevelPhase, nil, FormatText)
	stop := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Events()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stop()
	stop()
	n := len(ring.Events())
	if n == 0 {
		t.Fatalf("no heartbeat recorded")
	}
	if ev := ring.Events()[0]; ev.Kind != KindHeartbeat || !strings.Contains(ev.Detail, "open=") {
		t.Fatalf("unexpected heartbeat %+v", ev)
	}
	time.Sleep(5 * time.Millisecond)
	if len(ring.Events()) != n {
		t.Fatalf("heartbeat kept running after stop")
	}
}
