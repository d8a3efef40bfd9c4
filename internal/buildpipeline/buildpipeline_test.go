package buildpipeline

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"kiln/internal/bytecode"
	"kiln/internal/config"
	"kiln/internal/diag"
	"kiln/internal/ir"
	"kiln/internal/observ"
	"kiln/internal/passes"
	"kiln/internal/sched"
)

const program = `
[[type]]
name = "Good"
  [[type.field]]
  name = "n"
  init = "(add 1 2)"
  [[type.method]]
  name = "get"
  body = "(return (field n))"

[[type]]
name = "Bad"
  [[type.method]]
  name = "get"
  body = "(return (add x 1))"
`

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) last(item string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Item == item {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// sawStart reports a working event naming step before it completed.
func (r *recordingSink) sawStart(item, step string, index int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Item == item && e.Step == step && e.Index == index && e.Status == StatusWorking && e.Err == nil {
			return true
		}
	}
	return false
}

func testConfig(t *testing.T, features ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(passes.DefaultTargets(), features)
	cfg.Build.Output = filepath.Join(dir, "out")
	cfg.Build.Archive = filepath.Join(dir, "app.kar")
	cfg.Build.Jobs = 2
	return cfg
}

func units(t *testing.T) []*ir.Unit {
	t.Helper()
	us, err := ir.DecodeProgram([]byte(program), ".toml")
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	return us
}

func TestCompileIsolatesFailingUnit(t *testing.T) {
	cfg := testConfig(t, "verify", "emit-type-files", "emit-archive")
	bag := diag.NewBag(20)
	sink := &recordingSink{}
	stats := observ.NewStepStats()

	res, err := Compile(t.Context(), cfg, &CompileRequest{
		Units:    units(t),
		Reporter: diag.BagReporter{Bag: bag},
		Progress: sink,
		Stats:    stats,
		RunID:    "run-1",
	})
	var ee *sched.ExecError
	if !errors.As(err, &ee) || ee.Item != "Bad" || ee.Step != "check-structure" {
		t.Fatalf("expected exec error on Bad@check-structure, got %v", err)
	}
	if res.RunID != "run-1" {
		t.Fatalf("run id = %q", res.RunID)
	}
	done, failed, skipped := res.Run.Counts()
	if done != 1 || failed != 1 || skipped != 0 {
		t.Fatalf("counts = %d/%d/%d", done, failed, skipped)
	}

	if len(res.Written) != 2 {
		t.Fatalf("written = %v", res.Written)
	}
	img, err := bytecode.ReadFile(cfg.Build.Archive)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(img.Types) != 1 || img.Types[0].Name != "Good" {
		t.Fatalf("archive types = %+v", img.Types)
	}

	if ev, ok := sink.last("Good"); !ok || ev.Status != StatusDone || ev.Index != res.Plan.Len() {
		t.Fatalf("last Good event = %+v", ev)
	}
	if ev, ok := sink.last("Bad"); !ok || ev.Status != StatusError || ev.Step != "check-structure" {
		t.Fatalf("last Bad event = %+v", ev)
	}

	if !sink.sawStart("Bad", "check-structure", 0) {
		t.Fatalf("no step-start event for Bad@check-structure")
	}
	if !sink.sawStart("Good", "lower-to-bytecode", 3) {
		t.Fatalf("no step-start event for Good@lower-to-bytecode")
	}

	rep := stats.Snapshot()
	if rep.Items != 2 || rep.FailedItems != 1 {
		t.Fatalf("stats items = %d failed = %d", rep.Items, rep.FailedItems)
	}
	if rep.Steps[0].Name != "check-structure" || rep.Steps[0].Count != 2 || rep.Steps[0].Failures != 1 {
		t.Fatalf("first row = %+v", rep.Steps[0])
	}
	if !bag.HasErrors() {
		t.Fatalf("expected failure diagnostics")
	}
}

func TestSessionReusesPlan(t *testing.T) {
	cfg := testConfig(t, passes.DefaultFeatures()...)
	s, err := NewSession(cfg, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	good := units(t)[:1]
	for i := range 3 {
		res, err := s.Compile(t.Context(), &CompileRequest{Units: []*ir.Unit{good[0].Clone()}})
		if i == 0 && err != nil {
			t.Fatalf("compile: %v", err)
		}
		if res.Plan == nil {
			t.Fatalf("missing plan")
		}
	}
	if n := s.PlanBuilds(); n != 1 {
		t.Fatalf("plan built %d times", n)
	}
	written, err := s.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(written) != 1 || !strings.HasSuffix(written[0], bytecode.TypeFileExt) {
		t.Fatalf("written = %v", written)
	}
}

func TestSessionRejectsUnknownFeature(t *testing.T) {
	cfg := testConfig(t, "optimize", "turbo")
	bag := diag.NewBag(4)
	_, err := NewSession(cfg, diag.BagReporter{Bag: bag})
	if !sched.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SchedUnknownFeature {
		t.Fatalf("diagnostics = %+v", bag.Items())
	}
}

func TestCompileUnreachableTarget(t *testing.T) {
	cfg := testConfig(t, "optimize")
	_, err := Compile(t.Context(), cfg, &CompileRequest{Units: units(t)})
	ces := sched.ConfigErrors(err)
	if len(ces) != 1 || ces[0].Kind != sched.ErrUnreachableTarget {
		t.Fatalf("expected unreachable target, got %v", err)
	}
}
