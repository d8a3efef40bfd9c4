package sched

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kiln/internal/diag"
)

func items(keys ...string) ([]Item, []*testItem) {
	list := make([]Item, len(keys))
	raw := make([]*testItem, len(keys))
	for i, k := range keys {
		raw[i] = &testItem{key: k}
		list[i] = raw[i]
	}
	return list, raw
}

func TestRunIsolatesItemFailures(t *testing.T) {
	p := tags("t.run.iso", "a", "b", "c")
	reg := NewRegistry()
	reg.MustRegister(
		step("one", nil, p[0:1]),
		Schedulable{Name: "two", Needs: p[0:1], Produces: p[1:2], Run: func(_ context.Context, _ *StepContext, it Item) error {
			// a partially applied production must not stick
			it.Props().Add(p[1])
			if it.Key() == "Y" {
				return errors.New("boom")
			}
			return nil
		}},
		step("three", p[1:2], p[2:3]),
	)
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[2])})

	bag := diag.NewBag(10)
	obs := newRecordingObserver()
	r := Runner{Jobs: 2, Reporter: diag.BagReporter{Bag: bag}, Observer: obs}
	list, raw := items("X", "Y", "Z")
	res := r.Run(t.Context(), plan, list)

	statuses := []Status{res.Outcomes[0].Status, res.Outcomes[1].Status, res.Outcomes[2].Status}
	if !slices.Equal(statuses, []Status{StatusDone, StatusFailed, StatusDone}) {
		t.Fatalf("statuses = %v", statuses)
	}
	for _, i := range []int{0, 2} {
		if !raw[i].props.Contains(NewPropSet(p...)) {
			t.Fatalf("%s props = %v", raw[i].key, raw[i].props)
		}
	}
	if !raw[1].props.Equal(NewPropSet(p[0])) {
		t.Fatalf("failed item kept partial production: %v", raw[1].props)
	}

	failed := res.Outcomes[1]
	var ee *ExecError
	if !errors.As(failed.Err, &ee) || ee.Item != "Y" || ee.Step != "two" || ee.Index != 1 {
		t.Fatalf("err = %#v", failed.Err)
	}
	if failed.Completed != 1 {
		t.Fatalf("completed = %d, want 1", failed.Completed)
	}
	if res.Aborted {
		t.Fatalf("run must not abort on a plain failure")
	}
	if done, nfail, skipped := res.Counts(); done != 2 || nfail != 1 || skipped != 0 {
		t.Fatalf("counts = %d/%d/%d", done, nfail, skipped)
	}

	if bag.Len() != 1 {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
	d := bag.Items()[0]
	if d.Code != diag.ExecFailed || d.Subject != (diag.Subject{Item: "Y", Step: "two"}) {
		t.Fatalf("diagnostic = %+v", d)
	}
	if got := obs.steps["Y"]; !slices.Equal(got, []string{"one", "two!"}) {
		t.Fatalf("observer steps for Y = %v", got)
	}
	if got := obs.begun["Y"]; !slices.Equal(got, []string{"one", "two"}) {
		t.Fatalf("observer starts for Y = %v", got)
	}
	if got := obs.begun["Z"]; !slices.Equal(got, []string{"one", "two", "three"}) {
		t.Fatalf("observer starts for Z = %v", got)
	}
	if obs.finished["Z"] != StatusDone {
		t.Fatalf("observer missed Z")
	}
}

func TestRunRecoversPanics(t *testing.T) {
	p := tags("t.run.panic", "a")
	reg := NewRegistry()
	reg.MustRegister(Schedulable{Name: "explode", Produces: p, Run: func(context.Context, *StepContext, Item) error {
		panic("kaboom")
	}})
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p...)})
	bag := diag.NewBag(10)
	r := Runner{Jobs: 1, Reporter: diag.BagReporter{Bag: bag}}
	list, _ := items("only")
	res := r.Run(t.Context(), plan, list)

	var ee *ExecError
	if !errors.As(res.Outcomes[0].Err, &ee) || !ee.Panicked || ee.Stack == "" {
		t.Fatalf("err = %#v", res.Outcomes[0].Err)
	}
	if bag.Items()[0].Code != diag.ExecPanic {
		t.Fatalf("code = %v", bag.Items()[0].Code)
	}
}

func TestRunFailFastSkipsRemainingItems(t *testing.T) {
	p := tags("t.run.ff", "a")
	reg := NewRegistry()
	reg.MustRegister(Schedulable{Name: "work", Produces: p, Run: func(_ context.Context, _ *StepContext, it Item) error {
		if it.Key() == "1" {
			return errors.New("bad item")
		}
		return nil
	}})
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p...)})
	bag := diag.NewBag(10)
	r := Runner{Jobs: 1, FailFast: true, Reporter: diag.BagReporter{Bag: bag}}
	list, _ := items("0", "1", "2", "3")
	res := r.Run(t.Context(), plan, list)

	want := []Status{StatusDone, StatusFailed, StatusSkipped, StatusSkipped}
	for i, w := range want {
		if res.Outcomes[i].Status != w {
			t.Fatalf("outcome[%d] = %v, want %v", i, res.Outcomes[i].Status, w)
		}
	}
	if !res.Aborted {
		t.Fatalf("expected aborted run")
	}
	if err := res.Err(); err == nil || len(res.Failed()) != 1 {
		t.Fatalf("Err = %v, failed = %v", err, res.Failed())
	}
	codes := make([]diag.Code, 0, bag.Len())
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	if !slices.Equal(codes, []diag.Code{diag.ExecFailed, diag.ExecAborted, diag.ExecSkipped}) {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRunFatalAbortsWithoutFailFast(t *testing.T) {
	p := tags("t.run.fatal", "a")
	reg := NewRegistry()
	reg.MustRegister(Schedulable{Name: "work", Produces: p, Run: func(_ context.Context, _ *StepContext, it Item) error {
		if it.Key() == "0" {
			return Fatal(errors.New("disk full"))
		}
		return nil
	}})
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p...)})
	r := Runner{Jobs: 1}
	list, _ := items("0", "1")
	res := r.Run(t.Context(), plan, list)
	if !res.Aborted || !IsFatal(res.AbortErr) {
		t.Fatalf("expected fatal abort, got %v", res.AbortErr)
	}
	if res.Outcomes[1].Status != StatusSkipped {
		t.Fatalf("second item = %v", res.Outcomes[1].Status)
	}
}

func TestRunUsesBoundedParallelism(t *testing.T) {
	p := tags("t.run.par", "a", "b")
	var (
		cur, peak atomic.Int32
		mu        sync.Mutex
		order     = make(map[string][]string)
	)
	record := func(name string) RunFunc {
		return func(_ context.Context, _ *StepContext, it Item) error {
			n := cur.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			cur.Add(-1)
			mu.Lock()
			order[it.Key()] = append(order[it.Key()], name)
			mu.Unlock()
			return nil
		}
	}
	reg := NewRegistry()
	reg.MustRegister(
		Schedulable{Name: "first", Produces: p[:1], Run: record("first")},
		Schedulable{Name: "second", Needs: p[:1], Produces: p[1:], Run: record("second")},
	)
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[1])})

	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	list, _ := items(keys...)
	r := Runner{Jobs: 3}
	res := r.Run(t.Context(), plan, list)
	if err := res.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak.Load())
	}
	for i, k := range keys {
		if res.Outcomes[i].Key != k {
			t.Fatalf("outcomes not in input order: %v", res.Outcomes[i].Key)
		}
		if !slices.Equal(order[k], []string{"first", "second"}) {
			t.Fatalf("%s ran %v", k, order[k])
		}
	}
}

func TestRunPassesConfigToSteps(t *testing.T) {
	p := tags("t.run.cfg", "a")
	var got atomic.Int32
	reg := NewRegistry()
	reg.MustRegister(Schedulable{Name: "tuned", Produces: p, Run: func(_ context.Context, sc *StepContext, _ Item) error {
		got.Store(int32(sc.Int("tuned.depth", 1)))
		if sc.RunID != "run-1" || sc.Step.Name() != "tuned" {
			return errors.New("bad step context")
		}
		return nil
	}})
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p...)})
	r := Runner{Config: MapLookup{"tuned.depth": "7"}, RunID: "run-1"}
	list, _ := items("x")
	if err := r.Run(t.Context(), plan, list).Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if got.Load() != 7 {
		t.Fatalf("depth = %d, want 7", got.Load())
	}
}

func TestRunCancelledContextSkipsEverything(t *testing.T) {
	p := tags("t.run.cancel", "a")
	reg := NewRegistry()
	reg.MustRegister(step("work", nil, p))
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p...)})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	list, _ := items("a", "b")
	res := (&Runner{}).Run(ctx, plan, list)
	if !res.Aborted || !errors.Is(res.Err(), context.Canceled) {
		t.Fatalf("aborted = %v err = %v", res.Aborted, res.Err())
	}
	if _, _, skipped := res.Counts(); skipped != 2 {
		t.Fatalf("skipped = %d", skipped)
	}
}

type propless struct{ key string }

func (p propless) Key() string   { return p.key }
func (propless) Props() *PropSet { return nil }

func TestRunFailsItemWithoutProps(t *testing.T) {
	p := tags("t.run.noprops", "a")
	var ran atomic.Int32
	reg := NewRegistry()
	reg.MustRegister(Schedulable{Name: "touch", Produces: p, Run: func(context.Context, *StepContext, Item) error {
		ran.Add(1)
		return nil
	}})
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p...)})

	bag := diag.NewBag(10)
	obs := newRecordingObserver()
	r := Runner{Jobs: 1, Reporter: diag.BagReporter{Bag: bag}, Observer: obs}
	list, _ := items("ok")
	list = append(list, propless{key: "bare"})
	res := r.Run(t.Context(), plan, list)

	if res.Outcomes[0].Status != StatusDone || res.Outcomes[1].Status != StatusFailed {
		t.Fatalf("statuses = %v, %v", res.Outcomes[0].Status, res.Outcomes[1].Status)
	}
	var ee *ExecError
	if !errors.As(res.Outcomes[1].Err, &ee) || ee.Item != "bare" || ee.Step != "" || ee.Index != -1 {
		t.Fatalf("err = %#v", res.Outcomes[1].Err)
	}
	if ran.Load() != 1 {
		t.Fatalf("step ran %d times, want 1", ran.Load())
	}
	if obs.finished["bare"] != StatusFailed {
		t.Fatalf("observer did not see bare finish")
	}
	if !bag.HasErrors() || bag.Items()[0].Code != diag.ExecFailed {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
}

func TestResultMethodsOnValue(t *testing.T) {
	boom := errors.New("boom")
	if err := (Result{Outcomes: []Outcome{{Key: "a", Status: StatusDone}}}).Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	res := Result{Outcomes: []Outcome{
		{Key: "a", Status: StatusDone},
		{Key: "b", Status: StatusFailed, Err: &ExecError{Item: "b", Step: "s", Err: boom}},
		{Key: "c", Status: StatusSkipped},
	}}
	if done, failed, skipped := res.Counts(); done != 1 || failed != 1 || skipped != 1 {
		t.Fatalf("counts = %d/%d/%d", done, failed, skipped)
	}
	if got := Result.Failed(res); len(got) != 1 || got[0].Key != "b" {
		t.Fatalf("failed = %v", got)
	}
	if !errors.Is(res.Err(), boom) {
		t.Fatalf("Err does not wrap the failure: %v", res.Err())
	}
}
