package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kiln/internal/diag"
	"kiln/internal/trace"
)

// Status is the final state of one item.
type Status uint8

const (
	// StatusSkipped: the item never started because the run was aborted.
	StatusSkipped Status = iota
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Outcome is what happened to one item.
type Outcome struct {
	Key    string
	Status Status
	// Err is an *ExecError when Status is StatusFailed.
	Err error
	// Completed counts the plan steps that succeeded.
	Completed int
	// Props is the item's property set when it stopped.
	Props   PropSet
	Elapsed time.Duration
}

// Result collects outcomes in input order.
type Result struct {
	RunID    string
	Outcomes []Outcome
	// Aborted is set when a fatal error or cancellation stopped the run
	// from starting further items.
	Aborted  bool
	AbortErr error
	Elapsed  time.Duration
}

// Failed returns the outcomes with StatusFailed.
func (r Result) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Counts returns the number of done, failed and skipped items.
func (r Result) Counts() (done, failed, skipped int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusDone:
			done++
		case StatusFailed:
			failed++
		default:
			skipped++
		}
	}
	return done, failed, skipped
}

// Err joins every item failure plus a cancellation cause, if any.
func (r Result) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	var ee *ExecError
	if r.AbortErr != nil && !errors.As(r.AbortErr, &ee) {
		errs = append(errs, r.AbortErr)
	}
	return errors.Join(errs...)
}

// Observer receives progress callbacks from worker goroutines; it must
// be safe for concurrent use.
type Observer interface {
	ItemStarted(key string)
	StepStarted(key string, step *Step, index int)
	StepFinished(key string, step *Step, index int, elapsed time.Duration, err error)
	ItemFinished(out Outcome)
}

// Runner replays a plan over many items.
type Runner struct {
	// Jobs is the worker count; <= 0 means GOMAXPROCS.
	Jobs int
	// FailFast treats every item failure as fatal to the run.
	FailFast bool
	Config   Lookup
	Reporter diag.Reporter
	Observer Observer
	RunID    string
}

// Run drives every item through plan. Each worker takes one item and
// runs the whole plan on it before taking the next; items are isolated
// from each other's failures. Run never returns before every started
// item has finished.
func (r *Runner) Run(ctx context.Context, plan *Plan, items []Item) Result {
	started := time.Now()
	res := Result{
		RunID:    r.RunID,
		Outcomes: make([]Outcome, len(items)),
	}
	for i, it := range items {
		res.Outcomes[i] = Outcome{Key: it.Key(), Status: StatusSkipped}
	}
	if plan == nil || len(items) == 0 {
		res.Elapsed = time.Since(started)
		return res
	}

	var rep diag.Reporter
	if r.Reporter != nil {
		rep = diag.NewSyncReporter(r.Reporter)
	}

	jobs := r.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		abortOnce sync.Once
		abortErr  error
	)
	abort := func(cause error, out *Outcome) {
		abortOnce.Do(func() {
			abortErr = cause
			cancel()
			if rep != nil && out != nil {
				diag.ReportError(rep, diag.ExecAborted, diag.Subject{Item: out.Key, Step: stepOf(out.Err)},
					"run aborted: no further items will be started").Emit()
			}
		})
	}

	// Результаты пишутся по уникальному индексу, мьютекс не нужен.
	g := new(errgroup.Group)
	g.SetLimit(min(jobs, len(items)))
	for i, it := range items {
		if runCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			out := r.runItem(ctx, rep, plan, it)
			res.Outcomes[i] = out
			if out.Status == StatusFailed && (r.FailFast || IsFatal(out.Err)) {
				abort(out.Err, &out)
			}
			return nil
		})
	}
	_ = g.Wait()

	if abortErr == nil && ctx.Err() != nil {
		abortErr = ctx.Err()
	}
	if abortErr != nil {
		res.Aborted = true
		res.AbortErr = abortErr
		_, _, skipped := res.Counts()
		if rep != nil && skipped > 0 {
			diag.ReportWarning(rep, diag.ExecSkipped, diag.Subject{},
				fmt.Sprintf("%d item(s) were not started", skipped)).Emit()
		}
	}
	res.Elapsed = time.Since(started)
	return res
}

func (r *Runner) runItem(ctx context.Context, rep diag.Reporter, plan *Plan, item Item) Outcome {
	key := item.Key()
	started := time.Now()
	out := Outcome{Key: key}

	itemCtx, span := trace.Start(ctx, trace.ScopeItem, "item:"+key)
	if r.Observer != nil {
		r.Observer.ItemStarted(key)
	}

	props := item.Props()
	if props == nil {
		out.Status = StatusFailed
		out.Err = &ExecError{Item: key, Index: -1, Err: errNilProps}
		reportExecError(rep, out.Err.(*ExecError))
		out.Elapsed = time.Since(started)
		span.Set("error", "nil props").End(out.Status.String())
		if r.Observer != nil {
			r.Observer.ItemFinished(out)
		}
		return out
	}
	props.AddAll(plan.initial)

	for i, step := range plan.steps {
		sc := &StepContext{
			Step:     step,
			Index:    i,
			RunID:    r.RunID,
			Config:   r.Config,
			Reporter: rep,
		}
		before := props.Clone()
		stepCtx, stepSpan := trace.Start(itemCtx, trace.ScopeStep, "step:"+step.name)
		if r.Observer != nil {
			r.Observer.StepStarted(key, step, i)
		}
		stepStart := time.Now()
		err, panicked, stack := invoke(stepCtx, step, sc, item)
		elapsed := time.Since(stepStart)

		if err != nil {
			// nothing from the failing step is kept
			*props = before
			stepSpan.Set("error", err.Error()).End("failed")
			if r.Observer != nil {
				r.Observer.StepFinished(key, step, i, elapsed, err)
			}
			out.Status = StatusFailed
			out.Err = &ExecError{
				Item:     key,
				Step:     step.name,
				Index:    i,
				Err:      err,
				Panicked: panicked,
				Stack:    stack,
			}
			reportExecError(rep, out.Err.(*ExecError))
			break
		}

		props.AddAll(step.produces)
		stepSpan.End("")
		if r.Observer != nil {
			r.Observer.StepFinished(key, step, i, elapsed, nil)
		}
		out.Completed++
	}

	if out.Status != StatusFailed {
		out.Status = StatusDone
	}
	out.Props = props.Clone()
	out.Elapsed = time.Since(started)
	span.Set("completed", fmt.Sprint(out.Completed)).End(out.Status.String())
	if r.Observer != nil {
		r.Observer.ItemFinished(out)
	}
	return out
}

func invoke(ctx context.Context, step *Step, sc *StepContext, item Item) (err error, panicked bool, stack string) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			stack = string(debug.Stack())
			if e, ok := rec.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", rec)
			}
		}
	}()
	return step.run(ctx, sc, item), false, ""
}

func reportExecError(rep diag.Reporter, e *ExecError) {
	if rep == nil {
		return
	}
	subject := diag.Subject{Item: e.Item, Step: e.Step}
	if e.Panicked {
		b := diag.ReportError(rep, diag.ExecPanic, subject, fmt.Sprintf("panic: %v", e.Err))
		if line := firstFrame(e.Stack); line != "" {
			b.WithNote(subject, line)
		}
		b.Emit()
		return
	}
	diag.ReportError(rep, diag.ExecFailed, subject, e.Err.Error()).Emit()
}

// firstFrame picks the panicking function out of a debug.Stack dump.
func firstFrame(stack string) string {
	lines := strings.Split(stack, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "panic(") && i+2 < len(lines) {
			return strings.TrimSpace(lines[i+2])
		}
	}
	return ""
}

func stepOf(err error) string {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Step
	}
	return ""
}
