package buildpipeline

import (
	"errors"
	"time"

	"kiln/internal/observ"
	"kiln/internal/sched"
)

// runObserver turns runner callbacks into progress events and step
// statistics. The runner calls it from many workers at once; both sinks
// must be safe for that.
type runObserver struct {
	sink  ProgressSink
	stats *observ.StepStats
	total int
}

func newRunObserver(sink ProgressSink, stats *observ.StepStats, plan *sched.Plan) *runObserver {
	return &runObserver{sink: sink, stats: stats, total: plan.Len()}
}

func (o *runObserver) ItemStarted(key string) {
	emit(o.sink, Event{Item: key, Stage: StageRun, Status: StatusWorking, Total: o.total})
}

func (o *runObserver) StepStarted(key string, step *sched.Step, index int) {
	emit(o.sink, Event{Item: key, Stage: StageRun, Status: StatusWorking, Step: step.Name(), Index: index, Total: o.total})
}

func (o *runObserver) StepFinished(key string, step *sched.Step, index int, elapsed time.Duration, err error) {
	if o.stats != nil {
		o.stats.Record(step.Name(), index, elapsed, err != nil)
	}
	st := StatusWorking
	if err != nil {
		st = StatusError
	}
	emit(o.sink, Event{
		Item:    key,
		Stage:   StageRun,
		Status:  st,
		Step:    step.Name(),
		Index:   index + 1,
		Total:   o.total,
		Err:     err,
		Elapsed: elapsed,
	})
}

func (o *runObserver) ItemFinished(out sched.Outcome) {
	if out.Status != sched.StatusSkipped && o.stats != nil {
		o.stats.RecordItem(out.Status == sched.StatusFailed)
	}
	evt := Event{Item: out.Key, Stage: StageRun, Index: out.Completed, Total: o.total, Err: out.Err, Elapsed: out.Elapsed}
	switch out.Status {
	case sched.StatusDone:
		evt.Status = StatusDone
	case sched.StatusFailed:
		evt.Status = StatusError
		var ee *sched.ExecError
		if errors.As(out.Err, &ee) {
			evt.Step = ee.Step
		}
	default:
		evt.Status = StatusSkipped
	}
	emit(o.sink, evt)
}
