package buildpipeline

import "time"

// Stage is a coarse phase of Compile. Events with an empty Item describe
// a stage; the others describe one unit during StageRun.
type Stage string

const (
	StageLoad Stage = "load" // read the program
	StagePlan Stage = "plan" // resolve through the session cache
	StageRun  Stage = "run"  // replay the plan over the units
	StageEmit Stage = "emit" // flush the archive
)

// Status of a unit or a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped" // the run was aborted before the unit started
)

// Event reports progress for an item (or for the overall pipeline when
// Item is empty). Step is the step that just finished, if any; Index and
// Total locate it in the plan.
type Event struct {
	Item    string
	Stage   Stage
	Status  Status
	Step    string
	Index   int
	Total   int
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// StageTiming is how long one stage of a Compile took.
type StageTiming struct {
	Stage Stage
	Dur   time.Duration
}

// Timings lists stage durations in the order the stages ran. A stage
// that did not run is absent.
type Timings []StageTiming

func (t *Timings) add(stage Stage, d time.Duration) {
	*t = append(*t, StageTiming{Stage: stage, Dur: d})
}

// Total sums every recorded stage.
func (t Timings) Total() time.Duration {
	var total time.Duration
	for _, st := range t {
		total += st.Dur
	}
	return total
}
