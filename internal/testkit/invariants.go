// Package testkit holds invariant checkers shared by tests of different
// packages.
package testkit

import (
	"errors"
	"fmt"

	"kiln/internal/sched"
)

// CheckPlanInvariants replays plan symbolically, independently of
// Plan.Verify:
//  1. every step is eligible under the plan's features;
//  2. every need is present (initial or produced upstream) when the step runs;
//  3. no forbidden property is present when the step runs;
//  4. the final state covers every target and equals Plan.Final;
//  5. waves partition the steps and every ordering edge crosses waves
//     forward.
func CheckPlanInvariants(plan *sched.Plan) error {
	if plan == nil {
		return errors.New("nil plan")
	}
	var errs []error
	features := plan.Features()
	have := plan.Initial()
	producedAt := map[sched.Prop]int{}
	for _, p := range have.Slice() {
		producedAt[p] = -1
	}

	for i, s := range plan.Steps() {
		if !s.Eligible(features) {
			errs = append(errs, fmt.Errorf("step %d %q is not eligible under %s", i, s.Name(), features))
		}
		if missing := s.Needs().Minus(have); !missing.Empty() {
			errs = append(errs, fmt.Errorf("step %d %q runs without %s", i, s.Name(), missing))
		}
		if bad := s.No().Intersect(have); !bad.Empty() {
			errs = append(errs, fmt.Errorf("step %d %q runs after %s was produced", i, s.Name(), bad))
		}
		for _, p := range s.Produces().Slice() {
			if _, ok := producedAt[p]; !ok {
				producedAt[p] = i
			}
		}
		have.AddAll(s.Produces())
	}

	if missing := plan.Targets().Minus(have); !missing.Empty() {
		errs = append(errs, fmt.Errorf("targets %s never produced", missing))
	}
	if final := plan.Final(); !final.Equal(have) {
		errs = append(errs, fmt.Errorf("final state %s, replay gives %s", final, have))
	}

	errs = append(errs, checkWaves(plan, producedAt)...)
	return errors.Join(errs...)
}

func checkWaves(plan *sched.Plan, producedAt map[sched.Prop]int) []error {
	var errs []error
	seen := make([]bool, plan.Len())
	wave := make([]int, plan.Len())
	for w, batch := range plan.Batches() {
		for _, idx := range batch {
			if idx < 0 || idx >= plan.Len() {
				errs = append(errs, fmt.Errorf("wave %d: index %d out of range", w, idx))
				continue
			}
			if seen[idx] {
				errs = append(errs, fmt.Errorf("wave %d: step %d listed twice", w, idx))
			}
			seen[idx] = true
			wave[idx] = w
		}
	}
	for i, ok := range seen {
		if !ok {
			errs = append(errs, fmt.Errorf("step %d in no wave", i))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	producers := map[sched.Prop][]int{}
	for j, s := range plan.Steps() {
		for _, p := range s.Produces().Slice() {
			producers[p] = append(producers[p], j)
		}
	}
	for i, s := range plan.Steps() {
		for _, p := range s.Needs().Slice() {
			if j := producedAt[p]; j >= 0 && wave[j] >= wave[i] {
				errs = append(errs, fmt.Errorf("step %q needs %s from %q in the same or a later wave", s.Name(), p, plan.Step(j).Name()))
			}
		}
		for _, p := range s.No().Slice() {
			for _, j := range producers[p] {
				if wave[j] <= wave[i] {
					errs = append(errs, fmt.Errorf("step %q forbids %s but %q shares or precedes its wave", s.Name(), p, plan.Step(j).Name()))
				}
			}
		}
	}
	return errs
}

// CheckOutcomes verifies that a run result is consistent with its plan:
// done items hold every planned property, failed items stopped early and
// carry an *sched.ExecError, skipped items never ran.
func CheckOutcomes(plan *sched.Plan, res sched.Result) error {
	var errs []error
	final := plan.Final()
	for _, out := range res.Outcomes {
		switch out.Status {
		case sched.StatusDone:
			if out.Completed != plan.Len() {
				errs = append(errs, fmt.Errorf("%s: done after %d of %d steps", out.Key, out.Completed, plan.Len()))
			}
			if missing := final.Minus(out.Props); !missing.Empty() {
				errs = append(errs, fmt.Errorf("%s: done but lacks %s", out.Key, missing))
			}
		case sched.StatusFailed:
			var ee *sched.ExecError
			if !errors.As(out.Err, &ee) {
				errs = append(errs, fmt.Errorf("%s: failed without exec error: %v", out.Key, out.Err))
			} else if ee.Item != out.Key {
				errs = append(errs, fmt.Errorf("%s: exec error names item %q", out.Key, ee.Item))
			}
			if out.Completed >= plan.Len() {
				errs = append(errs, fmt.Errorf("%s: failed after completing every step", out.Key))
			}
		case sched.StatusSkipped:
			if out.Completed != 0 || out.Err != nil {
				errs = append(errs, fmt.Errorf("%s: skipped but ran %d step(s)", out.Key, out.Completed))
			}
		}
	}
	return errors.Join(errs...)
}
