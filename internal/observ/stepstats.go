package observ

import (
	"sync"
	"time"
)

// StepStat aggregates every invocation of one schedulable across items.
type StepStat struct {
	Name     string
	Order    int
	Count    int
	Failures int
	Total    time.Duration
	Max      time.Duration
}

// Mean returns the average invocation time.
func (s StepStat) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// StepStats collects per-step timings from concurrent workers.
type StepStats struct {
	mu    sync.Mutex
	steps map[string]*StepStat
	items int
	fails int
}

// NewStepStats returns an empty collector.
func NewStepStats() *StepStats {
	return &StepStats{steps: make(map[string]*StepStat)}
}

// Record adds one invocation of step. order is the step's position in
// the plan and fixes its row in reports.
func (s *StepStats) Record(step string, order int, d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.steps[step]
	if !ok {
		st = &StepStat{Name: step, Order: order}
		s.steps[step] = st
	}
	st.Count++
	st.Total += d
	st.Max = max(st.Max, d)
	if failed {
		st.Failures++
	}
}

// RecordItem counts one finished item.
func (s *StepStats) RecordItem(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items++
	if failed {
		s.fails++
	}
}

// Snapshot returns the collected rows ordered by plan position.
func (s *StepStats) Snapshot() StatsReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := StatsReport{Items: s.items, FailedItems: s.fails}
	rows := make([]StepStat, 0, len(s.steps))
	for _, st := range s.steps {
		rows = append(rows, *st)
	}
	sortRows(rows)
	out.Steps = make([]StepRow, len(rows))
	for i, r := range rows {
		out.Steps[i] = StepRow{
			Name:     r.Name,
			Count:    r.Count,
			Failures: r.Failures,
			TotalMS:  millis(r.Total),
			MeanMS:   millis(r.Mean()),
			MaxMS:    millis(r.Max),
		}
		out.TotalMS += out.Steps[i].TotalMS
	}
	return out
}
