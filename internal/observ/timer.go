package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed section of a command: config, load, compile, write.
type Phase struct {
	Name string        `json:"name"`
	Dur  time.Duration `json:"-"`
	MS   float64       `json:"duration_ms"`
	Note string        `json:"note,omitempty"`
}

// Timer collects phases in the order they started. Phases may overlap
// and may be tracked from several goroutines.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
	open   []time.Time
}

func NewTimer() *Timer { return &Timer{} }

// Track starts a phase and returns the function that ends it with a
// note. Calling the returned function again updates the phase.
//
//	done := timer.Track("load " + path)
//	...
//	done(fmt.Sprintf("%d type(s)", n))
func (t *Timer) Track(name string) func(note string) {
	t.mu.Lock()
	idx := len(t.phases)
	t.phases = append(t.phases, Phase{Name: name})
	t.open = append(t.open, time.Now())
	t.mu.Unlock()
	return func(note string) {
		t.mu.Lock()
		defer t.mu.Unlock()
		p := &t.phases[idx]
		p.Dur = time.Since(t.open[idx])
		p.MS = millis(p.Dur)
		p.Note = note
	}
}

// Report is the JSON form of a Timer.
type Report struct {
	TotalMS float64 `json:"total_ms"`
	Phases  []Phase `json:"phases"`
}

func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := Report{Phases: append([]Phase(nil), t.phases...)}
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
	}
	r.TotalMS = millis(total)
	return r
}

// Summary renders the phases one per line, notes as trailing comments.
func (t *Timer) Summary() string {
	r := t.Report()
	width := len("total")
	for _, p := range r.Phases {
		width = max(width, len(p.Name))
	}
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&sb, "  %-*s %8.2f ms", width, p.Name, p.MS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-*s %8.2f ms\n", width, "total", r.TotalMS)
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
