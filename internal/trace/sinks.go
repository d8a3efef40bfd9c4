package trace

import (
	"io"
	"os"
	"sync"
)

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Level() Level { return LevelOff }
func (nopTracer) Close() error { return nil }

// Nop records nothing; FromContext returns it when no tracer is attached.
var Nop Tracer = nopTracer{}

// Writer formats each event onto w as soon as it is emitted.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	seq    uint64
}

func NewWriter(w io.Writer, level Level, format Format) *Writer {
	return &Writer{w: w, level: level, format: format}
}

func (t *Writer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.Records(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	ev.Seq = t.seq
	// write errors must not fail the build
	_, _ = t.w.Write(FormatEvent(ev, t.format))
}

func (t *Writer) Level() Level { return t.level }

// Close closes the underlying writer unless it is a standard stream.
func (t *Writer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return closeOutput(t.w)
}

// Ring keeps the most recent events and writes them to its output on
// Close.
type Ring struct {
	mu     sync.Mutex
	buf    []Event
	next   int
	full   bool
	seq    uint64
	level  Level
	out    io.Writer
	format Format
}

// NewRing returns a ring of the given capacity. out may be nil, in which
// case Close writes nothing and the tail is only available via Events.
func NewRing(capacity int, level Level, out io.Writer, format Format) *Ring {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &Ring{buf: make([]Event, capacity), level: level, out: out, format: format}
}

func (t *Ring) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.Records(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	stored := *ev
	stored.Seq = t.seq
	t.buf[t.next] = stored
	t.next++
	if t.next == len(t.buf) {
		t.next, t.full = 0, true
	}
}

// Events returns the kept events, oldest first.
func (t *Ring) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]Event(nil), t.buf[:t.next]...)
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

func (t *Ring) Level() Level { return t.level }

func (t *Ring) Close() error {
	if t.out == nil {
		return nil
	}
	for _, ev := range t.Events() {
		if _, err := t.out.Write(FormatEvent(&ev, t.format)); err != nil {
			return err
		}
	}
	return closeOutput(t.out)
}

func closeOutput(w io.Writer) error {
	if w == os.Stderr || w == os.Stdout {
		return nil
	}
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
