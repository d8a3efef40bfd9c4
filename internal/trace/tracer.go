package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives events. Implementations must be safe for concurrent
// use: the runner emits from every worker.
type Tracer interface {
	Emit(ev *Event)
	Level() Level
	Close() error
}

// Enabled reports whether t records anything at all.
func Enabled(t Tracer) bool {
	return t != nil && t.Level() > LevelOff
}

// Level selects the deepest scope that is recorded.
type Level uint8

const (
	LevelOff   Level = iota
	LevelPhase       // driver and plan construction
	LevelItem        // + one span per item
	LevelStep        // + one span per step per item
)

var levelNames = [...]string{"off", "phase", "item", "step"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts the names printed by String, case-insensitively.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected off|phase|item|step)", s)
}

// Records reports whether events of scope are kept at this level.
// Heartbeats are recorded at every level except off.
func (l Level) Records(scope Scope) bool {
	switch {
	case l == LevelOff:
		return false
	case scope == ScopeDriver || scope == ScopePlan:
		return true
	case scope == ScopeItem:
		return l >= LevelItem
	case scope == ScopeStep:
		return l >= LevelStep
	}
	return false
}

// Scope is how coarse an event is; smaller is coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1
	ScopePlan
	ScopeItem
	ScopeStep
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePlan:
		return "plan"
	case ScopeItem:
		return "item"
	case ScopeStep:
		return "step"
	}
	return "unknown"
}

// Kind distinguishes span boundaries from instant events.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	}
	return "unknown"
}

// Event is one trace record. Seq is assigned by the tracer that keeps it.
type Event struct {
	Time    time.Time
	Seq     uint64
	Kind    Kind
	Scope   Scope
	Span    uint64
	Parent  uint64
	Name    string // "build-plan", "item:Counter", "step:fold-constants"
	Detail  string
	Elapsed time.Duration // set on KindEnd
	Attrs   map[string]string
}

// Mode selects where events go.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // write each event immediately
	ModeRing                   // keep the tail, write it on Close
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	}
	return "unknown"
}

// ParseMode accepts stream or ring.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	}
	return 0, fmt.Errorf("invalid trace mode %q (expected stream|ring)", s)
}

// Config describes the tracer built by New.
type Config struct {
	Level    Level
	Mode     Mode
	Format   Format    // FormatAuto picks by Path extension
	Output   io.Writer // overrides Path
	Path     string    // "" or "-" is stderr
	RingSize int       // default 4096
}

const defaultRingSize = 4096

// New builds the tracer described by cfg. The returned tracer owns the
// file it opened and closes it in Close.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(cfg.Path, ".ndjson") || strings.HasSuffix(cfg.Path, ".json") {
			format = FormatNDJSON
		}
	}
	w, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeStream:
		return NewWriter(w, cfg.Level, format), nil
	case ModeRing:
		size := cfg.RingSize
		if size <= 0 {
			size = defaultRingSize
		}
		return NewRing(size, cfg.Level, w, format), nil
	}
	return nil, fmt.Errorf("unknown trace mode %v", cfg.Mode)
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.Path == "" || cfg.Path == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}
