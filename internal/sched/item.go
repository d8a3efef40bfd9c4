package sched

import (
	"strconv"

	"kiln/internal/diag"
)

// Item is one unit the plan is replayed over. Props is the live set of
// properties present on the item; the runner only ever adds to it.
type Item interface {
	Key() string
	Props() *PropSet
}

// Lookup is the opaque, read-only configuration view handed to steps.
type Lookup interface {
	Lookup(key string) (string, bool)
}

// MapLookup is a Lookup over a plain map.
type MapLookup map[string]string

func (m MapLookup) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// StepContext is what a running step may see besides its item.
type StepContext struct {
	Step     *Step
	Index    int
	RunID    string
	Config   Lookup
	Reporter diag.Reporter
}

// Lookup reads a tunable. Keys are free-form; by convention
// "<step-name>.<option>".
func (sc *StepContext) Lookup(key string) (string, bool) {
	if sc == nil || sc.Config == nil {
		return "", false
	}
	return sc.Config.Lookup(key)
}

// Int reads an integer tunable, falling back to def when the key is
// missing or malformed.
func (sc *StepContext) Int(key string, def int) int {
	v, ok := sc.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool reads a boolean tunable.
func (sc *StepContext) Bool(key string, def bool) bool {
	v, ok := sc.Lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Report forwards a diagnostic about item to the run's reporter.
func (sc *StepContext) Report(code diag.Code, sev diag.Severity, item Item, msg string) {
	if sc == nil || sc.Reporter == nil {
		return
	}
	subject := diag.Subject{}
	if item != nil {
		subject.Item = item.Key()
	}
	if sc.Step != nil {
		subject.Step = sc.Step.Name()
	}
	sc.Reporter.Report(code, sev, subject, msg, nil)
}
