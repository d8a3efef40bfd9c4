package sched

import (
	"errors"
	"fmt"
	"strings"

	"kiln/internal/diag"
)

// ErrorKind classifies configuration errors.
type ErrorKind uint8

const (
	ErrDuplicate ErrorKind = iota + 1
	ErrConflict
	ErrEmptyProduction
	ErrMissingRun
	ErrInvalidProp
	ErrCycle
	ErrMissingProducer
	ErrNoViolation
	ErrUnreachableTarget
	ErrUnknownFeature
	ErrFrozen
	ErrInvalidName
)

func (k ErrorKind) String() string {
	switch k {
	case ErrDuplicate:
		return "duplicate"
	case ErrConflict:
		return "need-no-conflict"
	case ErrEmptyProduction:
		return "empty-production"
	case ErrMissingRun:
		return "missing-run"
	case ErrInvalidProp:
		return "invalid-prop"
	case ErrCycle:
		return "cycle"
	case ErrMissingProducer:
		return "missing-producer"
	case ErrNoViolation:
		return "no-violation"
	case ErrUnreachableTarget:
		return "unreachable-target"
	case ErrUnknownFeature:
		return "unknown-feature"
	case ErrFrozen:
		return "frozen"
	case ErrInvalidName:
		return "invalid-name"
	}
	return "unknown"
}

// Code maps the kind onto its diagnostic code.
func (k ErrorKind) Code() diag.Code {
	switch k {
	case ErrDuplicate:
		return diag.SchedDuplicateStep
	case ErrConflict:
		return diag.SchedNeedNoConflict
	case ErrEmptyProduction:
		return diag.SchedEmptyProduction
	case ErrMissingRun:
		return diag.SchedMissingRun
	case ErrInvalidProp:
		return diag.SchedInvalidProp
	case ErrCycle:
		return diag.SchedCycle
	case ErrMissingProducer:
		return diag.SchedMissingProducer
	case ErrNoViolation:
		return diag.SchedNoViolation
	case ErrUnreachableTarget:
		return diag.SchedUnreachableTarget
	case ErrUnknownFeature:
		return diag.SchedUnknownFeature
	case ErrFrozen:
		return diag.SchedRegistryFrozen
	case ErrInvalidName:
		return diag.SchedInvalidName
	}
	return diag.UnknownCode
}

// ConfigError is a plan-level error: the build cannot start. Steps and
// Props name the offending schedulables and tags/markers.
type ConfigError struct {
	Kind    ErrorKind
	Steps   []string
	Props   []string
	Message string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ConfigErrors flattens err (possibly joined) into its configuration errors.
func ConfigErrors(err error) []*ConfigError {
	var out []*ConfigError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if ce, ok := err.(*ConfigError); ok {
			out = append(out, ce)
			return
		}
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range j.Unwrap() {
				walk(e)
			}
			return
		}
		walk(errors.Unwrap(err))
	}
	walk(err)
	return out
}

// IsConfigError reports whether err carries a configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func joinConfigErrors(errs []*ConfigError) error {
	if len(errs) == 0 {
		return nil
	}
	list := make([]error, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	return errors.Join(list...)
}

func reportConfigErrors(rep diag.Reporter, errs []*ConfigError) {
	if rep == nil {
		return
	}
	for _, e := range errs {
		subject := diag.Subject{}
		if len(e.Steps) > 0 {
			subject.Step = e.Steps[0]
		}
		b := diag.ReportError(rep, e.Kind.Code(), subject, e.Message)
		for _, s := range e.Steps[min(1, len(e.Steps)):] {
			b.WithNote(diag.Subject{Step: s}, "also involved")
		}
		b.Emit()
	}
}

// ExecError is an item-level failure: Step failed while processing Item.
type ExecError struct {
	Item     string
	Step     string
	Index    int
	Err      error
	Panicked bool
	Stack    string
}

// errNilProps fails an item whose Props returns nil before any step runs.
var errNilProps = errors.New("item has no property set")

func (e *ExecError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s: %v", e.Item, e.Err)
	}
	if e.Panicked {
		return fmt.Sprintf("%s: step %q panicked: %v", e.Item, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: step %q failed: %v", e.Item, e.Step, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as fatal to the whole run: the runner stops scheduling
// new items once it sees it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
