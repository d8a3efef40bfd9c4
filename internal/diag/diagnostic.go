package diag

import (
	"fmt"
	"strings"
)

// Subject identifies what a diagnostic is about.
// Item is the data item key (empty for plan-level findings),
// Step is the schedulable name (empty for item-level findings).
type Subject struct {
	Item string
	Step string
}

// IsZero reports whether the subject names nothing.
func (s Subject) IsZero() bool {
	return s.Item == "" && s.Step == ""
}

func (s Subject) String() string {
	switch {
	case s.Item != "" && s.Step != "":
		return s.Item + "@" + s.Step
	case s.Item != "":
		return s.Item
	case s.Step != "":
		return "@" + s.Step
	}
	return "-"
}

type Note struct {
	Subject Subject
	Msg     string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Subject  Subject
	Notes    []Note
}

// New builds a diagnostic without notes.
func New(sev Severity, code Code, subject Subject, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Subject: subject, Message: msg}
}

func NewError(code Code, subject Subject, msg string) Diagnostic {
	return New(SevError, code, subject, msg)
}

// WithNote returns d with one more note.
func (d Diagnostic) WithNote(subject Subject, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Subject: subject, Msg: msg})
	return d
}

// Severity orders diagnostics; a run fails on SevError only.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// ParseSeverity accepts info, warning (or warn) and error in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(s) {
	case "INFO":
		return SevInfo, nil
	case "WARNING", "WARN":
		return SevWarning, nil
	case "ERROR":
		return SevError, nil
	}
	return SevInfo, fmt.Errorf("invalid severity %q (expected info|warning|error)", s)
}
