package diagfmt

import (
	"encoding/json"
	"io"

	"kiln/internal/diag"
)

// SubjectJSON is the JSON shape of a diag.Subject.
type SubjectJSON struct {
	Item string `json:"item,omitempty"`
	Step string `json:"step,omitempty"`
}

// NoteJSON represents a diagnostic note in JSON format.
type NoteJSON struct {
	Subject SubjectJSON `json:"subject"`
	Message string      `json:"message"`
}

// DiagnosticJSON represents a single diagnostic in JSON format.
type DiagnosticJSON struct {
	Severity string      `json:"severity"`
	Code     string      `json:"code"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	Subject  SubjectJSON `json:"subject"`
	Notes    []NoteJSON  `json:"notes,omitempty"`
}

// DiagnosticsOutput represents the complete JSON output.
type DiagnosticsOutput struct {
	RunID       string           `json:"run_id,omitempty"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Truncated   bool             `json:"truncated,omitempty"`
}

func subjectJSON(s diag.Subject) SubjectJSON {
	return SubjectJSON{Item: s.Item, Step: s.Step}
}

// BuildDiagnosticsOutput converts a bag to its JSON shape.
func BuildDiagnosticsOutput(bag *diag.Bag, runID string, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	out := DiagnosticsOutput{RunID: runID, Diagnostics: make([]DiagnosticJSON, 0, len(items))}
	for i, d := range items {
		if opts.Max > 0 && i >= opts.Max {
			out.Truncated = true
			break
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Subject:  subjectJSON(d.Subject),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Subject: subjectJSON(n.Subject), Message: n.Msg})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	if bag.Dropped() > 0 {
		out.Truncated = true
	}
	return out
}

// JSON writes the bag as an indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, runID string, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(bag, runID, opts))
}
