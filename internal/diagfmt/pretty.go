package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"kiln/internal/diag"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее):
//
//	<item>@<step>: <SEV> <CODE>: <Message>
//	    note: <item>@<step>: <Message>
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	var (
		errC  = color.New(color.FgRed, color.Bold)
		warnC = color.New(color.FgYellow, color.Bold)
		infoC = color.New(color.FgCyan)
		subjC = color.New(color.Bold)
		noteC = color.New(color.FgHiBlack)
	)
	for _, c := range []*color.Color{errC, warnC, infoC, subjC, noteC} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var sb strings.Builder
	for _, d := range bag.Items() {
		if d.Severity < opts.MinSeverity {
			continue
		}
		sevC := infoC
		switch d.Severity {
		case diag.SevError:
			sevC = errC
		case diag.SevWarning:
			sevC = warnC
		}
		if !d.Subject.IsZero() {
			sb.WriteString(subjC.Sprint(d.Subject.String()))
			sb.WriteString(": ")
		}
		fmt.Fprintf(&sb, "%s %s: %s\n", sevC.Sprint(d.Severity.String()), d.Code.ID(), d.Message)
		if opts.ShowNotes {
			for _, n := range d.Notes {
				line := "note: " + n.Msg
				if !n.Subject.IsZero() {
					line = "note: " + n.Subject.String() + ": " + n.Msg
				}
				sb.WriteString("    ")
				sb.WriteString(noteC.Sprint(line))
				sb.WriteByte('\n')
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Short prints one line per diagnostic without color or notes.
func Short(w io.Writer, bag *diag.Bag) error {
	var sb strings.Builder
	for _, d := range bag.Items() {
		subject := d.Subject.String()
		if subject == "" {
			subject = "-"
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n", subject, d.Severity, d.Code.ID(), d.Message)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
