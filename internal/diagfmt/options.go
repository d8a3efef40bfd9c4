// Package diagfmt renders diagnostic bags for people and tools.
package diagfmt

import (
	"fmt"

	"kiln/internal/diag"
)

// Format selects the rendering.
type Format uint8

const (
	FormatPretty Format = iota
	FormatShort
	FormatJSON
	FormatCSV
)

// ParseFormat accepts pretty|short|json|csv.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "pretty":
		return FormatPretty, nil
	case "short":
		return FormatShort, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return FormatPretty, fmt.Errorf("unknown diagnostics format %q (expected pretty|short|json|csv)", s)
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	// MinSeverity hides less severe diagnostics.
	MinSeverity diag.Severity
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Max          int // обрезка вывода, не Bag
	IncludeNotes bool
}
