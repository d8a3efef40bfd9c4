package observ

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
)

// StepRow is one line of a step report.
type StepRow struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	TotalMS  float64 `json:"total_ms"`
	MeanMS   float64 `json:"mean_ms"`
	MaxMS    float64 `json:"max_ms"`
}

// StatsReport is the serialisable form of StepStats.
type StatsReport struct {
	Items       int       `json:"items"`
	FailedItems int       `json:"failed_items"`
	TotalMS     float64   `json:"total_ms"`
	Steps       []StepRow `json:"steps"`
}

func sortRows(rows []StepStat) {
	slices.SortFunc(rows, func(a, b StepStat) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// ReportFormat selects how WriteReport renders.
type ReportFormat string

const (
	ReportText ReportFormat = "text"
	ReportCSV  ReportFormat = "csv"
	ReportJSON ReportFormat = "json"
)

// ParseReportFormat accepts text|csv|json.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(s); f {
	case ReportText, ReportCSV, ReportJSON:
		return f, nil
	case "":
		return ReportText, nil
	}
	return "", fmt.Errorf("unknown report format %q (expected text|csv|json)", s)
}

// WriteReport renders r in format f.
func WriteReport(w io.Writer, r StatsReport, f ReportFormat) error {
	switch f {
	case ReportCSV:
		return writeCSV(w, r)
	case ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r StatsReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "step\tcalls\tfailed\ttotal ms\tmean ms\tmax ms\t\n")
	for _, s := range r.Steps {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.3f\t%.3f\t\n", s.Name, s.Count, s.Failures, s.TotalMS, s.MeanMS, s.MaxMS)
	}
	fmt.Fprintf(tw, "total\t%d items\t%d\t%.2f\t\t\t\n", r.Items, r.FailedItems, r.TotalMS)
	return tw.Flush()
}

// csvEscape escapes the separator with a backslash; the report is meant
// for line-oriented tools, not spreadsheet quoting rules.
func csvEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, ",", `\,`)
}

func writeCSV(w io.Writer, r StatsReport) error {
	var sb strings.Builder
	sb.WriteString("step,calls,failed,total_ms,mean_ms,max_ms\n")
	for _, s := range r.Steps {
		fmt.Fprintf(&sb, "%s,%d,%d,%.3f,%.3f,%.3f\n", csvEscape(s.Name), s.Count, s.Failures, s.TotalMS, s.MeanMS, s.MaxMS)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
