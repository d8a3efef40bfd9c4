package diagfmt

import (
	"encoding/csv"
	"io"
	"strings"

	"kiln/internal/diag"
)

var csvHeader = []string{"severity", "code", "item", "step", "message", "notes"}

// CSV writes one record per diagnostic. Notes are joined with " | ".
func CSV(w io.Writer, bag *diag.Bag) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range bag.Items() {
		notes := make([]string, 0, len(d.Notes))
		for _, n := range d.Notes {
			notes = append(notes, n.Msg)
		}
		rec := []string{
			d.Severity.String(),
			d.Code.ID(),
			d.Subject.Item,
			d.Subject.Step,
			d.Message,
			strings.Join(notes, " | "),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
