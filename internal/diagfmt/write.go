package diagfmt

import (
	"io"

	"kiln/internal/diag"
)

// Options bundles everything Write needs to pick and drive a renderer.
type Options struct {
	Format Format
	RunID  string
	Pretty PrettyOpts
	JSON   JSONOpts
}

// Write sorts the bag and renders it in the requested format.
func Write(w io.Writer, bag *diag.Bag, opts Options) error {
	if bag == nil {
		return nil
	}
	bag.Sort()
	switch opts.Format {
	case FormatShort:
		return Short(w, bag)
	case FormatJSON:
		return JSON(w, bag, opts.RunID, opts.JSON)
	case FormatCSV:
		return CSV(w, bag)
	default:
		return Pretty(w, bag, opts.Pretty)
	}
}
