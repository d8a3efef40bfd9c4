package diagfmt

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"kiln/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.ExecFailed, diag.Subject{Item: "Point", Step: "fold-constants"}, "division by zero").
		WithNote(diag.Subject{Step: "fold-constants"}, "props restored"))
	bag.Add(diag.New(diag.SevWarning, diag.ExecSkipped, diag.Subject{}, "2 items skipped"))
	return bag
}

func TestPrettyNoColor(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{ShowNotes: true}); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	out := buf.String()
	want := "Point@fold-constants: ERROR EXE2001: division by zero\n"
	if !strings.HasPrefix(out, want) {
		t.Fatalf("unexpected first line:\n%s", out)
	}
	if !strings.Contains(out, "    note: @fold-constants: props restored\n") {
		t.Fatalf("note missing:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("escape codes emitted with color disabled: %q", out)
	}
}

func TestPrettyMinSeverity(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{MinSeverity: diag.SevError}); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	if strings.Contains(buf.String(), "WARNING") {
		t.Fatalf("warning not filtered:\n%s", buf.String())
	}
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	if err := Short(&buf, sampleBag()); err != nil {
		t.Fatalf("short: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1] != "- WARNING EXE2004 2 items skipped" {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestJSONTruncates(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), "run-1", JSONOpts{Max: 1, IncludeNotes: true}); err != nil {
		t.Fatalf("json: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || !out.Truncated || out.RunID != "run-1" {
		t.Fatalf("unexpected output %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Code != "EXE2001" || d.Subject.Item != "Point" || len(d.Notes) != 1 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, sampleBag()); err != nil {
		t.Fatalf("csv: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(recs))
	}
	if recs[1][2] != "Point" || recs[1][5] != "props restored" {
		t.Fatalf("unexpected row %v", recs[1])
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Fatalf("json: %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}
