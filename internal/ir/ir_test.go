package ir

import (
	"strings"
	"testing"

	"kiln/internal/sched"
)

var (
	sharedKind = sched.MarkerKind("test.ir.shared")
	copiedKind = sched.MarkerKind("test.ir.copied")
)

type sharedMarker struct{ note string }

func (m *sharedMarker) Kind() sched.Prop      { return sharedKind }
func (m *sharedMarker) CloneIfNeeded() Marker { return m }

type copiedMarker struct{ slots map[string]int }

func (m *copiedMarker) Kind() sched.Prop { return copiedKind }
func (m *copiedMarker) CloneIfNeeded() Marker {
	c := &copiedMarker{slots: make(map[string]int, len(m.slots))}
	for k, v := range m.slots {
		c.slots[k] = v
	}
	return c
}

func TestCloneAppliesMarkerPolicy(t *testing.T) {
	n := MustParse("(block (assign x 1) (return x))")
	shared := &sharedMarker{note: "same"}
	copied := &copiedMarker{slots: map[string]int{"x": 0}}
	n.SetMarker(shared)
	n.SetMarker(copied)

	c := n.Clone()
	if !Equal(n, c) {
		t.Fatalf("clone differs: %s vs %s", Format(n), Format(c))
	}
	if c.Marker(sharedKind) != Marker(shared) {
		t.Fatalf("shared marker was copied")
	}
	cm, ok := MarkerOf[*copiedMarker](c, copiedKind)
	if !ok || cm == copied {
		t.Fatalf("copied marker was shared")
	}
	if cm.slots["x"] != 0 || len(cm.slots) != 1 {
		t.Fatalf("copied payload = %v", cm.slots)
	}
	cm.slots["y"] = 1
	if _, leaked := copied.slots["y"]; leaked {
		t.Fatalf("copy is not independent")
	}

	c.Children[0].Name = "z"
	if n.Children[0].Name != "x" {
		t.Fatalf("tree not deep-copied")
	}
}

func TestSetMarkerRejectsTags(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	n := Const(1)
	n.SetMarker(tagMarker{})
}

type tagMarker struct{}

func (tagMarker) Kind() sched.Prop      { return sched.Tag("test.ir.not-a-marker") }
func (tagMarker) CloneIfNeeded() Marker { return tagMarker{} }

func TestParseExprRoundTrip(t *testing.T) {
	cases := []string{
		"(block (assign x (add n 1)) (return (not (lt x 10))))",
		"(if (eq (field count) 0) (return 1) (return (call get 2 3)))",
		"(while (gt i 0) (block (assign i (sub i 1))))",
		"(setfield count (neg -4))",
		"(return)",
		"(expr (call tick))",
	}
	for _, src := range cases {
		n, err := ParseExpr(src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", src, err)
		}
		if got := Format(n); got != src {
			t.Fatalf("Format = %q, want %q", got, src)
		}
	}
	if n := MustParse("true"); n.Kind != KindConst || n.Value != 1 {
		t.Fatalf("true = %+v", n)
	}
}

func TestParseExprErrors(t *testing.T) {
	cases := map[string]string{
		"(add 1)":      "takes 2 operand",
		"(block":       "unclosed",
		"(frob 1)":     "unknown form",
		"(assign 1 2)": "expects a name",
		"(return 1) 2": "trailing input",
		"()":           "empty form",
		"(if 1 2 3 4)": "takes 2..3 operands",
		")":            "unexpected ')'",
	}
	for src, want := range cases {
		_, err := ParseExpr(src)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("ParseExpr(%q) error = %v, want %q", src, err, want)
		}
	}
}

func TestDecodeProgramTOMLAndYAML(t *testing.T) {
	tomlSrc := `
[[type]]
name = "Counter"

  [[type.field]]
  name = "count"
  init = "5"

  [[type.method]]
  name = "inc"
  params = ["by"]
  body = "(setfield count (add (field count) by))"

[[type]]
name = "Shape"
kind = "interface"

  [[type.method]]
  name = "area"
`
	yamlSrc := `
types:
  - name: Counter
    fields:
      - name: count
        init: "5"
    methods:
      - name: inc
        params: [by]
        body: (setfield count (add (field count) by))
  - name: Shape
    kind: interface
    methods:
      - name: area
`
	fromTOML, err := DecodeProgram([]byte(tomlSrc), ".toml")
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	fromYAML, err := DecodeProgram([]byte(yamlSrc), ".yaml")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(fromTOML) != 2 || len(fromYAML) != 2 {
		t.Fatalf("units = %d / %d", len(fromTOML), len(fromYAML))
	}
	for i := range fromTOML {
		if !Equal(fromTOML[i].Type, fromYAML[i].Type) {
			t.Fatalf("unit %d differs between formats", i)
		}
	}
	counter := fromTOML[0]
	if counter.Key() != "Counter" || counter.Field("count") == nil {
		t.Fatalf("counter = %+v", counter.Type)
	}
	body := counter.Method("inc").Body()
	if body.Kind != KindBlock || body.Child(0).Kind != KindSetField {
		t.Fatalf("body = %s", Format(body))
	}
	if !fromTOML[1].Type.Interface || fromTOML[1].Method("area").Body() != nil {
		t.Fatalf("interface decoded wrong")
	}
}

func TestDecodeProgramCollectsErrors(t *testing.T) {
	src := `
[[type]]
name = "A"
  [[type.method]]
  name = "m"
  body = "(add 1)"
[[type]]
name = "B"
  [[type.field]]
  name = "f"
  init = "(("
`
	_, err := DecodeProgram([]byte(src), ".toml")
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"A.m", "B.f"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q lacks %q", err, want)
		}
	}
	if _, err := DecodeProgram([]byte("unknown = 1\n"), ".toml"); err == nil {
		t.Fatalf("unknown keys accepted")
	}
}

func TestUnitClonePropsIndependent(t *testing.T) {
	u := NewUnit(&Node{Kind: KindType, Name: "T"})
	p := sched.Tag("test.ir.unit")
	u.Props().Add(p)
	c := u.Clone()
	c.Props().Add(sched.Tag("test.ir.unit2"))
	if u.Props().Len() != 1 || !c.Has(p) {
		t.Fatalf("props shared between clones")
	}
}
