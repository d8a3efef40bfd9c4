package sched

import (
	"strings"
	"testing"

	"kiln/internal/diag"
)

func TestRegistryValidateReportsEveryProblem(t *testing.T) {
	p := tags("t.reg", "a", "b")
	reg := NewRegistry()
	reg.MustRegister(
		step("ok", nil, p[:1]),
		Schedulable{Name: "conflict", Needs: p[:1], No: p[:1], Produces: p[1:], Run: noop},
		Schedulable{Name: "empty", Run: noop},
		Schedulable{Name: "norun", Produces: p[1:]},
	)
	if err := reg.Register(step("ok", nil, p[:1])); err == nil {
		t.Fatalf("duplicate registration accepted")
	}

	bag := diag.NewBag(100)
	err := reg.Validate(diag.BagReporter{Bag: bag})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, k := range []ErrorKind{ErrDuplicate, ErrConflict, ErrEmptyProduction, ErrMissingRun} {
		if hasKind(err, k) == nil {
			t.Fatalf("missing %s in %v", k, kinds(err))
		}
	}
	if bag.Len() != len(ConfigErrors(err)) {
		t.Fatalf("reported %d diagnostics for %d errors", bag.Len(), len(ConfigErrors(err)))
	}
	if reg.Frozen() {
		t.Fatalf("invalid registry must not freeze")
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	p := tags("t.noname", "a")
	reg := NewRegistry()
	reg.MustRegister(step("named", nil, p), step("  ", nil, p))
	bag := diag.NewBag(10)
	err := reg.Validate(diag.BagReporter{Bag: bag})
	ce := hasKind(err, ErrInvalidName)
	if ce == nil {
		t.Fatalf("expected invalid-name error, got %v", kinds(err))
	}
	if hasKind(err, ErrInvalidProp) != nil {
		t.Fatalf("empty name also reported as invalid prop: %v", kinds(err))
	}
	if !strings.Contains(ce.Message, "#1") {
		t.Fatalf("message = %q", ce.Message)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SchedInvalidName {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
}

func TestRegistryAnalysisMayProduceNothing(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Schedulable{Name: "stats", Analysis: true, Mandatory: true, Run: noop})
	if err := reg.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRegistryFreezesAfterValidate(t *testing.T) {
	p := tags("t.freeze", "a")
	reg := NewRegistry()
	reg.MustRegister(step("make", nil, p))
	if err := reg.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !reg.Frozen() || reg.Fingerprint() == "" {
		t.Fatalf("registry not frozen after Validate")
	}
	err := reg.Register(step("late", nil, p))
	if ce := hasKind(err, ErrFrozen); ce == nil {
		t.Fatalf("expected frozen error, got %v", err)
	}
	if s, ok := reg.Lookup("make"); !ok || s.Index() != 0 {
		t.Fatalf("Lookup(make) = %v, %v", s, ok)
	}
}

func TestRegistryFingerprintTracksMetadata(t *testing.T) {
	p := tags("t.fp", "a", "b")
	build := func(produce Prop) string {
		reg := NewRegistry()
		reg.MustRegister(step("make", nil, []Prop{produce}))
		if err := reg.Validate(nil); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		return reg.Fingerprint()
	}
	if build(p[0]) != build(p[0]) {
		t.Fatalf("fingerprint not stable")
	}
	if build(p[0]) == build(p[1]) {
		t.Fatalf("fingerprint ignores produces")
	}
}
