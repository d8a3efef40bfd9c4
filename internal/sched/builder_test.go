package sched

import (
	"slices"
	"strings"
	"testing"

	"kiln/internal/diag"
)

func TestBuildOrdersByDependencies(t *testing.T) {
	p := tags("t.chain", "a", "b", "c")
	reg := NewRegistry()
	// declared out of order on purpose
	reg.MustRegister(
		step("third", p[1:2], p[2:3]),
		step("first", nil, p[0:1]),
		step("second", p[0:1], p[1:2]),
	)
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[2])})
	want := []string{"first", "second", "third"}
	if got := plan.Names(); !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if err := plan.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !plan.Final().Contains(NewPropSet(p...)) {
		t.Fatalf("final = %v", plan.Final())
	}
}

func TestBuildTieBreakIsDeclarationOrder(t *testing.T) {
	p := tags("t.tie", "x", "y", "z")
	reg := NewRegistry()
	reg.MustRegister(
		step("make-z", nil, p[2:3]),
		step("make-x", nil, p[0:1]),
		step("make-y", nil, p[1:2]),
		step("use", p, tags("t.tie", "out")),
	)
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(tags("t.tie", "out")...)})
	want := []string{"make-z", "make-x", "make-y", "use"}
	if got := plan.Names(); !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if b := plan.Batches(); len(b) != 2 || len(b[0]) != 3 {
		t.Fatalf("batches = %v", b)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p := tags("t.det", "a", "b", "c", "d")
	reg := NewRegistry()
	reg.MustRegister(
		step("d", p[1:3], p[3:4]),
		step("c", p[0:1], p[2:3]),
		step("b", p[0:1], p[1:2]),
		step("a", nil, p[0:1]),
	)
	req := Request{Targets: NewPropSet(p[3])}
	first := mustBuild(t, reg, req).Names()
	for range 20 {
		if got := mustBuild(t, reg, req).Names(); !slices.Equal(got, first) {
			t.Fatalf("order changed: %v vs %v", got, first)
		}
	}
}

func TestBuildFirstDeclaredProducerWins(t *testing.T) {
	p := tags("t.alt", "v", "out")
	reg := NewRegistry()
	reg.MustRegister(
		step("primary", nil, p[:1]),
		step("secondary", nil, p[:1]),
		step("use", p[:1], p[1:]),
	)
	bag := diag.NewBag(10)
	b := Builder{Registry: reg, Reporter: diag.BagReporter{Bag: bag}}
	plan, err := b.Build(t.Context(), Request{Targets: NewPropSet(p[1])})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := plan.Names(); !slices.Equal(got, []string{"primary", "use"}) {
		t.Fatalf("order = %v", got)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SchedAlternativeProducer {
		t.Fatalf("expected one alternative-producer note, got %v", bag.Items())
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	p := tags("t.cycle", "a", "b", "c")
	reg := NewRegistry()
	reg.MustRegister(
		step("A", p[2:3], p[0:1]),
		step("B", p[0:1], p[1:2]),
		step("C", p[1:2], p[2:3]),
	)
	bag := diag.NewBag(10)
	b := Builder{Registry: reg, Reporter: diag.BagReporter{Bag: bag}}
	_, err := b.Build(t.Context(), Request{Targets: NewPropSet(p[0])})
	ce := hasKind(err, ErrCycle)
	if ce == nil {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if got := joinNames(ce.Steps); got != "A,B,C" {
		t.Fatalf("cycle steps = %s", got)
	}
	for _, name := range []string{"A", "B", "C"} {
		if !strings.Contains(ce.Message, name) {
			t.Fatalf("message %q does not name %s", ce.Message, name)
		}
	}
	if !bag.HasErrors() || bag.Items()[0].Code != diag.SchedCycle {
		t.Fatalf("cycle was not reported: %v", bag.Items())
	}
}

func TestBuildMissingProducerNamesFeature(t *testing.T) {
	p := tags("t.missing", "x", "out")
	f := DeclareFeature("t.missing.fx", "")
	reg := NewRegistry()
	reg.MustRegister(
		Schedulable{Name: "make-x", Produces: p[:1], Supports: []Feature{f}, Run: noop},
		step("use", p[:1], p[1:]),
	)
	_, err := BuildPlan(reg, Request{Targets: NewPropSet(p[1])})
	ce := hasKind(err, ErrMissingProducer)
	if ce == nil {
		t.Fatalf("expected missing producer, got %v", err)
	}
	if !strings.Contains(ce.Message, "t.missing.x") || !strings.Contains(ce.Message, "t.missing.fx") {
		t.Fatalf("message lacks prop or feature: %q", ce.Message)
	}

	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[1]), Features: NewFeatureSet(f)})
	if got := plan.Names(); !slices.Equal(got, []string{"make-x", "use"}) {
		t.Fatalf("order with feature = %v", got)
	}
}

func TestBuildUnreachableTarget(t *testing.T) {
	p := tags("t.unreach", "a", "never")
	reg := NewRegistry()
	reg.MustRegister(step("make-a", nil, p[:1]))
	_, err := BuildPlan(reg, Request{Targets: NewPropSet(p...)})
	ce := hasKind(err, ErrUnreachableTarget)
	if ce == nil || !slices.Equal(ce.Props, []string{"t.unreach.never"}) {
		t.Fatalf("expected unreachable target error, got %v", err)
	}
}

func TestBuildInitialSatisfiesTargetsAndNeeds(t *testing.T) {
	p := tags("t.initial", "given", "out")
	reg := NewRegistry()
	reg.MustRegister(step("use", p[:1], p[1:]))
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[1]), Initial: NewPropSet(p[0])})
	if plan.Len() != 1 {
		t.Fatalf("plan = %v", plan.Names())
	}

	empty := mustBuild(t, reg, Request{Targets: NewPropSet(p[0]), Initial: NewPropSet(p[0])})
	if empty.Len() != 0 {
		t.Fatalf("plan for satisfied target should be empty, got %v", empty.Names())
	}
}

func TestBuildNoConstraintOrdersBeforeProducer(t *testing.T) {
	p := tags("t.no", "checked", "lowered", "simplified")
	reg := NewRegistry()
	reg.MustRegister(
		step("check", nil, p[0:1]),
		step("lower", p[0:1], p[1:2]),
		Schedulable{Name: "simplify", Needs: p[0:1], No: p[1:2], Produces: p[2:3], Mandatory: true, Run: noop},
	)
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[1])})
	want := []string{"check", "simplify", "lower"}
	if got := plan.Names(); !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestBuildNoViolation(t *testing.T) {
	p := tags("t.noviol", "a", "b", "out")
	reg := NewRegistry()
	reg.MustRegister(
		step("make-b", nil, p[1:2]),
		step("make-a", p[1:2], p[0:1]),
		Schedulable{Name: "early", Needs: p[0:1], No: p[1:2], Produces: p[2:3], Run: noop},
	)
	_, err := BuildPlan(reg, Request{Targets: NewPropSet(p[2])})
	ce := hasKind(err, ErrNoViolation)
	if ce == nil {
		t.Fatalf("expected no-violation, got %v", err)
	}
	if !strings.Contains(ce.Message, `"early"`) || !strings.Contains(ce.Message, "t.noviol.b") {
		t.Fatalf("message = %q", ce.Message)
	}
	if hasKind(err, ErrCycle) != nil {
		t.Fatalf("no-violation also reported as plain cycle")
	}
}

func TestBuildNoViolationAgainstInitial(t *testing.T) {
	p := tags("t.noinit", "raw", "out")
	reg := NewRegistry()
	reg.MustRegister(Schedulable{Name: "fresh", No: p[:1], Produces: p[1:], Run: noop})
	_, err := BuildPlan(reg, Request{Targets: NewPropSet(p[1]), Initial: NewPropSet(p[0])})
	if hasKind(err, ErrNoViolation) == nil {
		t.Fatalf("expected no-violation, got %v", err)
	}
}

func TestBuildFeatureGatedMandatory(t *testing.T) {
	p := tags("t.gate", "base", "extra")
	f := DeclareFeature("t.gate.extra", "")
	reg := NewRegistry()
	reg.MustRegister(
		step("base", nil, p[:1]),
		Schedulable{Name: "extra", Needs: p[:1], Produces: p[1:], Supports: []Feature{f}, Mandatory: true, Run: noop},
	)
	without := mustBuild(t, reg, Request{Targets: NewPropSet(p[0])})
	if got := without.Names(); !slices.Equal(got, []string{"base"}) {
		t.Fatalf("without feature = %v", got)
	}
	with := mustBuild(t, reg, Request{Targets: NewPropSet(p[0]), Features: NewFeatureSet(f)})
	if got := with.Names(); !slices.Equal(got, []string{"base", "extra"}) {
		t.Fatalf("with feature = %v", got)
	}
	if !with.Features().Has(f) {
		t.Fatalf("plan does not remember features")
	}
}

func TestPlanDump(t *testing.T) {
	p := tags("t.dump", "a", "b")
	reg := NewRegistry()
	reg.MustRegister(step("make-a", nil, p[:1]), step("make-b", p[:1], p[1:]))
	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[1])})
	var sb strings.Builder
	if err := plan.Dump(&sb); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"make-a", "make-b", "waves:", "t.dump.b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump lacks %q:\n%s", want, out)
		}
	}
	if v := plan.View(); len(v.Steps) != 2 || len(v.Waves) != 2 {
		t.Fatalf("view = %+v", v)
	}
}

func TestBuildUnselectedStepNeedStillValidated(t *testing.T) {
	p := tags("t.unsel", "t", "u", "z")
	f := DeclareFeature("t.unsel.f", "")
	reg := NewRegistry()
	reg.MustRegister(
		Schedulable{Name: "gated", Produces: p[0:1], Supports: []Feature{f}, Run: noop},
		step("consumer", p[0:1], p[1:2]),
		step("emit", nil, p[2:3]),
	)
	_, err := BuildPlan(reg, Request{Targets: NewPropSet(p[2])})
	ce := hasKind(err, ErrMissingProducer)
	if ce == nil {
		t.Fatalf("expected missing producer for unselected consumer, got %v", err)
	}
	if !slices.Equal(ce.Steps, []string{"consumer"}) || !strings.Contains(ce.Message, "t.unsel.f") {
		t.Fatalf("error = %+v", ce)
	}

	plan := mustBuild(t, reg, Request{Targets: NewPropSet(p[2]), Features: NewFeatureSet(f)})
	if got := plan.Names(); !slices.Equal(got, []string{"emit"}) {
		t.Fatalf("order with feature = %v", got)
	}
}

func TestBuildUndemandedCycleIsReported(t *testing.T) {
	p := tags("t.undemanded", "x", "y", "z", "out")
	reg := NewRegistry()
	reg.MustRegister(
		step("A", p[2:3], p[0:1]),
		step("B", p[0:1], p[1:2]),
		step("C", p[1:2], p[2:3]),
		step("D", nil, p[3:4]),
	)
	_, err := BuildPlan(reg, Request{Targets: NewPropSet(p[3])})
	ce := hasKind(err, ErrCycle)
	if ce == nil {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if got := joinNames(ce.Steps); got != "A,B,C" {
		t.Fatalf("cycle steps = %s", got)
	}
}
