package testkit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"kiln/internal/passes"
	"kiln/internal/sched"
)

type item struct {
	key   string
	props sched.PropSet
}

func (i *item) Key() string           { return i.key }
func (i *item) Props() *sched.PropSet { return &i.props }

var errBoom = errors.New("boom")

// randomRegistry declares one step per property. Step i produces p[i],
// needs a random subset of p[:i] and may forbid a random p[j>i], so the
// graph is acyclic by construction.
func randomRegistry(rng *rand.Rand, prefix string, n int, failOn string) (*sched.Registry, []sched.Prop) {
	props := make([]sched.Prop, n)
	for i := range props {
		props[i] = sched.Tag(fmt.Sprintf("%s.p%d", prefix, i))
	}
	reg := sched.NewRegistry()
	for i := range n {
		s := sched.Schedulable{
			Name:     fmt.Sprintf("%s.s%d", prefix, i),
			Produces: []sched.Prop{props[i]},
			Run: func(_ context.Context, sc *sched.StepContext, it sched.Item) error {
				if it.Key() == failOn && sc.Index == 2 {
					return errBoom
				}
				return nil
			},
		}
		for j := range i {
			if rng.IntN(3) == 0 {
				s.Needs = append(s.Needs, props[j])
			}
		}
		if i+1 < n && rng.IntN(4) == 0 {
			s.No = []sched.Prop{props[i+1+rng.IntN(n-i-1)]}
		}
		reg.MustRegister(s)
	}
	return reg, props
}

func TestRandomPlansHoldInvariants(t *testing.T) {
	for seed := range uint64(40) {
		rng := rand.New(rand.NewPCG(seed, 7))
		prefix := fmt.Sprintf("tk%d", seed)
		n := 3 + rng.IntN(10)
		reg, props := randomRegistry(rng, prefix, n, "i1")

		var targets sched.PropSet
		for _, p := range props {
			if rng.IntN(2) == 0 {
				targets.Add(p)
			}
		}
		targets.Add(props[n-1])

		plan, err := sched.BuildPlan(reg, sched.Request{Targets: targets})
		if err != nil {
			t.Fatalf("seed %d: BuildPlan: %v", seed, err)
		}
		if err := CheckPlanInvariants(plan); err != nil {
			t.Fatalf("seed %d: %v\nplan: %v", seed, err, plan.Names())
		}

		items := make([]sched.Item, 4)
		for i := range items {
			items[i] = &item{key: fmt.Sprintf("i%d", i)}
		}
		res := (&sched.Runner{Jobs: 2}).Run(t.Context(), plan, items)
		if err := CheckOutcomes(plan, res); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		want := 0
		if plan.Len() > 2 {
			want = 1
		}
		if _, failed, _ := res.Counts(); failed != want {
			t.Fatalf("seed %d: %d failed, want %d", seed, failed, want)
		}
	}
}

func TestPipelinePlansHoldInvariants(t *testing.T) {
	combos := [][]string{
		{"emit-type-files"},
		{"optimize", "emit-type-files"},
		{"optimize", "verify", "emit-archive"},
		{"verify", "emit-type-files", "emit-archive", "size-report"},
	}
	for _, names := range combos {
		fs, err := sched.ParseFeatures(names)
		if err != nil {
			t.Fatalf("%v: %v", names, err)
		}
		plan, err := sched.BuildPlan(passes.NewRegistry(nil), sched.Request{
			Targets:  sched.NewPropSet(passes.TagEmitted),
			Features: fs,
		})
		if err != nil {
			t.Fatalf("%v: BuildPlan: %v", names, err)
		}
		if err := CheckPlanInvariants(plan); err != nil {
			t.Fatalf("%v: %v", names, err)
		}
	}
}

func TestCheckOutcomesFlagsInconsistency(t *testing.T) {
	a := sched.Tag("tk.bad.a")
	reg := sched.NewRegistry()
	reg.MustRegister(sched.Schedulable{Name: "tk.bad.s", Produces: []sched.Prop{a}, Run: func(context.Context, *sched.StepContext, sched.Item) error { return nil }})
	plan, err := sched.BuildPlan(reg, sched.Request{Targets: sched.NewPropSet(a)})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	res := sched.Result{Outcomes: []sched.Outcome{
		{Key: "x", Status: sched.StatusDone, Completed: 1},
		{Key: "y", Status: sched.StatusFailed, Err: errBoom},
	}}
	err = CheckOutcomes(plan, res)
	if err == nil {
		t.Fatalf("expected inconsistencies")
	}
	for _, want := range []string{"x: done but lacks", "y: failed without exec error"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q lacks %q", err, want)
		}
	}
}
