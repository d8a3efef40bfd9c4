package sched

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kiln/internal/dag"
	"kiln/internal/diag"
	"kiln/internal/trace"
)

// Request is what the caller wants guaranteed at the end of the plan.
type Request struct {
	Targets  PropSet
	Features FeatureSet
	// Initial holds properties every item already has before step one.
	Initial PropSet
}

const (
	edgeNeed uint8 = iota + 1
	edgeNo
)

// Builder resolves requests into plans. Reporter receives configuration
// errors and informational notes; it may be nil.
type Builder struct {
	Registry *Registry
	Reporter diag.Reporter
}

// BuildPlan is Builder{Registry: reg}.Build with a background context.
func BuildPlan(reg *Registry, req Request) (*Plan, error) {
	b := Builder{Registry: reg}
	return b.Build(context.Background(), req)
}

// Build validates the registry if needed and resolves req into a Plan.
// It is synchronous and never runs any step.
func (b *Builder) Build(ctx context.Context, req Request) (*Plan, error) {
	if b == nil || b.Registry == nil {
		return nil, errors.New("sched: nil registry")
	}
	_, span := trace.Start(ctx, trace.ScopePlan, "build-plan")

	if err := b.Registry.Validate(b.Reporter); err != nil {
		span.End("invalid registry")
		return nil, err
	}

	r := resolver{
		steps: b.Registry.Steps(),
		req:   req,
		rep:   b.Reporter,
	}
	plan, errs := r.resolve()
	if len(errs) > 0 {
		reportConfigErrors(b.Reporter, errs)
		span.Set("errors", fmt.Sprint(len(errs))).End("failed")
		return nil, joinConfigErrors(errs)
	}
	plan.key = planKey(b.Registry.Fingerprint(), req)
	span.Set("steps", fmt.Sprint(plan.Len())).End("ok")
	return plan, nil
}

type resolver struct {
	steps []*Step
	req   Request
	rep   diag.Reporter

	eligible  []bool
	selected  []bool
	producers map[Prop][]int // eligible producers, declaration order
	gated     map[Prop][]int // producers disabled by features
}

func (r *resolver) resolve() (*Plan, []*ConfigError) {
	n := len(r.steps)
	r.eligible = make([]bool, n)
	r.selected = make([]bool, n)
	r.producers = make(map[Prop][]int)
	r.gated = make(map[Prop][]int)

	for i, s := range r.steps {
		ok := s.Eligible(r.req.Features)
		r.eligible[i] = ok
		for _, p := range s.produces.Slice() {
			if ok {
				r.producers[p] = append(r.producers[p], i)
			} else {
				r.gated[p] = append(r.gated[p], i)
			}
		}
	}

	errs := r.selectSteps()
	errs = append(errs, r.checkUnselected()...)
	if len(errs) > 0 {
		return nil, errs
	}

	// Dependency cycles among eligible steps are errors even when
	// selection would have pruned them.
	full := r.graph(r.eligible, false)
	if ft := dag.ToposortKahn(full); ft.Cyclic {
		return nil, r.cycleErrors(full, ft)
	}

	g := r.graph(r.selected, true)
	topo := dag.ToposortKahn(g)
	if topo.Cyclic {
		return nil, r.cycleErrors(g, topo)
	}

	plan := &Plan{
		steps:    make([]*Step, 0, len(topo.Order)),
		targets:  r.req.Targets.Clone(),
		features: r.req.Features.Clone(),
		initial:  r.req.Initial.Clone(),
	}
	pos := make(map[dag.NodeID]int, len(topo.Order))
	for i, id := range topo.Order {
		plan.steps = append(plan.steps, r.steps[int(id)])
		pos[id] = i
	}
	for _, batch := range topo.Batches {
		group := make([]int, len(batch))
		for i, id := range batch {
			group[i] = pos[id]
		}
		plan.batches = append(plan.batches, group)
	}

	if err := plan.Verify(); err != nil {
		return nil, ConfigErrors(err)
	}
	plan.final = plan.symbolicFinal()
	return plan, nil
}

// selectSteps picks mandatory steps, one producer per target and,
// transitively, one producer per need. A property that already has a
// selected producer does not pull in another; otherwise the first
// declared eligible producer wins. Pruned steps are still validated by
// checkUnselected and the eligible cycle check.
func (r *resolver) selectSteps() []*ConfigError {
	var errs []*ConfigError
	var queue []int
	pick := func(i int) {
		if !r.selected[i] {
			r.selected[i] = true
			queue = append(queue, i)
		}
	}

	for i, s := range r.steps {
		if r.eligible[i] && s.mandatory {
			pick(i)
		}
	}

	for _, t := range r.req.Targets.Slice() {
		if r.req.Initial.Has(t) {
			continue
		}
		cands := r.producers[t]
		if len(cands) == 0 {
			errs = append(errs, r.unreachable(t))
			continue
		}
		if !r.anySelected(cands) {
			r.noteAlternatives("", t, cands)
			pick(cands[0])
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		s := r.steps[i]

		for _, p := range s.no.Slice() {
			if r.req.Initial.Has(p) {
				errs = append(errs, &ConfigError{
					Kind:    ErrNoViolation,
					Steps:   []string{s.name},
					Props:   []string{p.Name()},
					Message: fmt.Sprintf("schedulable %q forbids %q, which every item has initially", s.name, p.Name()),
				})
			}
		}

		for _, p := range s.needs.Slice() {
			if r.req.Initial.Has(p) {
				continue
			}
			cands := without(r.producers[p], i)
			if len(cands) == 0 {
				errs = append(errs, r.missing(s, p))
				continue
			}
			if !r.anySelected(cands) {
				r.noteAlternatives(s.name, p, cands)
				pick(cands[0])
			}
		}
	}
	return errs
}

// checkUnselected reports needs of eligible but unselected steps that no
// eligible schedulable can satisfy.
func (r *resolver) checkUnselected() []*ConfigError {
	var errs []*ConfigError
	for i, s := range r.steps {
		if !r.eligible[i] || r.selected[i] {
			continue
		}
		for _, p := range s.needs.Slice() {
			if r.req.Initial.Has(p) {
				continue
			}
			if len(without(r.producers[p], i)) == 0 {
				errs = append(errs, r.missing(s, p))
			}
		}
	}
	return errs
}

func (r *resolver) anySelected(cands []int) bool {
	for _, c := range cands {
		if r.selected[c] {
			return true
		}
	}
	return false
}

func without(list []int, skip int) []int {
	out := make([]int, 0, len(list))
	for _, v := range list {
		if v != skip {
			out = append(out, v)
		}
	}
	return out
}

func (r *resolver) noteAlternatives(consumer string, p Prop, cands []int) {
	if r.rep == nil || len(cands) < 2 {
		return
	}
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = r.steps[c].name
	}
	what := "target"
	if consumer != "" {
		what = fmt.Sprintf("need of %q", consumer)
	}
	diag.ReportInfo(r.rep, diag.SchedAlternativeProducer, diag.Subject{Step: names[0]},
		fmt.Sprintf("%q (%s) has producers %s; using %q", p.Name(), what, quoteAll(names), names[0])).Emit()
}

// gatedHint explains which disabled features would provide p.
func (r *resolver) gatedHint(p Prop) string {
	gated := r.gated[p]
	if len(gated) == 0 {
		return ""
	}
	parts := make([]string, 0, len(gated))
	for _, i := range gated {
		s := r.steps[i]
		parts = append(parts, fmt.Sprintf("%q (requires %s)", s.name, strings.Join(s.supports.Names(), " or ")))
	}
	return "; produced only by disabled " + strings.Join(parts, ", ")
}

func (r *resolver) unreachable(t Prop) *ConfigError {
	return &ConfigError{
		Kind:    ErrUnreachableTarget,
		Props:   []string{t.Name()},
		Message: fmt.Sprintf("target %q is not produced by any eligible schedulable%s", t.Name(), r.gatedHint(t)),
	}
}

func (r *resolver) missing(s *Step, p Prop) *ConfigError {
	return &ConfigError{
		Kind:    ErrMissingProducer,
		Steps:   []string{s.name},
		Props:   []string{p.Name()},
		Message: fmt.Sprintf("schedulable %q needs %q, which no eligible schedulable produces%s", s.name, p.Name(), r.gatedHint(p)),
	}
}

// graph builds must-run-before edges among the included steps:
// producer -> consumer for needs and, when withNo is set, holder ->
// producer for no.
func (r *resolver) graph(include []bool, withNo bool) *dag.Graph {
	g := dag.New(len(r.steps))
	producers := make(map[Prop][]int)
	for i, s := range r.steps {
		if !include[i] {
			continue
		}
		g.Mark(dag.NodeID(i))
		for _, p := range s.produces.Slice() {
			producers[p] = append(producers[p], i)
		}
	}

	for i, s := range r.steps {
		if !include[i] {
			continue
		}
		for _, p := range s.needs.Slice() {
			if r.req.Initial.Has(p) {
				continue
			}
			for _, q := range producers[p] {
				if q == i {
					continue
				}
				g.AddEdge(dag.NodeID(q), dag.NodeID(i), dag.EdgeLabel{Kind: edgeNeed, Prop: uint32(p)})
			}
		}
		if !withNo {
			continue
		}
		for _, p := range s.no.Slice() {
			for _, q := range producers[p] {
				g.AddEdge(dag.NodeID(i), dag.NodeID(q), dag.EdgeLabel{Kind: edgeNo, Prop: uint32(p)})
			}
		}
	}
	g.Sort()
	return g
}

func (r *resolver) cycleErrors(g *dag.Graph, topo *dag.Topo) []*ConfigError {
	comps := dag.Components(g, topo.Cycles)
	if len(comps) == 0 {
		names := make([]string, len(topo.Cycles))
		for i, id := range topo.Cycles {
			names[i] = r.steps[int(id)].name
		}
		return []*ConfigError{{
			Kind:    ErrCycle,
			Steps:   names,
			Message: fmt.Sprintf("cannot order schedulables %s", quoteAll(names)),
		}}
	}

	errs := make([]*ConfigError, 0, len(comps))
	for _, comp := range comps {
		names := make([]string, len(comp))
		for i, id := range comp {
			names[i] = r.steps[int(id)].name
		}

		path := dag.CyclePath(g, comp)
		var sb strings.Builder
		var props []string
		var noEdge *dag.EdgeLabel
		var noHolder string
		for i := 0; i+1 < len(path); i++ {
			from, to := path[i], path[i+1]
			label, _ := g.EdgeBetween(from, to)
			p := Prop(label.Prop)
			props = append(props, p.Name())
			if i == 0 {
				sb.WriteString(r.steps[int(from)].name)
			}
			switch label.Kind {
			case edgeNo:
				fmt.Fprintf(&sb, " -[no %s]-> %s", p.Name(), r.steps[int(to)].name)
				if noEdge == nil {
					l := label
					noEdge = &l
					noHolder = r.steps[int(from)].name
				}
			default:
				fmt.Fprintf(&sb, " -[%s]-> %s", p.Name(), r.steps[int(to)].name)
			}
		}

		if noEdge == nil {
			noEdge, noHolder = r.noEdgeWithin(g, comp)
		}
		if noEdge != nil {
			p := Prop(noEdge.Prop)
			errs = append(errs, &ConfigError{
				Kind:  ErrNoViolation,
				Steps: names,
				Props: props,
				Message: fmt.Sprintf("schedulable %q forbids %q, but it is produced upstream of it: %s",
					noHolder, p.Name(), sb.String()),
			})
			continue
		}
		errs = append(errs, &ConfigError{
			Kind:    ErrCycle,
			Steps:   names,
			Props:   props,
			Message: fmt.Sprintf("dependency cycle between %s: %s", quoteAll(names), sb.String()),
		})
	}
	return errs
}

// noEdgeWithin finds a no edge among comp members that the walked path
// may have missed.
func (r *resolver) noEdgeWithin(g *dag.Graph, comp []dag.NodeID) (*dag.EdgeLabel, string) {
	member := make(map[dag.NodeID]bool, len(comp))
	for _, id := range comp {
		member[id] = true
	}
	for _, id := range comp {
		for _, e := range g.Edges[int(id)] {
			if member[e.To] && e.Label.Kind == edgeNo {
				l := e.Label
				return &l, r.steps[int(id)].name
			}
		}
	}
	return nil, ""
}

func planKey(fingerprint string, req Request) string {
	return fingerprint + "/" + req.Targets.Key() + "/" + req.Features.Key() + "/" + req.Initial.Key()
}
