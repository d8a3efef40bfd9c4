package sched

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Plan is an immutable, validated execution order. It is safe to share
// between goroutines and runs.
type Plan struct {
	steps    []*Step
	batches  [][]int
	targets  PropSet
	features FeatureSet
	initial  PropSet
	final    PropSet
	key      string
}

func (p *Plan) Steps() []*Step {
	out := make([]*Step, len(p.steps))
	copy(out, p.steps)
	return out
}

func (p *Plan) Len() int { return len(p.steps) }

func (p *Plan) Step(i int) *Step { return p.steps[i] }

// Names returns step names in execution order.
func (p *Plan) Names() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.name
	}
	return out
}

// Batches groups plan positions into waves: every step of a wave only
// depends on steps of earlier waves. Informational only; the runner
// always follows Steps order.
func (p *Plan) Batches() [][]int {
	out := make([][]int, len(p.batches))
	for i, b := range p.batches {
		out[i] = append([]int(nil), b...)
	}
	return out
}

func (p *Plan) Targets() PropSet { return p.targets.Clone() }

func (p *Plan) Features() FeatureSet { return p.features.Clone() }

func (p *Plan) Initial() PropSet { return p.initial.Clone() }

// Final is the property set every successfully processed item ends with.
func (p *Plan) Final() PropSet { return p.final.Clone() }

// Key identifies the request the plan was built for.
func (p *Plan) Key() string { return p.key }

// Verify replays the plan symbolically from Initial and checks every
// need, every no constraint and the targets.
func (p *Plan) Verify() error {
	var errs []*ConfigError
	state := p.initial.Clone()
	for i, s := range p.steps {
		if missing := s.needs.Minus(state); !missing.Empty() {
			names := missing.Names()
			errs = append(errs, &ConfigError{
				Kind:    ErrMissingProducer,
				Steps:   []string{s.name},
				Props:   names,
				Message: fmt.Sprintf("step %d %q runs before %s is produced", i+1, s.name, quoteAll(names)),
			})
		}
		if bad := s.no.Intersect(state); !bad.Empty() {
			names := bad.Names()
			errs = append(errs, &ConfigError{
				Kind:    ErrNoViolation,
				Steps:   []string{s.name},
				Props:   names,
				Message: fmt.Sprintf("step %d %q runs after forbidden %s", i+1, s.name, quoteAll(names)),
			})
		}
		state.AddAll(s.produces)
	}
	if missing := p.targets.Minus(state); !missing.Empty() {
		names := missing.Names()
		errs = append(errs, &ConfigError{
			Kind:    ErrUnreachableTarget,
			Props:   names,
			Message: fmt.Sprintf("targets %s are not produced by the plan", quoteAll(names)),
		})
	}
	return joinConfigErrors(errs)
}

func (p *Plan) symbolicFinal() PropSet {
	state := p.initial.Clone()
	for _, s := range p.steps {
		state.AddAll(s.produces)
	}
	return state
}

// Dump writes a human readable rendering of the plan.
func (p *Plan) Dump(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "targets:  %s\n", p.targets)
	fmt.Fprintf(&sb, "features: %s\n", p.features)
	if !p.initial.Empty() {
		fmt.Fprintf(&sb, "initial:  %s\n", p.initial)
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range p.steps {
		flags := ""
		if s.mandatory {
			flags = "mandatory"
		}
		fmt.Fprintf(tw, "%3d.\t%s\tneeds %s\tproduces %s\t%s\n", i+1, s.name, s.needs, s.produces, flags)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	waves := make([]string, len(p.batches))
	for i, b := range p.batches {
		names := make([]string, len(b))
		for j, pos := range b {
			names[j] = p.steps[pos].name
		}
		waves[i] = "[" + strings.Join(names, " ") + "]"
	}
	_, err := fmt.Fprintf(w, "waves:    %s\n", strings.Join(waves, " "))
	return err
}

// PlanView is the serialisable shape of a plan.
type PlanView struct {
	Key      string     `json:"key"`
	Targets  []string   `json:"targets"`
	Features []string   `json:"features"`
	Initial  []string   `json:"initial,omitempty"`
	Steps    []StepView `json:"steps"`
	Waves    [][]string `json:"waves"`
}

// StepView describes one step of a PlanView or a registry listing.
type StepView struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Needs       []string `json:"needs,omitempty"`
	No          []string `json:"no,omitempty"`
	Produces    []string `json:"produces,omitempty"`
	Supports    []string `json:"supports,omitempty"`
	Mandatory   bool     `json:"mandatory,omitempty"`
	Analysis    bool     `json:"analysis,omitempty"`
}

// View describes s.
func (s *Step) View() StepView {
	return StepView{
		Name:        s.name,
		Description: s.description,
		Needs:       s.needs.Names(),
		No:          s.no.Names(),
		Produces:    s.produces.Names(),
		Supports:    s.supports.Names(),
		Mandatory:   s.mandatory,
		Analysis:    s.analysis,
	}
}

// View describes p.
func (p *Plan) View() PlanView {
	v := PlanView{
		Key:      p.key,
		Targets:  p.targets.Names(),
		Features: p.features.Names(),
		Initial:  p.initial.Names(),
		Steps:    make([]StepView, len(p.steps)),
		Waves:    make([][]string, len(p.batches)),
	}
	for i, s := range p.steps {
		v.Steps[i] = s.View()
	}
	for i, b := range p.batches {
		for _, pos := range b {
			v.Waves[i] = append(v.Waves[i], p.steps[pos].name)
		}
	}
	return v
}
