package sched

import (
	"context"
	"slices"
)

// RunFunc applies one schedulable to one item. It must not retain item
// after returning and must synchronise access to anything shared between
// items on its own.
type RunFunc func(ctx context.Context, sc *StepContext, item Item) error

// Schedulable is the declaration of one pass.
type Schedulable struct {
	Name        string
	Description string

	// Needs must be present before the step runs.
	Needs []Prop
	// No must not have been produced upstream of the step.
	No []Prop
	// Produces is guaranteed present on every item after the step.
	Produces []Prop
	// Supports lists the features making the step eligible; empty means
	// always eligible.
	Supports []Feature
	// Mandatory steps run whenever eligible, even if no target needs them.
	Mandatory bool
	// Analysis steps exist for their side effects and may produce nothing.
	Analysis bool

	Run RunFunc
}

// Step is a registered, immutable Schedulable.
type Step struct {
	index       int
	name        string
	description string
	needs       PropSet
	no          PropSet
	produces    PropSet
	supports    FeatureSet
	mandatory   bool
	analysis    bool
	run         RunFunc

	// raw declarations, kept for validation messages
	declNeeds    []Prop
	declNo       []Prop
	declProduces []Prop
	declSupports []Feature
}

func newStep(index int, s Schedulable) *Step {
	return &Step{
		index:        index,
		name:         canonicalName(s.Name),
		description:  s.Description,
		needs:        NewPropSet(s.Needs...),
		no:           NewPropSet(s.No...),
		produces:     NewPropSet(s.Produces...),
		supports:     NewFeatureSet(s.Supports...),
		mandatory:    s.Mandatory,
		analysis:     s.Analysis,
		run:          s.Run,
		declNeeds:    slices.Clone(s.Needs),
		declNo:       slices.Clone(s.No),
		declProduces: slices.Clone(s.Produces),
		declSupports: slices.Clone(s.Supports),
	}
}

// Index is the declaration position in the registry.
func (s *Step) Index() int { return s.index }

func (s *Step) Name() string { return s.name }

func (s *Step) Description() string { return s.description }

func (s *Step) Needs() PropSet { return s.needs.Clone() }

func (s *Step) No() PropSet { return s.no.Clone() }

func (s *Step) Produces() PropSet { return s.produces.Clone() }

func (s *Step) Supports() FeatureSet { return s.supports.Clone() }

func (s *Step) Mandatory() bool { return s.mandatory }

func (s *Step) Analysis() bool { return s.analysis }

// Eligible reports whether the step may run under features.
func (s *Step) Eligible(features FeatureSet) bool {
	return s.supports.Empty() || s.supports.Intersects(features)
}

func (s *Step) String() string { return s.name }
