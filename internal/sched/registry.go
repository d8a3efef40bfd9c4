package sched

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"kiln/internal/diag"
)

// Registry collects schedulables in declaration order. It is filled at
// startup, validated once, and frozen afterwards.
type Registry struct {
	mu          sync.RWMutex
	steps       []*Step
	byName      map[string]int
	pending     []*ConfigError
	frozen      bool
	fingerprint string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register appends s. Duplicate names and registration after Validate
// are errors; the duplicate is also remembered and reported by Validate.
func (r *Registry) Register(s Schedulable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := canonicalName(s.Name)
	if r.frozen {
		return &ConfigError{
			Kind:    ErrFrozen,
			Steps:   []string{name},
			Message: fmt.Sprintf("cannot register %q: registry already validated", name),
		}
	}
	if _, dup := r.byName[name]; dup {
		err := &ConfigError{
			Kind:    ErrDuplicate,
			Steps:   []string{name},
			Message: fmt.Sprintf("schedulable %q registered twice", name),
		}
		r.pending = append(r.pending, err)
		return err
	}
	step := newStep(len(r.steps), s)
	r.steps = append(r.steps, step)
	if name != "" {
		r.byName[name] = step.index
	}
	return nil
}

// MustRegister is Register for package-level pass tables.
func (r *Registry) MustRegister(list ...Schedulable) {
	for _, s := range list {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// Validate checks every registered schedulable and freezes the registry
// on success. Every problem is returned (joined) and reported to rep.
func (r *Registry) Validate(rep diag.Reporter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return nil
	}

	errs := append([]*ConfigError(nil), r.pending...)
	for _, s := range r.steps {
		errs = append(errs, validateStep(s)...)
	}
	if len(errs) > 0 {
		reportConfigErrors(rep, errs)
		return joinConfigErrors(errs)
	}

	r.frozen = true
	r.fingerprint = r.computeFingerprint()
	return nil
}

func validateStep(s *Step) []*ConfigError {
	var errs []*ConfigError
	if s.name == "" {
		errs = append(errs, &ConfigError{
			Kind:    ErrInvalidName,
			Message: fmt.Sprintf("schedulable #%d has an empty name", s.index),
		})
	}
	if s.run == nil {
		errs = append(errs, &ConfigError{
			Kind:    ErrMissingRun,
			Steps:   []string{s.name},
			Message: fmt.Sprintf("schedulable %q has no run function", s.name),
		})
	}

	var invalid []string
	for _, group := range [][]Prop{s.declNeeds, s.declNo, s.declProduces} {
		for _, p := range group {
			if !p.Valid() {
				invalid = append(invalid, p.Name())
			}
		}
	}
	for _, f := range s.declSupports {
		if !f.Valid() {
			invalid = append(invalid, f.Name())
		}
	}
	if len(invalid) > 0 {
		errs = append(errs, &ConfigError{
			Kind:    ErrInvalidProp,
			Steps:   []string{s.name},
			Props:   invalid,
			Message: fmt.Sprintf("schedulable %q references undeclared %s", s.name, quoteAll(invalid)),
		})
	}

	if both := s.needs.Intersect(s.no); !both.Empty() {
		names := both.Names()
		errs = append(errs, &ConfigError{
			Kind:    ErrConflict,
			Steps:   []string{s.name},
			Props:   names,
			Message: fmt.Sprintf("schedulable %q both needs and forbids %s", s.name, quoteAll(names)),
		})
	}
	if s.produces.Empty() && !s.analysis {
		errs = append(errs, &ConfigError{
			Kind:    ErrEmptyProduction,
			Steps:   []string{s.name},
			Message: fmt.Sprintf("schedulable %q produces nothing and is not declared as an analysis", s.name),
		})
	}
	return errs
}

// computeFingerprint hashes names and metadata in declaration order;
// it is part of every plan cache key.
func (r *Registry) computeFingerprint() string {
	h := sha256.New()
	for _, s := range r.steps {
		fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%t|%t\n",
			s.index, s.name, s.needs.Key(), s.no.Key(), s.produces.Key(), s.supports.Key(), s.mandatory, s.analysis)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Frozen reports whether Validate succeeded.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Fingerprint identifies the validated registry content; empty until
// Validate succeeds.
func (r *Registry) Fingerprint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fingerprint
}

// Steps returns the registered steps in declaration order.
func (r *Registry) Steps() []*Step {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Lookup finds a step by name.
func (r *Registry) Lookup(name string) (*Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[canonicalName(name)]
	if !ok {
		return nil, false
	}
	return r.steps[idx], true
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}
