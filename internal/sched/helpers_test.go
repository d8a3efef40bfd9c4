package sched

import (
	"context"
	"strings"
	"sync"
	"time"
)

type testItem struct {
	key   string
	props PropSet
}

func (t *testItem) Key() string     { return t.key }
func (t *testItem) Props() *PropSet { return &t.props }

func noop(context.Context, *StepContext, Item) error { return nil }

// tags declares tags under a test-local prefix so tests never share
// identities by accident.
func tags(prefix string, names ...string) []Prop {
	out := make([]Prop, len(names))
	for i, n := range names {
		out[i] = Tag(prefix + "." + n)
	}
	return out
}

func step(name string, needs, produces []Prop) Schedulable {
	return Schedulable{Name: name, Needs: needs, Produces: produces, Run: noop}
}

type fatalfer interface {
	Helper()
	Fatalf(format string, args ...any)
}

func mustBuild(t fatalfer, reg *Registry, req Request) *Plan {
	t.Helper()
	plan, err := BuildPlan(reg, req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	return plan
}

func kinds(err error) []ErrorKind {
	var out []ErrorKind
	for _, ce := range ConfigErrors(err) {
		out = append(out, ce.Kind)
	}
	return out
}

func hasKind(err error, k ErrorKind) *ConfigError {
	for _, ce := range ConfigErrors(err) {
		if ce.Kind == k {
			return ce
		}
	}
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	begun    map[string][]string
	steps    map[string][]string
	finished map[string]Status
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		begun:    make(map[string][]string),
		steps:    make(map[string][]string),
		finished: make(map[string]Status),
	}
}

func (o *recordingObserver) ItemStarted(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, key)
}

func (o *recordingObserver) StepStarted(key string, s *Step, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.begun[key] = append(o.begun[key], s.Name())
}

func (o *recordingObserver) StepFinished(key string, s *Step, _ int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	name := s.Name()
	if err != nil {
		name += "!"
	}
	o.steps[key] = append(o.steps[key], name)
}

func (o *recordingObserver) ItemFinished(out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[out.Key] = out.Status
}

func joinNames(names []string) string {
	return strings.Join(names, ",")
}
