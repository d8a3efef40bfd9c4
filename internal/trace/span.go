package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	spanIDs   atomic.Uint64
	openSpans atomic.Int64
)

type tracerKey struct{}
type spanKey struct{}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// parentOf returns the id of the span carried by ctx, 0 at the root.
func parentOf(ctx context.Context) uint64 {
	if id, ok := ctx.Value(spanKey{}).(uint64); ok {
		return id
	}
	return 0
}

// Span is an open interval; End closes it. A nil or disabled span is
// valid and does nothing.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	attrs   map[string]string
}

// Start opens a span under the one carried by ctx and returns a context
// carrying the new span. When the tracer does not record scope, ctx is
// returned unchanged so children attach to the nearest recorded span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !t.Level().Records(scope) {
		return ctx, nil
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parentOf(ctx),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	openSpans.Add(1)
	t.Emit(&Event{
		Time:   s.started,
		Kind:   KindBegin,
		Scope:  scope,
		Span:   s.id,
		Parent: s.parent,
		Name:   name,
	})
	return context.WithValue(ctx, spanKey{}, s.id), s
}

// Set attaches an attribute reported with the end event.
func (s *Span) Set(key, value string) *Span {
	if s == nil {
		return nil
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	s.attrs[key] = value
	return s
}

// End closes the span with an optional detail and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	d := time.Since(s.started)
	openSpans.Add(-1)
	s.tracer.Emit(&Event{
		Time:    time.Now(),
		Kind:    KindEnd,
		Scope:   s.scope,
		Span:    s.id,
		Parent:  s.parent,
		Name:    s.name,
		Detail:  detail,
		Elapsed: d,
		Attrs:   s.attrs,
	})
	return d
}

// Point records an instant event under the span carried by ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Level().Records(scope) {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		Span:   spanIDs.Add(1),
		Parent: parentOf(ctx),
		Name:   name,
		Detail: detail,
	})
}
