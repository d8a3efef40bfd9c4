package ir

import (
	"fmt"
	"maps"
	"slices"

	"kiln/internal/sched"
)

// Marker is per-node data attached by a pass. Kind is the marker prop the
// schedulables declare in their needs/produces.
type Marker interface {
	Kind() sched.Prop
	// CloneIfNeeded returns the marker itself when copies may share it, or
	// an independent instance with an equal payload.
	CloneIfNeeded() Marker
}

// SetMarker attaches m, replacing a marker of the same kind.
func (n *Node) SetMarker(m Marker) {
	k := m.Kind()
	if k.Kind() != sched.PropMarker {
		panic(fmt.Errorf("ir: %q is not a marker kind", k.Name()))
	}
	if n.markers == nil {
		n.markers = make(map[sched.Prop]Marker)
	}
	n.markers[k] = m
}

// Marker returns the marker of kind, or nil.
func (n *Node) Marker(kind sched.Prop) Marker {
	if n == nil {
		return nil
	}
	return n.markers[kind]
}

// RemoveMarker detaches and returns the marker of kind.
func (n *Node) RemoveMarker(kind sched.Prop) Marker {
	m := n.markers[kind]
	delete(n.markers, kind)
	return m
}

// Markers lists attached markers ordered by kind.
func (n *Node) Markers() []Marker {
	keys := slices.Sorted(maps.Keys(n.markers))
	out := make([]Marker, len(keys))
	for i, k := range keys {
		out[i] = n.markers[k]
	}
	return out
}

// MarkerOf is a typed Marker lookup.
func MarkerOf[M Marker](n *Node, kind sched.Prop) (M, bool) {
	m, ok := n.Marker(kind).(M)
	return m, ok
}
