package ir

import "kiln/internal/sched"

// Unit is one compilation unit, a class or an interface. It is the item
// the scheduler replays the pass plan over; a worker owns it for the
// whole plan, so it is not synchronised.
type Unit struct {
	Type  *Node
	props sched.PropSet
}

// NewUnit wraps a Type node.
func NewUnit(t *Node) *Unit {
	return &Unit{Type: t}
}

// Key is the type name.
func (u *Unit) Key() string { return u.Type.Name }

func (u *Unit) Props() *sched.PropSet { return &u.props }

// Has reports whether p is present on the unit.
func (u *Unit) Has(p sched.Prop) bool { return u.props.Has(p) }

// Clone copies the unit: the tree is deep-copied with marker clone
// policies applied, and the property set is copied.
func (u *Unit) Clone() *Unit {
	return &Unit{
		Type:  u.Type.Clone(),
		props: u.props.Clone(),
	}
}

// Method finds a method by name.
func (u *Unit) Method(name string) *Node {
	for _, m := range u.Type.Methods() {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field finds a field by name.
func (u *Unit) Field(name string) *Node {
	for _, f := range u.Type.Fields() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Items adapts units to the scheduler's item list.
func Items(units []*Unit) []sched.Item {
	out := make([]sched.Item, len(units))
	for i, u := range units {
		out[i] = u
	}
	return out
}
