package sched

// PropKind tells a tag from a marker kind.
type PropKind uint8

const (
	// PropTag is an identity-only boolean property of an item.
	PropTag PropKind = iota + 1
	// PropMarker is the kind of a payload attached to IR nodes.
	PropMarker
)

func (k PropKind) String() string {
	switch k {
	case PropTag:
		return "tag"
	case PropMarker:
		return "marker"
	}
	return "unknown"
}

// Prop is an interned tag or marker kind. The zero Prop is invalid.
type Prop uint32

var props = newUniverse("prop")

// Tag declares (or returns the already declared) tag called name.
// Declaring a name that is already a marker kind panics.
func Tag(name string) Prop {
	return Prop(props.intern(name, uint8(PropTag), ""))
}

// MarkerKind declares (or returns) the marker kind called name.
func MarkerKind(name string) Prop {
	return Prop(props.intern(name, uint8(PropMarker), ""))
}

// LookupProp finds an already declared prop by name.
func LookupProp(name string) (Prop, bool) {
	id, ok := props.lookup(name)
	return Prop(id), ok
}

// Props returns every declared prop in declaration order.
func Props() []Prop {
	ids := props.all()
	out := make([]Prop, len(ids))
	for i, id := range ids {
		out[i] = Prop(id)
	}
	return out
}

// Valid reports whether p was declared.
func (p Prop) Valid() bool { return props.valid(uint32(p)) }

// Name returns the declared name.
func (p Prop) Name() string { return props.name(uint32(p)) }

// Kind returns PropTag or PropMarker.
func (p Prop) Kind() PropKind { return PropKind(props.kind(uint32(p))) }

func (p Prop) String() string { return p.Name() }
