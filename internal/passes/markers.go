package passes

import (
	"maps"
	"slices"

	"kiln/internal/bytecode"
	"kiln/internal/ir"
	"kiln/internal/sched"
)

// LocalsMarker maps local names of one method onto slots; parameters
// come first. Later passes may extend it, so copies are independent.
type LocalsMarker struct {
	Slots map[string]int
	Order []string
}

func (m *LocalsMarker) Kind() sched.Prop { return MarkerLocals }

func (m *LocalsMarker) CloneIfNeeded() ir.Marker {
	return &LocalsMarker{
		Slots: maps.Clone(m.Slots),
		Order: slices.Clone(m.Order),
	}
}

// Slot returns the slot of name.
func (m *LocalsMarker) Slot(name string) (int, bool) {
	s, ok := m.Slots[name]
	return s, ok
}

func (m *LocalsMarker) add(name string) {
	if _, ok := m.Slots[name]; ok {
		return
	}
	m.Slots[name] = len(m.Order)
	m.Order = append(m.Order, name)
}

// CodeMarker holds the compiled method. Compiled code is never mutated
// after lowering, so copies share it.
type CodeMarker struct {
	Method *bytecode.Method
}

func (m *CodeMarker) Kind() sched.Prop { return MarkerCode }

func (m *CodeMarker) CloneIfNeeded() ir.Marker { return m }
