package diag

import (
	"cmp"
	"slices"
)

// Bag collects diagnostics up to a limit. Diagnostics past the limit
// are counted in Dropped, never stored. Not safe for concurrent use;
// wrap the reporter in a SyncReporter when workers share it.
type Bag struct {
	items   []Diagnostic
	max     int
	dropped int
}

func NewBag(limit int) *Bag {
	return &Bag{max: max(limit, 0)}
}

// Add stores d unless the bag is full; it reports whether d was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int { return len(b.items) }

// Dropped is how many diagnostics did not fit.
func (b *Bag) Dropped() int { return b.dropped }

// Items exposes the stored diagnostics; callers must not modify the slice.
func (b *Bag) Items() []Diagnostic { return b.items }

// Count returns the number of stored diagnostics of exactly sev.
func (b *Bag) Count(sev Severity) int {
	n := 0
	for i := range b.items {
		if b.items[i].Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any stored diagnostic is an error.
func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

// Sort orders by item, step, severity (errors first), then code.
// Plan-level findings (no item) come first.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Subject.Item, y.Subject.Item),
			cmp.Compare(x.Subject.Step, y.Subject.Step),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

// Dedup drops repeats of the same code, severity, subject and message,
// keeping the first.
func (b *Bag) Dedup() {
	seen := make(map[dedupKey]struct{}, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		key := dedupKey{code: d.Code, sev: d.Severity, subject: d.Subject, msg: d.Message}
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		return false
	})
}
