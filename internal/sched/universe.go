package sched

import (
	"fmt"
	"strings"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// universe interns names into dense ids starting at 1; 0 stays invalid.
// It is written during package init (declarations) and read afterwards,
// so lookups take the read lock only.
type universe struct {
	what   string
	mu     sync.RWMutex
	byName map[string]uint32
	names  []string
	kinds  []uint8
	descs  []string
}

func newUniverse(what string) *universe {
	return &universe{
		what:   what,
		byName: make(map[string]uint32),
		names:  []string{""},
		kinds:  []uint8{0},
		descs:  []string{""},
	}
}

// canonicalName trims and NFC-normalises a declared name so that two
// spellings of the same text intern to one identity.
func canonicalName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (u *universe) intern(name string, kind uint8, desc string) uint32 {
	name = canonicalName(name)
	if name == "" {
		panic(fmt.Errorf("sched: empty %s name", u.what))
	}

	u.mu.RLock()
	id, ok := u.byName[name]
	u.mu.RUnlock()
	if ok {
		u.check(id, name, kind)
		return id
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if id, ok := u.byName[name]; ok {
		u.checkLocked(id, name, kind)
		return id
	}
	next, err := safecast.Conv[uint32](len(u.names))
	if err != nil {
		panic(fmt.Errorf("sched: %s id overflow: %w", u.what, err))
	}
	u.byName[name] = next
	u.names = append(u.names, name)
	u.kinds = append(u.kinds, kind)
	u.descs = append(u.descs, desc)
	return next
}

func (u *universe) check(id uint32, name string, kind uint8) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	u.checkLocked(id, name, kind)
}

func (u *universe) checkLocked(id uint32, name string, kind uint8) {
	if have := u.kinds[id]; have != kind {
		panic(fmt.Errorf("sched: %s %q redeclared with another kind", u.what, name))
	}
}

func (u *universe) lookup(name string) (uint32, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id, ok := u.byName[canonicalName(name)]
	return id, ok
}

func (u *universe) valid(id uint32) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return id != 0 && int(id) < len(u.names)
}

func (u *universe) name(id uint32) string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if id == 0 || int(id) >= len(u.names) {
		return fmt.Sprintf("<invalid %s %d>", u.what, id)
	}
	return u.names[id]
}

func (u *universe) kind(id uint32) uint8 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if int(id) >= len(u.kinds) {
		return 0
	}
	return u.kinds[id]
}

func (u *universe) desc(id uint32) string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if int(id) >= len(u.descs) {
		return ""
	}
	return u.descs[id]
}

func (u *universe) all() []uint32 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]uint32, 0, len(u.names)-1)
	for i := 1; i < len(u.names); i++ {
		out = append(out, uint32(i))
	}
	return out
}
