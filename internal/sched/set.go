package sched

import (
	"encoding/binary"
	"encoding/hex"
	"math/bits"
	"strings"
)

// ident is satisfied by the interned identifiers stored in a Set.
type ident interface {
	~uint32
	Name() string
}

// Set is a bitset over interned identifiers. The zero value is empty and
// ready to use. Sets are not synchronised.
type Set[T ident] struct {
	words []uint64
}

// PropSet is a set of tags and marker kinds.
type PropSet = Set[Prop]

// FeatureSet is a set of features.
type FeatureSet = Set[Feature]

// NewSet builds a set holding ids.
func NewSet[T ident](ids ...T) Set[T] {
	var s Set[T]
	s.Add(ids...)
	return s
}

// NewPropSet builds a PropSet holding props.
func NewPropSet(props ...Prop) PropSet {
	return NewSet(props...)
}

// NewFeatureSet builds a FeatureSet holding features.
func NewFeatureSet(features ...Feature) FeatureSet {
	return NewSet(features...)
}

func (s *Set[T]) grow(n int) {
	if len(s.words) >= n {
		return
	}
	words := make([]uint64, n)
	copy(words, s.words)
	s.words = words
}

// Add inserts ids.
func (s *Set[T]) Add(ids ...T) {
	for _, id := range ids {
		w := int(id) / 64
		s.grow(w + 1)
		s.words[w] |= 1 << (uint(id) % 64)
	}
}

// AddAll inserts every member of o.
func (s *Set[T]) AddAll(o Set[T]) {
	s.grow(len(o.words))
	for i, w := range o.words {
		s.words[i] |= w
	}
}

// Has reports membership.
func (s Set[T]) Has(id T) bool {
	w := int(id) / 64
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<(uint(id)%64)) != 0
}

// Contains reports whether every member of o is in s.
func (s Set[T]) Contains(o Set[T]) bool {
	for i, w := range o.words {
		var mine uint64
		if i < len(s.words) {
			mine = s.words[i]
		}
		if w&^mine != 0 {
			return false
		}
	}
	return true
}

// Intersects reports whether s and o share a member.
func (s Set[T]) Intersects(o Set[T]) bool {
	n := min(len(s.words), len(o.words))
	for i := range n {
		if s.words[i]&o.words[i] != 0 {
			return true
		}
	}
	return false
}

// Intersect returns s ∩ o.
func (s Set[T]) Intersect(o Set[T]) Set[T] {
	n := min(len(s.words), len(o.words))
	out := Set[T]{words: make([]uint64, n)}
	for i := range n {
		out.words[i] = s.words[i] & o.words[i]
	}
	return out
}

// Minus returns s \ o.
func (s Set[T]) Minus(o Set[T]) Set[T] {
	out := s.Clone()
	n := min(len(out.words), len(o.words))
	for i := range n {
		out.words[i] &^= o.words[i]
	}
	return out
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether the set has no members.
func (s Set[T]) Empty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Slice returns members in ascending id order.
func (s Set[T]) Slice() []T {
	out := make([]T, 0, s.Len())
	for i, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, T(uint32(i*64+b)))
			w &^= 1 << uint(b)
		}
	}
	return out
}

// Clone returns an independent copy.
func (s Set[T]) Clone() Set[T] {
	if s.words == nil {
		return Set[T]{}
	}
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return Set[T]{words: words}
}

// Equal compares membership, ignoring trailing empty words.
func (s Set[T]) Equal(o Set[T]) bool {
	return s.Contains(o) && o.Contains(s)
}

// Names returns member names in ascending id order.
func (s Set[T]) Names() []string {
	ids := s.Slice()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Name()
	}
	return out
}

func (s Set[T]) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

// Key is a compact, canonical encoding used in cache keys.
func (s Set[T]) Key() string {
	n := len(s.words)
	for n > 0 && s.words[n-1] == 0 {
		n--
	}
	buf := make([]byte, 8*n)
	for i := range n {
		binary.BigEndian.PutUint64(buf[i*8:], s.words[i])
	}
	return hex.EncodeToString(buf)
}
