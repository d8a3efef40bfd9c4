package sched

import (
	"fmt"
	"strings"
)

// Feature is an interned optional capability requested by configuration.
type Feature uint32

var features = newUniverse("feature")

// DeclareFeature declares (or returns) the feature called name.
func DeclareFeature(name, description string) Feature {
	return Feature(features.intern(name, 1, description))
}

// LookupFeature finds a declared feature by name.
func LookupFeature(name string) (Feature, bool) {
	id, ok := features.lookup(name)
	return Feature(id), ok
}

// Features returns every declared feature in declaration order.
func Features() []Feature {
	ids := features.all()
	out := make([]Feature, len(ids))
	for i, id := range ids {
		out[i] = Feature(id)
	}
	return out
}

// ParseFeatures resolves names into a FeatureSet. Unknown names are a
// configuration error.
func ParseFeatures(names []string) (FeatureSet, error) {
	var set FeatureSet
	var unknown []string
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, ok := LookupFeature(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		set.Add(f)
	}
	if len(unknown) > 0 {
		return set, &ConfigError{
			Kind:    ErrUnknownFeature,
			Props:   unknown,
			Message: fmt.Sprintf("unknown feature(s): %s", strings.Join(unknown, ", ")),
		}
	}
	return set, nil
}

// ParseProps resolves names into a PropSet.
func ParseProps(names []string) (PropSet, error) {
	var set PropSet
	var unknown []string
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, ok := LookupProp(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		set.Add(p)
	}
	if len(unknown) > 0 {
		return set, &ConfigError{
			Kind:    ErrInvalidProp,
			Props:   unknown,
			Message: fmt.Sprintf("unknown tag or marker(s): %s", strings.Join(unknown, ", ")),
		}
	}
	return set, nil
}

// Valid reports whether f was declared.
func (f Feature) Valid() bool { return features.valid(uint32(f)) }

// Name returns the declared name.
func (f Feature) Name() string { return features.name(uint32(f)) }

// Description returns the declared description.
func (f Feature) Description() string { return features.desc(uint32(f)) }

func (f Feature) String() string { return f.Name() }
