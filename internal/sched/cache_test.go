package sched

import (
	"sync"
	"testing"
)

func TestPlanCacheBuildsOncePerKey(t *testing.T) {
	p := tags("t.cache", "a", "b")
	f := DeclareFeature("t.cache.extra", "")
	reg := NewRegistry()
	reg.MustRegister(
		step("make-a", nil, p[:1]),
		Schedulable{Name: "make-b", Needs: p[:1], Produces: p[1:], Supports: []Feature{f}, Mandatory: true, Run: noop},
	)
	cache := NewPlanCache(Builder{Registry: reg})
	req := Request{Targets: NewPropSet(p[0])}

	var wg sync.WaitGroup
	plans := make([]*Plan, 16)
	for i := range plans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plan, err := cache.Get(t.Context(), req)
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			plans[i] = plan
		}()
	}
	wg.Wait()
	if cache.Builds() != 1 {
		t.Fatalf("builds = %d, want 1", cache.Builds())
	}
	for _, plan := range plans[1:] {
		if plan != plans[0] {
			t.Fatalf("cache returned distinct plans for one key")
		}
	}

	withF, err := cache.Get(t.Context(), Request{Targets: NewPropSet(p[0]), Features: NewFeatureSet(f)})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if withF == plans[0] || withF.Len() != 2 || cache.Builds() != 2 {
		t.Fatalf("feature set not part of key: builds=%d", cache.Builds())
	}
}

func TestPlanCacheRemembersErrors(t *testing.T) {
	p := tags("t.cacheerr", "never")
	reg := NewRegistry()
	reg.MustRegister(step("nothing", nil, tags("t.cacheerr", "other")))
	cache := NewPlanCache(Builder{Registry: reg})
	req := Request{Targets: NewPropSet(p...)}
	for range 3 {
		if _, err := cache.Get(t.Context(), req); hasKind(err, ErrUnreachableTarget) == nil {
			t.Fatalf("expected unreachable target, got %v", err)
		}
	}
	if cache.Builds() != 1 {
		t.Fatalf("builds = %d, want 1", cache.Builds())
	}
}
