package sched

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// PlanCache memoises plans per (registry, targets, features, initial).
// Concurrent callers asking for the same key share one build, and both
// plans and configuration errors are remembered.
type PlanCache struct {
	builder Builder
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
	builds  atomic.Int64
}

type cacheEntry struct {
	plan *Plan
	err  error
}

// NewPlanCache caches plans built by b.
func NewPlanCache(b Builder) *PlanCache {
	return &PlanCache{
		builder: b,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the plan for req, building it on first use.
func (c *PlanCache) Get(ctx context.Context, req Request) (*Plan, error) {
	if err := c.builder.Registry.Validate(c.builder.Reporter); err != nil {
		return nil, err
	}
	key := planKey(c.builder.Registry.Fingerprint(), req)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e.plan, e.err
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return e, nil
		}
		c.builds.Add(1)
		plan, err := c.builder.Build(ctx, req)
		e = cacheEntry{plan: plan, err: err}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e, nil
	})
	e = v.(cacheEntry)
	return e.plan, e.err
}

// Builds counts how many plans were actually constructed.
func (c *PlanCache) Builds() int64 { return c.builds.Load() }

// Len returns the number of cached keys.
func (c *PlanCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
