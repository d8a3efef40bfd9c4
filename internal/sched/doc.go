// Package sched is the pass-scheduling engine.
//
// # Metadata
//
// A Schedulable declares, as plain data, which properties it needs before
// it runs (Needs), which must still be absent (No), which it guarantees
// afterwards (Produces) and under which features it is eligible
// (Supports). Properties are either tags (identity only) or marker kinds
// (payload attached to IR nodes by the step itself); both are interned
// Props in a process-wide universe.
//
// # Plans
//
// BuildPlan resolves a Request (targets, active features, initial state)
// against a validated Registry into an immutable Plan: a total order in
// which every need is produced upstream, no forbidden property is produced
// upstream of the step that forbids it, and every target holds at the end.
// When several steps are ready at once, declaration order decides. Any
// cycle, missing producer, forbidden-property conflict or unreachable
// target is a *ConfigError and nothing runs.
//
// # Running
//
// Runner replays a Plan over items with a fixed-size worker pool. A worker
// takes one item through the whole plan before taking the next, so item
// state is never shared between goroutines. A failing step fails only its
// item unless the error is Fatal or the runner is in fail-fast mode.
package sched
