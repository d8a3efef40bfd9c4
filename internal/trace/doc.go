// Package trace records what the scheduler is doing: driver phases, plan
// construction, each item going through the plan and each step applied
// to it. It is meant for finding slow passes and hung runs.
//
//	kiln build --trace=- --trace-level=step program.toml
//	kiln build --trace=run.ndjson --trace-mode=ring program.toml
//
// A tracer travels in the context. Start opens a span below whatever
// span the context already carries:
//
//	ctx, span := trace.Start(ctx, trace.ScopePlan, "build-plan")
//	defer span.End("")
//
// Stream tracers write every event as it happens. Ring tracers keep only
// the last events in memory and write them out on Close, which is enough
// to see where a run stopped.
package trace
