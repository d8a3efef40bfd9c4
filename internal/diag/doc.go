// Package diag defines the diagnostic model shared by the scheduler, the
// passes and the CLI.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for configuration errors
//     found while building a plan and for execution failures found while
//     running one.
//   - Offer light-weight utilities (Reporter, Bag, SyncReporter) that let
//     producers emit diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag does not perform formatting or IO. Rendering lives in
// internal/diagfmt.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error).
//   - Code – compact numeric identifier (see codes.go) with a stable string
//     form such as SCH1001.
//   - Message – short, actionable text.
//   - Subject – what the diagnostic is about: the data item key and/or the
//     schedulable name. Configuration errors carry only a step; execution
//     errors carry both.
//   - Notes – optional secondary subjects with extra context.
//
// # Concurrency
//
// Bag and DedupReporter are not synchronised. The runner reports from many
// workers, so it must be handed a SyncReporter (or any Reporter that locks
// on its own).
package diag
