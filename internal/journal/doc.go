// Package journal provides an optional SQLite-backed record of every
// resolved call and applied shared-state update in a test run.
//
// The journal is a diagnostic surface, not part of the engine contract:
// sequencers write to it through the Recorder interface when one is
// attached, and the trace CLI command reads it back after a run. Rows are
// grouped by a UUIDv7 run token and ordered by a per-journal logical
// sequence number.
package journal
