// Package store implements the shared-state store: a keyed table of
// observable current-value slots shared by every sequencer in a test run.
//
// The key set is declared once at construction and closed for the run.
// Values change only through batch updates, which are atomic with respect to
// readers: a reader sees the fully-applied prior state or the fully-applied
// new state, never an interleaving. Watchers receive latest-value
// notifications; intermediate values may be coalesced.
package store
