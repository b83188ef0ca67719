// Package sequencer implements the per-service call engine: ordinal response
// lookup driven by a call counter, simulated latency, scripted failures, and
// propagation of side-effect updates into the shared-state store.
//
// One Sequencer exists per mocked service per test run. Responses are
// selected purely by the count of prior calls to a method, never by argument
// values. Counters increment unconditionally, including for exhausted and
// unconfigured methods, so call-count diagnostics stay accurate.
package sequencer
