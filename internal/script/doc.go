// Package script holds the static description of scripted behavior: one
// Response per call ordinal, one MethodSpec per method, one ServiceEntry per
// mocked service, and the root Configuration that declares shared state.
//
// Everything in this package is immutable once decoded. Configurations are
// authored as YAML documents, validated against an embedded CUE schema, and
// may be round-tripped through a transport-safe string for environment
// variable handoff between processes.
package script
