// Package value defines the payload model for scripted responses and shared
// state: a sealed tagged union over strings, integers, floats, booleans,
// ordered lists, keyed maps, and null.
//
// Values are immutable once constructed and compare structurally - two values
// are equal when their shapes and contents are equal, never by identity.
// Payloads arrive from YAML or JSON configuration documents and are converted
// through FromGo at load time; the engine itself never depends on concrete
// domain types.
package value
