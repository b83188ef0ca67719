package testutil

// FixedRunID is a run token for deterministic journal rows and golden
// traces. Production journals stamp UUIDv7 tokens; tests pass this instead
// so the same scenario produces byte-identical output.
//
// The zero value generates "test-run-default".
type FixedRunID struct {
	token string
}

// NewFixedRunID creates a fixed run token source. An empty token defaults
// to "test-run-default".
func NewFixedRunID(token string) *FixedRunID {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedRunID{token: token}
}

// Generate returns the fixed run token.
func (g *FixedRunID) Generate() string {
	return g.token
}
