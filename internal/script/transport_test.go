package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/understudy-dev/understudy/internal/value"
)

func TestTransportRoundTrip(t *testing.T) {
	encoded, err := EncodeTransport([]byte(sampleConfig))
	require.NoError(t, err)

	// URL alphabet only - must survive an env block unquoted
	for _, r := range encoded {
		assert.True(t,
			(r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
				(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '=',
			"unexpected transport character %q", r)
	}

	cfg, err := DecodeTransport(encoded)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Int(0), cfg.SharedState["status"]))
	assert.Contains(t, cfg.Services, "payments")
}

func TestDecodeTransportRejectsGarbage(t *testing.T) {
	_, err := DecodeTransport("not-base64!!!")
	assert.Error(t, err)

	// Valid base64 but not gzip
	_, err = DecodeTransport("aGVsbG8=")
	assert.Error(t, err)
}
