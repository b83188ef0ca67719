package script

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/understudy-dev/understudy/internal/value"
)

const sampleConfig = `
shared_state:
  status: 0
  banner: "ready"
services:
  payments:
    initial_state:
      balance: 100
    bindings:
      status: status
    methods:
      charge:
        policy: repeat_last
        responses:
          - outcome: error
            error:
              code: timeout
              message: gateway timed out
          - value: 3
            delay_ms: 50
            updates:
              status: 3
  catalog:
    methods:
      listItems:
        policy: fail_fast
        responses:
          - value: [widget, gadget]
`

func TestDecodeFullDocument(t *testing.T) {
	cfg, err := Decode([]byte(sampleConfig))
	require.NoError(t, err)

	assert.True(t, value.Equal(value.Int(0), cfg.SharedState["status"]))
	assert.True(t, value.Equal(value.String("ready"), cfg.SharedState["banner"]))

	payments, ok := cfg.Services["payments"]
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(100), payments.InitialState["balance"]))
	assert.Equal(t, "status", payments.Bindings["status"])

	charge, ok := payments.Methods["charge"]
	require.True(t, ok)
	assert.Equal(t, RepeatLast, charge.Policy)
	require.Len(t, charge.Responses, 2)

	first := charge.Responses[0]
	assert.Equal(t, OutcomeError, first.Outcome)
	require.NotNil(t, first.Error)
	assert.Equal(t, "timeout", first.Error.Code)

	second := charge.Responses[1]
	assert.Equal(t, OutcomeSuccess, second.Outcome)
	assert.True(t, value.Equal(value.Int(3), second.Value))
	assert.Equal(t, 50*time.Millisecond, second.Delay)
	assert.True(t, value.Equal(value.Int(3), second.Updates["status"]))

	catalog := cfg.Services["catalog"]
	list := catalog.Methods["listItems"]
	assert.Equal(t, FailFast, list.Policy)
	assert.True(t, value.Equal(value.List{value.String("widget"), value.String("gadget")}, list.Responses[0].Value))
}

func TestDecodeOutcomeDefaultsToSuccess(t *testing.T) {
	cfg, err := Decode([]byte(`
services:
  svc:
    methods:
      ping:
        responses:
          - value: pong
`))
	require.NoError(t, err)
	resp := cfg.Services["svc"].Methods["ping"].Responses[0]
	assert.Equal(t, OutcomeSuccess, resp.Outcome)
}

func TestDecodeEmptyResponsesTolerated(t *testing.T) {
	cfg, err := Decode([]byte(`
services:
  svc:
    methods:
      noop:
        responses: []
`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Services["svc"].Methods["noop"].Responses)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`
services:
  svc:
    methods:
      ping:
        respones:
          - value: pong
`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownOutcome(t *testing.T) {
	_, err := Decode([]byte(`
services:
  svc:
    methods:
      ping:
        responses:
          - outcome: maybe
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown outcome")
}

func TestDecodeRejectsErrorDetailOnSuccess(t *testing.T) {
	_, err := Decode([]byte(`
services:
  svc:
    methods:
      ping:
        responses:
          - outcome: success
            error:
              code: oops
`))
	assert.Error(t, err)
}

func TestDecodeRejectsNegativeDelay(t *testing.T) {
	_, err := Decode([]byte(`
services:
  svc:
    methods:
      ping:
        responses:
          - delay_ms: -5
`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownPolicy(t *testing.T) {
	_, err := Decode([]byte(`
services:
  svc:
    methods:
      ping:
        policy: wrap_around
        responses: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhaustion policy")
}

func TestResponseDetailSubstitutesUnknown(t *testing.T) {
	resp := Response{Outcome: OutcomeError}
	assert.Equal(t, UnknownError, resp.Detail())

	resp.Error = &ErrorDetail{Code: "timeout", Message: "gateway timed out"}
	assert.Equal(t, "timeout", resp.Detail().Code)
}

func TestUndeclaredUpdateKeys(t *testing.T) {
	cfg, err := Decode([]byte(`
shared_state:
  status: 0
services:
  svc:
    methods:
      m:
        responses:
          - updates:
              status: 1
              stattus: 2
`))
	require.NoError(t, err)

	warnings := cfg.UndeclaredUpdateKeys()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "stattus")
}
