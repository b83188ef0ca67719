package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsSampleConfig(t *testing.T) {
	assert.NoError(t, Validate([]byte(sampleConfig)))
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	err := Validate([]byte(`
services:
  svc:
    methods:
      ping:
        policy: wrap_around
        responses: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidateRejectsUnknownField(t *testing.T) {
	err := Validate([]byte(`
services:
  svc:
    method_list:
      ping:
        responses: []
`))
	assert.Error(t, err)
}

func TestValidateRejectsBadOutcome(t *testing.T) {
	err := Validate([]byte(`
services:
  svc:
    methods:
      ping:
        responses:
          - outcome: flaky
`))
	assert.Error(t, err)
}

func TestValidateRejectsNonStringBinding(t *testing.T) {
	err := Validate([]byte(`
services:
  svc:
    bindings:
      status: 7
    methods: {}
`))
	assert.Error(t, err)
}

func TestValidateRejectsMalformedYAML(t *testing.T) {
	err := Validate([]byte("services: [unclosed"))
	assert.Error(t, err)
}
