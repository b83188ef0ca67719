package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutScenarioGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/checkout.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestTraceSnapshotSerializeIsDeterministic(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "determinism",
		Trace: []TraceEvent{
			{Seq: 1, Service: "svc", Call: "ping", Outcome: "success", Value: "pong"},
			{Seq: 2, Service: "svc", Call: "ping", Outcome: "error", Error: "timeout"},
		},
		FinalState: map[string]any{"b": int64(2), "a": int64(1)},
	}

	first, err := snapshot.Serialize()
	require.NoError(t, err)
	second, err := snapshot.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	want := `{"final_state":{"a":1,"b":2},"scenario_name":"determinism",` +
		`"trace":[{"call":"ping","outcome":"success","seq":1,"service":"svc","value":"pong"},` +
		`{"call":"ping","error":"timeout","outcome":"error","seq":2,"service":"svc"}]}`
	assert.Equal(t, want, string(first))
}
