package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/understudy-dev/understudy/internal/value"
)

// TraceSnapshot captures the complete trace and final shared state for a
// scenario execution. Serialized with canonical JSON so comparisons are
// byte-stable across runs and platforms.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	FinalState   map[string]any
}

// toCanonicalMap converts the snapshot to plain Go maps for canonical
// JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":     event.Seq,
			"service": event.Service,
			"call":    event.Call,
			"outcome": event.Outcome,
		}
		if event.Value != nil {
			eventMap["value"] = event.Value
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if len(s.FinalState) > 0 {
		out["final_state"] = s.FinalState
	}
	return out
}

// Serialize returns the snapshot's canonical JSON bytes.
func (s *TraceSnapshot) Serialize() ([]byte, error) {
	return value.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-executed result's trace snapshot
// against the named golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		FinalState:   result.FinalState,
	}
	traceJSON, err := snapshot.Serialize()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
