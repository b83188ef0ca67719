package harness

import (
	"fmt"
	"strings"

	"github.com/understudy-dev/understudy/internal/sequencer"
	"github.com/understudy-dev/understudy/internal/store"
	"github.com/understudy-dev/understudy/internal/value"
)

// AssertionError is returned when an assertion fails. It includes the full
// trace so failures can be debugged without re-running the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s.%s -> %s\n", i+1, event.Service, event.Call, event.Outcome)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the finished run and
// returns the failure messages. An empty slice means all assertions held.
func EvaluateAssertions(result *Result, assertions []Assertion, st *store.Store, sequencers map[string]*sequencer.Sequencer) []string {
	var failures []string

	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertStateEquals:
			err = assertStateEquals(result.Trace, st, assertion)
		case AssertCallCount:
			err = assertCallCount(result.Trace, sequencers, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return failures
}

// assertStateEquals checks the final value of one shared-state slot.
func assertStateEquals(trace []TraceEvent, st *store.Store, assertion Assertion) error {
	current, ok := st.CurrentValue(assertion.Key)
	if !ok {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("key %q = %v", assertion.Key, assertion.Value),
			Actual:   "key not declared in shared state",
			Trace:    trace,
		}
	}

	want, err := value.FromGo(assertion.Value)
	if err != nil {
		return fmt.Errorf("malformed expected value for key %q: %w", assertion.Key, err)
	}

	if !value.Equal(current, want) {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("key %q = %v", assertion.Key, assertion.Value),
			Actual:   fmt.Sprintf("key %q = %v", assertion.Key, value.ToGo(current)),
			Trace:    trace,
		}
	}

	return nil
}

// assertCallCount checks how many times one method was invoked, using the
// sequencer's own counter so synthetic and faulted calls are included.
func assertCallCount(trace []TraceEvent, sequencers map[string]*sequencer.Sequencer, assertion Assertion) error {
	seq, ok := sequencers[assertion.Service]
	if !ok {
		if assertion.Count == 0 {
			return nil
		}
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%s.%s called %d times", assertion.Service, assertion.Call, assertion.Count),
			Actual:   fmt.Sprintf("service %q never instantiated", assertion.Service),
			Trace:    trace,
		}
	}

	got := seq.CallCount(assertion.Call)
	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%s.%s called %d times", assertion.Service, assertion.Call, assertion.Count),
			Actual:   fmt.Sprintf("called %d times", got),
			Trace:    trace,
		}
	}

	return nil
}

// assertTraceCount checks the total number of trace events.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	if len(trace) != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d trace events", assertion.Count),
			Actual:   fmt.Sprintf("%d trace events", len(trace)),
			Trace:    trace,
		}
	}
	return nil
}
