package script

import (
	"fmt"
	"sort"
	"time"

	"github.com/understudy-dev/understudy/internal/value"
)

// Outcome classifies a scripted response as success or failure.
type Outcome int

const (
	// OutcomeSuccess resolves the call with the response payload and applies
	// any declared shared-state updates.
	OutcomeSuccess Outcome = iota
	// OutcomeError resolves the call with a ServiceFault carrying the
	// response's error detail.
	OutcomeError
)

// String returns the lowercase outcome name as used in configuration documents.
func (o Outcome) String() string {
	if o == OutcomeError {
		return "error"
	}
	return "success"
}

// ExhaustionPolicy governs behavior once a method's response list is consumed.
type ExhaustionPolicy int

const (
	// RepeatLast keeps returning the final configured response. The default.
	RepeatLast ExhaustionPolicy = iota
	// FailFast aborts the run on the first call past the configured list.
	// Its purpose is to surface uninstrumented extra calls during authoring.
	FailFast
)

// String returns the snake_case policy name as used in configuration documents.
func (p ExhaustionPolicy) String() string {
	if p == FailFast {
		return "fail_fast"
	}
	return "repeat_last"
}

// PolicyFromString parses a policy name. The empty string parses as RepeatLast.
func PolicyFromString(s string) (ExhaustionPolicy, error) {
	switch s {
	case "", "repeat_last":
		return RepeatLast, nil
	case "fail_fast":
		return FailFast, nil
	default:
		return RepeatLast, fmt.Errorf("unknown exhaustion policy %q", s)
	}
}

// ErrorDetail carries the test-author-chosen identity of a scripted failure.
type ErrorDetail struct {
	Code    string
	Message string
}

// UnknownError is substituted when an error-outcome response declares no
// error detail.
var UnknownError = ErrorDetail{Code: "unknown", Message: "scripted error with no detail"}

// Response describes one scripted outcome for one call ordinal.
//
// An error-outcome response without a detail resolves with UnknownError.
// A success-outcome response without a value is tolerated at construction;
// it only becomes a fault when a value-returning call consumes it.
type Response struct {
	Outcome Outcome
	Value   value.Value
	Error   *ErrorDetail
	Delay   time.Duration
	Updates value.Map
}

// Detail returns the response's error detail, substituting UnknownError
// when none was declared.
func (r Response) Detail() ErrorDetail {
	if r.Error != nil {
		return *r.Error
	}
	return UnknownError
}

// MethodSpec is one method's ordered response list plus its exhaustion
// policy. Responses may be empty; the engine tolerates this.
type MethodSpec struct {
	Responses []Response
	Policy    ExhaustionPolicy
}

// ServiceEntry is the per-service slice of configuration used to construct
// one sequencer instance.
type ServiceEntry struct {
	// InitialState holds service-local observable property seeds, consulted
	// when a bound shared key is absent from the store.
	InitialState value.Map

	// Bindings maps service-local property names to shared-state keys.
	Bindings map[string]string

	// Methods maps method names to their scripted response lists.
	Methods map[string]MethodSpec
}

// Configuration is the root declarative structure. Constructed once per test
// run and read-only thereafter.
type Configuration struct {
	// SharedState declares the closed key set of the shared store along with
	// each key's initial value.
	SharedState value.Map

	// Services maps service names to their entries.
	Services map[string]ServiceEntry
}

// UndeclaredUpdateKeys reports every shared-state update key referenced by a
// response that is not declared in SharedState. Such updates are silent
// no-ops at runtime; surfacing them at validation time catches the common
// authoring mistake without changing engine semantics.
func (c *Configuration) UndeclaredUpdateKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for svc, entry := range c.Services {
		for method, spec := range entry.Methods {
			for i, resp := range spec.Responses {
				for key := range resp.Updates {
					if _, declared := c.SharedState[key]; declared {
						continue
					}
					ref := fmt.Sprintf("%s.%s[%d]: %s", svc, method, i, key)
					if !seen[ref] {
						seen[ref] = true
						keys = append(keys, ref)
					}
				}
			}
		}
	}
	sort.Strings(keys)
	return keys
}
