package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/understudy-dev/understudy/internal/script"
)

// Scenario defines a conformance test scenario: a stand-in configuration,
// an ordered flow of calls against it, and assertions over the final
// shared state and call counts.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an inline stand-in configuration document.
	// Exactly one of Config or ConfigFile must be set.
	Config *script.Document `yaml:"config,omitempty"`

	// ConfigFile is a path to a configuration file, resolved relative to
	// the scenario file location.
	ConfigFile string `yaml:"config_file,omitempty"`

	// Flow contains the calls to make, in order. A step with a parallel
	// group fans its sub-steps out concurrently.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final shared state, per-method call counts,
	// and trace length after the flow completes.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one entry in the scenario flow: either a single call or a
// parallel group of calls.
type Step struct {
	// Service and Call name the sequencer and method to invoke.
	Service string `yaml:"service,omitempty"`
	Call    string `yaml:"call,omitempty"`

	// Effect invokes the method for its side effects only, skipping the
	// payload and decode step.
	Effect bool `yaml:"effect,omitempty"`

	// Expect validates the call's outcome. If nil the outcome is recorded
	// in the trace but not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Parallel fans sub-steps out concurrently. Mutually exclusive with
	// Service/Call; sub-steps may not nest further groups.
	Parallel []Step `yaml:"parallel,omitempty"`
}

// ExpectClause specifies the expected outcome of one call.
type ExpectClause struct {
	// Kind constrains the payload kind passed to the decode step
	// ("string", "int", "map", ...). Empty means any.
	Kind string `yaml:"kind,omitempty"`

	// Value is the expected payload, compared structurally.
	Value any `yaml:"value,omitempty"`

	// Error is the expected scripted-failure code. Mutually exclusive
	// with Value.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the run after the flow finishes.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Key and Value are used by state_equals: the shared-state slot and
	// its expected final value.
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Service and Call are used by call_count.
	Service string `yaml:"service,omitempty"`
	Call    string `yaml:"call,omitempty"`

	// Count is the expected number (call_count, trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStateEquals = "state_equals"
	AssertCallCount   = "call_count"
	AssertTraceCount  = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. ConfigFile paths are
// resolved relative to the scenario file's directory. Returns an error if
// the file is malformed, contains unknown fields (typos), or is missing
// required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.ConfigFile != "" && !filepath.IsAbs(scenario.ConfigFile) {
		scenario.ConfigFile = filepath.Join(filepath.Dir(path), scenario.ConfigFile)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Config == nil && s.ConfigFile == "":
		return fmt.Errorf("one of config or config_file is required")
	case s.Config != nil && s.ConfigFile != "":
		return fmt.Errorf("config and config_file are mutually exclusive")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), &step, true); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates one flow step. allowParallel is false for
// sub-steps inside a group, so groups cannot nest.
func validateStep(label string, s *Step, allowParallel bool) error {
	if len(s.Parallel) > 0 {
		if !allowParallel {
			return fmt.Errorf("%s: parallel groups may not nest", label)
		}
		if s.Service != "" || s.Call != "" {
			return fmt.Errorf("%s: parallel is mutually exclusive with service/call", label)
		}
		for i, sub := range s.Parallel {
			if err := validateStep(fmt.Sprintf("%s.parallel[%d]", label, i), &sub, false); err != nil {
				return err
			}
		}
		return nil
	}

	if s.Service == "" {
		return fmt.Errorf("%s: service is required", label)
	}
	if s.Call == "" {
		return fmt.Errorf("%s: call is required", label)
	}

	if s.Expect != nil {
		if s.Expect.Error != "" && s.Expect.Value != nil {
			return fmt.Errorf("%s.expect: value and error are mutually exclusive", label)
		}
		if s.Effect && (s.Expect.Value != nil || s.Expect.Kind != "") {
			return fmt.Errorf("%s.expect: effect calls carry no value", label)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertStateEquals:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for state_equals", index)
		}
	case AssertCallCount:
		if a.Service == "" || a.Call == "" {
			return fmt.Errorf("assertions[%d]: service and call are required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
