package sequencer

import (
	"errors"
	"fmt"

	"github.com/understudy-dev/understudy/internal/script"
	"github.com/understudy-dev/understudy/internal/value"
)

// CodeMissingValue is the ServiceFault code raised when a success-outcome
// response is consumed by a value-returning call but carries no payload.
const CodeMissingValue = "missing_value"

// ServiceFault is the recoverable failure a call site receives: either a
// scripted error outcome or a structurally missing success payload. It is
// always propagated to the caller, never logged and suppressed.
type ServiceFault struct {
	// Service names the sequencer instance, when known.
	Service string

	// Method is the caller-supplied method key.
	Method string

	// Code and Message carry the test-author-chosen failure identity.
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ServiceFault) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s: %s (service=%s, method=%s)", e.Code, e.Message, e.Service, e.Method)
	}
	return fmt.Sprintf("%s: %s (method=%s)", e.Code, e.Message, e.Method)
}

// Detail returns the fault's code and message as an ErrorDetail.
func (e *ServiceFault) Detail() script.ErrorDetail {
	return script.ErrorDetail{Code: e.Code, Message: e.Message}
}

// DecodeFault reports a scripted success payload that does not conform to
// the shape the caller expected. It is distinct from ServiceFault so callers
// can tell "the mock says this operation failed" from "the mock is
// misconfigured".
type DecodeFault struct {
	Service string
	Method  string
	Want    value.Kind
	Got     value.Kind
}

// Error implements the error interface.
func (e *DecodeFault) Error() string {
	return fmt.Sprintf("scripted value for method %q has kind %s, caller expected %s", e.Method, e.Got, e.Want)
}

// ConfigurationFault signals a test-authoring defect: a call past the end of
// a fail-fast response list. It is deliberately fatal - the run should halt
// rather than recover, since its purpose is to surface uninstrumented extra
// calls during authoring.
type ConfigurationFault struct {
	Service   string
	Method    string
	Policy    script.ExhaustionPolicy
	CallIndex int
}

// Error implements the error interface.
func (e *ConfigurationFault) Error() string {
	return fmt.Sprintf("method %q exhausted: call index %d exceeds configured responses (policy=%s)",
		e.Method, e.CallIndex, e.Policy)
}

// IsServiceFault reports whether err is or wraps a ServiceFault.
func IsServiceFault(err error) bool {
	var sf *ServiceFault
	return errors.As(err, &sf)
}

// IsDecodeFault reports whether err is or wraps a DecodeFault.
func IsDecodeFault(err error) bool {
	var df *DecodeFault
	return errors.As(err, &df)
}

// IsConfigurationFault reports whether err is or wraps a ConfigurationFault.
func IsConfigurationFault(err error) bool {
	var cf *ConfigurationFault
	return errors.As(err, &cf)
}
