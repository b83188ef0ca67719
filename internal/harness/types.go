package harness

// TraceEvent is one resolved call in the scenario trace.
type TraceEvent struct {
	// Seq is the logical sequence number assigned by the harness clock.
	// Events inside a parallel group are ordered by (service, call) before
	// numbering, so the trace is deterministic.
	Seq int64 `json:"seq"`

	// Service and Call identify the invocation.
	Service string `json:"service"`
	Call    string `json:"call"`

	// Outcome is one of "success", "error", "decode_fault", "config_fault".
	Outcome string `json:"outcome"`

	// Value is the decoded payload of a successful value call.
	Value any `json:"value,omitempty"`

	// Error is the fault code for error outcomes.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: every expect clause matched
	// and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains all resolved calls in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expect and assertion failure messages. Empty if
	// Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalState is the shared-state snapshot after the flow completed.
	FinalState map[string]any `json:"final_state,omitempty"`

	// Halted marks a run aborted by a fail-fast exhaustion fault. Steps
	// after the faulting one never executed.
	Halted bool `json:"halted,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// CountTrace returns the number of trace events for one service method.
func (r *Result) CountTrace(service, call string) int {
	n := 0
	for _, event := range r.Trace {
		if event.Service == service && event.Call == call {
			n++
		}
	}
	return n
}
