package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/understudy-dev/understudy/internal/script"
	"github.com/understudy-dev/understudy/internal/store"
	"github.com/understudy-dev/understudy/internal/value"
)

// Outcome labels recorded in the call journal.
const (
	RecordSuccess     = "success"
	RecordError       = "error"
	RecordCancelled   = "cancelled"
	RecordConfigFault = "config_fault"
)

// CallRecord describes one resolved call for diagnostics.
type CallRecord struct {
	Service   string
	Method    string
	Ordinal   int
	Outcome   string
	ErrorCode string
	Synthetic bool
}

// Recorder observes resolved calls and applied shared-state updates.
// Implemented by journal.Journal; recording failures are logged and never
// fail the call itself.
type Recorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
	RecordUpdates(ctx context.Context, service string, updates value.Map) error
}

// Sequencer resolves the Nth configured response for the Nth invocation of
// each method. It exclusively owns its counters; the methods map is
// immutable for the run.
//
// Thread-safety: lookup-and-increment is atomic per instance, so N
// concurrent calls to the same method observe N distinct, strictly
// increasing ordinals. The delay suspension holds no lock.
type Sequencer struct {
	name     string
	methods  map[string]script.MethodSpec
	store    *store.Store
	recorder Recorder

	mu       sync.Mutex
	counters map[string]int
}

// Option configures a Sequencer at construction.
type Option func(*Sequencer)

// WithName attaches a service name used in fault messages, logs, and
// journal rows.
func WithName(name string) Option {
	return func(s *Sequencer) { s.name = name }
}

// WithStore binds the sequencer to a shared-state store. Successful
// responses push their declared updates into it.
func WithStore(st *store.Store) Option {
	return func(s *Sequencer) { s.store = st }
}

// WithRecorder attaches a call recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Sequencer) { s.recorder = r }
}

// New constructs a sequencer over a method map. A nil map is valid: every
// method then resolves to the synthetic neutral success.
func New(methods map[string]script.MethodSpec, opts ...Option) *Sequencer {
	s := &Sequencer{
		methods:  methods,
		counters: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromEntry constructs a sequencer for one configured service entry bound
// to the run's store.
func FromEntry(name string, entry script.ServiceEntry, st *store.Store, opts ...Option) *Sequencer {
	base := []Option{WithName(name), WithStore(st)}
	return New(entry.Methods, append(base, opts...)...)
}

// Name returns the service name, or "" when unnamed.
func (s *Sequencer) Name() string {
	return s.name
}

// CallForValue resolves the next scripted response for method and returns
// its payload.
//
// In order: the response's delay is waited out (cancellable via ctx, holding
// no lock), an error outcome raises a ServiceFault, a missing payload raises
// a ServiceFault with code "missing_value", a payload of the wrong kind
// raises a DecodeFault, and only after a successful decode are the
// response's shared-state updates applied to the bound store.
//
// want constrains the payload kind; value.KindAny accepts anything.
func (s *Sequencer) CallForValue(ctx context.Context, method string, want value.Kind) (value.Value, error) {
	resp, ordinal, synthetic, err := s.next(method)
	if err != nil {
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordConfigFault})
		return nil, err
	}

	if err := s.wait(ctx, resp.Delay); err != nil {
		// Abandon the response: no updates, no counter rollback.
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordCancelled, Synthetic: synthetic})
		return nil, err
	}

	if resp.Outcome == script.OutcomeError {
		detail := resp.Detail()
		fault := &ServiceFault{Service: s.name, Method: method, Code: detail.Code, Message: detail.Message}
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordError, ErrorCode: detail.Code})
		return nil, fault
	}

	if synthetic {
		// Unconfigured or empty-list methods never raise; graceful default.
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordSuccess, Synthetic: true})
		return value.Null{}, nil
	}

	if resp.Value == nil {
		fault := &ServiceFault{
			Service: s.name,
			Method:  method,
			Code:    CodeMissingValue,
			Message: fmt.Sprintf("success response carries no value, caller expected %s", want),
		}
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordError, ErrorCode: CodeMissingValue})
		return nil, fault
	}

	if want != value.KindAny && resp.Value.Kind() != want {
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordError, ErrorCode: "decode"})
		return nil, &DecodeFault{Service: s.name, Method: method, Want: want, Got: resp.Value.Kind()}
	}

	// Updates propagate only after a successful decode.
	s.propagate(ctx, resp.Updates)
	s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordSuccess})
	return resp.Value, nil
}

// CallForEffect resolves the next scripted response for a void method:
// delay and error semantics match CallForValue, with no payload or decode
// step. Shared-state updates apply on any success outcome.
func (s *Sequencer) CallForEffect(ctx context.Context, method string) error {
	resp, ordinal, synthetic, err := s.next(method)
	if err != nil {
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordConfigFault})
		return err
	}

	if err := s.wait(ctx, resp.Delay); err != nil {
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordCancelled, Synthetic: synthetic})
		return err
	}

	if resp.Outcome == script.OutcomeError {
		detail := resp.Detail()
		s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordError, ErrorCode: detail.Code})
		return &ServiceFault{Service: s.name, Method: method, Code: detail.Code, Message: detail.Message}
	}

	s.propagate(ctx, resp.Updates)
	s.record(ctx, CallRecord{Service: s.name, Method: method, Ordinal: ordinal, Outcome: RecordSuccess, Synthetic: synthetic})
	return nil
}

// CallCount returns the number of calls made to method so far, regardless
// of outcome or exhaustion policy.
func (s *Sequencer) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[method]
}

// ResetCounters zeroes every method counter, allowing the sequencer to be
// reused across test phases without reconstruction.
func (s *Sequencer) ResetCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.counters)
}

// next atomically claims the calling ordinal for method and resolves its
// response. synthetic marks the neutral empty-value success returned for
// unconfigured methods and for RepeatLast exhaustion of an empty list.
func (s *Sequencer) next(method string) (resp script.Response, ordinal int, synthetic bool, err error) {
	s.mu.Lock()
	ordinal = s.counters[method]
	s.counters[method] = ordinal + 1
	spec, configured := s.methods[method]
	s.mu.Unlock()

	if !configured {
		slog.Debug("call to unconfigured method", "service", s.name, "method", method, "ordinal", ordinal)
		return neutralResponse(), ordinal, true, nil
	}

	n := len(spec.Responses)
	switch {
	case ordinal < n:
		return spec.Responses[ordinal], ordinal, false, nil
	case spec.Policy == script.FailFast:
		return script.Response{}, ordinal, false, &ConfigurationFault{
			Service:   s.name,
			Method:    method,
			Policy:    spec.Policy,
			CallIndex: ordinal,
		}
	case n == 0:
		return neutralResponse(), ordinal, true, nil
	default:
		return spec.Responses[n-1], ordinal, false, nil
	}
}

// wait suspends for the response's simulated latency. Only the calling
// operation's progress pauses; no lock is held.
func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// propagate pushes a successful response's updates into the bound store.
func (s *Sequencer) propagate(ctx context.Context, updates value.Map) {
	if s.store == nil || len(updates) == 0 {
		return
	}
	s.store.ApplyUpdates(updates)
	if s.recorder != nil {
		if err := s.recorder.RecordUpdates(ctx, s.name, updates); err != nil {
			slog.Warn("journal update record failed", "service", s.name, "error", err)
		}
	}
}

func (s *Sequencer) record(ctx context.Context, rec CallRecord) {
	if s.recorder == nil {
		return
	}
	// Cancelled calls are still journaled; detach from the caller's context.
	ctx = context.WithoutCancel(ctx)
	if err := s.recorder.RecordCall(ctx, rec); err != nil {
		slog.Warn("journal call record failed", "service", rec.Service, "method", rec.Method, "error", err)
	}
}

func neutralResponse() script.Response {
	return script.Response{Outcome: script.OutcomeSuccess, Value: value.Null{}}
}
