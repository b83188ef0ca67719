// Package harness provides a conformance testing framework for the
// understudy engine.
//
// A scenario bundles a stand-in configuration, an ordered flow of calls,
// and assertions over the final shared state. The harness builds a real
// store and real sequencers from the configuration and drives them exactly
// as a system under test would, so traces reflect engine behavior rather
// than manufactured expectations. A logical step clock stamps every
// resolved call, and parallel groups are ordered deterministically before
// numbering, which keeps traces byte-stable for golden comparison.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/understudy-dev/understudy/internal/script"
	"github.com/understudy-dev/understudy/internal/sequencer"
	"github.com/understudy-dev/understudy/internal/store"
	"github.com/understudy-dev/understudy/internal/testutil"
	"github.com/understudy-dev/understudy/internal/value"
)

// Options configures a scenario run.
type Options struct {
	// Recorder journals every resolved call and state update. Nil disables
	// journaling.
	Recorder sequencer.Recorder

	// Logger receives per-step progress. Nil discards.
	Logger *slog.Logger
}

// Harness executes one scenario against a fresh store and sequencer set.
type Harness struct {
	store      *store.Store
	sequencers map[string]*sequencer.Sequencer
	clock      *testutil.StepClock
	recorder   sequencer.Recorder
	logger     *slog.Logger

	mu sync.Mutex
}

// Run executes a scenario and returns the result. Each scenario runs
// against a fresh store and sequencer set for isolation.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(scenario, Options{})
}

// RunWithOptions executes a scenario with journaling and logging attached.
//
// Returns an error only for infrastructure failures (unreadable config,
// malformed payloads). Expect and assertion failures are reported through
// the result; a fail-fast exhaustion fault halts the flow and marks the
// result Halted.
func RunWithOptions(scenario *Scenario, opts Options) (*Result, error) {
	cfg, err := loadConfig(scenario)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h := &Harness{
		store:      store.New(cfg.SharedState),
		sequencers: make(map[string]*sequencer.Sequencer, len(cfg.Services)),
		clock:      testutil.NewStepClock(),
		recorder:   opts.Recorder,
		logger:     logger,
	}
	for name, entry := range cfg.Services {
		h.sequencers[name] = sequencer.FromEntry(name, entry, h.store,
			sequencer.WithRecorder(opts.Recorder))
	}

	result := NewResult()
	h.executeFlow(context.Background(), scenario.Flow, result)

	result.FinalState = value.ToGo(h.store.Snapshot()).(map[string]any)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h.store, h.sequencers) {
		result.AddError(msg)
	}

	return result, nil
}

// Sequencer returns the named service sequencer, creating an unconfigured
// one on first use. Calls to services absent from the configuration resolve
// to synthetic neutral successes rather than failing the scenario.
func (h *Harness) Sequencer(name string) *sequencer.Sequencer {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq, ok := h.sequencers[name]
	if !ok {
		seq = sequencer.New(nil,
			sequencer.WithName(name),
			sequencer.WithStore(h.store),
			sequencer.WithRecorder(h.recorder))
		h.sequencers[name] = seq
	}
	return seq
}

func loadConfig(scenario *Scenario) (*script.Configuration, error) {
	if scenario.ConfigFile != "" {
		cfg, err := script.DecodeFile(scenario.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
		return cfg, nil
	}
	if scenario.Config == nil {
		return nil, fmt.Errorf("scenario %q: one of config or config_file is required", scenario.Name)
	}
	cfg, err := script.FromDocument(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: inline config: %w", scenario.Name, err)
	}
	return cfg, nil
}

// executeFlow runs every flow step, stamping trace events in order. A
// fail-fast exhaustion fault halts the remaining flow.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) {
	for i, step := range flow {
		label := fmt.Sprintf("flow[%d]", i)

		if len(step.Parallel) > 0 {
			if h.executeParallel(ctx, label, step.Parallel, result) {
				result.Halted = true
				return
			}
			continue
		}

		event, callErr := h.executeCall(ctx, step)
		event.Seq = h.clock.Next()
		result.Trace = append(result.Trace, event)
		h.validateExpect(label, &step, event, result)

		h.logger.Info("flow step completed",
			"step", label,
			"service", event.Service,
			"call", event.Call,
			"outcome", event.Outcome,
		)

		if sequencer.IsConfigurationFault(callErr) {
			result.AddError(fmt.Sprintf("%s: %v", label, callErr))
			result.Halted = true
			return
		}
	}
}

// executeParallel fans sub-steps out concurrently, then orders their
// events by (service, call, error) before stamping sequence numbers.
// Reports whether the group hit a fail-fast exhaustion fault.
func (h *Harness) executeParallel(ctx context.Context, label string, steps []Step, result *Result) bool {
	events := make([]TraceEvent, len(steps))
	errs := make([]error, len(steps))

	g, gctx := errgroup.WithContext(ctx)
	for i, step := range steps {
		i, step := i, step
		g.Go(func() error {
			events[i], errs[i] = h.executeCall(gctx, step)
			return nil
		})
	}
	g.Wait()

	order := make([]int, len(steps))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ea, eb := events[order[a]], events[order[b]]
		if ea.Service != eb.Service {
			return ea.Service < eb.Service
		}
		if ea.Call != eb.Call {
			return ea.Call < eb.Call
		}
		return ea.Error < eb.Error
	})

	halted := false
	for _, i := range order {
		events[i].Seq = h.clock.Next()
		result.Trace = append(result.Trace, events[i])
		h.validateExpect(fmt.Sprintf("%s.parallel[%d]", label, i), &steps[i], events[i], result)

		if sequencer.IsConfigurationFault(errs[i]) {
			result.AddError(fmt.Sprintf("%s.parallel[%d]: %v", label, i, errs[i]))
			halted = true
		}
	}
	return halted
}

// executeCall invokes one step against its sequencer and classifies the
// outcome. The returned event carries no sequence number yet.
func (h *Harness) executeCall(ctx context.Context, step Step) (TraceEvent, error) {
	event := TraceEvent{Service: step.Service, Call: step.Call}
	seq := h.Sequencer(step.Service)

	if step.Effect {
		err := seq.CallForEffect(ctx, step.Call)
		return classify(event, nil, err), err
	}

	want := value.KindAny
	if step.Expect != nil && step.Expect.Kind != "" {
		parsed, err := value.KindFromString(step.Expect.Kind)
		if err == nil {
			want = parsed
		}
	}

	v, err := seq.CallForValue(ctx, step.Call, want)
	return classify(event, v, err), err
}

// classify fills the event's outcome fields from the call result.
func classify(event TraceEvent, v value.Value, err error) TraceEvent {
	switch {
	case err == nil:
		event.Outcome = "success"
		if v != nil {
			event.Value = value.ToGo(v)
		}
	case sequencer.IsConfigurationFault(err):
		event.Outcome = "config_fault"
	case sequencer.IsDecodeFault(err):
		event.Outcome = "decode_fault"
	default:
		event.Outcome = "error"
		var sf *sequencer.ServiceFault
		if errors.As(err, &sf) {
			event.Error = sf.Code
		}
	}
	return event
}

// validateExpect checks one step's expect clause against its event.
func (h *Harness) validateExpect(label string, step *Step, event TraceEvent, result *Result) {
	if step.Expect == nil {
		return
	}

	if step.Expect.Error != "" {
		if event.Outcome != "error" || event.Error != step.Expect.Error {
			result.AddError(fmt.Sprintf("%s: expected error %q, got outcome %s error %q",
				label, step.Expect.Error, event.Outcome, event.Error))
		}
		return
	}

	if event.Outcome != "success" {
		result.AddError(fmt.Sprintf("%s: expected success, got outcome %s error %q",
			label, event.Outcome, event.Error))
		return
	}

	if step.Expect.Value != nil {
		want, err := value.FromGo(step.Expect.Value)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: malformed expected value: %v", label, err))
			return
		}
		got, err := value.FromGo(event.Value)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: malformed payload: %v", label, err))
			return
		}
		if !value.Equal(got, want) {
			result.AddError(fmt.Sprintf("%s: expected value %v, got %v",
				label, step.Expect.Value, event.Value))
		}
	}
}
