package store

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/understudy-dev/understudy/internal/value"
)

// Store owns one observable current-value slot per declared shared key.
// One instance exists per test run; every sequencer bound to shared state
// holds a reference to the same Store.
//
// Thread-safety: all methods are safe for concurrent use. A single mutex
// guards the slot table; it is never held across a caller-visible
// suspension point.
type Store struct {
	mu       sync.RWMutex
	slots    map[string]value.Value
	watchers map[string][]chan value.Value
}

// New constructs a store with one slot per declared key, seeded with the
// key's initial value. A nil declarations map yields a store with no slots;
// every update against it is a no-op.
func New(declarations value.Map) *Store {
	slots := make(map[string]value.Value, len(declarations))
	for key, initial := range declarations {
		slots[key] = initial
	}
	return &Store{
		slots:    slots,
		watchers: make(map[string][]chan value.Value),
	}
}

// CurrentValue returns the slot's value, or false if the key was never
// declared. Side-effect-free.
func (s *Store) CurrentValue(key string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok
}

// ApplyUpdates atomically replaces the value of every declared key present
// in updates and notifies that key's watchers. Keys not declared at
// construction are silently ignored - the declared key set is closed for
// the run.
//
// The batch is atomic: no reader observes some keys updated and others not.
func (s *Store) ApplyUpdates(updates value.Map) {
	if len(updates) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []string
	for key, v := range updates {
		if _, declared := s.slots[key]; !declared {
			slog.Debug("ignoring update to undeclared shared key", "key", key)
			continue
		}
		s.slots[key] = v
		touched = append(touched, key)
	}

	// Notify after the whole batch is in place so watchers never observe a
	// partial batch.
	for _, key := range touched {
		current := s.slots[key]
		for _, ch := range s.watchers[key] {
			offerLatest(ch, current)
		}
	}
}

// Watch registers a latest-value observer for a key. The returned channel
// carries the slot's value after each update that touches the key; rapid
// successive updates may coalesce, with the channel always holding the most
// recent value. The cancel function deregisters the watcher.
//
// Watching an undeclared key is permitted and never fires, matching the
// no-op treatment of undeclared keys elsewhere.
func (s *Store) Watch(key string) (<-chan value.Value, func()) {
	ch := make(chan value.Value, 1)

	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.watchers[key]
		for i, c := range list {
			if c == ch {
				s.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

// Keys returns the declared key set in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current slot table. Values themselves are
// immutable, so only the map is copied.
func (s *Store) Snapshot() value.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(value.Map, len(s.slots))
	for k, v := range s.slots {
		snap[k] = v
	}
	return snap
}

// offerLatest delivers v to a capacity-1 watcher channel, displacing any
// undelivered older value so the channel always holds the newest.
func offerLatest(ch chan value.Value, v value.Value) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
