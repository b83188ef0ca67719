package sequencer

import (
	"github.com/understudy-dev/understudy/internal/script"
	"github.com/understudy-dev/understudy/internal/store"
	"github.com/understudy-dev/understudy/internal/value"
)

// ResolveProperty resolves a service-local observable property at service
// construction time using three tiers, applied independently per property:
//
//  1. a declared binding whose shared key currently has a store slot
//  2. the service entry's initial local state for the property name
//  3. the caller-supplied per-property default
//
// A binding whose key is absent from the store falls through to the next
// tier rather than failing; configuration authors may bind ahead of
// declaring the key.
func ResolveProperty(st *store.Store, entry script.ServiceEntry, property string, fallback value.Value) value.Value {
	if st != nil {
		if key, bound := entry.Bindings[property]; bound {
			if v, ok := st.CurrentValue(key); ok {
				return v
			}
		}
	}
	if v, ok := entry.InitialState[property]; ok {
		return v
	}
	return fallback
}
