package app

import (
	"sort"

	"github.com/kbaldwin/dexquote/internal/apperror"
)

// Registry maps venue key to adapter instance, one per process per network
// (spec.md §4.4). NewRegistry builds the map once from every adapter;
// thereafter the map is read-only, so concurrent lookups from
// multiple requests need no lock.
type Registry struct {
	byKey map[string]Adapter
	keys  []string
}

// NewRegistry builds a Registry from the adapters available on one
// network. Duplicate keys are a construction-time bug, not a runtime
// condition: the second registration panics.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byKey: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		key := a.Key()
		if _, exists := r.byKey[key]; exists {
			panic("pricing: duplicate adapter key " + key)
		}
		r.byKey[key] = a
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)
	return r
}

// GetAllDexKeys returns every registered venue key.
func (r *Registry) GetAllDexKeys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// GetDexByKey resolves key to its adapter instance, or CodeInvalidDexKey
// when key is not registered (spec.md §4.4, §7).
func (r *Registry) GetDexByKey(key string) (Adapter, error) {
	a, ok := r.byKey[key]
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidDexKey,
			apperror.WithContext("unknown dex key: "+key))
	}
	return a, nil
}

// GetDexsSupportingFeeOnTransfer filters the registry by
// IsFeeOnTransferSupported. It is tolerant of unknown keys in restrict —
// when non-empty, restrict narrows the scan to those keys and silently
// ignores any that are not registered (spec.md §4.4).
func (r *Registry) GetDexsSupportingFeeOnTransfer(restrict ...string) []string {
	keys := r.keys
	if len(restrict) > 0 {
		keys = restrict
	}
	var out []string
	for _, key := range keys {
		a, ok := r.byKey[key]
		if !ok {
			continue
		}
		if a.Capabilities().IsFeeOnTransferSupported {
			out = append(out, key)
		}
	}
	return out
}
