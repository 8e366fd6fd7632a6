package channel

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps recipient schemes to channel factories. It is populated once
// at startup, sealed, and only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory // scheme → factory
	sealed    bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds factory under scheme. Registering a scheme twice returns
// ErrDuplicateScheme and keeps the first registration.
func (r *Registry) Register(scheme string, factory Factory) error {
	if scheme == "" {
		return fmt.Errorf("registering channel: empty scheme")
	}
	if factory == nil {
		return fmt.Errorf("registering channel %q: nil factory", scheme)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registering channel %q: %w", scheme, ErrRegistrySealed)
	}
	if _, exists := r.factories[scheme]; exists {
		return fmt.Errorf("registering channel %q: %w", scheme, ErrDuplicateScheme)
	}
	r.factories[scheme] = factory
	return nil
}

// Resolve returns the factory registered for scheme.
func (r *Registry) Resolve(scheme string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[scheme]
	if !ok {
		return nil, fmt.Errorf("resolving channel %q: %w", scheme, ErrUnknownScheme)
	}
	return f, nil
}

// Schemes returns the registered scheme names in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for s := range r.factories {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Seal rejects any further registration. Calling it more than once is harmless.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}
