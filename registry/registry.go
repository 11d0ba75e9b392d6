// Package registry holds the process-wide, read-only-after-init mapping
// from filter id to factory function that chain configuration loading
// consumes.
package registry

import (
	"sync"

	"github.com/sievemail/spamchain/filter"
)

// Factory constructs a new, unconfigured instance of a filter. id is the
// name the factory was registered under.
type Factory func(id string) (filter.Filter, error)

// Registry is a mutable, goroutine-safe store of filter factories. The
// package-level default Registry is what Register/Get/New operate on; an
// application that wants isolated registries (e.g. in tests) can construct
// its own with NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds factory to the registry under id.
//
// id must be unique; Register panics if a factory is already registered
// under id, exactly like the teacher's module registry — registration
// happens once per registry, before any chain is built from it, so a
// duplicate is a programming error, not a runtime condition a caller
// should recover from.
func (r *Registry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[id]; ok {
		panic("registry: filter with id already registered: " + id)
	}
	r.factories[id] = factory
}

// Get returns the factory registered under id, or nil if none is.
func (r *Registry) Get(id string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[id]
}

// New looks up id's factory and invokes it, wrapping an unknown id in a
// *filter.ConfigError.
func (r *Registry) New(id string) (filter.Filter, error) {
	factory := r.Get(id)
	if factory == nil {
		return nil, &filter.ConfigError{Filter: id, Reason: "unknown filter id"}
	}
	return factory(id)
}

// Default is the process-wide registry used by the package-level
// convenience wrappers below. Application code registers filter factories
// against it from an init() function, the same way the teacher's checks
// register themselves against module.Register.
var Default = NewRegistry()

// Register adds factory to the Default registry under id.
func Register(id string, factory Factory) { Default.Register(id, factory) }

// Get returns the factory registered under id in the Default registry.
func Get(id string) Factory { return Default.Get(id) }

// New constructs a filter instance by id from the Default registry.
func New(id string) (filter.Filter, error) { return Default.New(id) }
