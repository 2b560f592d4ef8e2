package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a provider from its configuration.
type Factory func(cfg Config) (Provider, error)

// Registry maps provider tags to factories.
// Providers register themselves at init time; lookups are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var globalRegistry = NewRegistry()

// Register adds a factory to the global registry.
// Called from provider package init functions.
func Register(name string, factory Factory) {
	globalRegistry.Register(name, factory)
}

// NewProvider builds the named provider from the global registry.
func NewProvider(name string, cfg Config) (Provider, error) {
	return globalRegistry.NewProvider(name, cfg)
}

// Providers returns the registered tags, sorted.
func Providers() []string {
	return globalRegistry.List()
}

// Register adds a factory to this registry. The name is stored lowercased.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Get retrieves a factory, or nil if the tag is not registered.
func (r *Registry) Get(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[strings.ToLower(name)]
}

// List returns the registered tags, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider builds a provider for the tag.
// Unknown tags fail with an error wrapping ErrUnsupportedProvider.
func (r *Registry) NewProvider(name string, cfg Config) (Provider, error) {
	factory := r.Get(name)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnsupportedProvider, name, r.List())
	}
	return factory(cfg)
}
