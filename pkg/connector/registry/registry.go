// Package registry provides connector registration and discovery. Source
// and destination implementations register factories from their package
// init functions; callers create configured instances by type name.
package registry

import (
	"sync"

	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
)

// SourceFactory creates a source connector from a configuration
type SourceFactory func(cfg *config.BaseConfig) (core.Source, error)

// DestinationFactory creates a destination connector from a configuration
type DestinationFactory func(cfg *config.BaseConfig) (core.Destination, error)

// Registry manages connector factories
type Registry struct {
	mu           sync.RWMutex
	sources      map[string]SourceFactory
	destinations map[string]DestinationFactory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources:      make(map[string]SourceFactory),
		destinations: make(map[string]DestinationFactory),
	}
}

// RegisterSource registers a source factory under a type name
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "source %q already registered", name)
	}
	r.sources[name] = factory
	return nil
}

// RegisterDestination registers a destination factory under a type name
func (r *Registry) RegisterDestination(name string, factory DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "destination %q already registered", name)
	}
	r.destinations[name] = factory
	return nil
}

// CreateSource creates a configured source connector by type name
func (r *Registry) CreateSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "source %q not registered", name)
	}
	return factory(cfg)
}

// CreateDestination creates a configured destination connector by type name
func (r *Registry) CreateDestination(name string, cfg *config.BaseConfig) (core.Destination, error) {
	r.mu.RLock()
	factory, exists := r.destinations[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "destination %q not registered", name)
	}
	return factory(cfg)
}

// ListSources returns the registered source type names
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// ListDestinations returns the registered destination type names
func (r *Registry) ListDestinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.destinations))
	for name := range r.destinations {
		names = append(names, name)
	}
	return names
}

var globalRegistry = NewRegistry()

// RegisterSource registers a source factory in the global registry
func RegisterSource(name string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// RegisterDestination registers a destination factory in the global registry
func RegisterDestination(name string, factory DestinationFactory) error {
	return globalRegistry.RegisterDestination(name, factory)
}

// CreateSource creates a source connector from the global registry
func CreateSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	return globalRegistry.CreateSource(name, cfg)
}

// CreateDestination creates a destination connector from the global registry
func CreateDestination(name string, cfg *config.BaseConfig) (core.Destination, error) {
	return globalRegistry.CreateDestination(name, cfg)
}

// ListSources returns the source type names in the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListDestinations returns the destination type names in the global registry
func ListDestinations() []string {
	return globalRegistry.ListDestinations()
}
