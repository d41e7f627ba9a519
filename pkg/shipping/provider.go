package shipping

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// RateProvider calculates rates for a shipment. Implementations are the
// plugins behind shipping methods.
type RateProvider interface {
	// PluginID returns the id the provider factory is registered under.
	PluginID() string
	// Services returns the services the provider offers.
	Services() []Service
	// DefaultPackageType returns the package type assigned to shipments
	// that have none when a rate is applied. May be nil.
	DefaultPackageType() *PackageType
	// CalculateRates returns zero or more rates for the shipment.
	CalculateRates(ctx context.Context, s *Shipment) ([]*Rate, error)
	// SelectRate stores the rate on the shipment.
	SelectRate(s *Shipment, r *Rate)
}

// ConfigDecoder decodes a plugin configuration block into a struct.
type ConfigDecoder interface {
	Decode(v any) error
}

// ProviderFactory builds a rate provider for the shipping method with the given id.
type ProviderFactory func(methodID string, cfg ConfigDecoder) (RateProvider, error)

// Registry manages rate provider factories keyed by plugin id.
type Registry struct {
	factories map[string]ProviderFactory
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ProviderFactory),
	}
}

// Register adds a factory to the registry, replacing any previous one.
func (r *Registry) Register(pluginID string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[pluginID] = f
}

// Get returns the factory registered under the plugin id.
func (r *Registry) Get(pluginID string) (ProviderFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.factories[pluginID]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginID)
}

// Names returns the registered plugin ids, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered factories.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Build creates the provider for a shipping method.
func (r *Registry) Build(pluginID, methodID string, cfg ConfigDecoder) (RateProvider, error) {
	f, err := r.Get(pluginID)
	if err != nil {
		return nil, err
	}
	p, err := f(methodID, cfg)
	if err != nil {
		return nil, fmt.Errorf("building %s for method %s: %w", pluginID, methodID, err)
	}
	return p, nil
}
