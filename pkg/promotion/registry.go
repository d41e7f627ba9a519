package promotion

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

// Offer plugin ids.
const (
	FixedAmountOffPluginID = "shipment_fixed_amount_off"
	PercentageOffPluginID  = "shipment_percentage_off"
)

var validate = validator.New()

// OfferFactory builds an offer from its configuration.
type OfferFactory func(cfg shipping.ConfigDecoder) (Offer, error)

// Registry holds the offer factories by plugin id.
type Registry struct {
	factories map[string]OfferFactory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]OfferFactory)}
}

// Register adds a factory, replacing any factory with the same id.
func (r *Registry) Register(pluginID string, f OfferFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[pluginID] = f
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

// Build creates an offer with the factory registered for the plugin id.
func (r *Registry) Build(pluginID string, cfg shipping.ConfigDecoder) (Offer, error) {
	r.mu.RLock()
	f, ok := r.factories[pluginID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", shipping.ErrPluginNotFound, pluginID)
	}
	offer, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("building offer %s: %w", pluginID, err)
	}
	return offer, nil
}

// RegisterDefaults registers the shipment offers. A nil rounder uses
// price.DefaultRounder.
func RegisterDefaults(reg *Registry, methods MethodLookup, rounder price.Rounder) {
	if rounder == nil {
		rounder = price.DefaultRounder
	}
	reg.Register(FixedAmountOffPluginID, func(cfg shipping.ConfigDecoder) (Offer, error) {
		var c FixedAmountOffConfig
		if err := decode(cfg, &c); err != nil {
			return nil, err
		}
		return NewFixedAmountOff(c, methods)
	})
	reg.Register(PercentageOffPluginID, func(cfg shipping.ConfigDecoder) (Offer, error) {
		var c PercentageOffConfig
		if err := decode(cfg, &c); err != nil {
			return nil, err
		}
		return NewPercentageOff(c, methods, rounder)
	})
}

func decode(cfg shipping.ConfigDecoder, v any) error {
	if cfg == nil {
		return fmt.Errorf("%w: missing configuration", shipping.ErrInvalidConfiguration)
	}
	if err := cfg.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shipping.ErrInvalidConfiguration, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", shipping.ErrInvalidConfiguration, err)
	}
	return nil
}
