package promotion

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

// Shipping method filters.
const (
	FilterNone    = "none"
	FilterInclude = "include"
	FilterExclude = "exclude"
)

// MethodLookup loads shipping methods by id.
type MethodLookup interface {
	// Load returns the method or an error wrapping shipping.ErrMethodNotFound.
	Load(ctx context.Context, id string) (*shipping.Method, error)
}

// ShipmentOffer is an offer that discounts shipments.
type ShipmentOffer interface {
	Offer
	DisplayInclusive() bool
}

// ShipmentOfferConfig is the configuration shared by shipment offers.
type ShipmentOfferConfig struct {
	DisplayInclusive bool   `yaml:"display_inclusive"`
	Filter           string `yaml:"filter" validate:"omitempty,oneof=none include exclude"`
	// ShippingMethods holds method UUIDs. Ids differ between environments.
	ShippingMethods []string `yaml:"shipping_methods"`
}

type discountFunc func(s *shipping.Shipment) (price.Price, string, bool)

// shipmentOffer applies a discount to every eligible shipment of an order.
type shipmentOffer struct {
	pluginID string
	config   ShipmentOfferConfig
	methods  MethodLookup
	discount discountFunc
}

func newShipmentOffer(pluginID string, cfg ShipmentOfferConfig, methods MethodLookup) shipmentOffer {
	if cfg.Filter == "" {
		cfg.Filter = FilterNone
	}
	return shipmentOffer{pluginID: pluginID, config: cfg, methods: methods}
}

// PluginID returns the offer plugin id.
func (b *shipmentOffer) PluginID() string { return b.pluginID }

// DisplayInclusive reports whether the discount is included in the
// displayed shipment amount.
func (b *shipmentOffer) DisplayInclusive() bool { return b.config.DisplayInclusive }

// Apply discounts the eligible shipments of the order.
func (b *shipmentOffer) Apply(ctx context.Context, o *order.Order, p *Promotion) error {
	for _, s := range o.Shipments {
		ok, err := b.appliesToShipment(ctx, s)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		amount, percentage, ok := b.discount(s)
		if !ok {
			continue
		}
		b.applyDiscount(s, p, amount, percentage)
	}
	return nil
}

func (b *shipmentOffer) appliesToShipment(ctx context.Context, s *shipping.Shipment) (bool, error) {
	if !s.HasRate() {
		// Incomplete shipment.
		return false, nil
	}
	if b.config.Filter == FilterNone {
		return true, nil
	}
	method, err := b.methods.Load(ctx, s.ShippingMethodID)
	if errors.Is(err, shipping.ErrMethodNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading shipping method %s: %w", s.ShippingMethodID, err)
	}
	match := slices.Contains(b.config.ShippingMethods, method.UUID)
	if b.config.Filter == FilterInclude {
		return match, nil
	}
	return !match, nil
}

// applyDiscount caps the discount at the remaining shipment amount and
// records it.
func (b *shipmentOffer) applyDiscount(s *shipping.Shipment, p *Promotion, amount price.Price, percentage string) {
	remaining := s.AdjustedAmount()
	if remaining.IsNegative() {
		remaining = price.Zero(remaining.CurrencyCode)
	}
	if amount.GreaterThan(remaining) {
		amount = remaining
	}
	if b.config.DisplayInclusive {
		reduced := s.Amount.Subtract(amount)
		s.SetAmount(&reduced)
	}
	s.AddAdjustment(adjustment.Adjustment{
		Type:       adjustment.TypeShippingPromotion,
		Label:      p.Label(),
		Amount:     amount.Multiply(decimal.NewFromInt(-1)),
		Percentage: percentage,
		SourceID:   p.ID,
		Included:   b.config.DisplayInclusive,
	})
}
