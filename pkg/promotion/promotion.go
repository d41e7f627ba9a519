// Package promotion provides shipment promotion offers, the promotion
// processor and the rate preview hook.
package promotion

import (
	"context"
	"slices"

	"github.com/tournevent/shipping/pkg/order"
)

const defaultLabel = "Discount"

// Offer applies a promotion to an order.
type Offer interface {
	PluginID() string
	Apply(ctx context.Context, o *order.Order, p *Promotion) error
}

// Promotion is a discount with its eligibility rules and offer.
type Promotion struct {
	ID          string
	UUID        string
	Name        string
	DisplayName string
	Enabled     bool
	// OrderTypes and Stores restrict the promotion. Empty means all.
	OrderTypes []string
	Stores     []string
	// RequireCoupon limits the promotion to orders carrying one of Coupons.
	RequireCoupon bool
	Coupons       []string
	Weight        int
	Offer         Offer
}

// Label returns the adjustment label.
func (p *Promotion) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return defaultLabel
}

// Available reports whether the promotion is enabled for the order type and store.
func (p *Promotion) Available(o *order.Order) bool {
	if !p.Enabled {
		return false
	}
	if len(p.OrderTypes) > 0 && !slices.Contains(p.OrderTypes, o.Type) {
		return false
	}
	if len(p.Stores) > 0 && !slices.Contains(p.Stores, o.Store.ID) {
		return false
	}
	return true
}

// Applies reports whether the promotion is available and its coupon
// requirement is met by the order.
func (p *Promotion) Applies(o *order.Order) bool {
	if !p.Available(o) {
		return false
	}
	if !p.RequireCoupon {
		return true
	}
	for _, code := range o.Coupons {
		if slices.Contains(p.Coupons, code) {
			return true
		}
	}
	return false
}

// Apply applies the offer to the order.
func (p *Promotion) Apply(ctx context.Context, o *order.Order) error {
	if p.Offer == nil {
		return nil
	}
	return p.Offer.Apply(ctx, o, p)
}

// DisplayInclusive reports whether the promotion has a display inclusive
// shipment offer.
func (p *Promotion) DisplayInclusive() bool {
	offer, ok := p.Offer.(ShipmentOffer)
	return ok && offer.DisplayInclusive()
}

// Storage loads promotions.
type Storage interface {
	// LoadAvailable returns the promotions available to the order,
	// ordered by weight.
	LoadAvailable(ctx context.Context, o *order.Order) ([]*Promotion, error)
}
