package subscriber

import (
	"context"
	"errors"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
)

// TaxProfile picks the customer profile used to tax an order item when
// the order ships to more than one address.
type TaxProfile struct {
	orders   OrderManager
	profiles ProfileLoader
}

// NewTaxProfile creates the tax customer profile resolver.
func NewTaxProfile(orders OrderManager, profiles ProfileLoader) *TaxProfile {
	return &TaxProfile{orders: orders, profiles: profiles}
}

// CustomerProfile returns the profile to tax the item with. When the order's
// shipments use two or more distinct shipping profiles, the result is a copy
// of customer carrying the address of the shipment that contains the item.
// Otherwise customer is returned unchanged.
func (t *TaxProfile) CustomerProfile(ctx context.Context, o *order.Order, item *order.Item, customer *order.Profile) (*order.Profile, error) {
	if !t.orders.HasShipments(o) {
		return customer, nil
	}

	profiles := make(map[string]*order.Profile)
	for _, s := range o.Shipments {
		if s.ShippingProfileID == "" {
			continue
		}
		if _, ok := profiles[s.ShippingProfileID]; ok {
			continue
		}
		p, err := t.profiles.LoadProfile(ctx, s.ShippingProfileID)
		if errors.Is(err, order.ErrProfileNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading shipping profile: %w", err)
		}
		profiles[s.ShippingProfileID] = p
	}
	if len(profiles) < 2 {
		return customer, nil
	}

	for _, s := range o.Shipments {
		p, ok := profiles[s.ShippingProfileID]
		if !ok {
			continue
		}
		for _, si := range s.Items {
			if si.OrderItemID != item.ID {
				continue
			}
			result := order.Profile{Type: "customer"}
			if customer != nil {
				result = *customer
			}
			result.Address = p.Address
			return &result, nil
		}
	}
	return customer, nil
}
