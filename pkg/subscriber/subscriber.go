// Package subscriber reacts to cart, order item, order workflow and tax
// events that affect an order's shipments.
package subscriber

import (
	"context"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
)

// OrderManager is the part of the shipping order manager the reactions use.
type OrderManager interface {
	HasShipments(o *order.Order) bool
	DeleteShipments(ctx context.Context, shipments ...*shipping.Shipment) error
	SaveShipment(ctx context.Context, s *shipping.Shipment) error
}

// ProfileLoader loads customer profiles.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, id string) (*order.Profile, error)
}
