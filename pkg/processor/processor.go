// Package processor provides the shipping order processors that run at the
// start and at the end of an order refresh.
package processor

import (
	"context"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
)

// Processor mutates an order during a refresh.
type Processor interface {
	Process(ctx context.Context, o *order.Order) error
}

// OrderManager is the order level shipping facade used by the processors.
type OrderManager interface {
	HasShipments(o *order.Order) bool
	GetProfile(ctx context.Context, o *order.Order) (*order.Profile, error)
	Pack(ctx context.Context, o *order.Order, profile *order.Profile) ([]*shipping.Shipment, error)
	DeleteShipments(ctx context.Context, shipments ...*shipping.Shipment) error
	SaveShipment(ctx context.Context, s *shipping.Shipment) error
}

// RateManager calculates and applies rates.
type RateManager interface {
	CalculateRates(ctx context.Context, s *shipping.Shipment) (*shipping.RateSet, error)
	SelectDefaultRate(s *shipping.Shipment, rates *shipping.RateSet) (*shipping.Rate, error)
	ApplyRate(ctx context.Context, s *shipping.Shipment, r *shipping.Rate) error
}
