package processor

import (
	"context"
	"fmt"
	"slices"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Early repacks shipments when needed, resets their amounts and adjustments,
// and recalculates rates when the order asks for a shipping refresh.
// It must run before the price, tax and promotion processors.
type Early struct {
	orders OrderManager
	rates  RateManager
	logger *otelzap.Logger
}

// NewEarly creates the early processor.
func NewEarly(orders OrderManager, rates RateManager, logger *otelzap.Logger) *Early {
	return &Early{orders: orders, rates: rates, logger: logger}
}

// Process implements Processor.
func (p *Early) Process(ctx context.Context, o *order.Order) error {
	if !p.orders.HasShipments(o) {
		return nil
	}
	log := p.logger.Ctx(ctx)

	shipments := o.Shipments
	if shouldRepack(o, shipments) {
		profile, err := p.orders.GetProfile(ctx, o)
		if err != nil {
			return err
		}
		if profile == nil {
			log.Info("Shipping profile missing, deleting shipments",
				zap.String("order_id", o.ID),
				zap.Int("shipments", len(shipments)),
			)
			if err := p.orders.DeleteShipments(ctx, shipments...); err != nil {
				return fmt.Errorf("deleting shipments: %w", err)
			}
			o.Shipments = nil
			return nil
		}
		shipments, err = p.orders.Pack(ctx, o, profile)
		if err != nil {
			return err
		}
	}

	refresh := o.ForceShippingRefresh
	for _, s := range shipments {
		if s.OriginalAmount != nil {
			s.SetAmount(s.OriginalAmount)
		}
		s.ClearAdjustments()

		if !refresh {
			continue
		}
		rates, err := p.rates.CalculateRates(ctx, s)
		if err != nil {
			return err
		}
		if rates.Len() == 0 {
			// Keep the shipment so its shipping profile survives.
			s.ClearRate()
			continue
		}
		rate, err := p.rates.SelectDefaultRate(s, rates)
		if err != nil {
			return err
		}
		if err := p.rates.ApplyRate(ctx, s, rate); err != nil {
			return err
		}
		log.Debug("Applied default rate",
			zap.String("order_id", o.ID),
			zap.String("shipment_id", s.ID),
			zap.String("rate_id", rate.ID()),
		)
	}
	if refresh {
		o.ForceShippingRefresh = false
	}

	o.Shipments = shipments
	return nil
}

// shouldRepack reports whether the shipments must be rebuilt by the packers.
// Hand edited shipments are never repacked. Moving between checkout steps
// without adding or removing items does not repack.
func shouldRepack(o *order.Order, shipments []*shipping.Shipment) bool {
	for _, s := range shipments {
		if !s.OwnedByPacker {
			return false
		}
	}
	if o.ForceShippingRefresh {
		return true
	}
	if o.Original != nil {
		if o.Original.CheckoutStep != o.CheckoutStep && slices.Equal(o.Original.ItemIDs, o.ItemIDs()) {
			return false
		}
	}
	return true
}
