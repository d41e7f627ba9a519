package processor

import (
	"context"
	"fmt"

	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const shippingLabel = "Shipping"

// Late saves changed shipments and transfers their amounts and adjustments
// to the order. It must run after every processor that adjusts shipments.
type Late struct {
	orders OrderManager
	logger *otelzap.Logger
}

// NewLate creates the late processor.
func NewLate(orders OrderManager, logger *otelzap.Logger) *Late {
	return &Late{orders: orders, logger: logger}
}

// Process implements Processor.
func (p *Late) Process(ctx context.Context, o *order.Order) error {
	if !p.orders.HasShipments(o) {
		return nil
	}
	single := len(o.Shipments) == 1

	for _, s := range o.Shipments {
		if s.HasChanges() {
			if err := p.orders.SaveShipment(ctx, s); err != nil {
				return fmt.Errorf("saving shipment: %w", err)
			}
		}
		if s.Amount == nil {
			continue
		}

		label := s.Title
		if single {
			label = shippingLabel
		}
		o.AddAdjustment(adjustment.Adjustment{
			Type:     adjustment.TypeShipping,
			Label:    label,
			Amount:   *s.Amount,
			SourceID: s.ID,
		})
		// Locked shipment adjustments are transferred unlocked so that the
		// next refresh clears them.
		for _, a := range s.Adjustments() {
			o.AddAdjustment(a.Unlocked())
		}
	}

	p.logger.Ctx(ctx).Debug("Transferred shipment adjustments",
		zap.String("order_id", o.ID),
		zap.Int("adjustments", len(o.Adjustments)),
	)
	return nil
}
