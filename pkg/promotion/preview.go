package promotion

import (
	"context"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// OrderLoader loads the order a shipment belongs to.
type OrderLoader interface {
	LoadOrder(ctx context.Context, id string) (*order.Order, error)
}

// RatePreview rewrites calculated rate amounts so that they include the
// display inclusive shipment promotions of the order.
type RatePreview struct {
	orders     OrderLoader
	promotions Storage
	logger     *otelzap.Logger
}

// NewRatePreview creates the rate preview hook.
func NewRatePreview(orders OrderLoader, promotions Storage, logger *otelzap.Logger) *RatePreview {
	return &RatePreview{orders: orders, promotions: promotions, logger: logger}
}

// OnRates is a shipping.RatesHook. Promotions are simulated on copies of the
// shipment and its order, the originals are left untouched.
func (h *RatePreview) OnRates(ctx context.Context, event *shipping.RatesEvent) error {
	if len(event.Rates) == 0 || event.Method == nil || event.Method.Plugin == nil {
		return nil
	}
	o, err := h.orders.LoadOrder(ctx, event.Shipment.OrderID)
	if err != nil {
		return fmt.Errorf("loading order %s: %w", event.Shipment.OrderID, err)
	}
	promotions, err := h.displayInclusive(ctx, o)
	if err != nil {
		return err
	}
	if len(promotions) == 0 {
		return nil
	}

	shipment := event.Shipment.Clone()
	simulated := o.Clone()
	simulated.Shipments = []*shipping.Shipment{shipment}
	for _, rate := range event.Rates {
		event.Method.Plugin.SelectRate(shipment, rate)
		shipment.ClearAdjustments()
		for _, p := range promotions {
			if !p.Applies(simulated) {
				continue
			}
			if err := p.Apply(ctx, simulated); err != nil {
				return fmt.Errorf("previewing promotion %s: %w", p.ID, err)
			}
		}
		rate.SetAmount(*shipment.Amount)
	}

	h.logger.Ctx(ctx).Debug("Previewed shipment promotions",
		zap.String("method_id", event.Method.ID),
		zap.Int("rates", len(event.Rates)),
		zap.Int("promotions", len(promotions)),
	)
	return nil
}

func (h *RatePreview) displayInclusive(ctx context.Context, o *order.Order) ([]*Promotion, error) {
	available, err := h.promotions.LoadAvailable(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("loading promotions: %w", err)
	}
	var result []*Promotion
	for _, p := range available {
		if p.DisplayInclusive() {
			result = append(result, p)
		}
	}
	return result, nil
}
