package subscriber

import (
	"context"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Workflow moves shipments along when their order changes state.
type Workflow struct {
	orders OrderManager
	logger *otelzap.Logger
}

// NewWorkflow creates the order workflow reactions.
func NewWorkflow(orders OrderManager, logger *otelzap.Logger) *Workflow {
	return &Workflow{orders: orders, logger: logger}
}

// OnCancel cancels the shipments of a canceled order.
func (w *Workflow) OnCancel(ctx context.Context, o *order.Order) error {
	return w.apply(ctx, o, shipping.TransitionCancel)
}

// OnPlace finalizes the shipments of an order placed into fulfillment.
func (w *Workflow) OnPlace(ctx context.Context, o *order.Order, toState string) error {
	if toState != order.StateFulfillment {
		return nil
	}
	return w.apply(ctx, o, shipping.TransitionFinalize)
}

// OnValidate finalizes the shipments of a validated order.
func (w *Workflow) OnValidate(ctx context.Context, o *order.Order) error {
	return w.apply(ctx, o, shipping.TransitionFinalize)
}

// OnFulfill ships the shipments of a fulfilled order.
func (w *Workflow) OnFulfill(ctx context.Context, o *order.Order) error {
	return w.apply(ctx, o, shipping.TransitionShip)
}

func (w *Workflow) apply(ctx context.Context, o *order.Order, t shipping.Transition) error {
	if !w.orders.HasShipments(o) {
		return nil
	}
	for _, s := range o.Shipments {
		if err := s.ApplyTransition(t); err != nil {
			return fmt.Errorf("shipment %s: %w", s.ID, err)
		}
		if err := w.orders.SaveShipment(ctx, s); err != nil {
			return fmt.Errorf("saving shipment %s: %w", s.ID, err)
		}
	}
	w.logger.Ctx(ctx).Info("Applied shipment transition",
		zap.String("order_id", o.ID),
		zap.String("transition", string(t)),
		zap.Int("shipments", len(o.Shipments)),
	)
	return nil
}
