package subscriber

import (
	"context"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Cart reacts to cart changes.
type Cart struct {
	orders OrderManager
	logger *otelzap.Logger
}

// NewCart creates the cart reactions.
func NewCart(orders OrderManager, logger *otelzap.Logger) *Cart {
	return &Cart{orders: orders, logger: logger}
}

// OnCartEmpty deletes the shipments of an emptied cart and detaches them.
func (c *Cart) OnCartEmpty(ctx context.Context, cart *order.Order) error {
	if !c.orders.HasShipments(cart) {
		return nil
	}
	if err := c.orders.DeleteShipments(ctx, cart.Shipments...); err != nil {
		return fmt.Errorf("deleting cart shipments: %w", err)
	}
	c.logger.Ctx(ctx).Debug("Deleted shipments of emptied cart",
		zap.String("order_id", cart.ID),
		zap.Int("shipments", len(cart.Shipments)),
	)
	cart.Shipments = nil
	return nil
}

// OnCartEntityAdd asks for a shipping refresh when a cart with shipments
// receives a new item.
func (c *Cart) OnCartEntityAdd(_ context.Context, cart *order.Order, _ *order.Item) {
	if c.orders.HasShipments(cart) {
		cart.ForceShippingRefresh = true
	}
}
