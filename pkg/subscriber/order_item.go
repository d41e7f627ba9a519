package subscriber

import (
	"context"

	"github.com/tournevent/shipping/pkg/order"
)

// OrderItem reacts to order item updates and deletions.
type OrderItem struct {
	orders OrderManager
}

// NewOrderItem creates the order item reactions.
func NewOrderItem(orders OrderManager) *OrderItem {
	return &OrderItem{orders: orders}
}

// OnItemUpdate asks for a shipping refresh when the item quantity changed.
// Items detached from an order are ignored.
func (r *OrderItem) OnItemUpdate(_ context.Context, o *order.Order, item, original *order.Item) {
	if o == nil || !r.shouldRefresh(o) {
		return
	}
	if original == nil || !item.Quantity.Equal(original.Quantity) {
		o.ForceShippingRefresh = true
	}
}

// OnItemDelete asks for a shipping refresh when an item is removed.
func (r *OrderItem) OnItemDelete(_ context.Context, o *order.Order, _ *order.Item) {
	if o == nil || !r.shouldRefresh(o) {
		return
	}
	o.ForceShippingRefresh = true
}

func (r *OrderItem) shouldRefresh(o *order.Order) bool {
	return o.State == order.StateDraft && r.orders.HasShipments(o)
}
