// Package order provides the order aggregate the shipping pipeline works on.
package order

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

// Order states used by the shipping workflow reactions.
const (
	StateDraft       = "draft"
	StateFulfillment = "fulfillment"
	StateCompleted   = "completed"
	StateCanceled    = "canceled"
)

// Lookup errors returned by order and profile storage.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// Store identifies the store an order belongs to.
type Store struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
}

// Snapshot holds the persisted values of an order before the current refresh.
type Snapshot struct {
	CheckoutStep string
	ItemIDs      []string
}

// Purchasable is the entity an order item was bought from.
// Only purchasables with a weight can be shipped.
type Purchasable struct {
	ID     string           `json:"id"`
	SKU    string           `json:"sku"`
	Title  string           `json:"title"`
	Price  price.Price      `json:"price"`
	Weight *physical.Weight `json:"weight,omitempty"`
}

// Item is an order line item.
type Item struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Purchased   *Purchasable            `json:"purchased_entity,omitempty"`
	Quantity    decimal.Decimal         `json:"quantity"`
	UnitPrice   price.Price             `json:"unit_price"`
	Adjustments []adjustment.Adjustment `json:"adjustments,omitempty"`
}

// IsShippable reports whether the purchased entity has a weight.
func (i *Item) IsShippable() bool {
	return i.Purchased != nil && i.Purchased.Weight != nil
}

// TotalPrice returns unit price × quantity.
func (i *Item) TotalPrice() price.Price {
	return i.UnitPrice.Multiply(i.Quantity)
}

// AdjustmentsOf returns the item adjustments of the given types.
func (i *Item) AdjustmentsOf(types ...string) []adjustment.Adjustment {
	return adjustment.Filter(i.Adjustments, types...)
}

// Order is a customer order with its items and shipments.
type Order struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"`
	Store        Store                   `json:"store"`
	State        string                  `json:"state"`
	CustomerID   string                  `json:"customer_id,omitempty"`
	CheckoutStep string                  `json:"checkout_step,omitempty"`
	Coupons      []string                `json:"coupons,omitempty"`
	Items        []*Item                 `json:"items"`
	Shipments    []*shipping.Shipment    `json:"shipments"`
	Adjustments  []adjustment.Adjustment `json:"adjustments"`

	// ForceShippingRefresh asks the next early processing pass to repack
	// and recalculate rates. It is cleared by that pass.
	ForceShippingRefresh bool `json:"-"`
	// Original is the persisted state, nil for an order never saved.
	Original *Snapshot `json:"-"`
}

// ItemIDs returns the item ids in order.
func (o *Order) ItemIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Item returns the item with the given id.
func (o *Order) Item(id string) (*Item, bool) {
	for _, item := range o.Items {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

// SubtotalPrice returns the sum of the item totals, nil for an order without items.
func (o *Order) SubtotalPrice() *price.Price {
	var total *price.Price
	for _, item := range o.Items {
		t := item.TotalPrice()
		if total != nil {
			t = total.Add(t)
		}
		total = &t
	}
	return total
}

// CollectAdjustments returns the item adjustments followed by the order
// adjustments, filtered by type.
func (o *Order) CollectAdjustments(types ...string) []adjustment.Adjustment {
	var result []adjustment.Adjustment
	for _, item := range o.Items {
		result = append(result, item.AdjustmentsOf(types...)...)
	}
	return append(result, adjustment.Filter(o.Adjustments, types...)...)
}

// AddAdjustment appends an order adjustment.
func (o *Order) AddAdjustment(a adjustment.Adjustment) {
	o.Adjustments = append(o.Adjustments, a)
}

// ClearAdjustments removes the unlocked adjustments of the order and its items.
func (o *Order) ClearAdjustments() {
	o.Adjustments = keepLocked(o.Adjustments)
	for _, item := range o.Items {
		item.Adjustments = keepLocked(item.Adjustments)
	}
}

func keepLocked(adjustments []adjustment.Adjustment) []adjustment.Adjustment {
	var kept []adjustment.Adjustment
	for _, a := range adjustments {
		if a.Locked {
			kept = append(kept, a)
		}
	}
	return kept
}

// Snapshot captures the values compared by the next refresh.
func (o *Order) Snapshot() *Snapshot {
	return &Snapshot{CheckoutStep: o.CheckoutStep, ItemIDs: o.ItemIDs()}
}

// Clone returns a deep copy of the order, including its shipments.
func (o *Order) Clone() *Order {
	c := *o
	c.Coupons = append([]string(nil), o.Coupons...)
	c.Adjustments = append([]adjustment.Adjustment(nil), o.Adjustments...)
	c.Items = make([]*Item, len(o.Items))
	for i, item := range o.Items {
		ci := *item
		ci.Adjustments = append([]adjustment.Adjustment(nil), item.Adjustments...)
		if item.Purchased != nil {
			p := *item.Purchased
			ci.Purchased = &p
		}
		c.Items[i] = &ci
	}
	if o.Shipments != nil {
		c.Shipments = make([]*shipping.Shipment, len(o.Shipments))
		for i, s := range o.Shipments {
			c.Shipments[i] = s.Clone()
		}
	}
	if o.Original != nil {
		snap := Snapshot{
			CheckoutStep: o.Original.CheckoutStep,
			ItemIDs:      append([]string(nil), o.Original.ItemIDs...),
		}
		c.Original = &snap
	}
	return &c
}
