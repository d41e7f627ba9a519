// Package shipping provides shipments, shipping rates, the rate provider
// contract and the manager that calculates and applies rates.
package shipping

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/price"
)

// ShipmentItem is a snapshot of an order item inside a shipment.
// Weight and DeclaredValue cover the whole quantity.
type ShipmentItem struct {
	OrderItemID   string          `json:"order_item_id"`
	Title         string          `json:"title"`
	Quantity      decimal.Decimal `json:"quantity"`
	Weight        physical.Weight `json:"weight"`
	DeclaredValue price.Price     `json:"declared_value"`
}

// PackageType is a container classification with its own dimensions and weight.
type PackageType struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	Dimensions physical.Dimensions `json:"-"`
	Weight     physical.Weight     `json:"weight"`
}

// Shipment groups a subset of an order's items shipped to one address.
//
// A shipment with a nil Amount has not been rated and is left out of tax,
// promotion and order total computations.
type Shipment struct {
	ID                string
	OrderID           string
	Type              string
	Title             string
	Items             []ShipmentItem
	ShippingProfileID string
	ShippingMethodID  string
	ShippingService   string
	PackageType       *PackageType
	OriginalAmount    *price.Price
	Amount            *price.Price
	TrackingCode      string
	State             State

	// OwnedByPacker marks shipments created by a packer. Shipments without
	// it were edited by hand and are never repacked automatically.
	OwnedByPacker bool
	// AlterRate asks the rate doubling hook to rewrite the first rate.
	AlterRate bool

	adjustments []adjustment.Adjustment
	changed     bool
}

// NewShipment creates a draft shipment for the order.
func NewShipment(orderID, shipmentType string) *Shipment {
	return &Shipment{
		OrderID: orderID,
		Type:    shipmentType,
		State:   StateDraft,
		changed: true,
	}
}

// HasChanges reports whether the shipment has unsaved changes.
// A shipment without an id was never saved.
func (s *Shipment) HasChanges() bool {
	return s.changed || s.ID == ""
}

// MarkChanged flags the shipment as modified.
func (s *Shipment) MarkChanged() { s.changed = true }

// MarkSaved clears the unsaved changes flag.
func (s *Shipment) MarkSaved() { s.changed = false }

// SetItems replaces the shipment items.
func (s *Shipment) SetItems(items []ShipmentItem) {
	s.Items = items
	s.changed = true
}

// SetTitle sets the title.
func (s *Shipment) SetTitle(title string) {
	s.Title = title
	s.changed = true
}

// SetShippingProfileID sets the shipping profile reference.
func (s *Shipment) SetShippingProfileID(id string) {
	s.ShippingProfileID = id
	s.changed = true
}

// SetShippingMethod sets the selected shipping method and service.
func (s *Shipment) SetShippingMethod(methodID, serviceID string) {
	s.ShippingMethodID = methodID
	s.ShippingService = serviceID
	s.changed = true
}

// SetPackageType sets the package type.
func (s *Shipment) SetPackageType(pt *PackageType) {
	s.PackageType = pt
	s.changed = true
}

// SetOriginalAmount sets the amount before discounts.
func (s *Shipment) SetOriginalAmount(p *price.Price) {
	s.OriginalAmount = clonePrice(p)
	s.changed = true
}

// SetAmount sets the amount.
func (s *Shipment) SetAmount(p *price.Price) {
	s.Amount = clonePrice(p)
	s.changed = true
}

// ClearRate removes the selected rate and the amounts.
func (s *Shipment) ClearRate() {
	s.ShippingMethodID = ""
	s.ShippingService = ""
	s.OriginalAmount = nil
	s.Amount = nil
	s.changed = true
}

// HasRate reports whether both a shipping method and an amount are set.
func (s *Shipment) HasRate() bool {
	return s.ShippingMethodID != "" && s.Amount != nil
}

// Adjustments returns the adjustments of the given types, all when none are given.
func (s *Shipment) Adjustments(types ...string) []adjustment.Adjustment {
	return adjustment.Filter(s.adjustments, types...)
}

// AddAdjustment appends an adjustment.
func (s *Shipment) AddAdjustment(a adjustment.Adjustment) {
	s.adjustments = append(s.adjustments, a)
	s.changed = true
}

// SetAdjustments replaces the adjustments.
func (s *Shipment) SetAdjustments(adjustments []adjustment.Adjustment) {
	s.adjustments = append([]adjustment.Adjustment(nil), adjustments...)
	s.changed = true
}

// ClearAdjustments removes every adjustment.
func (s *Shipment) ClearAdjustments() {
	if len(s.adjustments) == 0 {
		return
	}
	s.adjustments = nil
	s.changed = true
}

// AdjustedAmount returns the amount with the non-included adjustments of
// the given types applied, all types when none are given. It returns the
// zero Price when the shipment has no amount.
func (s *Shipment) AdjustedAmount(types ...string) price.Price {
	if s.Amount == nil {
		return price.Price{}
	}
	total := *s.Amount
	for _, a := range s.Adjustments(types...) {
		if !a.Included {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// TotalQuantity returns the summed item quantity.
func (s *Shipment) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Quantity)
	}
	return total
}

// TotalDeclaredValue returns the summed declared value of the items.
func (s *Shipment) TotalDeclaredValue() *price.Price {
	var total *price.Price
	for _, item := range s.Items {
		if total == nil {
			v := item.DeclaredValue
			total = &v
			continue
		}
		v := total.Add(item.DeclaredValue)
		total = &v
	}
	return total
}

// Weight returns the item weight plus the package type weight.
func (s *Shipment) Weight() physical.Weight {
	var total physical.Weight
	for _, item := range s.Items {
		total = total.Add(item.Weight)
	}
	if s.PackageType != nil {
		total = total.Add(s.PackageType.Weight)
	}
	return total
}

// Clone returns a deep copy of the shipment.
func (s *Shipment) Clone() *Shipment {
	c := *s
	c.Items = append([]ShipmentItem(nil), s.Items...)
	c.adjustments = append([]adjustment.Adjustment(nil), s.adjustments...)
	c.OriginalAmount = clonePrice(s.OriginalAmount)
	c.Amount = clonePrice(s.Amount)
	if s.PackageType != nil {
		pt := *s.PackageType
		c.PackageType = &pt
	}
	return &c
}

func clonePrice(p *price.Price) *price.Price {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

type shipmentJSON struct {
	ID                string                  `json:"id"`
	OrderID           string                  `json:"order_id"`
	Type              string                  `json:"type"`
	Title             string                  `json:"title"`
	State             State                   `json:"state"`
	Items             []ShipmentItem          `json:"items"`
	ShippingProfileID string                  `json:"shipping_profile_id,omitempty"`
	ShippingMethodID  string                  `json:"shipping_method_id,omitempty"`
	ShippingService   string                  `json:"shipping_service,omitempty"`
	PackageType       *PackageType            `json:"package_type,omitempty"`
	OriginalAmount    *price.Price            `json:"original_amount,omitempty"`
	Amount            *price.Price            `json:"amount,omitempty"`
	Adjustments       []adjustment.Adjustment `json:"adjustments,omitempty"`
	TrackingCode      string                  `json:"tracking_code,omitempty"`
	OwnedByPacker     bool                    `json:"owned_by_packer"`
}

// MarshalJSON implements json.Marshaler.
func (s *Shipment) MarshalJSON() ([]byte, error) {
	return json.Marshal(shipmentJSON{
		ID:                s.ID,
		OrderID:           s.OrderID,
		Type:              s.Type,
		Title:             s.Title,
		State:             s.State,
		Items:             s.Items,
		ShippingProfileID: s.ShippingProfileID,
		ShippingMethodID:  s.ShippingMethodID,
		ShippingService:   s.ShippingService,
		PackageType:       s.PackageType,
		OriginalAmount:    s.OriginalAmount,
		Amount:            s.Amount,
		Adjustments:       s.adjustments,
		TrackingCode:      s.TrackingCode,
		OwnedByPacker:     s.OwnedByPacker,
	})
}
