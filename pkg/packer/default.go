package packer

import (
	"context"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
)

// DefaultPacker puts every shippable item into a single shipment.
type DefaultPacker struct{}

// ID implements Packer.
func (DefaultPacker) ID() string { return "default" }

// Applies implements Packer.
func (DefaultPacker) Applies(*order.Order, *order.Profile) bool { return true }

// Pack implements Packer.
func (DefaultPacker) Pack(_ context.Context, o *order.Order, profile *order.Profile) ([]ProposedShipment, error) {
	items := ShipmentItems(o.Items)
	if len(items) == 0 {
		return []ProposedShipment{}, nil
	}
	return []ProposedShipment{{
		OrderID:           o.ID,
		Title:             "Shipment #1",
		Items:             items,
		ShippingProfileID: profileID(profile),
	}}, nil
}

// PerItemPacker creates one shipment per shippable item. It applies only to
// profiles in one of Countries, or to every profile when Countries is empty.
type PerItemPacker struct {
	Countries []string
}

// ID implements Packer.
func (PerItemPacker) ID() string { return "per_item" }

// Applies implements Packer.
func (p PerItemPacker) Applies(_ *order.Order, profile *order.Profile) bool {
	if len(p.Countries) == 0 {
		return true
	}
	if profile == nil {
		return false
	}
	for _, c := range p.Countries {
		if profile.Address.CountryCode == c {
			return true
		}
	}
	return false
}

// Pack implements Packer.
func (PerItemPacker) Pack(_ context.Context, o *order.Order, profile *order.Profile) ([]ProposedShipment, error) {
	items := ShipmentItems(o.Items)
	proposed := make([]ProposedShipment, 0, len(items))
	for i, item := range items {
		proposed = append(proposed, ProposedShipment{
			OrderID:           o.ID,
			Title:             fmt.Sprintf("Shipment #%d", i+1),
			Items:             []shipping.ShipmentItem{item},
			ShippingProfileID: profileID(profile),
		})
	}
	return proposed, nil
}

// ShipmentItems snapshots the shippable items. Weight and declared value
// cover the whole quantity.
func ShipmentItems(items []*order.Item) []shipping.ShipmentItem {
	result := make([]shipping.ShipmentItem, 0, len(items))
	for _, item := range items {
		if !item.IsShippable() {
			continue
		}
		result = append(result, shipping.ShipmentItem{
			OrderItemID:   item.ID,
			Title:         item.Title,
			Quantity:      item.Quantity,
			Weight:        item.Purchased.Weight.Multiply(item.Quantity),
			DeclaredValue: item.UnitPrice.Multiply(item.Quantity),
		})
	}
	return result
}

func profileID(p *order.Profile) string {
	if p == nil {
		return ""
	}
	return p.ID
}
