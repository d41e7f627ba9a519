// Package packer distributes order items into shipments.
package packer

import (
	"context"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/shipping"
)

// ProposedShipment is a packing result not yet bound to a shipment.
type ProposedShipment struct {
	Type              string
	OrderID           string
	Title             string
	Items             []shipping.ShipmentItem
	ShippingProfileID string
	PackageType       *shipping.PackageType
}

// Packer is a packing policy.
type Packer interface {
	// ID returns the packer id.
	ID() string
	// Applies reports whether the packer handles the order.
	Applies(o *order.Order, profile *order.Profile) bool
	// Pack proposes shipments for the order. A nil result lets the next packer try.
	Pack(ctx context.Context, o *order.Order, profile *order.Profile) ([]ProposedShipment, error)
}

// Manager runs packers in order, the first applicable one wins.
type Manager struct {
	packers         []Packer
	shipmentTypes   map[string]string
	defaultShipment string
}

// NewManager creates a packer manager. shipmentTypes maps order types to
// the shipment type created for them.
func NewManager(shipmentTypes map[string]string, packers ...Packer) *Manager {
	return &Manager{
		packers:         packers,
		shipmentTypes:   shipmentTypes,
		defaultShipment: "default",
	}
}

// Add appends a packer.
func (m *Manager) Add(p Packer) {
	m.packers = append(m.packers, p)
}

// ShipmentType returns the shipment type used for the order type.
func (m *Manager) ShipmentType(orderType string) string {
	if t, ok := m.shipmentTypes[orderType]; ok && t != "" {
		return t
	}
	return m.defaultShipment
}

// Pack returns the proposed shipments of the first applicable packer.
func (m *Manager) Pack(ctx context.Context, o *order.Order, profile *order.Profile) ([]ProposedShipment, error) {
	for _, p := range m.packers {
		if !p.Applies(o, profile) {
			continue
		}
		proposed, err := p.Pack(ctx, o, profile)
		if err != nil {
			return nil, err
		}
		if proposed != nil {
			return proposed, nil
		}
	}
	return nil, nil
}

// PackToShipments packs the order and binds the result to shipments.
// Proposed shipment i reuses existing shipment i; missing ones are created
// as drafts. Existing shipments left over are returned as removed.
func (m *Manager) PackToShipments(ctx context.Context, o *order.Order, profile *order.Profile, existing []*shipping.Shipment) ([]*shipping.Shipment, []*shipping.Shipment, error) {
	proposed, err := m.Pack(ctx, o, profile)
	if err != nil {
		return nil, nil, err
	}

	shipments := make([]*shipping.Shipment, 0, len(proposed))
	for i, p := range proposed {
		var s *shipping.Shipment
		if i < len(existing) {
			s = existing[i]
		} else {
			shipmentType := p.Type
			if shipmentType == "" {
				shipmentType = m.ShipmentType(o.Type)
			}
			s = shipping.NewShipment(o.ID, shipmentType)
		}
		populate(s, p)
		s.OwnedByPacker = true
		shipments = append(shipments, s)
	}

	var removed []*shipping.Shipment
	if len(existing) > len(proposed) {
		removed = append(removed, existing[len(proposed):]...)
	}
	return shipments, removed, nil
}

func populate(s *shipping.Shipment, p ProposedShipment) {
	s.OrderID = p.OrderID
	s.SetTitle(p.Title)
	s.SetItems(p.Items)
	s.SetShippingProfileID(p.ShippingProfileID)
	if p.PackageType != nil {
		s.SetPackageType(p.PackageType)
	}
}
