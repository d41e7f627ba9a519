// Package ordermanager provides the order level shipping facade.
package ordermanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/packer"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const defaultProfileType = "customer"

// OrderTypeSettings holds the shipping settings of an order type. Order
// types without settings are not shippable.
type OrderTypeSettings struct {
	ShipmentType string
	ProfileType  string
}

// ShipmentStorage persists shipments.
type ShipmentStorage interface {
	SaveShipment(ctx context.Context, s *shipping.Shipment) error
	DeleteShipments(ctx context.Context, shipments ...*shipping.Shipment) error
}

// ProfileStorage persists customer profiles.
type ProfileStorage interface {
	// LoadProfile returns the profile or an error wrapping order.ErrProfileNotFound.
	LoadProfile(ctx context.Context, id string) (*order.Profile, error)
	SaveProfile(ctx context.Context, p *order.Profile) error
}

// Manager provides shippability checks, profile handling and packing for orders.
type Manager struct {
	packers    *packer.Manager
	shipments  ShipmentStorage
	profiles   ProfileStorage
	orderTypes map[string]OrderTypeSettings
	logger     *otelzap.Logger
}

// New creates a new Manager.
func New(packers *packer.Manager, shipments ShipmentStorage, profiles ProfileStorage, orderTypes map[string]OrderTypeSettings, logger *otelzap.Logger) *Manager {
	return &Manager{
		packers:    packers,
		shipments:  shipments,
		profiles:   profiles,
		orderTypes: orderTypes,
		logger:     logger,
	}
}

// HasShipmentsField reports whether the order type carries shipments at all.
func (m *Manager) HasShipmentsField(o *order.Order) bool {
	_, ok := m.orderTypes[o.Type]
	return ok
}

// IsShippable reports whether the order contains at least one item whose
// purchased entity has a weight.
func (m *Manager) IsShippable(o *order.Order) bool {
	if !m.HasShipmentsField(o) {
		return false
	}
	for _, item := range o.Items {
		if item.IsShippable() {
			return true
		}
	}
	return false
}

// HasShipments reports whether the order has shipments.
func (m *Manager) HasShipments(o *order.Order) bool {
	return m.HasShipmentsField(o) && len(o.Shipments) > 0
}

// GetProfile returns the shipping profile of the order, nil when there is none.
func (m *Manager) GetProfile(ctx context.Context, o *order.Order) (*order.Profile, error) {
	for _, s := range o.Shipments {
		if s.ShippingProfileID == "" {
			continue
		}
		p, err := m.profiles.LoadProfile(ctx, s.ShippingProfileID)
		if errors.Is(err, order.ErrProfileNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("loading shipping profile %s: %w", s.ShippingProfileID, err)
		}
		return p, nil
	}
	return nil, nil
}

// CreateProfile builds an unsaved profile of the type configured for the
// order type.
func (m *Manager) CreateProfile(o *order.Order, values order.Profile) *order.Profile {
	p := values
	if p.Type == "" {
		p.Type = defaultProfileType
	}
	if settings, ok := m.orderTypes[o.Type]; ok && settings.ProfileType != "" {
		p.Type = settings.ProfileType
	}
	if p.Fields == nil {
		p.Fields = map[string]string{}
	}
	return &p
}

// Pack packs the order into shipments for the profile. Without a profile,
// the order's profile is used, or a new one is created and saved. Shipments
// no longer needed are deleted.
func (m *Manager) Pack(ctx context.Context, o *order.Order, profile *order.Profile) ([]*shipping.Shipment, error) {
	if profile == nil {
		var err error
		profile, err = m.GetProfile(ctx, o)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			profile = m.CreateProfile(o, order.Profile{})
			if err := m.profiles.SaveProfile(ctx, profile); err != nil {
				return nil, fmt.Errorf("saving shipping profile: %w", err)
			}
		}
	}

	shipments, removed, err := m.packers.PackToShipments(ctx, o, profile, o.Shipments)
	if err != nil {
		return nil, fmt.Errorf("packing order %s: %w", o.ID, err)
	}
	if len(removed) > 0 {
		if err := m.shipments.DeleteShipments(ctx, removed...); err != nil {
			return nil, fmt.Errorf("deleting unused shipments: %w", err)
		}
	}

	m.logger.Ctx(ctx).Debug("Packed order",
		zap.String("order_id", o.ID),
		zap.Int("shipments", len(shipments)),
		zap.Int("removed", len(removed)),
	)
	return shipments, nil
}

// DeleteShipments deletes shipments through the shipment storage.
func (m *Manager) DeleteShipments(ctx context.Context, shipments ...*shipping.Shipment) error {
	if len(shipments) == 0 {
		return nil
	}
	return m.shipments.DeleteShipments(ctx, shipments...)
}

// SaveShipment saves a shipment through the shipment storage.
func (m *Manager) SaveShipment(ctx context.Context, s *shipping.Shipment) error {
	return m.shipments.SaveShipment(ctx, s)
}
