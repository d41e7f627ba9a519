// Package store provides in-memory storage for orders, shipments, profiles,
// shipping methods, promotions and tax types.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/promotion"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/tax"
)

// ErrNotFound is matched by every lookup error of the store.
var ErrNotFound = errors.New("not found")

type notFoundError struct {
	kind   string
	id     string
	domain error
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.kind, e.id)
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound || (e.domain != nil && target == e.domain)
}

type storedOrder struct {
	order       *order.Order
	shipmentIDs []string
}

// Memory is an in-memory store. Values are copied on the way in and out.
type Memory struct {
	orders     map[string]storedOrder
	shipments  map[string]*shipping.Shipment
	profiles   map[string]*order.Profile
	methods    map[string]*shipping.Method
	promotions []*promotion.Promotion
	taxTypes   map[string]*tax.LocalTaxType
	mu         sync.RWMutex
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[string]storedOrder),
		shipments: make(map[string]*shipping.Shipment),
		profiles:  make(map[string]*order.Profile),
		methods:   make(map[string]*shipping.Method),
		taxTypes:  make(map[string]*tax.LocalTaxType),
	}
}

func checkContext(ctx context.Context) error {
	// Check if the context is canceled or timed out
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// SaveOrder stores the order and any of its shipments with unsaved changes.
func (m *Memory) SaveOrder(ctx context.Context, o *order.Order) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	ids := make([]string, 0, len(o.Shipments))
	for _, s := range o.Shipments {
		s.OrderID = o.ID
		if s.HasChanges() {
			m.saveShipment(s)
		}
		ids = append(ids, s.ID)
	}
	c := o.Clone()
	c.Shipments = nil
	c.Original = nil
	m.orders[o.ID] = storedOrder{order: c, shipmentIDs: ids}
	return nil
}

// LoadOrder returns a copy of the order with its shipments. Original holds
// the stored checkout step and item ids.
func (m *Memory) LoadOrder(ctx context.Context, id string) (*order.Order, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.orders[id]
	if !ok {
		return nil, &notFoundError{kind: "order", id: id, domain: order.ErrOrderNotFound}
	}
	o := stored.order.Clone()
	o.Original = stored.order.Snapshot()
	for _, sid := range stored.shipmentIDs {
		if s, ok := m.shipments[sid]; ok {
			o.Shipments = append(o.Shipments, s.Clone())
		}
	}
	return o, nil
}

// OrderIDs returns the ids of the stored orders, sorted.
func (m *Memory) OrderIDs(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveShipment stores the shipment, assigning an id to new ones.
func (m *Memory) SaveShipment(ctx context.Context, s *shipping.Shipment) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveShipment(s)
	return nil
}

func (m *Memory) saveShipment(s *shipping.Shipment) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.MarkSaved()
	m.shipments[s.ID] = s.Clone()
}

// LoadShipment returns a copy of the shipment.
func (m *Memory) LoadShipment(ctx context.Context, id string) (*shipping.Shipment, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shipments[id]
	if !ok {
		return nil, &notFoundError{kind: "shipment", id: id, domain: shipping.ErrShipmentNotFound}
	}
	return s.Clone(), nil
}

// DeleteShipments removes the shipments. Shipments never saved are ignored.
func (m *Memory) DeleteShipments(ctx context.Context, shipments ...*shipping.Shipment) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range shipments {
		if s.ID != "" {
			delete(m.shipments, s.ID)
		}
	}
	return nil
}

// SaveProfile stores the profile, assigning an id to new ones.
func (m *Memory) SaveProfile(ctx context.Context, p *order.Profile) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	c := *p
	c.Fields = copyFields(p.Fields)
	m.profiles[p.ID] = &c
	return nil
}

// LoadProfile returns a copy of the profile.
func (m *Memory) LoadProfile(ctx context.Context, id string) (*order.Profile, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, &notFoundError{kind: "profile", id: id, domain: order.ErrProfileNotFound}
	}
	c := *p
	c.Fields = copyFields(p.Fields)
	return &c, nil
}

// DeleteProfile removes the profile.
func (m *Memory) DeleteProfile(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, id)
	return nil
}

func copyFields(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}
	c := make(map[string]string, len(fields))
	for k, v := range fields {
		c[k] = v
	}
	return c
}
