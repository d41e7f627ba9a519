package store

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/promotion"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/tax"
)

// SaveMethod stores a shipping method, assigning an id and UUID to new ones.
// Methods hold their plugin and are stored by reference.
func (m *Memory) SaveMethod(ctx context.Context, method *shipping.Method) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if method.ID == "" {
		method.ID = uuid.NewString()
	}
	if method.UUID == "" {
		method.UUID = uuid.NewString()
	}
	m.methods[method.ID] = method
	return nil
}

// Load returns the shipping method with the given id.
func (m *Memory) Load(ctx context.Context, id string) (*shipping.Method, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	method, ok := m.methods[id]
	if !ok {
		return nil, &notFoundError{kind: "shipping method", id: id, domain: shipping.ErrMethodNotFound}
	}
	return method, nil
}

// LoadForShipment returns the enabled methods of the shipment's store whose
// conditions accept the shipment, ordered by weight and id.
func (m *Memory) LoadForShipment(ctx context.Context, s *shipping.Shipment) ([]*shipping.Method, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var storeID string
	if stored, ok := m.orders[s.OrderID]; ok {
		storeID = stored.order.Store.ID
	}
	var result []*shipping.Method
	for _, method := range m.methods {
		if method.Enabled && method.AvailableInStore(storeID) && method.Applies(s) {
			result = append(result, method)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Weight != result[j].Weight {
			return result[i].Weight < result[j].Weight
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// SavePromotion stores a promotion, assigning an id and UUID to new ones.
// Promotions are kept in insertion order.
func (m *Memory) SavePromotion(ctx context.Context, p *promotion.Promotion) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	for i, existing := range m.promotions {
		if existing.ID == p.ID {
			m.promotions[i] = p
			return nil
		}
	}
	m.promotions = append(m.promotions, p)
	return nil
}

// LoadAvailable returns the promotions available to the order, ordered by
// weight. Insertion order breaks ties.
func (m *Memory) LoadAvailable(ctx context.Context, o *order.Order) ([]*promotion.Promotion, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*promotion.Promotion
	for _, p := range m.promotions {
		if p.Available(o) {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Weight < result[j].Weight
	})
	return result, nil
}

// SaveTaxType stores a local tax type.
func (m *Memory) SaveTaxType(ctx context.Context, t *tax.LocalTaxType) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taxTypes[t.ID] = t
	return nil
}

// LocalTaxType returns the local tax type with the given id.
func (m *Memory) LocalTaxType(ctx context.Context, id string) (*tax.LocalTaxType, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.taxTypes[id]
	if !ok {
		return nil, &notFoundError{kind: "tax type", id: id, domain: tax.ErrTaxTypeNotFound}
	}
	return t, nil
}
