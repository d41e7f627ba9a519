package shipping

import (
	"context"

	"github.com/tournevent/shipping/pkg/physical"
)

// Method is a configured shipping method backed by a rate provider plugin.
type Method struct {
	ID         string
	UUID       string
	Name       string
	Stores     []string
	Weight     int
	Enabled    bool
	Conditions []Condition
	Plugin     RateProvider
}

// AvailableInStore reports whether the method is offered in the store.
// A method without stores is offered everywhere.
func (m *Method) AvailableInStore(storeID string) bool {
	if len(m.Stores) == 0 {
		return true
	}
	for _, id := range m.Stores {
		if id == storeID {
			return true
		}
	}
	return false
}

// Applies reports whether every condition accepts the shipment.
func (m *Method) Applies(s *Shipment) bool {
	for _, c := range m.Conditions {
		if !c.Evaluate(s) {
			return false
		}
	}
	return true
}

// Condition restricts the shipments a method is offered for.
type Condition interface {
	Evaluate(s *Shipment) bool
}

// WeightCondition accepts shipments whose weight lies in [Min, Max].
// A nil bound is open.
type WeightCondition struct {
	Min *physical.Weight
	Max *physical.Weight
}

// Evaluate implements Condition.
func (c WeightCondition) Evaluate(s *Shipment) bool {
	w := s.Weight()
	if w.Unit == "" {
		w = physical.Weight{Unit: physical.Gram}
	}
	if c.Min != nil && w.Compare(*c.Min) < 0 {
		return false
	}
	if c.Max != nil && w.Compare(*c.Max) > 0 {
		return false
	}
	return true
}

// MethodStorage loads shipping methods.
type MethodStorage interface {
	// Load returns the method with the given id or an error wrapping ErrMethodNotFound.
	Load(ctx context.Context, id string) (*Method, error)
	// LoadForShipment returns the enabled methods available to the shipment,
	// ordered by weight and id.
	LoadForShipment(ctx context.Context, s *Shipment) ([]*Method, error)
}
