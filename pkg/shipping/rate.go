package shipping

import (
	"fmt"
	"time"

	"github.com/tournevent/shipping/pkg/price"
)

// Service is a shipping service offered by a shipping method.
type Service struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RateDefinition holds the values used to build a Rate.
type RateDefinition struct {
	ID               string
	ShippingMethodID string
	Service          Service
	OriginalAmount   *price.Price
	Amount           price.Price
	Description      string
	DeliveryDate     *time.Time
}

// Rate is one priced shipping option for a shipment.
//
// Identity (id, method, service) is fixed at construction. The amounts,
// description and delivery date may be rewritten by rates hooks.
type Rate struct {
	id               string
	shippingMethodID string
	service          Service
	originalAmount   price.Price
	amount           price.Price
	description      string
	deliveryDate     *time.Time
}

// NewRate builds a rate from its definition.
func NewRate(def RateDefinition) (*Rate, error) {
	if def.ShippingMethodID == "" {
		return nil, fmt.Errorf("%w: shipping_method_id", ErrMissingProperty)
	}
	if def.Service.ID == "" {
		return nil, fmt.Errorf("%w: service", ErrMissingProperty)
	}
	if def.Amount.CurrencyCode == "" {
		return nil, fmt.Errorf("%w: amount", ErrMissingProperty)
	}

	id := def.ID
	if id == "" {
		id = def.ShippingMethodID + "--" + def.Service.ID
	}
	original := def.Amount
	if def.OriginalAmount != nil {
		if def.OriginalAmount.CurrencyCode != def.Amount.CurrencyCode {
			return nil, fmt.Errorf("%w: original_amount currency %s does not match amount currency %s",
				ErrInvalidProperty, def.OriginalAmount.CurrencyCode, def.Amount.CurrencyCode)
		}
		original = *def.OriginalAmount
	}

	return &Rate{
		id:               id,
		shippingMethodID: def.ShippingMethodID,
		service:          def.Service,
		originalAmount:   original,
		amount:           def.Amount,
		description:      def.Description,
		deliveryDate:     def.DeliveryDate,
	}, nil
}

// ID returns the rate id.
func (r *Rate) ID() string { return r.id }

// ShippingMethodID returns the id of the shipping method that produced the rate.
func (r *Rate) ShippingMethodID() string { return r.shippingMethodID }

// Service returns the shipping service.
func (r *Rate) Service() Service { return r.service }

// OriginalAmount returns the amount before any discount.
func (r *Rate) OriginalAmount() price.Price { return r.originalAmount }

// Amount returns the amount.
func (r *Rate) Amount() price.Price { return r.amount }

// Description returns the description shown to the customer.
func (r *Rate) Description() string { return r.description }

// DeliveryDate returns the estimated delivery date, if known.
func (r *Rate) DeliveryDate() *time.Time { return r.deliveryDate }

// SetOriginalAmount sets the amount before any discount.
func (r *Rate) SetOriginalAmount(p price.Price) { r.originalAmount = p }

// SetAmount sets the amount.
func (r *Rate) SetAmount(p price.Price) { r.amount = p }

// SetDescription sets the description.
func (r *Rate) SetDescription(d string) { r.description = d }

// SetDeliveryDate sets the estimated delivery date.
func (r *Rate) SetDeliveryDate(t *time.Time) { r.deliveryDate = t }

// RateSet is an insertion-ordered collection of rates keyed by rate id.
type RateSet struct {
	ids   []string
	rates map[string]*Rate
}

// NewRateSet creates an empty rate set.
func NewRateSet() *RateSet {
	return &RateSet{rates: make(map[string]*Rate)}
}

// Put adds a rate. A rate with an existing id replaces the previous one and
// keeps its position.
func (s *RateSet) Put(r *Rate) {
	if _, ok := s.rates[r.ID()]; !ok {
		s.ids = append(s.ids, r.ID())
	}
	s.rates[r.ID()] = r
}

// Get returns the rate with the given id.
func (s *RateSet) Get(id string) (*Rate, bool) {
	r, ok := s.rates[id]
	return r, ok
}

// Len returns the number of rates.
func (s *RateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// All returns the rates in iteration order.
func (s *RateSet) All() []*Rate {
	if s == nil {
		return nil
	}
	result := make([]*Rate, 0, len(s.ids))
	for _, id := range s.ids {
		result = append(result, s.rates[id])
	}
	return result
}

// First returns the first rate, or nil when the set is empty.
func (s *RateSet) First() *Rate {
	if s.Len() == 0 {
		return nil
	}
	return s.rates[s.ids[0]]
}

// Clone returns a copy of the rate.
func (r *Rate) Clone() *Rate {
	c := *r
	return &c
}
