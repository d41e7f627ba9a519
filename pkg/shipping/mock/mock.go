// Package mock provides mock carrier quoters, rate providers and rates hooks
// for testing.
package mock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/method"
)

// Quoter is a mock carrier quoter.
type Quoter struct {
	name     string
	currency string

	// OnGetQuote replaces the canned quotes when set.
	OnGetQuote func(ctx context.Context, req *method.QuoteRequest) ([]method.Quote, error)
	// SimulateErrors makes every call fail.
	SimulateErrors bool
}

// NewQuoter creates a mock quoter quoting in the given currency.
func NewQuoter(name, currency string) *Quoter {
	return &Quoter{name: name, currency: currency}
}

// Name returns the carrier name.
func (q *Quoter) Name() string { return q.name }

// GetQuote returns a standard and an express quote.
func (q *Quoter) GetQuote(ctx context.Context, req *method.QuoteRequest) ([]method.Quote, error) {
	if q.SimulateErrors {
		return nil, errors.New("simulated carrier error")
	}
	if q.OnGetQuote != nil {
		return q.OnGetQuote(ctx, req)
	}

	now := time.Now()
	standard := now.Add(5 * 24 * time.Hour)
	express := now.Add(2 * 24 * time.Hour)
	return []method.Quote{
		{
			ServiceID:    "EXPRESS",
			ServiceLabel: q.name + " Express",
			Amount:       price.New("29.95", q.currency),
			TransitDays:  2,
			DeliveryDate: &express,
		},
		{
			ServiceID:    "STANDARD",
			ServiceLabel: q.name + " Standard",
			Amount:       price.New("15.82", q.currency),
			TransitDays:  5,
			DeliveryDate: &standard,
		},
	}, nil
}

// FailingProvider is a rate provider whose calculation always fails.
type FailingProvider struct {
	method.Base
	Err error
}

// NewFailingProvider creates a failing provider for the shipping method.
func NewFailingProvider(methodID string) *FailingProvider {
	return &FailingProvider{
		Base: method.NewBase(methodID, []shipping.Service{{ID: "default", Label: "Default"}}, nil),
		Err:  errors.New("this is an exception"),
	}
}

// PluginID implements shipping.RateProvider.
func (p *FailingProvider) PluginID() string { return "exception_thrower" }

// CalculateRates implements shipping.RateProvider.
func (p *FailingProvider) CalculateRates(context.Context, *shipping.Shipment) ([]*shipping.Rate, error) {
	return nil, p.Err
}

// StaticProvider returns a fixed batch of rates.
type StaticProvider struct {
	method.Base
	Rates []*shipping.Rate
}

// NewStaticProvider creates a provider returning rates with the given
// service ids and amounts, in order.
func NewStaticProvider(methodID string, amounts map[string]price.Price, order ...string) *StaticProvider {
	services := make([]shipping.Service, 0, len(order))
	rates := make([]*shipping.Rate, 0, len(order))
	for _, id := range order {
		svc := shipping.Service{ID: id, Label: id}
		services = append(services, svc)
		r, err := shipping.NewRate(shipping.RateDefinition{
			ShippingMethodID: methodID,
			Service:          svc,
			Amount:           amounts[id],
		})
		if err != nil {
			panic(err)
		}
		rates = append(rates, r)
	}
	return &StaticProvider{Base: method.NewBase(methodID, services, nil), Rates: rates}
}

// PluginID implements shipping.RateProvider.
func (p *StaticProvider) PluginID() string { return "static" }

// CalculateRates implements shipping.RateProvider. Each call returns fresh copies.
func (p *StaticProvider) CalculateRates(context.Context, *shipping.Shipment) ([]*shipping.Rate, error) {
	rates := make([]*shipping.Rate, len(p.Rates))
	for i, r := range p.Rates {
		rates[i] = r.Clone()
	}
	return rates, nil
}

var twoDecimal = decimal.NewFromInt(2)

// DoubleFirstRate doubles the amount of the first rate of shipments flagged
// with AlterRate.
func DoubleFirstRate(_ context.Context, event *shipping.RatesEvent) error {
	if len(event.Rates) == 0 || !event.Shipment.AlterRate {
		return nil
	}
	r := event.Rates[0]
	r.SetAmount(r.Amount().Multiply(twoDecimal))
	return nil
}

// MethodStorage serves shipping methods from a slice.
type MethodStorage struct {
	Methods []*shipping.Method
}

// Load returns the method with the given id.
func (m *MethodStorage) Load(_ context.Context, id string) (*shipping.Method, error) {
	for _, candidate := range m.Methods {
		if candidate.ID == id {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shipping.ErrMethodNotFound, id)
}

// LoadForShipment returns the enabled methods whose conditions accept the shipment, in slice order.
func (m *MethodStorage) LoadForShipment(_ context.Context, s *shipping.Shipment) ([]*shipping.Method, error) {
	result := make([]*shipping.Method, 0, len(m.Methods))
	for _, candidate := range m.Methods {
		if candidate.Enabled && candidate.Applies(s) {
			result = append(result, candidate)
		}
	}
	return result, nil
}
