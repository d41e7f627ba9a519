package method

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

// QuoteRequest describes a shipment to a carrier.
type QuoteRequest struct {
	ShipmentID        string
	ShippingProfileID string
	Weight            physical.Weight
	Quantity          decimal.Decimal
	DeclaredValue     *price.Price
	PackageType       *shipping.PackageType
}

// Quote is one priced carrier service.
type Quote struct {
	ServiceID    string
	ServiceLabel string
	Amount       price.Price
	TransitDays  int
	DeliveryDate *time.Time
}

// Quoter returns carrier quotes for a shipment.
type Quoter interface {
	Name() string
	GetQuote(ctx context.Context, req *QuoteRequest) ([]Quote, error)
}

// CarrierConfig configures the carrier plugin.
type CarrierConfig struct {
	Carrier            string             `yaml:"carrier" validate:"required"`
	Services           []string           `yaml:"services"`
	DefaultPackageType *PackageTypeConfig `yaml:"default_package_type"`
}

// Carrier offers the services quoted by a carrier.
type Carrier struct {
	Base
	quoter  Quoter
	allowed map[string]bool
}

// NewCarrierFactory returns the factory of the carrier plugin. The factory
// resolves the configured carrier name against quoters.
func NewCarrierFactory(quoters map[string]Quoter) shipping.ProviderFactory {
	return func(methodID string, cfg shipping.ConfigDecoder) (shipping.RateProvider, error) {
		var c CarrierConfig
		if err := decode(cfg, &c); err != nil {
			return nil, err
		}
		q, ok := quoters[c.Carrier]
		if !ok {
			return nil, fmt.Errorf("%w: unknown carrier %q", shipping.ErrInvalidConfiguration, c.Carrier)
		}
		pt, err := c.DefaultPackageType.PackageType()
		if err != nil {
			return nil, err
		}
		allowed := make(map[string]bool, len(c.Services))
		services := make([]shipping.Service, 0, len(c.Services))
		for _, id := range c.Services {
			allowed[id] = true
			services = append(services, shipping.Service{ID: id, Label: id})
		}
		return &Carrier{
			Base:    NewBase(methodID, services, pt),
			quoter:  q,
			allowed: allowed,
		}, nil
	}
}

// RegisterCarrier registers the carrier plugin.
func RegisterCarrier(reg *shipping.Registry, quoters map[string]Quoter) {
	reg.Register(CarrierPluginID, NewCarrierFactory(quoters))
}

// PluginID implements shipping.RateProvider.
func (p *Carrier) PluginID() string { return CarrierPluginID }

// CalculateRates implements shipping.RateProvider.
func (p *Carrier) CalculateRates(ctx context.Context, s *shipping.Shipment) ([]*shipping.Rate, error) {
	req := &QuoteRequest{
		ShipmentID:        s.ID,
		ShippingProfileID: s.ShippingProfileID,
		Weight:            s.Weight(),
		Quantity:          s.TotalQuantity(),
		DeclaredValue:     s.TotalDeclaredValue(),
		PackageType:       s.PackageType,
	}
	quotes, err := p.quoter.GetQuote(ctx, req)
	if err != nil {
		return nil, shipping.NewProviderError(p.MethodID(), "QUOTE_FAILED",
			fmt.Sprintf("%s quote failed", p.quoter.Name())).WithCause(err)
	}

	rates := make([]*shipping.Rate, 0, len(quotes))
	for _, q := range quotes {
		if len(p.allowed) > 0 && !p.allowed[q.ServiceID] {
			continue
		}
		description := ""
		if q.TransitDays > 0 {
			description = fmt.Sprintf("%d business days", q.TransitDays)
		}
		r, err := shipping.NewRate(shipping.RateDefinition{
			ShippingMethodID: p.MethodID(),
			Service:          shipping.Service{ID: q.ServiceID, Label: q.ServiceLabel},
			Amount:           q.Amount,
			Description:      description,
			DeliveryDate:     q.DeliveryDate,
		})
		if err != nil {
			return nil, shipping.NewProviderError(p.MethodID(), "INVALID_QUOTE",
				fmt.Sprintf("%s returned an invalid quote", p.quoter.Name())).WithCause(err)
		}
		rates = append(rates, r)
	}
	return rates, nil
}
