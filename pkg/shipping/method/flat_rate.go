package method

import (
	"context"

	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

const defaultServiceID = "default"

// FlatRateConfig configures the flat rate plugins.
type FlatRateConfig struct {
	RateLabel          string             `yaml:"rate_label" validate:"required"`
	RateDescription    string             `yaml:"rate_description"`
	RateAmount         AmountConfig       `yaml:"rate_amount"`
	DefaultPackageType *PackageTypeConfig `yaml:"default_package_type"`
}

// FlatRate offers a single service at a fixed amount.
type FlatRate struct {
	Base
	amount      price.Price
	description string
}

// NewFlatRate is the factory of the flat_rate plugin.
func NewFlatRate(methodID string, cfg shipping.ConfigDecoder) (shipping.RateProvider, error) {
	return newFlatRate(methodID, cfg)
}

func newFlatRate(methodID string, cfg shipping.ConfigDecoder) (*FlatRate, error) {
	var c FlatRateConfig
	if err := decode(cfg, &c); err != nil {
		return nil, err
	}
	amount, err := c.RateAmount.Price()
	if err != nil {
		return nil, err
	}
	pt, err := c.DefaultPackageType.PackageType()
	if err != nil {
		return nil, err
	}
	services := []shipping.Service{{ID: defaultServiceID, Label: c.RateLabel}}
	return &FlatRate{
		Base:        NewBase(methodID, services, pt),
		amount:      amount,
		description: c.RateDescription,
	}, nil
}

// PluginID implements shipping.RateProvider.
func (p *FlatRate) PluginID() string { return FlatRatePluginID }

// CalculateRates implements shipping.RateProvider.
func (p *FlatRate) CalculateRates(_ context.Context, _ *shipping.Shipment) ([]*shipping.Rate, error) {
	return p.rate(p.amount)
}

func (p *FlatRate) rate(amount price.Price) ([]*shipping.Rate, error) {
	r, err := shipping.NewRate(shipping.RateDefinition{
		ShippingMethodID: p.MethodID(),
		Service:          p.services[0],
		Amount:           amount,
		Description:      p.description,
	})
	if err != nil {
		return nil, err
	}
	return []*shipping.Rate{r}, nil
}

// FlatRatePerItem charges the configured amount for each unit shipped.
type FlatRatePerItem struct {
	*FlatRate
}

// NewFlatRatePerItem is the factory of the flat_rate_per_item plugin.
func NewFlatRatePerItem(methodID string, cfg shipping.ConfigDecoder) (shipping.RateProvider, error) {
	fr, err := newFlatRate(methodID, cfg)
	if err != nil {
		return nil, err
	}
	return &FlatRatePerItem{FlatRate: fr}, nil
}

// PluginID implements shipping.RateProvider.
func (p *FlatRatePerItem) PluginID() string { return FlatRatePerItemPluginID }

// CalculateRates implements shipping.RateProvider.
func (p *FlatRatePerItem) CalculateRates(_ context.Context, s *shipping.Shipment) ([]*shipping.Rate, error) {
	return p.rate(p.amount.Multiply(s.TotalQuantity()))
}
