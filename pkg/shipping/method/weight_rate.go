package method

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/shipping"
)

// WeightRate charges the configured amount per gram of package weight.
// Shipments without a package type receive no rate.
type WeightRate struct {
	*FlatRate
}

// NewWeightRate is the factory of the weight_rate plugin.
func NewWeightRate(methodID string, cfg shipping.ConfigDecoder) (shipping.RateProvider, error) {
	fr, err := newFlatRate(methodID, cfg)
	if err != nil {
		return nil, err
	}
	return &WeightRate{FlatRate: fr}, nil
}

// PluginID implements shipping.RateProvider.
func (p *WeightRate) PluginID() string { return WeightRatePluginID }

// CalculateRates implements shipping.RateProvider.
func (p *WeightRate) CalculateRates(_ context.Context, s *shipping.Shipment) ([]*shipping.Rate, error) {
	if s.PackageType == nil {
		return nil, nil
	}
	grams := decimal.NewFromInt(1)
	if w := s.PackageType.Weight; w.Unit != "" && !w.IsZero() {
		grams = w.Convert(physical.Gram).Number
	}
	return p.rate(p.amount.Multiply(grams))
}
