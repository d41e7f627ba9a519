package promotion

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

// PercentageOffConfig configures PercentageOff.
type PercentageOffConfig struct {
	ShipmentOfferConfig `yaml:",inline"`
	// Percentage is a fraction, "0.5" for 50%.
	Percentage string `yaml:"percentage" validate:"required,numeric"`
}

// PercentageOff takes a percentage of the amount off each eligible shipment.
type PercentageOff struct {
	shipmentOffer
	percentage decimal.Decimal
	rounder    price.Rounder
}

// NewPercentageOff creates the offer.
func NewPercentageOff(cfg PercentageOffConfig, methods MethodLookup, rounder price.Rounder) (*PercentageOff, error) {
	pct, err := decimal.NewFromString(cfg.Percentage)
	if err != nil {
		return nil, fmt.Errorf("%w: percentage: %v", shipping.ErrInvalidConfiguration, err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: percentage %s out of range", shipping.ErrInvalidConfiguration, cfg.Percentage)
	}
	if rounder == nil {
		rounder = price.DefaultRounder
	}
	o := &PercentageOff{
		shipmentOffer: newShipmentOffer(PercentageOffPluginID, cfg.ShipmentOfferConfig, methods),
		percentage:    pct,
		rounder:       rounder,
	}
	o.discount = o.discountFor
	return o, nil
}

// Percentage returns the configured percentage.
func (o *PercentageOff) Percentage() decimal.Decimal { return o.percentage }

// The discount is taken from the shipment amount, not the adjusted amount.
func (o *PercentageOff) discountFor(s *shipping.Shipment) (price.Price, string, bool) {
	amount := o.rounder.Round(s.Amount.Multiply(o.percentage))
	return amount, o.percentage.String(), true
}
