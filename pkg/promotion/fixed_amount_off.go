package promotion

import (
	"fmt"

	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/method"
)

// FixedAmountOffConfig configures FixedAmountOff.
type FixedAmountOffConfig struct {
	ShipmentOfferConfig `yaml:",inline"`
	Amount              method.AmountConfig `yaml:"amount"`
}

// FixedAmountOff takes a fixed amount off each eligible shipment.
type FixedAmountOff struct {
	shipmentOffer
	amount price.Price
}

// NewFixedAmountOff creates the offer.
func NewFixedAmountOff(cfg FixedAmountOffConfig, methods MethodLookup) (*FixedAmountOff, error) {
	amount, err := cfg.Amount.Price()
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", shipping.ErrInvalidConfiguration, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", shipping.ErrInvalidConfiguration)
	}
	o := &FixedAmountOff{
		shipmentOffer: newShipmentOffer(FixedAmountOffPluginID, cfg.ShipmentOfferConfig, methods),
		amount:        amount,
	}
	o.discount = o.discountFor
	return o, nil
}

// Amount returns the configured amount.
func (o *FixedAmountOff) Amount() price.Price { return o.amount }

// Shipments in another currency are skipped.
func (o *FixedAmountOff) discountFor(s *shipping.Shipment) (price.Price, string, bool) {
	if o.amount.CurrencyCode != s.Amount.CurrencyCode {
		return price.Price{}, "", false
	}
	return o.amount, "", true
}
