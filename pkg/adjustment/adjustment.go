// Package adjustment provides the monetary adjustment value type shared by
// orders, order items and shipments.
package adjustment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/price"
)

// Known adjustment types.
const (
	TypeShipping          = "shipping"
	TypeShippingPromotion = "shipping_promotion"
	TypePromotion         = "promotion"
	TypeTax               = "tax"
	TypeFee               = "fee"
	TypeCustom            = "custom"
)

var knownTypes = map[string]bool{
	TypeShipping:          true,
	TypeShippingPromotion: true,
	TypePromotion:         true,
	TypeTax:               true,
	TypeFee:               true,
	TypeCustom:            true,
}

// ErrInvalidAdjustment is returned by Validate and Add.
var ErrInvalidAdjustment = errors.New("invalid adjustment")

// Adjustment is a named monetary delta.
//
// Included adjustments are already part of the displayed amount they are
// attached to. Locked adjustments survive the adjustment clearing step at
// the start of an order refresh.
type Adjustment struct {
	Type       string      `json:"type"`
	Label      string      `json:"label"`
	Amount     price.Price `json:"amount"`
	Percentage string      `json:"percentage,omitempty"`
	SourceID   string      `json:"source_id,omitempty"`
	Included   bool        `json:"included"`
	Locked     bool        `json:"locked"`
}

// Validate checks the adjustment definition.
func (a Adjustment) Validate() error {
	if !knownTypes[a.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAdjustment, a.Type)
	}
	if a.Label == "" {
		return fmt.Errorf("%w: missing label", ErrInvalidAdjustment)
	}
	if a.Amount.CurrencyCode == "" {
		return fmt.Errorf("%w: missing amount", ErrInvalidAdjustment)
	}
	if a.HasPercentage() {
		if _, err := decimal.NewFromString(a.Percentage); err != nil {
			return fmt.Errorf("%w: percentage %q is not numeric", ErrInvalidAdjustment, a.Percentage)
		}
	}
	return nil
}

// HasPercentage reports whether a percentage is recorded.
func (a Adjustment) HasPercentage() bool {
	return a.Percentage != ""
}

// PercentageDecimal returns the percentage, or zero when unset or malformed.
func (a Adjustment) PercentageDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(a.Percentage)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IsPositive reports whether the amount is positive.
func (a Adjustment) IsPositive() bool { return a.Amount.IsPositive() }

// IsNegative reports whether the amount is negative.
func (a Adjustment) IsNegative() bool { return a.Amount.IsNegative() }

// WithAmount returns a copy with the given amount.
func (a Adjustment) WithAmount(amount price.Price) Adjustment {
	a.Amount = amount
	return a
}

// Unlocked returns a copy with Locked cleared.
func (a Adjustment) Unlocked() Adjustment {
	a.Locked = false
	return a
}

// Add combines two adjustments of the same kind into one.
func (a Adjustment) Add(other Adjustment) (Adjustment, error) {
	if a.Type != other.Type || a.SourceID != other.SourceID || a.Included != other.Included {
		return Adjustment{}, fmt.Errorf("%w: cannot add %s/%s to %s/%s",
			ErrInvalidAdjustment, other.Type, other.SourceID, a.Type, a.SourceID)
	}
	if !a.PercentageDecimal().Equal(other.PercentageDecimal()) {
		return Adjustment{}, fmt.Errorf("%w: percentage mismatch %s and %s",
			ErrInvalidAdjustment, a.Percentage, other.Percentage)
	}
	return a.WithAmount(a.Amount.Add(other.Amount)), nil
}

// Filter returns the adjustments of the given types, in order.
// No types means all adjustments.
func Filter(adjustments []Adjustment, types ...string) []Adjustment {
	result := make([]Adjustment, 0, len(adjustments))
	for _, a := range adjustments {
		if len(types) == 0 || contains(types, a.Type) {
			result = append(result, a)
		}
	}
	return result
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// TaxSource is the parsed source of a local tax adjustment.
type TaxSource struct {
	TaxTypeID string
	ZoneID    string
	RateID    string
}

// String returns the "{taxTypeId}|{zoneId}|{rateId}" form.
func (s TaxSource) String() string {
	return s.TaxTypeID + "|" + s.ZoneID + "|" + s.RateID
}

// ParseTaxSource parses a "{taxTypeId}|{zoneId}|{rateId}" source id.
// Remote tax types use other formats and are reported as not ok.
func ParseTaxSource(sourceID string) (TaxSource, bool) {
	if strings.Count(sourceID, "|") != 2 {
		return TaxSource{}, false
	}
	parts := strings.Split(sourceID, "|")
	return TaxSource{TaxTypeID: parts[0], ZoneID: parts[1], RateID: parts[2]}, true
}
