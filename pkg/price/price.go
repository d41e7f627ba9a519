// Package price provides an arbitrary-precision monetary amount.
package price

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a decimal amount in a given currency.
//
// Arithmetic between prices of different currencies is a programming
// error and panics with a *CurrencyMismatchError. Callers that accept
// prices from configuration compare currencies first.
type Price struct {
	Number       decimal.Decimal
	CurrencyCode string
}

// CurrencyMismatchError is raised when two prices of different currencies are combined.
type CurrencyMismatchError struct {
	Left  string
	Right string
}

// Error implements the error interface.
func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s and %s", e.Left, e.Right)
}

// New creates a price from a decimal string. It panics on a malformed number,
// which makes it suitable for literals; use Parse for external input.
func New(number, currencyCode string) Price {
	p, err := Parse(number, currencyCode)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse creates a price from a decimal string.
func Parse(number, currencyCode string) (Price, error) {
	if currencyCode == "" {
		return Price{}, fmt.Errorf("parsing price %q: missing currency code", number)
	}
	d, err := decimal.NewFromString(number)
	if err != nil {
		return Price{}, fmt.Errorf("parsing price %q: %w", number, err)
	}
	return Price{Number: d, CurrencyCode: currencyCode}, nil
}

// FromDecimal creates a price from an existing decimal.
func FromDecimal(number decimal.Decimal, currencyCode string) Price {
	return Price{Number: number, CurrencyCode: currencyCode}
}

// Zero returns a zero price in the given currency.
func Zero(currencyCode string) Price {
	return Price{Number: decimal.Zero, CurrencyCode: currencyCode}
}

func (p Price) assertSameCurrency(other Price) {
	if p.CurrencyCode != other.CurrencyCode {
		panic(&CurrencyMismatchError{Left: p.CurrencyCode, Right: other.CurrencyCode})
	}
}

// Add returns p + other.
func (p Price) Add(other Price) Price {
	p.assertSameCurrency(other)
	return Price{Number: p.Number.Add(other.Number), CurrencyCode: p.CurrencyCode}
}

// Subtract returns p - other.
func (p Price) Subtract(other Price) Price {
	p.assertSameCurrency(other)
	return Price{Number: p.Number.Sub(other.Number), CurrencyCode: p.CurrencyCode}
}

// Multiply returns p * factor.
func (p Price) Multiply(factor decimal.Decimal) Price {
	return Price{Number: p.Number.Mul(factor), CurrencyCode: p.CurrencyCode}
}

// Divide returns p / divisor.
func (p Price) Divide(divisor decimal.Decimal) Price {
	return Price{Number: p.Number.Div(divisor), CurrencyCode: p.CurrencyCode}
}

// Compare returns -1, 0 or 1.
func (p Price) Compare(other Price) int {
	p.assertSameCurrency(other)
	return p.Number.Cmp(other.Number)
}

// Equal reports whether both prices have the same currency and numeric value.
func (p Price) Equal(other Price) bool {
	return p.CurrencyCode == other.CurrencyCode && p.Number.Equal(other.Number)
}

func (p Price) GreaterThan(other Price) bool { return p.Compare(other) > 0 }
func (p Price) LessThan(other Price) bool    { return p.Compare(other) < 0 }
func (p Price) IsZero() bool                 { return p.Number.IsZero() }
func (p Price) IsPositive() bool             { return p.Number.IsPositive() }
func (p Price) IsNegative() bool             { return p.Number.IsNegative() }

// String returns the price as "10.00 USD".
// Amounts more precise than the currency keep their digits.
func (p Price) String() string {
	places := digitsOf(p.CurrencyCode)
	if exp := -p.Number.Exponent(); exp > places {
		places = exp
	}
	return p.Number.StringFixed(places) + " " + p.CurrencyCode
}

type priceJSON struct {
	Number       string `json:"number"`
	CurrencyCode string `json:"currency_code"`
}

// MarshalJSON implements json.Marshaler.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceJSON{Number: p.Number.String(), CurrencyCode: p.CurrencyCode})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	var v priceJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := Parse(v.Number, v.CurrencyCode)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
