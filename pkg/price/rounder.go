package price

// Rounder rounds prices to the precision of their currency.
type Rounder interface {
	Round(p Price) Price
}

// defaultFractionDigits is used for currencies missing from the table.
const defaultFractionDigits int32 = 2

var fractionDigits = map[string]int32{
	"USD": 2,
	"EUR": 2,
	"CAD": 2,
	"GBP": 2,
	"CHF": 2,
	"AUD": 2,
	"RSD": 2,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"BHD": 3,
}

func digitsOf(currencyCode string) int32 {
	if d, ok := fractionDigits[currencyCode]; ok {
		return d
	}
	return defaultFractionDigits
}

// CurrencyRounder rounds half away from zero to the currency fraction digits.
type CurrencyRounder struct {
	digits map[string]int32
}

// NewRounder creates a rounder. Overrides replace entries of the built-in table.
func NewRounder(overrides map[string]int32) *CurrencyRounder {
	digits := make(map[string]int32, len(fractionDigits)+len(overrides))
	for code, d := range fractionDigits {
		digits[code] = d
	}
	for code, d := range overrides {
		digits[code] = d
	}
	return &CurrencyRounder{digits: digits}
}

// FractionDigits returns the number of decimals used for the currency.
func (r *CurrencyRounder) FractionDigits(currencyCode string) int32 {
	if d, ok := r.digits[currencyCode]; ok {
		return d
	}
	return defaultFractionDigits
}

// Round implements Rounder.
func (r *CurrencyRounder) Round(p Price) Price {
	return Price{
		Number:       p.Number.Round(r.FractionDigits(p.CurrencyCode)),
		CurrencyCode: p.CurrencyCode,
	}
}

// DefaultRounder is shared by components that are not given a rounder.
var DefaultRounder Rounder = NewRounder(nil)
