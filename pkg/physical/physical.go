// Package physical provides weight and length measurements.
package physical

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WeightUnit represents a weight measurement unit.
type WeightUnit string

const (
	Gram     WeightUnit = "g"
	Kilogram WeightUnit = "kg"
	Ounce    WeightUnit = "oz"
	Pound    WeightUnit = "lb"
)

// LengthUnit represents a length measurement unit.
type LengthUnit string

const (
	Millimeter LengthUnit = "mm"
	Centimeter LengthUnit = "cm"
	Meter      LengthUnit = "m"
	Inch       LengthUnit = "in"
	Foot       LengthUnit = "ft"
)

// Factors to the base unit (gram, millimeter).
var (
	weightFactors = map[WeightUnit]decimal.Decimal{
		Gram:     decimal.NewFromInt(1),
		Kilogram: decimal.NewFromInt(1000),
		Ounce:    decimal.RequireFromString("28.349523125"),
		Pound:    decimal.RequireFromString("453.59237"),
	}
	lengthFactors = map[LengthUnit]decimal.Decimal{
		Millimeter: decimal.NewFromInt(1),
		Centimeter: decimal.NewFromInt(10),
		Meter:      decimal.NewFromInt(1000),
		Inch:       decimal.RequireFromString("25.4"),
		Foot:       decimal.RequireFromString("304.8"),
	}
)

// Weight is a weight measurement.
type Weight struct {
	Number decimal.Decimal `json:"number"`
	Unit   WeightUnit      `json:"unit"`
}

// ParseWeight creates a weight from a decimal string.
func ParseWeight(number string, unit WeightUnit) (Weight, error) {
	if _, ok := weightFactors[unit]; !ok {
		return Weight{}, fmt.Errorf("invalid weight unit %q", unit)
	}
	d, err := decimal.NewFromString(number)
	if err != nil {
		return Weight{}, fmt.Errorf("parsing weight %q: %w", number, err)
	}
	return Weight{Number: d, Unit: unit}, nil
}

// NewWeight creates a weight, panicking on malformed input.
func NewWeight(number string, unit WeightUnit) Weight {
	w, err := ParseWeight(number, unit)
	if err != nil {
		panic(err)
	}
	return w
}

// Convert returns the weight expressed in the given unit.
func (w Weight) Convert(unit WeightUnit) Weight {
	if w.Unit == unit {
		return w
	}
	grams := w.Number.Mul(weightFactors[w.Unit])
	return Weight{Number: grams.Div(weightFactors[unit]), Unit: unit}
}

// Add returns w + other, expressed in the unit of w.
// A zero-value weight takes the unit of other.
func (w Weight) Add(other Weight) Weight {
	if w.Unit == "" {
		return other
	}
	if other.Unit == "" {
		return w
	}
	return Weight{Number: w.Number.Add(other.Convert(w.Unit).Number), Unit: w.Unit}
}

// Multiply returns w * factor.
func (w Weight) Multiply(factor decimal.Decimal) Weight {
	return Weight{Number: w.Number.Mul(factor), Unit: w.Unit}
}

// IsZero reports whether the weight is zero.
func (w Weight) IsZero() bool {
	return w.Number.IsZero()
}

// Compare compares the weights in grams.
func (w Weight) Compare(other Weight) int {
	return w.Convert(Gram).Number.Cmp(other.Convert(Gram).Number)
}

func (w Weight) String() string {
	return w.Number.String() + " " + string(w.Unit)
}

// Length is a length measurement.
type Length struct {
	Number decimal.Decimal `json:"number"`
	Unit   LengthUnit      `json:"unit"`
}

// NewLength creates a length, panicking on malformed input.
func NewLength(number string, unit LengthUnit) Length {
	if _, ok := lengthFactors[unit]; !ok {
		panic(fmt.Errorf("invalid length unit %q", unit))
	}
	return Length{Number: decimal.RequireFromString(number), Unit: unit}
}

// Convert returns the length expressed in the given unit.
func (l Length) Convert(unit LengthUnit) Length {
	if l.Unit == unit {
		return l
	}
	mm := l.Number.Mul(lengthFactors[l.Unit])
	return Length{Number: mm.Div(lengthFactors[unit]), Unit: unit}
}

// Dimensions are the outer dimensions of a package.
type Dimensions struct {
	Length Length
	Width  Length
	Height Length
}
