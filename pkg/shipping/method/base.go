// Package method provides the built-in shipping method plugins.
package method

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

// Plugin ids.
const (
	FlatRatePluginID        = "flat_rate"
	FlatRatePerItemPluginID = "flat_rate_per_item"
	WeightRatePluginID      = "weight_rate"
	CarrierPluginID         = "carrier"
)

var validate = validator.New()

// AmountConfig is a price in plugin configuration.
type AmountConfig struct {
	Number       string `yaml:"number" validate:"required,numeric"`
	CurrencyCode string `yaml:"currency_code" validate:"required,len=3"`
}

// Price converts the configuration into a price.
func (c AmountConfig) Price() (price.Price, error) {
	return price.Parse(c.Number, c.CurrencyCode)
}

// PackageTypeConfig describes a package type in plugin configuration.
type PackageTypeConfig struct {
	ID     string `yaml:"id" validate:"required"`
	Label  string `yaml:"label"`
	Weight struct {
		Number string `yaml:"number" validate:"omitempty,numeric"`
		Unit   string `yaml:"unit" validate:"omitempty,oneof=g kg oz lb"`
	} `yaml:"weight"`
}

// PackageType converts the configuration into a package type.
func (c *PackageTypeConfig) PackageType() (*shipping.PackageType, error) {
	if c == nil {
		return nil, nil
	}
	pt := &shipping.PackageType{ID: c.ID, Label: c.Label}
	if c.Weight.Number != "" {
		w, err := physical.ParseWeight(c.Weight.Number, physical.WeightUnit(c.Weight.Unit))
		if err != nil {
			return nil, err
		}
		pt.Weight = w
	}
	return pt, nil
}

// Base implements the parts of shipping.RateProvider shared by every plugin.
type Base struct {
	methodID    string
	services    []shipping.Service
	packageType *shipping.PackageType
}

// NewBase creates a base for the shipping method.
func NewBase(methodID string, services []shipping.Service, packageType *shipping.PackageType) Base {
	return Base{methodID: methodID, services: services, packageType: packageType}
}

// MethodID returns the id of the owning shipping method.
func (b *Base) MethodID() string { return b.methodID }

// Services returns the offered services.
func (b *Base) Services() []shipping.Service { return b.services }

// DefaultPackageType returns the default package type.
func (b *Base) DefaultPackageType() *shipping.PackageType { return b.packageType }

// SelectRate stores the rate's method, service and amounts on the shipment.
func (b *Base) SelectRate(s *shipping.Shipment, r *shipping.Rate) {
	original := r.OriginalAmount()
	amount := r.Amount()
	s.SetShippingMethod(r.ShippingMethodID(), r.Service().ID)
	s.SetOriginalAmount(&original)
	s.SetAmount(&amount)
}

func decode(cfg shipping.ConfigDecoder, v any) error {
	if cfg == nil {
		return fmt.Errorf("%w: missing configuration", shipping.ErrInvalidConfiguration)
	}
	if err := cfg.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shipping.ErrInvalidConfiguration, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", shipping.ErrInvalidConfiguration, err)
	}
	return nil
}

// RegisterDefaults registers the flat rate, flat rate per item and weight
// rate plugins.
func RegisterDefaults(reg *shipping.Registry) {
	reg.Register(FlatRatePluginID, NewFlatRate)
	reg.Register(FlatRatePerItemPluginID, NewFlatRatePerItem)
	reg.Register(WeightRatePluginID, NewWeightRate)
}
