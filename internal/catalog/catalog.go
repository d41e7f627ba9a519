// Package catalog loads shipping methods, promotions, tax types and packers
// from a YAML catalog, and orders from YAML fixtures.
package catalog

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/ordermanager"
	"github.com/tournevent/shipping/pkg/packer"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/promotion"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/tax"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Catalog is the plugin configuration of a shop.
type Catalog struct {
	OrderTypes      map[string]OrderType `yaml:"order_types" validate:"required,dive"`
	Packers         []Packer             `yaml:"packers" validate:"dive"`
	ShippingMethods []Method             `yaml:"shipping_methods" validate:"dive"`
	Promotions      []Promotion          `yaml:"promotions" validate:"dive"`
	TaxTypes        []TaxType            `yaml:"tax_types" validate:"dive"`
	ShippingTax     *ShippingTax         `yaml:"shipping_tax"`
}

// OrderType holds the shipping settings of an order type.
type OrderType struct {
	ShipmentType string `yaml:"shipment_type"`
	ProfileType  string `yaml:"profile_type"`
}

// Packer selects a packer. Countries restricts the per item packer.
type Packer struct {
	ID        string   `yaml:"id" validate:"required,oneof=default per_item"`
	Countries []string `yaml:"countries" validate:"dive,len=2"`
}

// WeightBound is one end of a weight condition.
type WeightBound struct {
	Number string `yaml:"number" validate:"required,numeric"`
	Unit   string `yaml:"unit" validate:"required,oneof=g kg oz lb"`
}

// Conditions restrict the shipments a method is offered for.
type Conditions struct {
	MinWeight *WeightBound `yaml:"min_weight"`
	MaxWeight *WeightBound `yaml:"max_weight"`
}

// Method is a shipping method entry.
type Method struct {
	ID            string     `yaml:"id" validate:"required"`
	UUID          string     `yaml:"uuid"`
	Name          string     `yaml:"name" validate:"required"`
	Plugin        string     `yaml:"plugin" validate:"required"`
	Weight        int        `yaml:"weight"`
	Enabled       *bool      `yaml:"enabled"`
	Stores        []string   `yaml:"stores"`
	Conditions    Conditions `yaml:"conditions"`
	Configuration yaml.Node  `yaml:"configuration" validate:"-"`
}

// Offer selects a promotion offer plugin.
type Offer struct {
	Plugin        string    `yaml:"plugin" validate:"required"`
	Configuration yaml.Node `yaml:"configuration" validate:"-"`
}

// Promotion is a promotion entry.
type Promotion struct {
	ID            string   `yaml:"id" validate:"required"`
	Name          string   `yaml:"name" validate:"required"`
	DisplayName   string   `yaml:"display_name"`
	Enabled       *bool    `yaml:"enabled"`
	OrderTypes    []string `yaml:"order_types"`
	Stores        []string `yaml:"stores"`
	RequireCoupon bool     `yaml:"require_coupon"`
	Coupons       []string `yaml:"coupons" validate:"required_if=RequireCoupon true"`
	Weight        int      `yaml:"weight"`
	Offer         Offer    `yaml:"offer"`
}

// TaxRate is a rate of a tax zone.
type TaxRate struct {
	ID         string `yaml:"id" validate:"required"`
	Label      string `yaml:"label"`
	Percentage string `yaml:"percentage" validate:"required,numeric"`
}

// TaxZone is a zone of a tax type.
type TaxZone struct {
	ID           string    `yaml:"id" validate:"required"`
	DisplayLabel string    `yaml:"display_label"`
	DefaultRate  string    `yaml:"default_rate"`
	Rates        []TaxRate `yaml:"rates" validate:"required,min=1,dive"`
}

// TaxType is a locally defined tax type.
type TaxType struct {
	ID               string    `yaml:"id" validate:"required"`
	Label            string    `yaml:"label"`
	DisplayInclusive bool      `yaml:"display_inclusive"`
	Zones            []TaxZone `yaml:"zones" validate:"dive"`
}

// ShippingTax configures the tax type applied to shipments.
type ShippingTax struct {
	ID         string `yaml:"id" validate:"required"`
	tax.Config `yaml:",inline"`
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrInvalidConfiguration, err)
	}
	return &c, nil
}

// OrderTypeSettings returns the shipping settings per order type.
func (c *Catalog) OrderTypeSettings() map[string]ordermanager.OrderTypeSettings {
	settings := make(map[string]ordermanager.OrderTypeSettings, len(c.OrderTypes))
	for id, t := range c.OrderTypes {
		settings[id] = ordermanager.OrderTypeSettings{ShipmentType: t.ShipmentType, ProfileType: t.ProfileType}
	}
	return settings
}

// PackerManager returns a packer manager trying the configured packers in
// order. The default packer is appended when the catalog has none.
func (c *Catalog) PackerManager() *packer.Manager {
	shipmentTypes := make(map[string]string, len(c.OrderTypes))
	for id, t := range c.OrderTypes {
		if t.ShipmentType != "" {
			shipmentTypes[id] = t.ShipmentType
		}
	}
	m := packer.NewManager(shipmentTypes)
	for _, p := range c.Packers {
		switch p.ID {
		case "per_item":
			m.Add(packer.PerItemPacker{Countries: p.Countries})
		default:
			m.Add(packer.DefaultPacker{})
		}
	}
	if len(c.Packers) == 0 {
		m.Add(packer.DefaultPacker{})
	}
	return m
}

// Methods builds the shipping methods through the provider registry.
func (c *Catalog) Methods(reg *shipping.Registry) ([]*shipping.Method, error) {
	methods := make([]*shipping.Method, 0, len(c.ShippingMethods))
	for _, entry := range c.ShippingMethods {
		plugin, err := reg.Build(entry.Plugin, entry.ID, decoder(&entry.Configuration))
		if err != nil {
			return nil, fmt.Errorf("shipping method %s: %w", entry.ID, err)
		}
		conditions, err := entry.Conditions.build()
		if err != nil {
			return nil, fmt.Errorf("shipping method %s: %w", entry.ID, err)
		}
		methods = append(methods, &shipping.Method{
			ID:         entry.ID,
			UUID:       entry.UUID,
			Name:       entry.Name,
			Stores:     entry.Stores,
			Weight:     entry.Weight,
			Enabled:    enabled(entry.Enabled),
			Conditions: conditions,
			Plugin:     plugin,
		})
	}
	return methods, nil
}

func (c Conditions) build() ([]shipping.Condition, error) {
	if c.MinWeight == nil && c.MaxWeight == nil {
		return nil, nil
	}
	var cond shipping.WeightCondition
	var err error
	if cond.Min, err = c.MinWeight.weight(); err != nil {
		return nil, err
	}
	if cond.Max, err = c.MaxWeight.weight(); err != nil {
		return nil, err
	}
	return []shipping.Condition{cond}, nil
}

func (b *WeightBound) weight() (*physical.Weight, error) {
	if b == nil {
		return nil, nil
	}
	w, err := physical.ParseWeight(b.Number, physical.WeightUnit(b.Unit))
	if err != nil {
		return nil, fmt.Errorf("%w: weight: %v", shipping.ErrInvalidConfiguration, err)
	}
	return &w, nil
}

// BuildPromotions builds the promotions through the offer registry, in
// catalog order.
func (c *Catalog) BuildPromotions(reg *promotion.Registry) ([]*promotion.Promotion, error) {
	promotions := make([]*promotion.Promotion, 0, len(c.Promotions))
	for _, entry := range c.Promotions {
		offer, err := reg.Build(entry.Offer.Plugin, decoder(&entry.Offer.Configuration))
		if err != nil {
			return nil, fmt.Errorf("promotion %s: %w", entry.ID, err)
		}
		promotions = append(promotions, &promotion.Promotion{
			ID:            entry.ID,
			Name:          entry.Name,
			DisplayName:   entry.DisplayName,
			Enabled:       enabled(entry.Enabled),
			OrderTypes:    entry.OrderTypes,
			Stores:        entry.Stores,
			RequireCoupon: entry.RequireCoupon,
			Coupons:       entry.Coupons,
			Weight:        entry.Weight,
			Offer:         offer,
		})
	}
	return promotions, nil
}

// BuildTaxTypes converts the tax types.
func (c *Catalog) BuildTaxTypes() ([]*tax.LocalTaxType, error) {
	types := make([]*tax.LocalTaxType, 0, len(c.TaxTypes))
	for _, entry := range c.TaxTypes {
		t := &tax.LocalTaxType{
			ID:               entry.ID,
			Label:            entry.Label,
			DisplayInclusive: entry.DisplayInclusive,
			Zones:            make([]tax.Zone, 0, len(entry.Zones)),
		}
		for _, z := range entry.Zones {
			zone := tax.Zone{ID: z.ID, DisplayLabel: z.DisplayLabel, DefaultRateID: z.DefaultRate}
			for _, r := range z.Rates {
				pct, err := decimal.NewFromString(r.Percentage)
				if err != nil {
					return nil, fmt.Errorf("%w: tax rate %s: %v", shipping.ErrInvalidConfiguration, r.ID, err)
				}
				zone.Rates = append(zone.Rates, tax.Rate{ID: r.ID, Label: r.Label, Percentage: pct})
			}
			t.Zones = append(t.Zones, zone)
		}
		types = append(types, t)
	}
	return types, nil
}

// ShippingTaxConfig returns the shipping tax type id and configuration.
// A non-empty strategy overrides the catalog's. ok is false when the
// catalog configures no shipping tax.
func (c *Catalog) ShippingTaxConfig(strategy string) (id string, cfg tax.Config, ok bool) {
	if c.ShippingTax == nil {
		return "", tax.Config{}, false
	}
	cfg = c.ShippingTax.Config
	if strategy != "" {
		cfg.Strategy = strategy
	}
	return c.ShippingTax.ID, cfg, true
}

// decoder returns nil for an absent configuration block.
func decoder(n *yaml.Node) shipping.ConfigDecoder {
	if n.IsZero() {
		return nil
	}
	return n
}

func enabled(v *bool) bool {
	return v == nil || *v
}
