package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/packer"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/method"
	"gopkg.in/yaml.v3"
)

// Fixture is an order document.
type Fixture struct {
	Type                 string            `yaml:"type" validate:"required"`
	Store                order.Store       `yaml:"store"`
	State                string            `yaml:"state"`
	CheckoutStep         string            `yaml:"checkout_step"`
	CustomerID           string            `yaml:"customer_id"`
	Coupons              []string          `yaml:"coupons"`
	ForceShippingRefresh bool              `yaml:"force_shipping_refresh"`
	ShippingProfile      *ProfileFixture   `yaml:"shipping_profile"`
	Items                []ItemFixture     `yaml:"items" validate:"dive"`
	Shipments            []ShipmentFixture `yaml:"shipments" validate:"dive"`
}

// ProfileFixture is the shipping profile of a fixture.
type ProfileFixture struct {
	Type    string            `yaml:"type"`
	Address order.Address     `yaml:"address"`
	Fields  map[string]string `yaml:"fields"`
}

// ItemFixture is an order item.
type ItemFixture struct {
	ID          string              `yaml:"id" validate:"required"`
	Title       string              `yaml:"title"`
	SKU         string              `yaml:"sku"`
	Quantity    string              `yaml:"quantity" validate:"required,numeric"`
	UnitPrice   method.AmountConfig `yaml:"unit_price"`
	Weight      *WeightBound        `yaml:"weight"`
	Adjustments []AdjustmentFixture `yaml:"adjustments" validate:"dive"`
}

// AdjustmentFixture is an item adjustment computed upstream.
type AdjustmentFixture struct {
	Type       string              `yaml:"type" validate:"required"`
	Label      string              `yaml:"label" validate:"required"`
	Amount     method.AmountConfig `yaml:"amount"`
	Percentage string              `yaml:"percentage" validate:"omitempty,numeric"`
	SourceID   string              `yaml:"source_id"`
	Included   bool                `yaml:"included"`
	Locked     *bool               `yaml:"locked"`
}

// ShipmentFixture is a hand made shipment. Hand made shipments are never
// repacked.
type ShipmentFixture struct {
	Title            string   `yaml:"title"`
	Items            []string `yaml:"items" validate:"required,min=1"`
	ShippingMethodID string   `yaml:"shipping_method_id"`
	ShippingService  string   `yaml:"shipping_service"`
}

// LoadFixture reads and validates the order fixture at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses and validates an order fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

// Order converts the fixture into an unsaved order. Hand made shipments get
// shipmentType and are attached without ids.
func (f *Fixture) Order(shipmentType string) (*order.Order, error) {
	o := &order.Order{
		Type:                 f.Type,
		Store:                f.Store,
		State:                f.State,
		CheckoutStep:         f.CheckoutStep,
		CustomerID:           f.CustomerID,
		Coupons:              f.Coupons,
		ForceShippingRefresh: f.ForceShippingRefresh,
	}
	if o.State == "" {
		o.State = order.StateDraft
	}

	for _, entry := range f.Items {
		item, err := entry.item()
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", entry.ID, err)
		}
		o.Items = append(o.Items, item)
	}

	for i, entry := range f.Shipments {
		items := make([]*order.Item, 0, len(entry.Items))
		for _, id := range entry.Items {
			item, ok := o.Item(id)
			if !ok {
				return nil, fmt.Errorf("shipment %d: unknown item %s", i+1, id)
			}
			items = append(items, item)
		}
		s := shipping.NewShipment("", shipmentType)
		s.SetTitle(entry.Title)
		s.SetItems(packer.ShipmentItems(items))
		if entry.ShippingMethodID != "" {
			s.SetShippingMethod(entry.ShippingMethodID, entry.ShippingService)
		}
		o.Shipments = append(o.Shipments, s)
	}
	return o, nil
}

// Profile converts the shipping profile, nil when the fixture has none.
func (f *Fixture) Profile() *order.Profile {
	if f.ShippingProfile == nil {
		return nil
	}
	return &order.Profile{
		Type:    f.ShippingProfile.Type,
		Address: f.ShippingProfile.Address,
		Fields:  f.ShippingProfile.Fields,
	}
}

func (f ItemFixture) item() (*order.Item, error) {
	qty, err := decimal.NewFromString(f.Quantity)
	if err != nil {
		return nil, err
	}
	unit, err := f.UnitPrice.Price()
	if err != nil {
		return nil, err
	}
	item := &order.Item{
		ID:        f.ID,
		Title:     f.Title,
		Quantity:  qty,
		UnitPrice: unit,
		Purchased: &order.Purchasable{ID: f.ID, SKU: f.SKU, Title: f.Title, Price: unit},
	}
	if item.Purchased.Weight, err = f.Weight.weight(); err != nil {
		return nil, err
	}
	for _, a := range f.Adjustments {
		adj, err := a.adjustment()
		if err != nil {
			return nil, err
		}
		item.Adjustments = append(item.Adjustments, adj)
	}
	return item, nil
}

// Upstream adjustments are locked unless stated otherwise so that the
// refresh keeps them.
func (f AdjustmentFixture) adjustment() (adjustment.Adjustment, error) {
	amount, err := f.Amount.Price()
	if err != nil {
		return adjustment.Adjustment{}, err
	}
	a := adjustment.Adjustment{
		Type:       f.Type,
		Label:      f.Label,
		Amount:     amount,
		Percentage: f.Percentage,
		SourceID:   f.SourceID,
		Included:   f.Included,
		Locked:     f.Locked == nil || *f.Locked,
	}
	if err := a.Validate(); err != nil {
		return adjustment.Adjustment{}, err
	}
	return a, nil
}
