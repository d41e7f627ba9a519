package tax_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/tax"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) LocalTaxType(ctx context.Context, id string) (*tax.LocalTaxType, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*tax.LocalTaxType)
	return t, args.Error(1)
}

type shippableOrders struct{}

func (shippableOrders) IsShippable(o *order.Order) bool {
	for _, item := range o.Items {
		if item.IsShippable() {
			return true
		}
	}
	return false
}

func (shippableOrders) HasShipments(o *order.Order) bool { return len(o.Shipments) > 0 }

func usd(amount string) price.Price { return price.New(amount, "USD") }

func euVAT() *tax.LocalTaxType {
	return &tax.LocalTaxType{
		ID:               "eu_vat",
		Label:            "EU VAT",
		DisplayInclusive: true,
		Zones: []tax.Zone{{
			ID:            "fr",
			DisplayLabel:  "VAT",
			DefaultRateID: "standard",
			Rates: []tax.Rate{
				{ID: "standard", Label: "Standard", Percentage: decimal.RequireFromString("0.2")},
				{ID: "intermediate", Label: "Intermediate", Percentage: decimal.RequireFromString("0.1")},
			},
		}},
	}
}

func vatItem(id, title, unitPrice, rate, percentage string) *order.Item {
	weight := physical.NewWeight("500", physical.Gram)
	unit := usd(unitPrice)
	return &order.Item{
		ID:        id,
		Title:     title,
		Purchased: &order.Purchasable{ID: id, Title: title, Price: unit, Weight: &weight},
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: unit,
		Adjustments: []adjustment.Adjustment{{
			Type:       adjustment.TypeTax,
			Label:      "VAT",
			Amount:     unit.Multiply(decimal.RequireFromString(percentage)),
			Percentage: percentage,
			SourceID:   "eu_vat|fr|" + rate,
			Included:   true,
			Locked:     true,
		}},
	}
}

func shipment(amount string) *shipping.Shipment {
	s := shipping.NewShipment("1", "default")
	s.ID = "s1"
	s.ShippingMethodID = "flat_rate"
	a := usd(amount)
	s.SetOriginalAmount(&a)
	s.SetAmount(&a)
	return s
}

func testOrder(items ...*order.Item) *order.Order {
	return &order.Order{
		ID:        "1",
		Type:      "default",
		Store:     order.Store{ID: "1", UUID: "store-uuid"},
		Items:     items,
		Shipments: []*shipping.Shipment{shipment("10")},
	}
}

func fullOrder() *order.Order {
	return testOrder(
		vatItem("1", "Hat", "70", "intermediate", "0.1"),
		vatItem("2", "Mug", "15", "standard", "0.2"),
		vatItem("3", "Mug", "15", "standard", "0.2"),
	)
}

func newTaxType(t *testing.T, cfg tax.Config, repo tax.Repository) *tax.ShippingTaxType {
	t.Helper()
	tt, err := tax.NewShippingTaxType("shipping", cfg, shippableOrders{}, repo, nil, otelzap.New(zap.NewNop()))
	require.NoError(t, err)
	return tt
}

func amounts(adjustments []adjustment.Adjustment) []string {
	result := make([]string, 0, len(adjustments))
	for _, a := range adjustments {
		result = append(result, a.Amount.String())
	}
	return result
}

func TestShippingTaxType_Applies(t *testing.T) {
	tests := []struct {
		name   string
		config tax.Config
		order  func() *order.Order
		want   bool
	}{
		{"all stores", tax.Config{}, fullOrder, true},
		{"included store", tax.Config{StoreFilter: tax.StoreFilterInclude, Stores: []string{"store-uuid"}}, fullOrder, true},
		{"store not included", tax.Config{StoreFilter: tax.StoreFilterInclude, Stores: []string{"other"}}, fullOrder, false},
		{"excluded store", tax.Config{StoreFilter: tax.StoreFilterExclude, Stores: []string{"store-uuid"}}, fullOrder, false},
		{"no shipments", tax.Config{}, func() *order.Order {
			o := fullOrder()
			o.Shipments = nil
			return o
		}, false},
		{"not shippable", tax.Config{}, func() *order.Order {
			o := fullOrder()
			for _, item := range o.Items {
				item.Purchased.Weight = nil
			}
			return o
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taxType := newTaxType(t, tt.config, &mockRepository{})
			assert.Equal(t, tt.want, taxType.Applies(tt.order()))
		})
	}
}

func TestNewShippingTaxType_InvalidStrategy(t *testing.T) {
	_, err := tax.NewShippingTaxType("shipping", tax.Config{Strategy: "lowest"}, shippableOrders{}, &mockRepository{}, nil, otelzap.New(zap.NewNop()))
	assert.ErrorIs(t, err, shipping.ErrInvalidConfiguration)
}

func TestShippingTaxType_Default(t *testing.T) {
	repo := &mockRepository{}
	repo.On("LocalTaxType", mock.Anything, "eu_vat").Return(euVAT(), nil)
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyDefault}, repo)

	o := fullOrder()
	require.NoError(t, taxType.Apply(context.Background(), o))

	adjustments := o.Shipments[0].Adjustments()
	require.Len(t, adjustments, 1)
	a := adjustments[0]
	assert.Equal(t, adjustment.TypeTax, a.Type)
	assert.Equal(t, "VAT", a.Label)
	assert.Equal(t, "1.67 USD", a.Amount.String())
	assert.Equal(t, "0.2", a.Percentage)
	assert.Equal(t, "eu_vat|fr|standard", a.SourceID)
	assert.True(t, a.Included)
	assert.False(t, a.Locked)
	repo.AssertExpectations(t)
}

func TestShippingTaxType_Default_UsesStandardRate(t *testing.T) {
	repo := &mockRepository{}
	repo.On("LocalTaxType", mock.Anything, "eu_vat").Return(euVAT(), nil)
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyDefault}, repo)

	o := testOrder(vatItem("1", "Hat", "70", "intermediate", "0.1"))
	require.NoError(t, taxType.Apply(context.Background(), o))

	adjustments := o.Shipments[0].Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, "1.67 USD", adjustments[0].Amount.String())
	assert.Equal(t, "eu_vat|fr|standard", adjustments[0].SourceID)
}

func TestShippingTaxType_Default_NotDisplayInclusive(t *testing.T) {
	taxType := euVAT()
	taxType.DisplayInclusive = false
	repo := &mockRepository{}
	repo.On("LocalTaxType", mock.Anything, "eu_vat").Return(taxType, nil)

	o := fullOrder()
	require.NoError(t, newTaxType(t, tax.Config{}, repo).Apply(context.Background(), o))

	adjustments := o.Shipments[0].Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, "2.00 USD", adjustments[0].Amount.String())
	assert.False(t, adjustments[0].Included)
}

func TestShippingTaxType_Default_UnknownTaxType(t *testing.T) {
	repo := &mockRepository{}
	repo.On("LocalTaxType", mock.Anything, "eu_vat").Return(nil, tax.ErrTaxTypeNotFound)

	o := fullOrder()
	require.NoError(t, newTaxType(t, tax.Config{}, repo).Apply(context.Background(), o))
	assert.Empty(t, o.Shipments[0].Adjustments())
}

func TestShippingTaxType_Default_RepositoryError(t *testing.T) {
	repo := &mockRepository{}
	repo.On("LocalTaxType", mock.Anything, "eu_vat").Return(nil, errors.New("connection reset"))

	err := newTaxType(t, tax.Config{}, repo).Apply(context.Background(), fullOrder())
	assert.ErrorContains(t, err, "connection reset")
}

func TestShippingTaxType_Highest(t *testing.T) {
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyHighest}, &mockRepository{})

	o := fullOrder()
	require.NoError(t, taxType.Apply(context.Background(), o))

	adjustments := o.Shipments[0].Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, "1.67 USD", adjustments[0].Amount.String())
	assert.Equal(t, "eu_vat|fr|standard", adjustments[0].SourceID)
	assert.Equal(t, "VAT", adjustments[0].Label)
	assert.True(t, adjustments[0].Included)
}

func TestShippingTaxType_Highest_SingleRate(t *testing.T) {
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyHighest}, &mockRepository{})

	o := testOrder(vatItem("1", "Hat", "70", "intermediate", "0.1"))
	require.NoError(t, taxType.Apply(context.Background(), o))

	adjustments := o.Shipments[0].Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, "0.91 USD", adjustments[0].Amount.String())
	assert.Equal(t, "eu_vat|fr|intermediate", adjustments[0].SourceID)
}

func TestShippingTaxType_Proportional(t *testing.T) {
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyProportional}, &mockRepository{})

	o := fullOrder()
	require.NoError(t, taxType.Apply(context.Background(), o))

	adjustments := o.Shipments[0].Adjustments()
	assert.Equal(t, []string{"0.50 USD", "0.64 USD"}, amounts(adjustments))
	assert.Equal(t, "eu_vat|fr|standard", adjustments[0].SourceID)
	assert.Equal(t, "0.2", adjustments[0].Percentage)
	assert.Equal(t, "eu_vat|fr|intermediate", adjustments[1].SourceID)
	assert.Equal(t, "0.1", adjustments[1].Percentage)
}

func TestShippingTaxType_Proportional_SingleSourceFallsBackToHighest(t *testing.T) {
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyProportional}, &mockRepository{})

	o := testOrder(
		vatItem("1", "Mug", "15", "standard", "0.2"),
		vatItem("2", "Mug", "15", "standard", "0.2"),
	)
	require.NoError(t, taxType.Apply(context.Background(), o))

	assert.Equal(t, []string{"1.67 USD"}, amounts(o.Shipments[0].Adjustments()))
}

func TestShippingTaxType_ExcludesShippingPromotions(t *testing.T) {
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyHighest}, &mockRepository{})

	o := fullOrder()
	o.Shipments[0].AddAdjustment(adjustment.Adjustment{
		Type:     adjustment.TypeShippingPromotion,
		Label:    "Discount",
		Amount:   usd("-4"),
		SourceID: "1",
	})
	require.NoError(t, taxType.Apply(context.Background(), o))

	taxes := o.Shipments[0].Adjustments(adjustment.TypeTax)
	require.Len(t, taxes, 1)
	// (10 - 4) * 0.2 / 1.2
	assert.Equal(t, "1.00 USD", taxes[0].Amount.String())
}

func TestShippingTaxType_SkipsUnusableAdjustments(t *testing.T) {
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyHighest}, &mockRepository{})

	o := fullOrder()
	for _, item := range o.Items {
		item.Adjustments[0].SourceID = "avatax"
	}
	require.NoError(t, taxType.Apply(context.Background(), o))
	assert.Empty(t, o.Shipments[0].Adjustments())
}

func TestShippingTaxType_SkipsIncompleteShipments(t *testing.T) {
	taxType := newTaxType(t, tax.Config{Strategy: tax.StrategyHighest}, &mockRepository{})

	o := fullOrder()
	o.Shipments[0].ClearRate()
	require.NoError(t, taxType.Apply(context.Background(), o))
	assert.Empty(t, o.Shipments[0].Adjustments())
}

func TestProcessor(t *testing.T) {
	repo := &mockRepository{}
	repo.On("LocalTaxType", mock.Anything, "eu_vat").Return(euVAT(), nil)
	excluded := newTaxType(t, tax.Config{StoreFilter: tax.StoreFilterExclude, Stores: []string{"store-uuid"}}, repo)
	applied := newTaxType(t, tax.Config{Strategy: tax.StrategyHighest}, repo)

	o := fullOrder()
	require.NoError(t, tax.NewProcessor(excluded, applied).Process(context.Background(), o))

	assert.Equal(t, []string{"1.67 USD"}, amounts(o.Shipments[0].Adjustments()))
	repo.AssertNotCalled(t, "LocalTaxType", mock.Anything, mock.Anything)
}
