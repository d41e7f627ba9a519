package processor_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/internal/store"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/ordermanager"
	"github.com/tournevent/shipping/pkg/packer"
	"github.com/tournevent/shipping/pkg/physical"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/processor"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func usd(amount string) price.Price { return price.New(amount, "USD") }

type env struct {
	store  *store.Memory
	orders *ordermanager.Manager
	rates  *shipping.Manager
	early  *processor.Early
	late   *processor.Late
}

func newEnv(t *testing.T, methods ...*shipping.Method) *env {
	t.Helper()
	ctx := context.Background()
	logger := otelzap.New(zap.NewNop())
	mem := store.NewMemory()
	for _, m := range methods {
		require.NoError(t, mem.SaveMethod(ctx, m))
	}
	orders := ordermanager.New(
		packer.NewManager(nil, packer.DefaultPacker{}),
		mem, mem,
		map[string]ordermanager.OrderTypeSettings{"default": {ShipmentType: "default"}},
		logger,
	)
	rates := shipping.NewManager(mem, logger)
	return &env{
		store:  mem,
		orders: orders,
		rates:  rates,
		early:  processor.NewEarly(orders, rates, logger),
		late:   processor.NewLate(orders, logger),
	}
}

func staticMethod() *shipping.Method {
	return &shipping.Method{
		ID:      "2",
		Name:    "Static",
		Enabled: true,
		Plugin: mock.NewStaticProvider("2", map[string]price.Price{
			"overnight": usd("22"),
			"standard":  usd("5"),
		}, "overnight", "standard"),
	}
}

func item(id, title string) *order.Item {
	w := physical.NewWeight("500", physical.Gram)
	return &order.Item{
		ID:        id,
		Title:     title,
		Purchased: &order.Purchasable{ID: "p" + id, Weight: &w},
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: usd("10"),
	}
}

// packedOrder saves an order packed for a new profile and loads it back.
func (e *env) packedOrder(t *testing.T) *order.Order {
	t.Helper()
	ctx := context.Background()
	o := &order.Order{
		Type:         "default",
		Store:        order.Store{ID: "1", UUID: "store-uuid"},
		State:        order.StateDraft,
		CheckoutStep: "order_information",
		Items:        []*order.Item{item("10", "Mug"), item("11", "Hat")},
	}
	require.NoError(t, e.store.SaveOrder(ctx, o))

	profile := e.orders.CreateProfile(o, order.Profile{Address: order.Address{CountryCode: "FR"}})
	require.NoError(t, e.store.SaveProfile(ctx, profile))
	shipments, err := e.orders.Pack(ctx, o, profile)
	require.NoError(t, err)
	o.Shipments = shipments
	o.ForceShippingRefresh = true
	require.NoError(t, e.store.SaveOrder(ctx, o))

	loaded, err := e.store.LoadOrder(ctx, o.ID)
	require.NoError(t, err)
	return loaded
}

func TestEarly_RepacksAndAppliesDefaultRate(t *testing.T) {
	e := newEnv(t, staticMethod())
	o := e.packedOrder(t)
	require.True(t, o.ForceShippingRefresh)

	require.NoError(t, e.early.Process(context.Background(), o))

	require.Len(t, o.Shipments, 1)
	s := o.Shipments[0]
	assert.Equal(t, "2", s.ShippingMethodID)
	assert.Equal(t, "standard", s.ShippingService)
	assert.Equal(t, "5.00 USD", s.Amount.String())
	assert.Equal(t, "5.00 USD", s.OriginalAmount.String())
	assert.True(t, s.OwnedByPacker)
	assert.Len(t, s.Items, 2)
	assert.False(t, o.ForceShippingRefresh)
}

func TestEarly_KeepsSelectedRate(t *testing.T) {
	e := newEnv(t, staticMethod())
	o := e.packedOrder(t)
	o.Shipments[0].SetShippingMethod("2", "overnight")

	require.NoError(t, e.early.Process(context.Background(), o))
	assert.Equal(t, "22.00 USD", o.Shipments[0].Amount.String())
}

func TestEarly_Idempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, staticMethod())
	o := e.packedOrder(t)
	require.NoError(t, e.early.Process(ctx, o))
	require.NoError(t, e.late.Process(ctx, o))
	require.NoError(t, e.store.SaveOrder(ctx, o))

	o, err := e.store.LoadOrder(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, e.early.Process(ctx, o))
	first, err := json.Marshal(o.Shipments)
	require.NoError(t, err)
	id := o.Shipments[0].ID

	require.NoError(t, e.early.Process(ctx, o))
	second, err := json.Marshal(o.Shipments)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, id, o.Shipments[0].ID)
	assert.Equal(t, "5.00 USD", o.Shipments[0].Amount.String())
}

func TestEarly_CheckoutStepNavigationSkipsRepack(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, staticMethod())
	o := e.packedOrder(t)
	o.ForceShippingRefresh = false
	o.CheckoutStep = "review"
	o.Items[0].Title = "Renamed mug"

	require.NoError(t, e.early.Process(ctx, o))
	assert.Equal(t, "Mug", o.Shipments[0].Items[0].Title)

	// The same transition with a removed item repacks.
	o.Items = o.Items[:1]
	require.NoError(t, e.early.Process(ctx, o))
	require.Len(t, o.Shipments[0].Items, 1)
	assert.Equal(t, "Renamed mug", o.Shipments[0].Items[0].Title)
}

func TestEarly_ManualShipmentsAreNotRepacked(t *testing.T) {
	e := newEnv(t, staticMethod())
	o := e.packedOrder(t)
	manual := o.Shipments[0]
	manual.OwnedByPacker = false
	manual.SetItems(manual.Items[:1])

	require.NoError(t, e.early.Process(context.Background(), o))

	require.Len(t, o.Shipments, 1)
	assert.Same(t, manual, o.Shipments[0])
	assert.Len(t, manual.Items, 1)
	assert.Equal(t, "5.00 USD", manual.Amount.String())
	assert.False(t, o.ForceShippingRefresh)
}

func TestEarly_MissingProfileDeletesShipments(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, staticMethod())
	o := e.packedOrder(t)
	s := o.Shipments[0]
	require.NoError(t, e.store.DeleteProfile(ctx, s.ShippingProfileID))

	require.NoError(t, e.early.Process(ctx, o))

	assert.Empty(t, o.Shipments)
	_, err := e.store.LoadShipment(ctx, s.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	// The flag survives for the pass that recreates the shipments.
	assert.True(t, o.ForceShippingRefresh)
}

func TestEarly_NoRatesClearsRate(t *testing.T) {
	e := newEnv(t)
	o := e.packedOrder(t)
	a := usd("9")
	o.Shipments[0].SetShippingMethod("2", "standard")
	o.Shipments[0].SetAmount(&a)

	require.NoError(t, e.early.Process(context.Background(), o))

	require.Len(t, o.Shipments, 1)
	s := o.Shipments[0]
	assert.Nil(t, s.Amount)
	assert.Empty(t, s.ShippingMethodID)
	assert.NotEmpty(t, s.ShippingProfileID)
	assert.False(t, o.ForceShippingRefresh)
}

func TestEarly_ProviderFailureIsContained(t *testing.T) {
	failing := &shipping.Method{ID: "1", Name: "Broken", Enabled: true, Plugin: mock.NewFailingProvider("1")}
	e := newEnv(t, failing, staticMethod())
	o := e.packedOrder(t)

	require.NoError(t, e.early.Process(context.Background(), o))
	assert.Equal(t, "5.00 USD", o.Shipments[0].Amount.String())
}

func TestEarly_ResetsAmountAndAdjustments(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, staticMethod())
	o := e.packedOrder(t)
	require.NoError(t, e.early.Process(ctx, o))

	s := o.Shipments[0]
	reduced := usd("3")
	s.SetAmount(&reduced)
	s.AddAdjustment(adjustment.Adjustment{Type: adjustment.TypeShippingPromotion, Label: "Discount", Amount: usd("-2"), SourceID: "1", Included: true})

	require.NoError(t, e.early.Process(ctx, o))
	assert.Equal(t, "5.00 USD", s.Amount.String())
	assert.Empty(t, s.Adjustments())
}

func TestEarly_NoShipments(t *testing.T) {
	e := newEnv(t, staticMethod())
	o := &order.Order{Type: "default", ForceShippingRefresh: true}

	require.NoError(t, e.early.Process(context.Background(), o))
	assert.Nil(t, o.Shipments)
	assert.True(t, o.ForceShippingRefresh)
}

func TestLate_TransfersAdjustments(t *testing.T) {
	e := newEnv(t)
	s := shipping.NewShipment("1", "default")
	s.SetTitle("Shipment #1")
	a := usd("3.33")
	s.SetShippingMethod("2", "standard")
	s.SetAmount(&a)
	s.AddAdjustment(adjustment.Adjustment{Type: adjustment.TypeFee, Label: "Handling", Amount: usd("2"), Locked: true})
	o := &order.Order{ID: "1", Type: "default", Shipments: []*shipping.Shipment{s}}

	require.NoError(t, e.late.Process(context.Background(), o))

	require.NotEmpty(t, s.ID)
	assert.False(t, s.HasChanges())
	require.Len(t, o.Adjustments, 2)
	assert.Equal(t, adjustment.TypeShipping, o.Adjustments[0].Type)
	assert.Equal(t, "Shipping", o.Adjustments[0].Label)
	assert.Equal(t, "3.33 USD", o.Adjustments[0].Amount.String())
	assert.Equal(t, s.ID, o.Adjustments[0].SourceID)
	assert.Equal(t, adjustment.TypeFee, o.Adjustments[1].Type)
	assert.Equal(t, "2.00 USD", o.Adjustments[1].Amount.String())
	assert.False(t, o.Adjustments[1].Locked)
	assert.True(t, s.Adjustments()[0].Locked)
}

func TestLate_MultipleShipments(t *testing.T) {
	e := newEnv(t)
	first := shipping.NewShipment("1", "default")
	first.SetTitle("Shipment #1")
	a := usd("5")
	first.SetAmount(&a)
	first.AddAdjustment(adjustment.Adjustment{Type: adjustment.TypeTax, Label: "VAT", Amount: usd("0.83"), Percentage: "0.2", SourceID: "eu_vat|fr|standard", Included: true})
	first.AddAdjustment(adjustment.Adjustment{Type: adjustment.TypeShippingPromotion, Label: "Discount", Amount: usd("-1"), SourceID: "1"})
	second := shipping.NewShipment("1", "default")
	second.SetTitle("Shipment #2")
	o := &order.Order{ID: "1", Type: "default", Shipments: []*shipping.Shipment{first, second}}

	require.NoError(t, e.late.Process(context.Background(), o))

	labels := make([]string, 0, len(o.Adjustments))
	for _, adj := range o.Adjustments {
		labels = append(labels, adj.Label)
	}
	assert.Equal(t, []string{"Shipment #1", "VAT", "Discount"}, labels)
	assert.NotEmpty(t, second.ID)
}

func TestLate_NoShipments(t *testing.T) {
	e := newEnv(t)
	o := &order.Order{ID: "1", Type: "default"}
	require.NoError(t, e.late.Process(context.Background(), o))
	assert.Empty(t, o.Adjustments)
}
