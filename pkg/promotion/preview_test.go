package promotion_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/promotion"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type orderMap map[string]*order.Order

func (m orderMap) LoadOrder(_ context.Context, id string) (*order.Order, error) {
	o, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	return o, nil
}

func previewEvent(s *shipping.Shipment) *shipping.RatesEvent {
	provider := mock.NewStaticProvider("1", map[string]price.Price{
		"standard": usd("5"),
		"express":  usd("20"),
	}, "standard", "express")
	rates, _ := provider.CalculateRates(context.Background(), s)
	return &shipping.RatesEvent{
		Rates:    rates,
		Method:   &shipping.Method{ID: "1", UUID: "standard-uuid", Enabled: true, Plugin: provider},
		Shipment: s,
	}
}

func rateAmounts(rates []*shipping.Rate) []string {
	var result []string
	for _, r := range rates {
		result = append(result, r.Amount().String())
	}
	return result
}

func TestRatePreview_OnRates(t *testing.T) {
	s := ratedShipment("2", "7")
	o := orderWith(s)
	promotions := promotionList{
		promo("1", percentageOff(t, "0.5", promotion.ShipmentOfferConfig{DisplayInclusive: true})),
		promo("2", fixedOff(t, "1", promotion.ShipmentOfferConfig{DisplayInclusive: true})),
		promo("3", fixedOff(t, "3", promotion.ShipmentOfferConfig{})),
	}
	preview := promotion.NewRatePreview(orderMap{"1": o}, promotions, otelzap.New(zap.NewNop()))

	event := previewEvent(s)
	require.NoError(t, preview.OnRates(context.Background(), event))

	// 5 * 0.5 = 2.5, less 1. 20 * 0.5 = 10, less 1.
	assert.Equal(t, []string{"1.50 USD", "9.00 USD"}, rateAmounts(event.Rates))
	assert.Equal(t, []string{"5.00 USD", "20.00 USD"}, []string{
		event.Rates[0].OriginalAmount().String(),
		event.Rates[1].OriginalAmount().String(),
	})

	// The real shipment and order are untouched.
	assert.Equal(t, "2", s.ShippingMethodID)
	assert.Equal(t, "7.00 USD", s.Amount.String())
	assert.Empty(t, s.Adjustments())
	assert.Same(t, s, o.Shipments[0])
	assert.Len(t, o.Shipments, 1)
}

func TestRatePreview_FixedDiscount(t *testing.T) {
	s := ratedShipment("1", "5")
	promotions := promotionList{promo("1", fixedOff(t, "1", promotion.ShipmentOfferConfig{DisplayInclusive: true}))}
	preview := promotion.NewRatePreview(orderMap{"1": orderWith(s)}, promotions, otelzap.New(zap.NewNop()))

	event := previewEvent(s)
	require.NoError(t, preview.OnRates(context.Background(), event))
	assert.Equal(t, []string{"4.00 USD", "19.00 USD"}, rateAmounts(event.Rates))
}

func TestRatePreview_IgnoresOtherPromotions(t *testing.T) {
	s := ratedShipment("1", "5")
	coupon := promo("2", fixedOff(t, "2", promotion.ShipmentOfferConfig{DisplayInclusive: true}))
	coupon.RequireCoupon = true
	coupon.Coupons = []string{"FREESHIP"}
	promotions := promotionList{
		promo("1", fixedOff(t, "1", promotion.ShipmentOfferConfig{})),
		coupon,
	}
	preview := promotion.NewRatePreview(orderMap{"1": orderWith(s)}, promotions, otelzap.New(zap.NewNop()))

	event := previewEvent(s)
	require.NoError(t, preview.OnRates(context.Background(), event))
	assert.Equal(t, []string{"5.00 USD", "20.00 USD"}, rateAmounts(event.Rates))
}

func TestRatePreview_CouponPromotion(t *testing.T) {
	s := ratedShipment("1", "5")
	o := orderWith(s)
	o.Coupons = []string{"FREESHIP"}
	coupon := promo("2", fixedOff(t, "2", promotion.ShipmentOfferConfig{DisplayInclusive: true}))
	coupon.RequireCoupon = true
	coupon.Coupons = []string{"FREESHIP"}
	preview := promotion.NewRatePreview(orderMap{"1": o}, promotionList{coupon}, otelzap.New(zap.NewNop()))

	event := previewEvent(s)
	require.NoError(t, preview.OnRates(context.Background(), event))
	assert.Equal(t, []string{"3.00 USD", "18.00 USD"}, rateAmounts(event.Rates))
}

func TestRatePreview_MissingOrder(t *testing.T) {
	preview := promotion.NewRatePreview(orderMap{}, promotionList{}, otelzap.New(zap.NewNop()))

	err := preview.OnRates(context.Background(), previewEvent(ratedShipment("1", "5")))
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRatePreview_AsManagerHook(t *testing.T) {
	s := ratedShipment("1", "5")
	promotions := promotionList{promo("1", percentageOff(t, "0.5", promotion.ShipmentOfferConfig{DisplayInclusive: true}))}
	preview := promotion.NewRatePreview(orderMap{"1": orderWith(s)}, promotions, otelzap.New(zap.NewNop()))

	m := previewEvent(s).Method
	manager := shipping.NewManager(&mock.MethodStorage{Methods: []*shipping.Method{m}}, otelzap.New(zap.NewNop()),
		shipping.WithRatesHook(preview.OnRates))

	rates, err := manager.CalculateRates(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"2.50 USD", "10.00 USD"}, rateAmounts(rates.All()))
}
