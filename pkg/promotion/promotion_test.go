package promotion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/adjustment"
	"github.com/tournevent/shipping/pkg/order"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/promotion"
	"github.com/tournevent/shipping/pkg/shipping"
	"github.com/tournevent/shipping/pkg/shipping/method"
	"github.com/tournevent/shipping/pkg/shipping/mock"
	"gopkg.in/yaml.v3"
)

func usd(amount string) price.Price { return price.New(amount, "USD") }

func config(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))
	return &node
}

// promotionList serves promotions from a slice.
type promotionList []*promotion.Promotion

func (l promotionList) LoadAvailable(_ context.Context, o *order.Order) ([]*promotion.Promotion, error) {
	var result []*promotion.Promotion
	for _, p := range l {
		if p.Available(o) {
			result = append(result, p)
		}
	}
	return result, nil
}

func methods() *mock.MethodStorage {
	return &mock.MethodStorage{Methods: []*shipping.Method{
		{ID: "1", UUID: "standard-uuid", Name: "Standard", Enabled: true},
		{ID: "2", UUID: "overnight-uuid", Name: "Overnight", Enabled: true},
	}}
}

func ratedShipment(methodID, amount string) *shipping.Shipment {
	s := shipping.NewShipment("1", "default")
	s.ID = "s-" + methodID
	s.SetShippingMethod(methodID, "default")
	a := usd(amount)
	s.SetOriginalAmount(&a)
	s.SetAmount(&a)
	return s
}

func orderWith(shipments ...*shipping.Shipment) *order.Order {
	return &order.Order{
		ID:        "1",
		Type:      "default",
		Store:     order.Store{ID: "1", UUID: "store-uuid"},
		State:     order.StateDraft,
		Shipments: shipments,
	}
}

func fixedOff(t *testing.T, amount string, cfg promotion.ShipmentOfferConfig) *promotion.FixedAmountOff {
	t.Helper()
	offer, err := promotion.NewFixedAmountOff(promotion.FixedAmountOffConfig{
		ShipmentOfferConfig: cfg,
		Amount:              method.AmountConfig{Number: amount, CurrencyCode: "USD"},
	}, methods())
	require.NoError(t, err)
	return offer
}

func percentageOff(t *testing.T, pct string, cfg promotion.ShipmentOfferConfig) *promotion.PercentageOff {
	t.Helper()
	offer, err := promotion.NewPercentageOff(promotion.PercentageOffConfig{
		ShipmentOfferConfig: cfg,
		Percentage:          pct,
	}, methods(), nil)
	require.NoError(t, err)
	return offer
}

func promo(id string, offer promotion.Offer) *promotion.Promotion {
	return &promotion.Promotion{ID: id, DisplayName: "Shipping sale " + id, Enabled: true, Offer: offer}
}

func TestFixedAmountOff_CappedDisplayInclusive(t *testing.T) {
	s := ratedShipment("1", "5")
	o := orderWith(s)
	p := promo("1", fixedOff(t, "11", promotion.ShipmentOfferConfig{DisplayInclusive: true}))

	require.NoError(t, p.Apply(context.Background(), o))

	assert.Equal(t, "0.00 USD", s.Amount.String())
	adjustments := s.Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, adjustment.TypeShippingPromotion, adjustments[0].Type)
	assert.Equal(t, "-5.00 USD", adjustments[0].Amount.String())
	assert.Equal(t, "Shipping sale 1", adjustments[0].Label)
	assert.Equal(t, "1", adjustments[0].SourceID)
	assert.True(t, adjustments[0].Included)
	assert.Empty(t, adjustments[0].Percentage)
	assert.True(t, s.AdjustedAmount().IsZero())
}

func TestFixedAmountOff_NotDisplayInclusive(t *testing.T) {
	s := ratedShipment("1", "20")
	o := orderWith(s)
	p := promo("1", fixedOff(t, "5", promotion.ShipmentOfferConfig{}))

	require.NoError(t, p.Apply(context.Background(), o))

	assert.Equal(t, "20.00 USD", s.Amount.String())
	adjustments := s.Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, "-5.00 USD", adjustments[0].Amount.String())
	assert.False(t, adjustments[0].Included)
	assert.Equal(t, "15.00 USD", s.AdjustedAmount().String())
}

func TestFixedAmountOff_CurrencyMismatch(t *testing.T) {
	s := ratedShipment("1", "20")
	eur := price.New("20", "EUR")
	s.SetAmount(&eur)
	o := orderWith(s)

	require.NoError(t, promo("1", fixedOff(t, "5", promotion.ShipmentOfferConfig{})).Apply(context.Background(), o))
	assert.Empty(t, s.Adjustments())
}

func TestPercentageOff(t *testing.T) {
	s := ratedShipment("1", "20")
	o := orderWith(s)
	p := promo("1", percentageOff(t, "0.5", promotion.ShipmentOfferConfig{DisplayInclusive: true}))

	require.NoError(t, p.Apply(context.Background(), o))

	assert.Equal(t, "10.00 USD", s.Amount.String())
	adjustments := s.Adjustments()
	require.Len(t, adjustments, 1)
	assert.Equal(t, "-10.00 USD", adjustments[0].Amount.String())
	assert.Equal(t, "0.5", adjustments[0].Percentage)
	assert.True(t, adjustments[0].Included)
}

func TestPercentageOff_Rounds(t *testing.T) {
	s := ratedShipment("1", "9.99")
	o := orderWith(s)

	require.NoError(t, promo("1", percentageOff(t, "0.15", promotion.ShipmentOfferConfig{})).Apply(context.Background(), o))

	// 9.99 * 0.15 = 1.4985
	assert.Equal(t, []string{"-1.50 USD"}, adjustmentAmounts(s))
}

func TestOffers_NeverDriveShipmentNegative(t *testing.T) {
	tests := []struct {
		name   string
		offers func(t *testing.T) []promotion.Offer
		want   []string
	}{
		{
			name: "fixed then fixed",
			offers: func(t *testing.T) []promotion.Offer {
				return []promotion.Offer{
					fixedOff(t, "15", promotion.ShipmentOfferConfig{}),
					fixedOff(t, "15", promotion.ShipmentOfferConfig{}),
				}
			},
			want: []string{"-15.00 USD", "-5.00 USD"},
		},
		{
			name: "percentage then fixed inclusive",
			offers: func(t *testing.T) []promotion.Offer {
				return []promotion.Offer{
					percentageOff(t, "0.75", promotion.ShipmentOfferConfig{}),
					fixedOff(t, "10", promotion.ShipmentOfferConfig{DisplayInclusive: true}),
				}
			},
			want: []string{"-15.00 USD", "-5.00 USD"},
		},
		{
			name: "fixed inclusive then percentage",
			offers: func(t *testing.T) []promotion.Offer {
				return []promotion.Offer{
					fixedOff(t, "18", promotion.ShipmentOfferConfig{DisplayInclusive: true}),
					percentageOff(t, "1", promotion.ShipmentOfferConfig{}),
				}
			},
			want: []string{"-18.00 USD", "-2.00 USD"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ratedShipment("1", "20")
			o := orderWith(s)
			for i, offer := range tt.offers(t) {
				require.NoError(t, offer.Apply(context.Background(), o, promo(string(rune('1'+i)), offer)))
			}
			assert.Equal(t, tt.want, adjustmentAmounts(s))
			assert.False(t, s.AdjustedAmount().IsNegative())
			assert.False(t, s.Amount.IsNegative())
		})
	}
}

func TestShipmentOffer_MethodFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		uuids   []string
		applied []bool
	}{
		{"none", promotion.FilterNone, nil, []bool{true, true}},
		{"include", promotion.FilterInclude, []string{"overnight-uuid"}, []bool{false, true}},
		{"exclude", promotion.FilterExclude, []string{"overnight-uuid"}, []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			standard := ratedShipment("1", "10")
			overnight := ratedShipment("2", "10")
			o := orderWith(standard, overnight)
			offer := fixedOff(t, "1", promotion.ShipmentOfferConfig{Filter: tt.filter, ShippingMethods: tt.uuids})

			require.NoError(t, promo("1", offer).Apply(context.Background(), o))

			assert.Equal(t, tt.applied[0], len(standard.Adjustments()) == 1)
			assert.Equal(t, tt.applied[1], len(overnight.Adjustments()) == 1)
		})
	}
}

func TestShipmentOffer_DeletedMethodIsSkipped(t *testing.T) {
	s := ratedShipment("9", "10")
	offer := fixedOff(t, "1", promotion.ShipmentOfferConfig{Filter: promotion.FilterExclude, ShippingMethods: []string{"standard-uuid"}})

	require.NoError(t, promo("1", offer).Apply(context.Background(), orderWith(s)))
	assert.Empty(t, s.Adjustments())
}

func TestShipmentOffer_SkipsIncompleteShipments(t *testing.T) {
	s := ratedShipment("1", "10")
	s.ClearRate()

	require.NoError(t, promo("1", fixedOff(t, "1", promotion.ShipmentOfferConfig{})).Apply(context.Background(), orderWith(s)))
	assert.Empty(t, s.Adjustments())
}

type failingLookup struct{}

func (failingLookup) Load(context.Context, string) (*shipping.Method, error) {
	return nil, errors.New("storage offline")
}

func TestShipmentOffer_LookupError(t *testing.T) {
	offer, err := promotion.NewFixedAmountOff(promotion.FixedAmountOffConfig{
		ShipmentOfferConfig: promotion.ShipmentOfferConfig{Filter: promotion.FilterInclude},
		Amount:              method.AmountConfig{Number: "1", CurrencyCode: "USD"},
	}, failingLookup{})
	require.NoError(t, err)

	err = promo("1", offer).Apply(context.Background(), orderWith(ratedShipment("1", "10")))
	assert.ErrorContains(t, err, "storage offline")
}

func TestPromotion_Applies(t *testing.T) {
	tests := []struct {
		name  string
		promo promotion.Promotion
		want  bool
	}{
		{"enabled", promotion.Promotion{Enabled: true}, true},
		{"disabled", promotion.Promotion{}, false},
		{"order type", promotion.Promotion{Enabled: true, OrderTypes: []string{"default"}}, true},
		{"other order type", promotion.Promotion{Enabled: true, OrderTypes: []string{"b2b"}}, false},
		{"other store", promotion.Promotion{Enabled: true, Stores: []string{"2"}}, false},
		{"coupon present", promotion.Promotion{Enabled: true, RequireCoupon: true, Coupons: []string{"FREESHIP"}}, true},
		{"coupon missing", promotion.Promotion{Enabled: true, RequireCoupon: true, Coupons: []string{"SUMMER"}}, false},
	}
	o := orderWith()
	o.Coupons = []string{"FREESHIP"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.Applies(o))
		})
	}
}

func TestPromotion_Label(t *testing.T) {
	assert.Equal(t, "Discount", (&promotion.Promotion{}).Label())
	assert.Equal(t, "Free shipping", (&promotion.Promotion{DisplayName: "Free shipping"}).Label())
}

func TestRegistry_Build(t *testing.T) {
	reg := promotion.NewRegistry()
	promotion.RegisterDefaults(reg, methods(), nil)
	assert.Equal(t, []string{promotion.FixedAmountOffPluginID, promotion.PercentageOffPluginID}, reg.Names())

	offer, err := reg.Build(promotion.FixedAmountOffPluginID, config(t, `
display_inclusive: true
filter: include
shipping_methods: [standard-uuid]
amount:
  number: "4"
  currency_code: USD
`))
	require.NoError(t, err)
	fixed, ok := offer.(*promotion.FixedAmountOff)
	require.True(t, ok)
	assert.True(t, fixed.DisplayInclusive())
	assert.Equal(t, "4.00 USD", fixed.Amount().String())

	offer, err = reg.Build(promotion.PercentageOffPluginID, config(t, `percentage: "0.25"`))
	require.NoError(t, err)
	assert.Equal(t, "0.25", offer.(*promotion.PercentageOff).Percentage().String())
}

func TestRegistry_Build_Errors(t *testing.T) {
	reg := promotion.NewRegistry()
	promotion.RegisterDefaults(reg, methods(), nil)

	_, err := reg.Build("order_fixed_amount_off", config(t, `{}`))
	assert.ErrorIs(t, err, shipping.ErrPluginNotFound)

	_, err = reg.Build(promotion.PercentageOffPluginID, config(t, `percentage: "1.5"`))
	assert.ErrorIs(t, err, shipping.ErrInvalidConfiguration)

	_, err = reg.Build(promotion.PercentageOffPluginID, config(t, `percentage: half`))
	assert.ErrorIs(t, err, shipping.ErrInvalidConfiguration)

	_, err = reg.Build(promotion.FixedAmountOffPluginID, config(t, `filter: sometimes`))
	assert.ErrorIs(t, err, shipping.ErrInvalidConfiguration)

	_, err = reg.Build(promotion.FixedAmountOffPluginID, nil)
	assert.ErrorIs(t, err, shipping.ErrInvalidConfiguration)
}

func TestProcessor(t *testing.T) {
	s := ratedShipment("1", "20")
	o := orderWith(s)
	o.Coupons = []string{"FREESHIP"}
	coupon := promo("2", fixedOff(t, "100", promotion.ShipmentOfferConfig{}))
	coupon.RequireCoupon = true
	coupon.Coupons = []string{"FREESHIP"}
	missingCoupon := promo("3", fixedOff(t, "1", promotion.ShipmentOfferConfig{}))
	missingCoupon.RequireCoupon = true
	disabled := promo("4", fixedOff(t, "1", promotion.ShipmentOfferConfig{}))
	disabled.Enabled = false

	promotions := promotionList{
		promo("1", percentageOff(t, "0.1", promotion.ShipmentOfferConfig{})),
		coupon,
		missingCoupon,
		disabled,
	}
	require.NoError(t, promotion.NewProcessor(promotions).Process(context.Background(), o))

	assert.Equal(t, []string{"-2.00 USD", "-18.00 USD"}, adjustmentAmounts(s))
}

func adjustmentAmounts(s *shipping.Shipment) []string {
	var result []string
	for _, a := range s.Adjustments() {
		result = append(result, a.Amount.String())
	}
	return result
}
