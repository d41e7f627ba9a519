package shipping_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/price"
	"github.com/tournevent/shipping/pkg/shipping"
)

func TestNewRate_MissingProperties(t *testing.T) {
	tests := []struct {
		name string
		def  shipping.RateDefinition
	}{
		{"missing method", shipping.RateDefinition{Service: shipping.Service{ID: "test"}, Amount: price.New("1", "USD")}},
		{"missing service", shipping.RateDefinition{ShippingMethodID: "123", Amount: price.New("1", "USD")}},
		{"missing amount", shipping.RateDefinition{ShippingMethodID: "123", Service: shipping.Service{ID: "test"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := shipping.NewRate(tt.def)
			assert.True(t, errors.Is(err, shipping.ErrMissingProperty))
		})
	}
}

func TestNewRate_Defaults(t *testing.T) {
	rate, err := shipping.NewRate(shipping.RateDefinition{
		ShippingMethodID: "standard",
		Service:          shipping.Service{ID: "test", Label: "Test"},
		Amount:           price.New("10.00", "USD"),
	})
	require.NoError(t, err)

	assert.Equal(t, "standard--test", rate.ID())
	assert.Equal(t, "standard", rate.ShippingMethodID())
	assert.Equal(t, "Test", rate.Service().Label)
	assert.True(t, rate.OriginalAmount().Equal(price.New("10", "USD")))
	assert.Empty(t, rate.Description())
	assert.Nil(t, rate.DeliveryDate())
}

func TestNewRate_OriginalAmount(t *testing.T) {
	original := price.New("15.00", "USD")
	rate, err := shipping.NewRate(shipping.RateDefinition{
		ID:               "717c2f9",
		ShippingMethodID: "standard",
		Service:          shipping.Service{ID: "test"},
		OriginalAmount:   &original,
		Amount:           price.New("10.00", "USD"),
		Description:      "Delivery in 3-5 business days.",
	})
	require.NoError(t, err)

	assert.Equal(t, "717c2f9", rate.ID())
	assert.True(t, rate.OriginalAmount().Equal(original))
	assert.True(t, rate.Amount().Equal(price.New("10", "USD")))
	assert.Equal(t, "Delivery in 3-5 business days.", rate.Description())

	rate.SetAmount(price.New("8.00", "USD"))
	assert.True(t, rate.Amount().Equal(price.New("8", "USD")))
	assert.True(t, rate.OriginalAmount().Equal(original))
}

func TestNewRate_CurrencyMismatch(t *testing.T) {
	original := price.New("15.00", "EUR")
	_, err := shipping.NewRate(shipping.RateDefinition{
		ShippingMethodID: "standard",
		Service:          shipping.Service{ID: "test"},
		OriginalAmount:   &original,
		Amount:           price.New("10.00", "USD"),
	})
	assert.True(t, errors.Is(err, shipping.ErrInvalidProperty))
}

func TestRateSet_KeepsInsertionOrder(t *testing.T) {
	set := shipping.NewRateSet()
	assert.Nil(t, set.First())

	a := mustRate(t, "m1", "a", "5")
	b := mustRate(t, "m1", "b", "3")
	set.Put(a)
	set.Put(b)

	replacement := mustRate(t, "m1", "a", "7")
	set.Put(replacement)

	require.Equal(t, 2, set.Len())
	all := set.All()
	assert.Equal(t, "m1--a", all[0].ID())
	assert.True(t, all[0].Amount().Equal(price.New("7", "USD")))
	assert.Equal(t, "m1--b", all[1].ID())

	got, ok := set.Get("m1--b")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func mustRate(t *testing.T, methodID, serviceID, amount string) *shipping.Rate {
	t.Helper()
	r, err := shipping.NewRate(shipping.RateDefinition{
		ShippingMethodID: methodID,
		Service:          shipping.Service{ID: serviceID, Label: serviceID},
		Amount:           price.New(amount, "USD"),
	})
	require.NoError(t, err)
	return r
}
