package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/bookship/internal/checkout"
	"github.com/tournevent/bookship/internal/payment"
	"github.com/tournevent/bookship/pkg/shipper"
)

func TestQuoteService_ListOptions(t *testing.T) {
	f := newFixture(t)

	quotes, err := f.quotes.ListOptions(context.Background(), homeParis())

	require.NoError(t, err)
	assert.Len(t, quotes, shipper.MaxHomeOptions)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("quote_options", "sendcloud", "success")))
}

func TestQuoteService_Price(t *testing.T) {
	f := newFixture(t)

	cents, err := f.quotes.Price(context.Background(), homeParis())

	require.NoError(t, err)
	assert.Equal(t, int64(695), cents)
}

func TestQuoteService_Price_NoRate(t *testing.T) {
	f := newFixture(t)
	f.carrier.Rates = nil

	_, err := f.quotes.Price(context.Background(), homeParis())

	assert.True(t, errors.Is(err, shipper.ErrNoRateAvailable))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("quote_price", "sendcloud", "error")))
}

func TestQuoteService_CreateCheckout_PricesShipping(t *testing.T) {
	f := newFixture(t)
	dest := homeParis()

	id, err := f.quotes.CreateCheckout(context.Background(), checkout.CheckoutRequest{
		Shipping:   &dest,
		Name:       "Jeanne Martin",
		Email:      "jeanne@example.com",
		Dedication: "Pour Camille",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, id)

	sessions := f.provider.Sessions()
	require.Len(t, sessions, 1)
	s := sessions[0]
	assert.Equal(t, "EUR", s.Currency)
	require.Len(t, s.LineItems, 2)
	assert.Equal(t, payment.LineItem{Name: "Livre", UnitAmount: 3000, Quantity: 1}, s.LineItems[0])
	assert.Equal(t, payment.LineItem{Name: "Frais de livraison", UnitAmount: 695, Quantity: 1}, s.LineItems[1])
	assert.Equal(t, "https://www.example.fr/mon-livre/remerciement", s.SuccessURL)
	assert.Equal(t, "https://www.example.fr/mon-livre/paiement", s.CancelURL)

	meta, err := checkout.DecodeMetadata(s.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "colissimo:home/fr", meta.Destination.ShippingOptionCode)
	assert.Equal(t, 7, meta.Destination.BrandID)
	assert.Equal(t, "Pour Camille", meta.Dedication)
	assert.Empty(t, dest.ShippingOptionCode, "caller's destination is left untouched")
}

func TestQuoteService_CreateCheckout_KeepsChosenOption(t *testing.T) {
	f := newFixture(t)
	dest := homeParis()
	dest.ShippingOptionCode = "ups:standard"

	_, err := f.quotes.CreateCheckout(context.Background(), checkout.CheckoutRequest{
		Shipping: &dest,
		Name:     "Jeanne Martin",
		Email:    "jeanne@example.com",
	})

	require.NoError(t, err)
	meta, err := checkout.DecodeMetadata(f.provider.Sessions()[0].Metadata)
	require.NoError(t, err)
	assert.Equal(t, "ups:standard", meta.Destination.ShippingOptionCode)
}

func TestQuoteService_CreateCheckout_PrecomputedAmount(t *testing.T) {
	f := newFixture(t)
	amount := int64(1234)
	dest := homeParis()
	dest.ShippingOptionCode = "dpd:home/predict"
	dest.AmountCents = &amount

	_, err := f.quotes.CreateCheckout(context.Background(), checkout.CheckoutRequest{
		Shipping: &dest,
		Name:     "Jeanne Martin",
		Email:    "jeanne@example.com",
	})

	require.NoError(t, err)
	assert.Empty(t, f.carrier.Queries(), "precomputed amounts are not re-priced")
	assert.Equal(t, int64(1234), f.provider.Sessions()[0].LineItems[1].UnitAmount)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.provider.Sessions()[0].Metadata["shipping"]), &raw))
	assert.Equal(t, float64(1234), raw["amountCents"])
}

func TestQuoteService_CreateCheckout_Rejected(t *testing.T) {
	negative := int64(-5)
	tests := []struct {
		name string
		req  checkout.CheckoutRequest
	}{
		{"no shipping", checkout.CheckoutRequest{Name: "Jeanne", Email: "jeanne@example.com"}},
		{"no name", checkout.CheckoutRequest{Shipping: &shipper.Destination{Country: "FR"}, Email: "jeanne@example.com"}},
		{"blank email", checkout.CheckoutRequest{Shipping: &shipper.Destination{Country: "FR"}, Name: "Jeanne", Email: " "}},
		{"pickup without carrier", checkout.CheckoutRequest{Shipping: &shipper.Destination{PickupPointID: "1"}, Name: "Jeanne", Email: "jeanne@example.com"}},
		{"negative amount", checkout.CheckoutRequest{Shipping: &shipper.Destination{Country: "FR", AmountCents: &negative}, Name: "Jeanne", Email: "jeanne@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.quotes.CreateCheckout(context.Background(), tt.req)

			require.Error(t, err)
			assert.True(t, shipper.IsClientError(err), "got %v", err)
			assert.Empty(t, f.provider.Sessions())
		})
	}
}

func TestQuoteService_CreateCheckout_MissingParametersMessage(t *testing.T) {
	f := newFixture(t)

	_, err := f.quotes.CreateCheckout(context.Background(), checkout.CheckoutRequest{})

	assert.Contains(t, err.Error(), "Missing parameters: shipping, name or email")
}

func TestQuoteService_CreateCheckout_PriceFailure(t *testing.T) {
	f := newFixture(t)
	f.carrier.Err = shipper.ErrServiceUnavailable
	dest := homeParis()

	_, err := f.quotes.CreateCheckout(context.Background(), checkout.CheckoutRequest{
		Shipping: &dest,
		Name:     "Jeanne Martin",
		Email:    "jeanne@example.com",
	})

	assert.True(t, errors.Is(err, shipper.ErrUpstreamRate))
	assert.Empty(t, f.provider.Sessions())
}

func TestQuoteService_CreateCheckout_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.OnCreateSession = func(ctx context.Context, params payment.SessionParams) (string, error) {
		return "", payment.ErrProvider
	}
	dest := homeParis()

	_, err := f.quotes.CreateCheckout(context.Background(), checkout.CheckoutRequest{
		Shipping: &dest,
		Name:     "Jeanne Martin",
		Email:    "jeanne@example.com",
	})

	assert.True(t, errors.Is(err, payment.ErrProvider))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("create_checkout", "sendcloud", "error")))
}
