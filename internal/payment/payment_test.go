package payment_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tournevent/bookship/internal/payment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_test_secret"

func newStripe(t *testing.T, handler http.HandlerFunc) *payment.StripeProvider {
	t.Helper()
	cfg := payment.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: webhookSecret}
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(srv.URL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		})
		cfg.Backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}
	provider, err := payment.NewStripeProvider(cfg, otelzap.New(zap.NewNop()))
	require.NoError(t, err)
	return provider
}

func sign(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  webhookSecret,
	}).Header
}

func TestStripeProvider_CreateSession(t *testing.T) {
	provider := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))
		assert.Equal(t, "eur", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "Livre", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "3000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "695", r.PostForm.Get("line_items[1][price_data][unit_amount]"))
		assert.Equal(t, "Jeanne Martin", r.PostForm.Get("metadata[name]"))
		assert.Equal(t, "https://www.example.fr/mon-livre/remerciement", r.PostForm.Get("success_url"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_abc","object":"checkout.session"}`))
	})

	id, err := provider.CreateSession(context.Background(), payment.SessionParams{
		Currency: "EUR",
		LineItems: []payment.LineItem{
			{Name: "Livre", UnitAmount: 3000, Quantity: 1},
			{Name: "Frais de livraison", UnitAmount: 695, Quantity: 1},
		},
		Metadata:   map[string]string{"name": "Jeanne Martin"},
		SuccessURL: "https://www.example.fr/mon-livre/remerciement",
		CancelURL:  "https://www.example.fr/mon-livre/paiement",
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", id)
}

func TestStripeProvider_CreateSession_Rejected(t *testing.T) {
	provider := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`))
	})

	_, err := provider.CreateSession(context.Background(), payment.SessionParams{Currency: "EUR"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, payment.ErrProvider))
}

func TestStripeProvider_ParseEvent_CheckoutCompleted(t *testing.T) {
	provider := newStripe(t, nil)
	payload := `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_abc",
			"object": "checkout.session",
			"amount_total": 3695,
			"metadata": {"name": "Jeanne Martin", "shipping": "{\"country\":\"FR\"}"},
			"customer_details": {"email": "jeanne@example.com", "phone": "+33600000000"}
		}}
	}`

	evt, err := provider.ParseEvent([]byte(payload), sign(payload))

	require.NoError(t, err)
	assert.Equal(t, payment.EventCheckoutCompleted, evt.Type)
	require.NotNil(t, evt.Session)
	assert.Equal(t, "cs_test_abc", evt.Session.ID)
	assert.Equal(t, int64(3695), evt.Session.AmountTotal)
	assert.Equal(t, "Jeanne Martin", evt.Session.Metadata["name"])
	assert.Equal(t, "+33600000000", evt.Session.CustomerPhone)
}

func TestStripeProvider_ParseEvent_OtherType(t *testing.T) {
	provider := newStripe(t, nil)
	payload := `{"id":"evt_2","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`

	evt, err := provider.ParseEvent([]byte(payload), sign(payload))

	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", evt.Type)
	assert.Nil(t, evt.Session)
}

func TestStripeProvider_ParseEvent_BadSignature(t *testing.T) {
	provider := newStripe(t, nil)
	payload := `{"id":"evt_3","object":"event","type":"checkout.session.completed"}`

	_, err := provider.ParseEvent([]byte(payload), "t=1,v1=deadbeef")

	assert.True(t, errors.Is(err, payment.ErrInvalidSignature))
}

func TestStripeProvider_ParseEvent_TamperedPayload(t *testing.T) {
	provider := newStripe(t, nil)
	payload := `{"id":"evt_4","object":"event","type":"checkout.session.completed"}`
	header := sign(payload)

	_, err := provider.ParseEvent([]byte(`{"id":"evt_5","object":"event","type":"checkout.session.completed"}`), header)

	assert.True(t, errors.Is(err, payment.ErrInvalidSignature))
}

func TestNewStripeProvider_RequiresWebhookSecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		provider, err := payment.NewStripeProvider(payment.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: secret}, otelzap.New(zap.NewNop()))

		assert.Nil(t, provider)
		assert.True(t, errors.Is(err, payment.ErrMissingWebhookSecret))
	}
}

func TestStripeProvider_ParseEvent_EmptySecretRejectsForgedEvent(t *testing.T) {
	payload := `{"id":"evt_forged","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_forged","object":"checkout.session","metadata":{"shipping_option_code":"colissimo:home/fr"}}}}`
	header := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  "",
	}).Header

	evt, err := (&payment.StripeProvider{}).ParseEvent([]byte(payload), header)

	assert.Nil(t, evt)
	assert.True(t, errors.Is(err, payment.ErrInvalidSignature))
	assert.True(t, errors.Is(err, payment.ErrMissingWebhookSecret))
}

func TestStripeProvider_ParseEvent_RejectsEventSignedWithOtherSecret(t *testing.T) {
	provider := newStripe(t, nil)
	payload := `{"id":"evt_6","object":"event","type":"checkout.session.completed"}`
	header := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  "",
	}).Header

	_, err := provider.ParseEvent([]byte(payload), header)

	assert.True(t, errors.Is(err, payment.ErrInvalidSignature))
}

func TestMockProvider(t *testing.T) {
	m := payment.NewMockProvider()

	id, err := m.CreateSession(context.Background(), payment.SessionParams{Currency: "EUR"})
	require.NoError(t, err)
	assert.Contains(t, id, "cs_mock_")
	assert.Len(t, m.Sessions(), 1)

	_, err = m.ParseEvent([]byte(`{}`), "wrong")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	evt, err := m.ParseEvent([]byte(`{"id":"evt_1","type":"checkout.session.completed","session":{"id":"cs_1"}}`), m.Signature)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", evt.Session.ID)
}
