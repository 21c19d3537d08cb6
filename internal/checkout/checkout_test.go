package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/bookship/internal/checkout"
	"github.com/tournevent/bookship/internal/deadletter"
	"github.com/tournevent/bookship/internal/ledger"
	"github.com/tournevent/bookship/internal/notify"
	"github.com/tournevent/bookship/internal/payment"
	"github.com/tournevent/bookship/internal/telemetry"
	"github.com/tournevent/bookship/pkg/shipper"
	"github.com/tournevent/bookship/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type fixture struct {
	carrier    *mock.Client
	provider   *payment.MockProvider
	ledger     ledger.Ledger
	notifier   *notify.Recorder
	sink       *deadletter.Recorder
	metrics    *telemetry.Metrics
	quotes     *checkout.QuoteService
	dispatcher *checkout.Dispatcher
	webhook    *checkout.WebhookService
}

type fixtureOption func(*fixture)

func withLedger(l ledger.Ledger) fixtureOption {
	return func(f *fixture) { f.ledger = l }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	logger := nopLogger()

	f := &fixture{
		carrier:  mock.New("sendcloud"),
		provider: payment.NewMockProvider(),
		ledger:   ledger.NewMemoryLedger(0),
		notifier: &notify.Recorder{},
		sink:     &deadletter.Recorder{},
		metrics:  telemetry.NewMetrics(prometheus.NewRegistry()),
	}
	for _, opt := range opts {
		opt(f)
	}

	registry := shipper.NewRegistry()
	registry.Register(f.carrier)
	resolver := shipper.NewResolver(registry, shipper.ResolverConfig{
		OriginCountry:    "FR",
		OriginPostalCode: "69002",
	}, logger)
	builder := shipper.NewBuilder(shipper.BuilderConfig{
		Sender: shipper.Address{
			Name:        "Editions Tournevent",
			Line1:       "rue Mercière 12",
			PostalCode:  "69002",
			City:        "Lyon",
			CountryCode: "FR",
		},
		BrandID:           7,
		CatalogPriceCents: 3000,
	})

	f.quotes = checkout.NewQuoteService(resolver, f.provider, checkout.QuoteConfig{
		SiteURL:           "https://www.example.fr/",
		CatalogPriceCents: 3000,
		BrandID:           7,
		Carrier:           "sendcloud",
	}, logger, f.metrics)
	f.dispatcher = checkout.NewDispatcher(registry, "sendcloud", f.ledger, logger, f.metrics)
	f.webhook = checkout.NewWebhookService(f.provider, builder, f.dispatcher, f.notifier, f.sink, logger, f.metrics)
	return f
}

func homeParis() shipper.Destination {
	return shipper.Destination{
		Country:     "FR",
		PostalCode:  "75 001",
		Street:      "rue de Rivoli",
		HouseNumber: "12",
		City:        "Paris",
	}
}

// completedEvent encodes a checkout.session.completed delivery for the mock
// provider.
func completedEvent(t *testing.T, sessionID string, metadata map[string]string) []byte {
	t.Helper()
	b, err := json.Marshal(payment.Event{
		ID:   "evt_" + sessionID,
		Type: payment.EventCheckoutCompleted,
		Session: &payment.Session{
			ID:          sessionID,
			Metadata:    metadata,
			AmountTotal: 3695,
		},
	})
	require.NoError(t, err)
	return b
}

func orderMetadata(t *testing.T, dest shipper.Destination) map[string]string {
	t.Helper()
	meta, err := checkout.EncodeMetadata(checkout.OrderMetadata{
		Destination: dest,
		Name:        "Jeanne Martin",
		Email:       "jeanne@example.com",
		Dedication:  "Pour Camille",
	})
	require.NoError(t, err)
	return meta
}

// brokenLedger fails every call.
type brokenLedger struct{}

var errLedgerDown = errors.New("ledger unreachable")

func (brokenLedger) Claim(context.Context, string) error    { return errLedgerDown }
func (brokenLedger) Release(context.Context, string) error  { return errLedgerDown }
func (brokenLedger) MarkDone(context.Context, string) error { return errLedgerDown }

func nopLogger() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}
