package notify_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/bookship/internal/notify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sample() notify.OrderNotification {
	return notify.OrderNotification{
		OrderID:          "cs_test_42",
		Name:             "Jeanne Martin",
		Email:            "jeanne@example.com",
		Phone:            "+33600000000",
		AddressLine:      "rue de Rivoli 12",
		PostalCode:       "75001",
		City:             "Paris",
		CountryCode:      "FR",
		Dedication:       "Pour Léa",
		AmountTotalCents: 3695,
	}
}

func TestOrderNotification_Render(t *testing.T) {
	n := sample()

	assert.Equal(t, "Nouvelle commande cs_test_42", n.Subject())
	assert.Equal(t, "rue de Rivoli 12, 75001 Paris, FR", n.Address())
	assert.Equal(t, "36.95 €", n.Total())

	body := n.Body()
	lines := strings.Split(body, "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Nouvelle commande reçue", lines[0])
	assert.Equal(t, "Nom       : Jeanne Martin", lines[1])
	assert.Equal(t, "Téléphone : +33600000000", lines[3])
	assert.Equal(t, "Dédicace  : Pour Léa", lines[5])
	assert.Equal(t, "Total     : 36.95 €", lines[6])
}

func TestOrderNotification_TotalRounding(t *testing.T) {
	n := notify.OrderNotification{AmountTotalCents: 3000}
	assert.Equal(t, "30.00 €", n.Total())

	n.AmountTotalCents = 5
	assert.Equal(t, "0.05 €", n.Total())
}

func newSMTP(t *testing.T, cfg notify.SMTPConfig) *notify.SMTPNotifier {
	t.Helper()
	n, err := notify.NewSMTPNotifier(cfg, otelzap.New(zap.NewNop()))
	require.NoError(t, err)
	return n
}

func TestSMTPNotifier_Recipients(t *testing.T) {
	n := newSMTP(t, notify.SMTPConfig{
		Host: "smtp.example.fr",
		From: "boutique@example.fr",
		To:   []string{"auteur@example.fr", "boutique@example.fr"},
	})

	assert.Equal(t, []string{"auteur@example.fr", "boutique@example.fr"}, n.Recipients())
}

func TestSMTPNotifier_Message(t *testing.T) {
	n := newSMTP(t, notify.SMTPConfig{
		Host: "smtp.example.fr",
		From: "boutique@example.fr",
		To:   []string{"auteur@example.fr"},
	})

	msg, err := n.Message(sample())

	require.NoError(t, err)
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"auteur@example.fr", "boutique@example.fr"}, rcpts)
}

func TestSMTPNotifier_InvalidSender(t *testing.T) {
	n := newSMTP(t, notify.SMTPConfig{Host: "smtp.example.fr", From: "not an address", To: []string{"a@example.fr"}})

	err := n.Notify(context.Background(), sample())

	require.Error(t, err)
	assert.True(t, errors.Is(err, notify.ErrNotification))
}

func TestSMTPNotifier_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	n := newSMTP(t, notify.SMTPConfig{
		Host:    "127.0.0.1",
		Port:    port,
		From:    "boutique@example.fr",
		To:      []string{"auteur@example.fr"},
		Timeout: time.Second,
	})

	err = n.Notify(context.Background(), sample())

	require.Error(t, err)
	assert.True(t, errors.Is(err, notify.ErrNotification))
}

func TestNewSMTPNotifier_NoHost(t *testing.T) {
	_, err := notify.NewSMTPNotifier(notify.SMTPConfig{}, otelzap.New(zap.NewNop()))
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := notify.NewLogNotifier(otelzap.New(zap.New(core)))

	require.NoError(t, n.Notify(context.Background(), sample()))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "cs_test_42", fields["order_id"])
	assert.Equal(t, "Nouvelle commande cs_test_42", fields["subject"])
}

func TestRecorder(t *testing.T) {
	r := &notify.Recorder{}
	require.NoError(t, r.Notify(context.Background(), sample()))

	r.OnNotify = func(ctx context.Context, n notify.OrderNotification) error {
		return notify.ErrNotification
	}
	assert.ErrorIs(t, r.Notify(context.Background(), sample()), notify.ErrNotification)
	assert.Len(t, r.Sent(), 2)
}
