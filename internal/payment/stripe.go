package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Backends overrides the Stripe API endpoints, for tests.
	Backends *stripe.Backends
}

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	logger        *otelzap.Logger
}

// NewStripeProvider returns ErrMissingWebhookSecret when cfg.WebhookSecret is
// blank.
func NewStripeProvider(cfg StripeConfig, logger *otelzap.Logger) (*StripeProvider, error) {
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &StripeProvider{
		api:           client.New(cfg.SecretKey, cfg.Backends),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}, nil
}

// CreateSession opens a card-only payment session and returns its id.
func (p *StripeProvider) CreateSession(ctx context.Context, params SessionParams) (string, error) {
	currency := strings.ToLower(params.Currency)

	sp := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
	}
	if params.CustomerEmail != "" {
		sp.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for _, item := range params.LineItems {
		sp.LineItems = append(sp.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	for k, v := range params.Metadata {
		sp.AddMetadata(k, v)
	}
	sp.Context = ctx

	session, err := p.api.CheckoutSessions.New(sp)
	if err != nil {
		p.logger.Ctx(ctx).Error("Stripe checkout session creation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}

	p.logger.Ctx(ctx).Info("Stripe checkout session created",
		zap.String("session_id", session.ID),
		zap.Int("line_items", len(params.LineItems)),
	)
	return session.ID, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
func (p *StripeProvider) ParseEvent(payload []byte, signature string) (*Event, error) {
	if strings.TrimSpace(p.webhookSecret) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, ErrMissingWebhookSecret)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if evt.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrProvider, evt.ID)
	}
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: decoding checkout session: %w", ErrProvider, err)
	}

	out.Session = &Session{
		ID:          cs.ID,
		Metadata:    cs.Metadata,
		AmountTotal: cs.AmountTotal,
	}
	if cs.CustomerDetails != nil {
		out.Session.CustomerPhone = cs.CustomerDetails.Phone
		out.Session.CustomerEmail = cs.CustomerDetails.Email
	}
	return out, nil
}

var _ Provider = (*StripeProvider)(nil)
