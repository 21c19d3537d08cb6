// Package payment wraps the hosted checkout provider.
package payment

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the event type of a settled checkout session.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	// ErrInvalidSignature indicates a webhook payload that failed verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrProvider indicates the provider refused or failed a request.
	ErrProvider = errors.New("payment provider error")

	// ErrMissingWebhookSecret indicates a provider configured without the
	// secret its webhook signatures are checked against.
	ErrMissingWebhookSecret = errors.New("webhook secret is not configured")
)

// LineItem is one priced line of a checkout session.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// SessionParams describes the checkout session to open.
type SessionParams struct {
	Currency      string
	LineItems     []LineItem
	Metadata      map[string]string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is the part of a checkout session needed after payment.
type Session struct {
	ID            string            `json:"id"`
	Metadata      map[string]string `json:"metadata"`
	AmountTotal   int64             `json:"amount_total"`
	CustomerPhone string            `json:"customer_phone,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
}

// Event is a verified webhook event. Session is set for checkout events only.
type Event struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Session *Session `json:"session,omitempty"`
}

// Provider opens checkout sessions and verifies their webhook events.
type Provider interface {
	CreateSession(ctx context.Context, params SessionParams) (string, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}
