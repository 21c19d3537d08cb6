// Package checkout implements the two buyer-facing flows: quoting and paying
// for a book, then shipping it once the payment settles.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/bookship/internal/payment"
	"github.com/tournevent/bookship/internal/telemetry"
	"github.com/tournevent/bookship/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Storefront return paths, relative to the site URL.
const (
	SuccessPath = "/mon-livre/remerciement"
	CancelPath  = "/mon-livre/paiement"
)

// QuoteConfig holds the catalog and storefront settings.
type QuoteConfig struct {
	SiteURL           string
	CatalogPriceCents int64
	ProductName       string
	ShippingLineName  string
	BrandID           int
	Carrier           string
}

// CheckoutRequest is the buyer's checkout form.
type CheckoutRequest struct {
	Shipping   *shipper.Destination `json:"shipping"`
	Name       string               `json:"name"`
	Email      string               `json:"email"`
	Dedication string               `json:"dedicace"`
}

// QuoteService lists and prices shipping options and opens payment sessions.
type QuoteService struct {
	resolver *shipper.Resolver
	provider payment.Provider
	config   QuoteConfig
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
}

func NewQuoteService(resolver *shipper.Resolver, provider payment.Provider, cfg QuoteConfig, logger *otelzap.Logger, metrics *telemetry.Metrics) *QuoteService {
	if cfg.ProductName == "" {
		cfg.ProductName = "Livre"
	}
	if cfg.ShippingLineName == "" {
		cfg.ShippingLineName = "Frais de livraison"
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	return &QuoteService{
		resolver: resolver,
		provider: provider,
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// ListOptions returns the ranked shipping options for dest.
func (s *QuoteService) ListOptions(ctx context.Context, dest shipper.Destination) ([]shipper.Quote, error) {
	start := time.Now()
	quotes, err := s.resolver.ListOptions(ctx, dest)
	s.record("quote_options", start, err)
	return quotes, err
}

// Price returns the shipping amount in cents charged for dest.
func (s *QuoteService) Price(ctx context.Context, dest shipper.Destination) (int64, error) {
	start := time.Now()
	quote, err := s.resolver.SelectBestPrice(ctx, dest)
	s.record("quote_price", start, err)
	if err != nil {
		return 0, err
	}
	return quote.PriceCents, nil
}

// CreateCheckout opens a payment session for one book plus shipping and
// returns the session id. A precomputed amountCents on the destination is
// charged as is; otherwise the price is resolved and its option code is
// recorded on the destination.
func (s *QuoteService) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	start := time.Now()
	sessionID, err := s.createCheckout(ctx, req)
	s.record("create_checkout", start, err)
	return sessionID, err
}

func (s *QuoteService) createCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if req.Shipping == nil || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return "", fmt.Errorf("%w: Missing parameters: shipping, name or email", shipper.ErrValidation)
	}
	dest := *req.Shipping
	if _, err := dest.Mode(); err != nil {
		return "", err
	}

	var amount int64
	if dest.AmountCents != nil {
		amount = *dest.AmountCents
		if amount < 0 {
			return "", fmt.Errorf("%w: amountCents must not be negative", shipper.ErrValidation)
		}
	} else {
		quote, err := s.resolver.SelectBestPrice(ctx, dest)
		if err != nil {
			return "", err
		}
		amount = quote.PriceCents
		if dest.OptionCode() == "" {
			dest.ShippingOptionCode = quote.OptionCode
		}
	}
	dest.BrandID = s.config.BrandID

	meta, err := EncodeMetadata(OrderMetadata{
		Destination: dest,
		Name:        req.Name,
		Email:       req.Email,
		Dedication:  req.Dedication,
	})
	if err != nil {
		return "", err
	}

	sessionID, err := s.provider.CreateSession(ctx, payment.SessionParams{
		Currency: shipper.Currency,
		LineItems: []payment.LineItem{
			{Name: s.config.ProductName, UnitAmount: s.config.CatalogPriceCents, Quantity: 1},
			{Name: s.config.ShippingLineName, UnitAmount: amount, Quantity: 1},
		},
		Metadata:   meta,
		SuccessURL: s.config.SiteURL + SuccessPath,
		CancelURL:  s.config.SiteURL + CancelPath,
	})
	if err != nil {
		return "", err
	}

	s.logger.Ctx(ctx).Info("Checkout session created",
		zap.String("session_id", sessionID),
		zap.String("country", dest.CountryOrDefault()),
		zap.String("option_code", dest.OptionCode()),
		zap.Int64("shipping_cents", amount),
		zap.Bool("precomputed", req.Shipping.AmountCents != nil),
	)
	return sessionID, nil
}

func (s *QuoteService) record(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordRequest(operation, s.config.Carrier, status, time.Since(start).Seconds())
}
