package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/bookship/internal/checkout"
	"github.com/tournevent/bookship/internal/payment"
	"github.com/tournevent/bookship/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP front of the storefront and the payment webhook.
type Server struct {
	port     int
	origin   string
	quotes   *checkout.QuoteService
	webhook  *checkout.WebhookService
	gatherer prometheus.Gatherer
	logger   *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port          int
	AllowedOrigin string
	// Gatherer serves /metrics. Nil means the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, quotes *checkout.QuoteService, webhook *checkout.WebhookService, logger *otelzap.Logger) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:     cfg.Port,
		origin:   cfg.AllowedOrigin,
		quotes:   quotes,
		webhook:  webhook,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.cors)
		r.Handle("/quote-options", postOnly(http.HandlerFunc(s.handleQuoteOptions)))
		r.Handle("/quote-price", postOnly(http.HandlerFunc(s.handleQuotePrice)))
		r.Handle("/create-checkout", postOnly(http.HandlerFunc(s.handleCreateCheckout)))
	})

	r.Post("/webhook", s.handleWebhook)
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// cors answers preflight requests and labels every storefront response with
// the site origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.origin)
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func postOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST, OPTIONS")
			writeText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type quoteRequest struct {
	Shipping *shipper.Destination `json:"shipping"`
}

type quoteOptionsResponse struct {
	Options []shipper.Quote `json:"options"`
}

type quotePriceResponse struct {
	Amount int64 `json:"amount"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuoteOptions(w http.ResponseWriter, r *http.Request) {
	dest, ok := s.decodeShipping(w, r)
	if !ok {
		return
	}

	quotes, err := s.quotes.ListOptions(r.Context(), *dest)
	if err != nil {
		s.logger.Ctx(r.Context()).Error("Failed to list shipping options", zap.Error(err))
		writeText(w, statusFor(err), clientMessage(err))
		return
	}
	if quotes == nil {
		quotes = []shipper.Quote{}
	}
	writeJSON(w, http.StatusOK, quoteOptionsResponse{Options: quotes})
}

func (s *Server) handleQuotePrice(w http.ResponseWriter, r *http.Request) {
	dest, ok := s.decodeShipping(w, r)
	if !ok {
		return
	}

	amount, err := s.quotes.Price(r.Context(), *dest)
	if err != nil {
		s.logger.Ctx(r.Context()).Error("Failed to price shipping", zap.Error(err))
		writeText(w, statusFor(err), clientMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, quotePriceResponse{Amount: amount})
}

func (s *Server) decodeShipping(w http.ResponseWriter, r *http.Request) (*shipper.Destination, bool) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid JSON")
		return nil, false
	}
	if req.Shipping == nil {
		writeText(w, http.StatusBadRequest, "Missing parameter: shipping")
		return nil, false
	}
	return req.Shipping, true
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
		return
	}

	sessionID, err := s.quotes.CreateCheckout(r.Context(), req)
	if err != nil {
		s.logger.Ctx(r.Context()).Error("Failed to create checkout session", zap.Error(err))
		writeJSON(w, statusFor(err), errorResponse{Error: clientMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{SessionID: sessionID})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
		return
	}

	result, err := s.webhook.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		writeText(w, http.StatusOK, result)
	case errors.Is(err, payment.ErrInvalidSignature), errors.Is(err, payment.ErrProvider):
		writeText(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
	case errors.Is(err, checkout.ErrInvalidMetadata):
		writeText(w, http.StatusBadRequest, "Invalid metadata")
	case errors.Is(err, shipper.ErrMissingRateCode):
		writeText(w, http.StatusBadRequest, "Missing shipping option code")
	default:
		s.logger.Ctx(r.Context()).Error("Webhook handling failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func statusFor(err error) int {
	if shipper.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// clientMessage strips the validation sentinel prefix so callers see the
// field-level message.
func clientMessage(err error) string {
	return strings.TrimPrefix(err.Error(), shipper.ErrValidation.Error()+": ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}
