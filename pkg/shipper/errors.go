package shipper

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ShipperError represents an error from a shipping carrier.
type ShipperError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	// Payload is the carrier's raw error body, kept for operators.
	Payload json.RawMessage
	Cause   error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// WithPayload attaches the carrier's raw error body. Non-JSON bodies are
// kept as a JSON string.
func (e *ShipperError) WithPayload(payload []byte) *ShipperError {
	switch {
	case len(payload) == 0:
	case json.Valid(payload):
		e.Payload = json.RawMessage(payload)
	default:
		quoted, _ := json.Marshal(string(payload))
		e.Payload = quoted
	}
	return e
}

// FulfillmentError is returned when the carrier refuses a shipment. Payment
// has already settled by then, so callers surface it instead of failing.
type FulfillmentError struct {
	OrderID  string
	Endpoint Endpoint
	Cause    error
}

func (e *FulfillmentError) Error() string {
	return fmt.Sprintf("fulfillment of order %s via %s failed: %v", e.OrderID, e.Endpoint, e.Cause)
}

func (e *FulfillmentError) Unwrap() error {
	return e.Cause
}

// Is makes every FulfillmentError match ErrFulfillment.
func (e *FulfillmentError) Is(target error) bool {
	return target == ErrFulfillment
}

// CarrierPayload returns the carrier's error body when one was captured.
func (e *FulfillmentError) CarrierPayload() json.RawMessage {
	var se *ShipperError
	if errors.As(e.Cause, &se) {
		return se.Payload
	}
	return nil
}

// Sentinel errors for common shipping scenarios.
var (
	// ErrValidation indicates a missing or malformed request field.
	ErrValidation = errors.New("invalid request")

	// ErrIncompleteAddress indicates city, postal code or country is missing.
	ErrIncompleteAddress = errors.New("incomplete address")

	// ErrUpstreamRate indicates the rate API could not be queried.
	ErrUpstreamRate = errors.New("rate API failure")

	// ErrNoRateAvailable indicates the rate API returned no usable quote.
	ErrNoRateAvailable = errors.New("no shipping rate available")

	// ErrInvalidQuote indicates a quote price that is not a number.
	ErrInvalidQuote = errors.New("invalid quote price")

	// ErrMissingRateCode indicates an order without a selected rate code.
	ErrMissingRateCode = errors.New("missing shipping option code")

	// ErrFulfillment indicates the carrier rejected a shipment.
	ErrFulfillment = errors.New("fulfillment failed")

	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrIncompleteAddress)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
