// Package mock provides a scripted carrier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tournevent/bookship/pkg/shipper"
)

// Client is a mock carrier for testing. Rates and Err script FetchRates;
// every query and shipment is recorded.
type Client struct {
	name string

	mu        sync.Mutex
	Rates     []shipper.RateCandidate
	Err       error
	queries   []shipper.RateQuery
	shipments []shipper.ShipmentRequest

	OnCreateShipment func(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentResult, error)
}

// New creates a new mock carrier returning DefaultRates.
func New(name string) *Client {
	return &Client{name: name, Rates: DefaultRates()}
}

// DefaultRates is a realistic mix of home, pickup-point and letter options.
func DefaultRates() []shipper.RateCandidate {
	return []shipper.RateCandidate{
		{Code: "colissimo:home/fr", Name: "Colissimo Home", CarrierCode: "colissimo", CarrierName: "Colissimo", Price: "6.95", Currency: "EUR"},
		{Code: "colissimo:home/signature", Name: "Colissimo Home Signature", CarrierCode: "colissimo", CarrierName: "Colissimo", Price: "8.30", Currency: "EUR"},
		{Code: "mondial_relay:shop", Name: "Mondial Relay Point Relais", CarrierCode: "mondial_relay", CarrierName: "Mondial Relay", ServicePointRequired: true, Price: "4.50", Currency: "EUR"},
		{Code: "chronopost:13/home", Name: "Chronopost 13", CarrierCode: "chronopost", CarrierName: "Chronopost", Price: "12.90", Currency: "EUR"},
		{Code: "dpd:home/predict", Name: "DPD Predict", CarrierCode: "dpd", CarrierName: "DPD", Price: "7.20", Currency: "EUR"},
		{Code: "ups:standard", Name: "UPS Standard", CarrierCode: "ups", CarrierName: "UPS", Price: "9.80", Currency: "EUR"},
		{Code: "sendcloud:letter/standard", Name: "Letter", CarrierCode: "sendcloud", CarrierName: "Sendcloud", Price: "2.10", Currency: "EUR"},
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// FetchRates returns the scripted rates.
func (c *Client) FetchRates(ctx context.Context, q *shipper.RateQuery) ([]shipper.RateCandidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, *q)
	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]shipper.RateCandidate, len(c.Rates))
	copy(out, c.Rates)
	return out, nil
}

// CreateShipment records the request and returns a mock booking.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentResult, error) {
	c.mu.Lock()
	c.shipments = append(c.shipments, *req)
	hook := c.OnCreateShipment
	c.mu.Unlock()

	if hook != nil {
		return hook(ctx, req)
	}

	now := time.Now()
	tracking := fmt.Sprintf("MK%d", now.UnixNano()%1000000000)
	return &shipper.ShipmentResult{
		ShipmentID:     fmt.Sprintf("%s-shipment-%d", c.name, now.UnixNano()),
		TrackingNumber: tracking,
		TrackingURL:    fmt.Sprintf("https://track.%s.mock/%s", c.name, tracking),
		Status:         "announced",
	}, nil
}

// Queries returns the rate queries received so far.
func (c *Client) Queries() []shipper.RateQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]shipper.RateQuery(nil), c.queries...)
}

// Shipments returns the shipment requests received so far.
func (c *Client) Shipments() []shipper.ShipmentRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]shipper.ShipmentRequest(nil), c.shipments...)
}

var _ shipper.Carrier = (*Client)(nil)
