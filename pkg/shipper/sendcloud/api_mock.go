package sendcloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnFetchShippingOptions func(ctx context.Context, req *ShippingOptionsRequest) (*ShippingOptionsResponse, error)
	OnCreateShipment       func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnAnnounceShipment     func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	mu       sync.Mutex
	requests []*ShipmentRequest
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// FetchShippingOptions returns mock shipping options.
func (m *MockAPIClient) FetchShippingOptions(ctx context.Context, req *ShippingOptionsRequest) (*ShippingOptionsResponse, error) {
	if err := m.before(); err != nil {
		return nil, err
	}

	if m.OnFetchShippingOptions != nil {
		return m.OnFetchShippingOptions(ctx, req)
	}

	return &ShippingOptionsResponse{
		Data: []ShippingOption{
			mockOption("colissimo:home/fr", "Colissimo Home", "colissimo", false, "6.95"),
			mockOption("mondial_relay:shop", "Mondial Relay Point Relais", "mondial_relay", true, "4.50"),
			mockOption("dpd:home/predict", "DPD Predict", "dpd", false, "7.20"),
			mockOption("chronopost:13/home", "Chronopost 13", "chronopost", false, "12.90"),
			mockOption("chronopost:shop2shop", "Chronopost Shop2Shop", "chronopost", true, "5.10"),
			mockOption("sendcloud:letter/standard", "Letter", "sendcloud", false, "2.10"),
		},
	}, nil
}

// CreateShipment creates a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.before(); err != nil {
		return nil, err
	}
	m.record(req)

	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}
	return mockShipment(req), nil
}

// AnnounceShipment creates a mock announced shipment.
func (m *MockAPIClient) AnnounceShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.before(); err != nil {
		return nil, err
	}
	m.record(req)

	if m.OnAnnounceShipment != nil {
		return m.OnAnnounceShipment(ctx, req)
	}
	return mockShipment(req), nil
}

// Requests returns the shipment requests received so far.
func (m *MockAPIClient) Requests() []*ShipmentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ShipmentRequest(nil), m.requests...)
}

func (m *MockAPIClient) before() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{StatusCode: 500, Code: "MOCK_ERROR", Message: "Simulated API error"}
	}
	return nil
}

func (m *MockAPIClient) record(req *ShipmentRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

func mockOption(code, name, carrier string, servicePoint bool, price string) ShippingOption {
	return ShippingOption{
		Code:         code,
		Name:         name,
		Carrier:      Reference{Code: carrier, Name: carrier},
		Product:      Reference{Code: code, Name: name},
		Requirements: Requirements{IsServicePointRequired: servicePoint},
		Quotes: []OptionQuote{
			{Price: QuotePrice{Total: &Money{Value: StringValue(price), Currency: "EUR"}}},
		},
	}
}

func mockShipment(req *ShipmentRequest) *ShipmentResponse {
	tracking := fmt.Sprintf("3S%d", time.Now().UnixNano()%10000000000)
	return &ShipmentResponse{
		Data: ShipmentData{
			ID:                StringValue("sc-ship-" + uuid.New().String()[:8]),
			ExternalReference: req.ExternalReference,
			Parcels: []ShipmentParcel{
				{
					ID:             StringValue(uuid.New().String()[:8]),
					TrackingNumber: tracking,
					TrackingURL:    "https://tracking.eu-central-1-0.sendcloud.sc/forward?carrier=mock&code=" + tracking,
					Status:         ParcelStatus{Code: "ANNOUNCED", Message: "Announced"},
				},
			},
		},
	}
}

var _ APIClient = (*MockAPIClient)(nil)
