// Package sendcloud provides integration with the Sendcloud shipping API.
package sendcloud

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tournevent/bookship/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const carrierName = "sendcloud"

// Config holds Sendcloud configuration.
type Config struct {
	PublicKey string
	SecretKey string
	BaseURL   string
	UseMock   bool // When true, uses mock API client
}

// Client is the Sendcloud carrier client.
// It implements the shipper.Carrier interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Sendcloud client.
// If cfg.UseMock is true, it uses a mock API client.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			PublicKey: cfg.PublicKey,
			SecretKey: cfg.SecretKey,
			Timeout:   30 * time.Second,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Sendcloud client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(carrierName)
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// FetchRates returns the shipping options Sendcloud offers for the query.
func (c *Client) FetchRates(ctx context.Context, q *shipper.RateQuery) ([]shipper.RateCandidate, error) {
	ctx, span := c.tracer.Start(ctx, "sendcloud.FetchRates", trace.WithAttributes(
		attribute.String("destination.country", q.Country),
		attribute.String("delivery.mode", q.Mode.String()),
	))
	defer span.End()

	c.logger.Ctx(ctx).Info("Fetching Sendcloud shipping options",
		zap.String("to_country", q.Country),
		zap.String("to_postal_code", q.PostalCode),
		zap.String("mode", q.Mode.String()),
		zap.String("weight", q.Parcel.Weight.String()),
	)

	apiResp, err := c.apiClient.FetchShippingOptions(ctx, queryToAPI(q))
	if err != nil {
		c.logger.Ctx(ctx).Error("Sendcloud API error", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch shipping options failed")
		return nil, toShipperError(err)
	}

	rates := optionsToCandidates(apiResp.Data)
	span.SetAttributes(attribute.Int("options.count", len(rates)))
	return rates, nil
}

// CreateShipment submits the shipment to the endpoint the builder selected.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentResult, error) {
	ctx, span := c.tracer.Start(ctx, "sendcloud.CreateShipment", trace.WithAttributes(
		attribute.String("shipment.endpoint", string(req.Endpoint)),
		attribute.String("shipment.external_reference", req.ExternalReference),
	))
	defer span.End()

	c.logger.Ctx(ctx).Info("Creating Sendcloud shipment",
		zap.String("external_reference", req.ExternalReference),
		zap.String("endpoint", string(req.Endpoint)),
		zap.String("shipping_option_code", req.ShippingOptionCode),
		zap.Bool("customs", req.Customs != nil),
	)

	apiReq := shipmentToAPI(req)

	var (
		apiResp *ShipmentResponse
		err     error
	)
	if req.Endpoint == shipper.EndpointAnnounce {
		apiResp, err = c.apiClient.AnnounceShipment(ctx, apiReq)
	} else {
		apiResp, err = c.apiClient.CreateShipment(ctx, apiReq)
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Sendcloud API error", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create shipment failed")
		return nil, toShipperError(err)
	}

	return shipmentResponseToShipper(apiResp), nil
}

// ============================================================================
// Conversion helpers: Shipper models -> API models
// ============================================================================

func queryToAPI(q *shipper.RateQuery) *ShippingOptionsRequest {
	pickup, isPickup := q.Mode.(shipper.PickupPoint)

	req := &ShippingOptionsRequest{
		FromCountryCode: q.OriginCountry,
		FromPostalCode:  q.OriginPostalCode,
		ToCountryCode:   q.Country,
		ToPostalCode:    q.PostalCode,
		CarrierCode:     q.CarrierCode,
		Weight: &Measure{
			Value: q.Parcel.Weight.String(),
			Unit:  string(q.Parcel.WeightUnit),
		},
		Dimensions: dimensionsToAPI(q.Parcel),
		Functionalities: Functionalities{
			B2C:                    true,
			IsServicePointRequired: &isPickup,
		},
	}
	if isPickup {
		req.ServicePointID = pickup.ID
	}
	return req
}

func dimensionsToAPI(p shipper.Parcel) *Dimensions {
	if !p.HasDimensions() {
		return nil
	}
	return &Dimensions{
		Length: p.Length.String(),
		Width:  p.Width.String(),
		Height: p.Height.String(),
		Unit:   string(p.DimensionUnit),
	}
}

func addressToAPI(a shipper.Address) Address {
	return Address{
		Name:              a.Name,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		Email:             a.Email,
		AddressLine1:      a.Line1,
		AddressLine2:      a.Line2,
		PostalCode:        a.PostalCode,
		City:              a.City,
		CountryCode:       a.CountryCode,
		PhoneNumber:       a.Phone,
		StateProvinceCode: a.StateProvinceCode,
	}
}

func shipmentToAPI(req *shipper.ShipmentRequest) *ShipmentRequest {
	parcels := make([]Parcel, len(req.Parcels))
	for i, p := range req.Parcels {
		parcels[i] = Parcel{
			Weight:     Measure{Value: p.Weight.String(), Unit: string(p.WeightUnit)},
			Dimensions: dimensionsToAPI(p.Parcel),
		}
		for _, item := range p.Items {
			parcels[i].ParcelItems = append(parcels[i].ParcelItems, ParcelItem{
				Description:   item.Description,
				Quantity:      item.Quantity,
				Weight:        Measure{Value: item.Weight.String(), Unit: string(item.WeightUnit)},
				Price:         Money{Value: StringValue(item.Value.StringFixed(2)), Currency: item.Currency},
				OriginCountry: item.OriginCountry,
				HSCode:        item.HSCode,
			})
		}
	}

	apiReq := &ShipmentRequest{
		ExternalReference: req.ExternalReference,
		Telephone:         req.Telephone,
		FromAddress:       addressToAPI(req.From),
		ToAddress:         addressToAPI(req.To),
		ShipWith: ShipWith{
			Type:       "shipping_option_code",
			Properties: ShipWithProperties{ShippingOptionCode: req.ShippingOptionCode},
		},
		Parcels: parcels,
		BrandID: req.BrandID,
	}
	if req.ToServicePoint != "" {
		apiReq.ToServicePoint = &ServicePoint{ID: req.ToServicePoint}
	}
	if req.Customs != nil {
		apiReq.CustomsInformation = &CustomsInformation{
			InvoiceNumber: req.Customs.InvoiceNumber,
			ExportType:    req.Customs.ExportType,
			ExportReason:  req.Customs.ExportReason,
		}
	}
	return apiReq
}

// ============================================================================
// Conversion helpers: API models -> Shipper models
// ============================================================================

func optionsToCandidates(options []ShippingOption) []shipper.RateCandidate {
	rates := make([]shipper.RateCandidate, 0, len(options))
	for _, o := range options {
		rate := shipper.RateCandidate{
			Code:                 o.Code,
			Name:                 o.Name,
			CarrierCode:          o.Carrier.Code,
			CarrierName:          o.Carrier.Name,
			ServicePointRequired: o.Requirements.IsServicePointRequired,
		}
		if len(o.Quotes) > 0 && o.Quotes[0].Price.Total != nil {
			rate.Price = string(o.Quotes[0].Price.Total.Value)
			rate.Currency = o.Quotes[0].Price.Total.Currency
		}
		rates = append(rates, rate)
	}
	return rates
}

func shipmentResponseToShipper(resp *ShipmentResponse) *shipper.ShipmentResult {
	result := &shipper.ShipmentResult{
		ShipmentID: string(resp.Data.ID),
	}
	if len(resp.Data.Parcels) > 0 {
		p := resp.Data.Parcels[0]
		result.TrackingNumber = p.TrackingNumber
		result.TrackingURL = p.TrackingURL
		result.Status = p.Status.Code
	}
	return result
}

func toShipperError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return shipper.NewShipperError(carrierName, "TRANSPORT", "request failed").
			WithCause(err).
			WithRetryable(true)
	}

	se := shipper.NewShipperError(carrierName, apiErr.Code, apiErr.Message).
		WithStatusCode(apiErr.StatusCode).
		WithPayload(apiErr.Body)

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		se.WithCause(shipper.ErrAuthenticationFailed)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		se.WithCause(shipper.ErrRateLimitExceeded).WithRetryable(true)
	case apiErr.StatusCode >= 500:
		se.WithCause(shipper.ErrServiceUnavailable).WithRetryable(true)
	}
	return se
}
