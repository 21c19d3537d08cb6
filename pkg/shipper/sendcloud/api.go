package sendcloud

import (
	"context"

	"github.com/tournevent/bookship/pkg/shipper"
)

// APIClient defines the Sendcloud v3 operations the bridge uses.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// FetchShippingOptions lists priced shipping options for a route and parcel.
	FetchShippingOptions(ctx context.Context, req *ShippingOptionsRequest) (*ShippingOptionsResponse, error)

	// CreateShipment creates a domestic or pickup-point shipment.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// AnnounceShipment creates a shipment and announces its customs documents.
	AnnounceShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
}

// ============================================================================
// API Request/Response Types (match Sendcloud REST API v3 structure)
// ============================================================================

// StringValue decodes a JSON string, number or null into a string. Sendcloud
// returns prices as strings and ids as numbers depending on the resource.
type StringValue = shipper.FlexString

// Measure is a value with its unit, e.g. a weight.
type Measure struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Dimensions of a parcel.
type Dimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Unit   string `json:"unit"`
}

// Functionalities filters shipping options by capability.
type Functionalities struct {
	B2C                    bool  `json:"b2c"`
	IsServicePointRequired *bool `json:"is_service_point_required,omitempty"`
}

// ShippingOptionsRequest is the body of POST /fetch-shipping-options.
type ShippingOptionsRequest struct {
	FromCountryCode string          `json:"from_country_code"`
	FromPostalCode  string          `json:"from_postal_code,omitempty"`
	ToCountryCode   string          `json:"to_country_code"`
	ToPostalCode    string          `json:"to_postal_code,omitempty"`
	CarrierCode     string          `json:"carrier_code,omitempty"`
	ServicePointID  string          `json:"service_point_id,omitempty"`
	Weight          *Measure        `json:"weight,omitempty"`
	Dimensions      *Dimensions     `json:"dimensions,omitempty"`
	Functionalities Functionalities `json:"functionalities"`
}

// ShippingOptionsResponse is the response of POST /fetch-shipping-options.
type ShippingOptionsResponse struct {
	Data []ShippingOption `json:"data"`
}

// ShippingOption is one carrier product for the requested route.
type ShippingOption struct {
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Carrier      Reference     `json:"carrier"`
	Product      Reference     `json:"product"`
	Requirements Requirements  `json:"requirements"`
	Quotes       []OptionQuote `json:"quotes"`
}

// Reference names a carrier or product.
type Reference struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Requirements lists what a shipping option needs from the shipment.
type Requirements struct {
	IsServicePointRequired bool `json:"is_service_point_required"`
}

// OptionQuote is a price for an option at a given weight band.
type OptionQuote struct {
	Price QuotePrice `json:"price"`
}

// QuotePrice holds the total price of a quote.
type QuotePrice struct {
	Total *Money `json:"total"`
}

// Money is a decimal amount with its currency.
type Money struct {
	Value    StringValue `json:"value"`
	Currency string      `json:"currency"`
}

// Address is a sender or recipient address.
type Address struct {
	Name              string `json:"name"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	Email             string `json:"email,omitempty"`
	AddressLine1      string `json:"address_line_1"`
	AddressLine2      string `json:"address_line_2"`
	PostalCode        string `json:"postal_code"`
	City              string `json:"city"`
	CountryCode       string `json:"country_code"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	StateProvinceCode string `json:"state_province_code,omitempty"`
}

// ServicePoint references a pickup location.
type ServicePoint struct {
	ID string `json:"id"`
}

// ShipWith selects the shipping product of a shipment.
type ShipWith struct {
	Type       string             `json:"type"`
	Properties ShipWithProperties `json:"properties"`
}

// ShipWithProperties carries the shipping option code.
type ShipWithProperties struct {
	ShippingOptionCode string `json:"shipping_option_code"`
}

// Parcel is one package of a shipment.
type Parcel struct {
	Weight      Measure      `json:"weight"`
	Dimensions  *Dimensions  `json:"dimensions,omitempty"`
	ParcelItems []ParcelItem `json:"parcel_items,omitempty"`
}

// ParcelItem is a customs declaration line.
type ParcelItem struct {
	Description   string  `json:"description"`
	Quantity      int     `json:"quantity"`
	Weight        Measure `json:"weight"`
	Price         Money   `json:"price"`
	OriginCountry string  `json:"origin_country"`
	HSCode        string  `json:"hs_code"`
}

// CustomsInformation is the invoice data of an international shipment.
type CustomsInformation struct {
	InvoiceNumber string `json:"invoice_number"`
	ExportType    string `json:"export_type"`
	ExportReason  string `json:"export_reason"`
}

// ShipmentRequest is the body of POST /shipments and /shipments/announce.
type ShipmentRequest struct {
	ExternalReference  string              `json:"external_reference"`
	Telephone          string              `json:"telephone,omitempty"`
	FromAddress        Address             `json:"from_address"`
	ToAddress          Address             `json:"to_address"`
	ToServicePoint     *ServicePoint       `json:"to_service_point,omitempty"`
	ShipWith           ShipWith            `json:"ship_with"`
	Parcels            []Parcel            `json:"parcels"`
	CustomsInformation *CustomsInformation `json:"customs_information,omitempty"`
	BrandID            int                 `json:"brand_id,omitempty"`
}

// ShipmentResponse is the response of a shipment creation.
type ShipmentResponse struct {
	Data ShipmentData `json:"data"`
}

// ShipmentData describes the created shipment.
type ShipmentData struct {
	ID                StringValue      `json:"id"`
	ExternalReference string           `json:"external_reference"`
	Parcels           []ShipmentParcel `json:"parcels"`
}

// ShipmentParcel is a booked parcel with its tracking data.
type ShipmentParcel struct {
	ID             StringValue  `json:"id"`
	TrackingNumber string       `json:"tracking_number"`
	TrackingURL    string       `json:"tracking_url"`
	Status         ParcelStatus `json:"status"`
}

// ParcelStatus is the carrier-side state of a parcel.
type ParcelStatus struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorItem is one entry of a Sendcloud error response.
type ErrorItem struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// APIError represents an error from the Sendcloud API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	// Body is the raw response body.
	Body []byte
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
