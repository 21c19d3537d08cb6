package shipper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// HomeCountry is the country orders ship from. Destinations outside of it
// are international.
const HomeCountry = "FR"

// Currency is the only currency quotes and charges are expressed in.
const Currency = "EUR"

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
)

// Parcel describes the physical package sent to the carrier.
type Parcel struct {
	Weight        decimal.Decimal
	WeightUnit    WeightUnit
	Length        decimal.Decimal
	Width         decimal.Decimal
	Height        decimal.Decimal
	DimensionUnit DimensionUnit
}

// HasDimensions reports whether the parcel carries a size.
func (p Parcel) HasDimensions() bool {
	return !p.Length.IsZero() || !p.Width.IsZero() || !p.Height.IsZero()
}

// ListingParcel is the nominal parcel used to list options and to book
// shipments: one book in a 30x20x5 cm mailer.
var ListingParcel = Parcel{
	Weight:        decimal.RequireFromString("0.5"),
	WeightUnit:    WeightKG,
	Length:        decimal.NewFromInt(30),
	Width:         decimal.NewFromInt(20),
	Height:        decimal.NewFromInt(5),
	DimensionUnit: DimensionCM,
}

// PricingParcel is the nominal parcel used when pricing a checkout. It is
// heavier than ListingParcel and carries no dimensions; both values come
// from separate call sites and are kept apart on purpose.
var PricingParcel = Parcel{
	Weight:     decimal.NewFromInt(1),
	WeightUnit: WeightKG,
}

// Destination is the loosely-typed delivery target sent by the storefront and
// carried through the payment session metadata.
type Destination struct {
	Country           string `json:"country,omitempty"`
	CountryCode       string `json:"country_code,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
	Street            string `json:"street,omitempty"`
	HouseNumber       string `json:"house_number,omitempty"`
	City              string `json:"city,omitempty"`
	StateProvinceCode string `json:"state_province_code,omitempty"`
	Phone             string `json:"phone,omitempty"`

	// Pickup point selection. ID set means pickup-point mode.
	PickupPointID     string `json:"id,omitempty"`
	PickupCarrierCode string `json:"carrier_code,omitempty"`
	ServicePointName  string `json:"service_point_name,omitempty"`

	// Selected rate, filled by the storefront after listing options.
	ShippingOptionCode string `json:"shipping_option_code,omitempty"`
	ShippingMethod     string `json:"shipping_method,omitempty"`
	AmountCents        *int64 `json:"amountCents,omitempty"`

	BrandID int `json:"brand_id,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. Storefront forms may send
// postal_code and house_number as numbers.
func (d *Destination) UnmarshalJSON(data []byte) error {
	type plain Destination
	aux := struct {
		*plain
		PostalCode  FlexString `json:"postal_code,omitempty"`
		HouseNumber FlexString `json:"house_number,omitempty"`
	}{
		plain:       (*plain)(d),
		PostalCode:  FlexString(d.PostalCode),
		HouseNumber: FlexString(d.HouseNumber),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.PostalCode = string(aux.PostalCode)
	d.HouseNumber = string(aux.HouseNumber)
	return nil
}

// FlexString decodes a JSON string, number or null into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = FlexString(n.String())
	return nil
}

// CountryOrDefault returns the destination country, falling back to the
// legacy country_code field and then to HomeCountry.
func (d Destination) CountryOrDefault() string {
	if c := d.ResolvedCountry(); c != "" {
		return c
	}
	return HomeCountry
}

// ResolvedCountry returns country, or country_code when country is empty,
// upper-cased.
func (d Destination) ResolvedCountry() string {
	c := strings.TrimSpace(d.Country)
	if c == "" {
		c = strings.TrimSpace(d.CountryCode)
	}
	return strings.ToUpper(c)
}

// OptionCode returns the selected rate code, accepting the legacy
// shipping_method key.
func (d Destination) OptionCode() string {
	if d.ShippingOptionCode != "" {
		return d.ShippingOptionCode
	}
	return d.ShippingMethod
}

// Mode derives the delivery mode once. A pickup point id without a carrier
// code is rejected.
func (d Destination) Mode() (DeliveryMode, error) {
	if d.PickupPointID == "" {
		return HomeDelivery{}, nil
	}
	if d.PickupCarrierCode == "" {
		return nil, validationError("pickup point %q has no carrier_code", d.PickupPointID)
	}
	return PickupPoint{
		ID:          d.PickupPointID,
		CarrierCode: d.PickupCarrierCode,
		Name:        d.ServicePointName,
	}, nil
}

// DeliveryMode is either HomeDelivery or PickupPoint.
type DeliveryMode interface {
	deliveryMode()
	String() string
}

// HomeDelivery ships to the buyer's address.
type HomeDelivery struct{}

func (HomeDelivery) deliveryMode()  {}
func (HomeDelivery) String() string { return "home" }

// PickupPoint ships to a carrier service point chosen by the buyer.
type PickupPoint struct {
	ID          string
	CarrierCode string
	Name        string
}

func (PickupPoint) deliveryMode()  {}
func (PickupPoint) String() string { return "pickup_point" }

// IsPickupPoint reports whether mode is a pickup point.
func IsPickupPoint(mode DeliveryMode) bool {
	_, ok := mode.(PickupPoint)
	return ok
}

// Buyer identifies the person paying for the order.
type Buyer struct {
	FullName string
	Email    string
	Phone    string
}

// Quote is a priced shipping option, as shown to the buyer.
type Quote struct {
	CarrierCode   string `json:"carrier_code"`
	CarrierName   string `json:"carrier_name,omitempty"`
	OptionCode    string `json:"option_code"`
	Name          string `json:"name,omitempty"`
	IsPickupPoint bool   `json:"is_pickup_point"`
	PriceCents    int64  `json:"price_cents"`
}

// OrderRecord is the paid order reconstructed from the payment session.
type OrderRecord struct {
	OrderID          string
	Buyer            Buyer
	Destination      Destination
	Mode             DeliveryMode
	SelectedRateCode string
	DedicationText   string
	AmountTotalCents int64
}

// Address is the canonical address handed to the carrier APIs.
type Address struct {
	Name              string
	FirstName         string
	LastName          string
	Email             string
	Line1             string
	Line2             string
	PostalCode        string
	City              string
	CountryCode       string
	StateProvinceCode string
	Phone             string
}

// Endpoint selects the carrier shipment-creation route.
type Endpoint string

const (
	// EndpointShipments creates a regular shipment.
	EndpointShipments Endpoint = "shipments"
	// EndpointAnnounce creates a shipment and announces its customs documents.
	EndpointAnnounce Endpoint = "shipments/announce"
)

// ParcelItem is one customs declaration line.
type ParcelItem struct {
	Description   string
	Quantity      int
	Weight        decimal.Decimal
	WeightUnit    WeightUnit
	Value         decimal.Decimal
	Currency      string
	OriginCountry string
	HSCode        string
}

// CustomsInformation is attached to international home deliveries.
type CustomsInformation struct {
	InvoiceNumber string
	ExportType    string
	ExportReason  string
}

// ShipmentParcel is a parcel with its optional customs lines.
type ShipmentParcel struct {
	Parcel
	Items []ParcelItem
}

// ShipmentRequest is the carrier-facing shipment payload for one order.
type ShipmentRequest struct {
	Endpoint           Endpoint
	ExternalReference  string
	Telephone          string
	From               Address
	To                 Address
	ToServicePoint     string
	ShippingOptionCode string
	Parcels            []ShipmentParcel
	Customs            *CustomsInformation
	BrandID            int
}

// International reports whether the request ships across a border.
func (r *ShipmentRequest) International() bool {
	return r.To.CountryCode != HomeCountry
}

// ShipmentResult is what the carrier returned after accepting a shipment.
type ShipmentResult struct {
	ShipmentID     string
	TrackingNumber string
	TrackingURL    string
	Status         string
}

// RateQuery is one request to a carrier's rate API.
type RateQuery struct {
	OriginCountry    string
	OriginPostalCode string
	Country          string
	PostalCode       string
	Parcel           Parcel
	Mode             DeliveryMode
	// CarrierCode narrows the upstream search to one carrier.
	CarrierCode string
}

// RateCandidate is a raw rate option before filtering and ranking. Price is
// the carrier's decimal string and is empty when the option is unpriced.
type RateCandidate struct {
	Code                 string
	Name                 string
	CarrierCode          string
	CarrierName          string
	ServicePointRequired bool
	Price                string
	Currency             string
}
