package shipper

import (
	"fmt"
	"strings"
)

// Customs declaration constants for a single printed book.
const (
	CustomsDescription = "book"
	HSCodePrintedBooks = "490199"
	ExportTypePrivate  = "private"
	ExportReasonSale   = "commercial_goods"

	maxInvoiceNumberLen = 40
)

// BuilderConfig holds the sender identity and catalog data stamped on every
// shipment.
type BuilderConfig struct {
	Sender            Address
	BrandID           int
	CatalogPriceCents int64
}

// Builder derives carrier shipment requests from paid orders.
type Builder struct {
	config BuilderConfig
}

// NewBuilder creates a shipment request builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{config: cfg}
}

// Build produces the shipment request for order. International home
// deliveries carry a customs declaration and go through the announce
// endpoint; everything else uses the plain shipment endpoint. Pickup-point
// shipments never carry customs data.
func (b *Builder) Build(order *OrderRecord) (*ShipmentRequest, error) {
	code := strings.TrimSpace(order.SelectedRateCode)
	if code == "" {
		return nil, fmt.Errorf("%w: order %s", ErrMissingRateCode, order.OrderID)
	}

	mode := order.Mode
	if mode == nil {
		var err error
		if mode, err = order.Destination.Mode(); err != nil {
			return nil, err
		}
	}

	to, err := NormalizeAddress(order.Destination, mode, order.Buyer)
	if err != nil {
		return nil, err
	}

	req := &ShipmentRequest{
		Endpoint:           EndpointShipments,
		ExternalReference:  order.OrderID,
		Telephone:          to.Phone,
		From:               b.config.Sender,
		To:                 to,
		ShippingOptionCode: code,
		Parcels:            []ShipmentParcel{{Parcel: ListingParcel}},
		BrandID:            b.config.BrandID,
	}

	pickup, isPickup := mode.(PickupPoint)
	if isPickup {
		req.ToServicePoint = pickup.ID
	}

	if req.International() && !isPickup {
		req.Endpoint = EndpointAnnounce
		req.Parcels[0].Items = []ParcelItem{{
			Description:   CustomsDescription,
			Quantity:      1,
			Weight:        ListingParcel.Weight,
			WeightUnit:    ListingParcel.WeightUnit,
			Value:         CentsToDecimal(b.config.CatalogPriceCents),
			Currency:      Currency,
			OriginCountry: HomeCountry,
			HSCode:        HSCodePrintedBooks,
		}}
		req.Customs = &CustomsInformation{
			InvoiceNumber: invoiceNumber(order.OrderID),
			ExportType:    ExportTypePrivate,
			ExportReason:  ExportReasonSale,
		}
	}
	return req, nil
}

func invoiceNumber(orderID string) string {
	if len(orderID) > maxInvoiceNumberLen {
		return orderID[:maxInvoiceNumberLen]
	}
	return orderID
}
