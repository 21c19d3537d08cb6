// Package shipper resolves shipping rates and builds carrier shipments for
// book orders.
package shipper

import (
	"context"
)

// Carrier defines what a shipping integration must provide.
type Carrier interface {
	// Name returns the integration identifier (e.g., "sendcloud").
	Name() string

	// FetchRates returns the raw rate options for a query, in the order the
	// carrier API returned them. An empty result is not an error.
	FetchRates(ctx context.Context, q *RateQuery) ([]RateCandidate, error)

	// CreateShipment submits a shipment to the endpoint chosen by the builder.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResult, error)
}
