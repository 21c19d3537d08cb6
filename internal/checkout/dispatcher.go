package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tournevent/bookship/internal/ledger"
	"github.com/tournevent/bookship/internal/telemetry"
	"github.com/tournevent/bookship/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ErrDuplicateDelivery is returned when the order was already handed to the
// carrier, or is being handed over by a concurrent delivery.
var ErrDuplicateDelivery = fmt.Errorf("duplicate delivery: %w", ledger.ErrAlreadyClaimed)

// Dispatcher submits shipment requests to the carrier, at most once per order.
type Dispatcher struct {
	registry *shipper.Registry
	carrier  string
	ledger   ledger.Ledger
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
}

func NewDispatcher(registry *shipper.Registry, carrier string, l ledger.Ledger, logger *otelzap.Logger, metrics *telemetry.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		carrier:  carrier,
		ledger:   l,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch claims the order in the ledger and creates the shipment. A carrier
// failure releases the claim and is returned as *shipper.FulfillmentError.
// If the ledger itself is unreachable the shipment is still attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentResult, error) {
	orderID := req.ExternalReference
	log := d.logger.Ctx(ctx)

	claimed := true
	if err := d.ledger.Claim(ctx, orderID); err != nil {
		if errors.Is(err, ledger.ErrAlreadyClaimed) {
			log.Info("Skipping duplicate fulfillment", zap.String("order_id", orderID))
			return nil, ErrDuplicateDelivery
		}
		log.Warn("Fulfillment ledger unavailable, dispatching without claim",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		claimed = false
	}

	carrier, err := d.registry.Get(d.carrier)
	if err != nil {
		d.release(ctx, orderID, claimed)
		return nil, &shipper.FulfillmentError{OrderID: orderID, Endpoint: req.Endpoint, Cause: err}
	}

	start := time.Now()
	result, err := carrier.CreateShipment(ctx, req)
	if err != nil {
		d.metrics.RecordRequest("create_shipment", d.carrier, "error", time.Since(start).Seconds())
		d.metrics.RecordError(d.carrier, errorType(err))
		d.release(ctx, orderID, claimed)

		fe := &shipper.FulfillmentError{OrderID: orderID, Endpoint: req.Endpoint, Cause: err}
		log.Error("Shipment creation failed",
			zap.String("order_id", orderID),
			zap.String("endpoint", string(req.Endpoint)),
			zap.ByteString("carrier_payload", fe.CarrierPayload()),
			zap.Bool("retryable", shipper.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, fe
	}
	d.metrics.RecordRequest("create_shipment", d.carrier, "success", time.Since(start).Seconds())

	if claimed {
		if err := d.ledger.MarkDone(ctx, orderID); err != nil {
			log.Warn("Failed to mark order fulfilled", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	log.Info("Shipment created",
		zap.String("order_id", orderID),
		zap.String("shipment_id", result.ShipmentID),
		zap.String("tracking_number", result.TrackingNumber),
	)
	return result, nil
}

func (d *Dispatcher) release(ctx context.Context, orderID string, claimed bool) {
	if !claimed {
		return
	}
	if err := d.ledger.Release(ctx, orderID); err != nil {
		d.logger.Ctx(ctx).Warn("Failed to release fulfillment claim", zap.String("order_id", orderID), zap.Error(err))
	}
}

func errorType(err error) string {
	var se *shipper.ShipperError
	if errors.As(err, &se) {
		return se.Code
	}
	return "unknown"
}
