package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tournevent/bookship/internal/deadletter"
	"github.com/tournevent/bookship/internal/notify"
	"github.com/tournevent/bookship/internal/payment"
	"github.com/tournevent/bookship/internal/telemetry"
	"github.com/tournevent/bookship/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Webhook results acknowledged to the payment provider.
const (
	ResultOK      = "OK"
	ResultIgnored = "Ignored"
)

// Fulfillment outcomes.
const (
	OutcomeShipped   = "shipped"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// WebhookService turns a settled payment into a shipment and an order
// notification. Once the order metadata is readable, shipping and
// notification failures are dead-lettered and the event is acknowledged.
// A redelivery of an already shipped order is acknowledged without a second
// notification.
type WebhookService struct {
	provider   payment.Provider
	builder    *shipper.Builder
	dispatcher *Dispatcher
	notifier   notify.Notifier
	sink       deadletter.Sink
	logger     *otelzap.Logger
	metrics    *telemetry.Metrics
}

func NewWebhookService(
	provider payment.Provider,
	builder *shipper.Builder,
	dispatcher *Dispatcher,
	notifier notify.Notifier,
	sink deadletter.Sink,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
) *WebhookService {
	return &WebhookService{
		provider:   provider,
		builder:    builder,
		dispatcher: dispatcher,
		notifier:   notifier,
		sink:       sink,
		logger:     logger,
		metrics:    metrics,
	}
}

// Handle verifies and processes one webhook delivery.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (string, error) {
	log := s.logger.Ctx(ctx)

	event, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		log.Warn("Rejected webhook event", zap.Error(err))
		return "", err
	}
	if event.Type != payment.EventCheckoutCompleted || event.Session == nil {
		log.Debug("Ignoring webhook event", zap.String("event_id", event.ID), zap.String("type", event.Type))
		return ResultIgnored, nil
	}
	session := event.Session

	meta, err := DecodeMetadata(session.Metadata)
	if err == nil {
		_, err = meta.Destination.Mode()
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
		}
	}
	if err != nil {
		s.deadLetter(ctx, session.ID, deadletter.StageMetadata, err, sessionPayload(session))
		s.metrics.RecordFulfillment(OutcomeRejected)
		return "", err
	}

	dest := meta.Destination
	code := dest.OptionCode()
	if strings.TrimSpace(code) == "" {
		s.deadLetter(ctx, session.ID, deadletter.StageMetadata, shipper.ErrMissingRateCode, sessionPayload(session))
		s.metrics.RecordFulfillment(OutcomeRejected)
		return "", shipper.ErrMissingRateCode
	}

	mode, _ := dest.Mode()
	phone := dest.Phone
	if phone == "" {
		phone = session.CustomerPhone
	}
	order := &shipper.OrderRecord{
		OrderID: session.ID,
		Buyer: shipper.Buyer{
			FullName: meta.Name,
			Email:    meta.Email,
			Phone:    phone,
		},
		Destination:      dest,
		Mode:             mode,
		SelectedRateCode: code,
		DedicationText:   meta.Dedication,
		AmountTotalCents: session.AmountTotal,
	}

	duplicate := false
	req, err := s.builder.Build(order)
	if err == nil {
		_, err = s.dispatcher.Dispatch(ctx, req)
	}
	switch {
	case err == nil:
		s.metrics.RecordFulfillment(OutcomeShipped)
	case errors.Is(err, ErrDuplicateDelivery):
		duplicate = true
		s.metrics.RecordFulfillment(OutcomeDuplicate)
	default:
		s.metrics.RecordFulfillment(OutcomeFailed)
		s.deadLetter(ctx, session.ID, deadletter.StageFulfillment, err, fulfillmentPayload(err, session))
	}

	if duplicate {
		return ResultOK, nil
	}

	n := orderNotification(order)
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.deadLetter(ctx, session.ID, deadletter.StageNotification, err, notificationPayload(n))
	} else {
		log.Info("Order notification sent",
			zap.String("order_id", session.ID),
			zap.String("name", meta.Name),
			zap.String("dedication", meta.Dedication),
		)
	}
	return ResultOK, nil
}

func (s *WebhookService) deadLetter(ctx context.Context, orderID string, stage deadletter.Stage, err error, payload json.RawMessage) {
	s.metrics.RecordDeadLetter(string(stage))
	entry := deadletter.NewEntry(orderID, stage, err, payload)
	entry.Retryable = shipper.IsRetryable(err)
	if rerr := s.sink.Record(ctx, entry); rerr != nil {
		s.logger.Ctx(ctx).Error("Failed to record dead letter",
			zap.String("order_id", orderID),
			zap.String("stage", string(stage)),
			zap.NamedError("cause", err),
			zap.Error(rerr),
		)
	}
}

func orderNotification(order *shipper.OrderRecord) notify.OrderNotification {
	dest := order.Destination
	return notify.OrderNotification{
		OrderID:          order.OrderID,
		Name:             order.Buyer.FullName,
		Email:            order.Buyer.Email,
		Phone:            order.Buyer.Phone,
		AddressLine:      strings.TrimSpace(dest.Street + " " + dest.HouseNumber),
		PostalCode:       shipper.StripPostalCode(dest.PostalCode),
		City:             dest.City,
		CountryCode:      dest.ResolvedCountry(),
		Dedication:       order.DedicationText,
		AmountTotalCents: order.AmountTotalCents,
	}
}

func sessionPayload(session *payment.Session) json.RawMessage {
	b, err := json.Marshal(session)
	if err != nil {
		return nil
	}
	return b
}

func fulfillmentPayload(err error, session *payment.Session) json.RawMessage {
	var fe *shipper.FulfillmentError
	if errors.As(err, &fe) {
		if p := fe.CarrierPayload(); len(p) > 0 {
			return p
		}
	}
	return sessionPayload(session)
}

func notificationPayload(n notify.OrderNotification) json.RawMessage {
	b, err := json.Marshal(map[string]string{
		"subject": n.Subject(),
		"body":    n.Body(),
	})
	if err != nil {
		return nil
	}
	return b
}
