// Package deadletter keeps failures that the confirmation path swallows,
// so operators can follow up on paid orders that were not shipped or
// announced.
package deadletter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stage names where a failure happened.
type Stage string

const (
	StageMetadata     Stage = "metadata"
	StageFulfillment  Stage = "fulfillment"
	StageNotification Stage = "notification"
)

// Entry is one recorded failure. Retryable marks failures a replay may
// clear, such as a carrier outage.
type Entry struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	Stage      Stage           `json:"stage"`
	Error      string          `json:"error"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Retryable  bool            `json:"retryable"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEntry stamps a failure with a fresh id and the current time.
func NewEntry(orderID string, stage Stage, err error, payload json.RawMessage) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		Stage:      stage,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Sink stores dead-letter entries.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}
