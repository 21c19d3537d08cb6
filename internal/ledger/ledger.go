// Package ledger records which paid orders have already been handed to a
// carrier, so redelivered payment events do not create duplicate shipments.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyClaimed is returned by Claim when another delivery of the same
// order holds or completed the claim.
var ErrAlreadyClaimed = errors.New("order already claimed for fulfillment")

// Ledger claims order ids ahead of shipment creation.
type Ledger interface {
	// Claim reserves orderID. It returns ErrAlreadyClaimed when the order is
	// in flight or done.
	Claim(ctx context.Context, orderID string) error
	// Release drops a claim after a failed dispatch so a redelivery can retry.
	Release(ctx context.Context, orderID string) error
	// MarkDone turns a claim into a permanent record.
	MarkDone(ctx context.Context, orderID string) error
}

type entryState int

const (
	stateClaimed entryState = iota
	stateDone
)

type memoryEntry struct {
	state   entryState
	expires time.Time
}

// MemoryLedger is an in-process Ledger. It only deduplicates deliveries that
// reach the same process.
type MemoryLedger struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryLedger creates an in-memory ledger whose records expire after ttl.
// A zero ttl keeps records forever.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (l *MemoryLedger) Claim(ctx context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[orderID]; ok && (e.expires.IsZero() || now.Before(e.expires)) {
		return ErrAlreadyClaimed
	}
	l.entries[orderID] = memoryEntry{state: stateClaimed, expires: l.expiry(now)}
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[orderID]; ok && e.state == stateClaimed {
		delete(l.entries, orderID)
	}
	return nil
}

func (l *MemoryLedger) MarkDone(ctx context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[orderID] = memoryEntry{state: stateDone, expires: l.expiry(l.now())}
	return nil
}

func (l *MemoryLedger) expiry(now time.Time) time.Time {
	if l.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(l.ttl)
}

var _ Ledger = (*MemoryLedger)(nil)
