package notify

import (
	"context"
	"sync"
)

// Recorder is a Notifier that keeps every notification. OnNotify, when set,
// decides the result.
type Recorder struct {
	OnNotify func(ctx context.Context, n OrderNotification) error

	mu   sync.Mutex
	sent []OrderNotification
}

func (r *Recorder) Notify(ctx context.Context, n OrderNotification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	hook := r.OnNotify
	r.mu.Unlock()

	if hook != nil {
		return hook(ctx, n)
	}
	return nil
}

// Sent returns the notifications received so far.
func (r *Recorder) Sent() []OrderNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderNotification(nil), r.sent...)
}

var _ Notifier = (*Recorder)(nil)
