package deadletter

import (
	"context"
	"errors"
)

// Fallback records to Primary, then to Secondary when Primary fails.
type Fallback struct {
	Primary   Sink
	Secondary Sink
}

func (f Fallback) Record(ctx context.Context, entry Entry) error {
	err := f.Primary.Record(ctx, entry)
	if err == nil {
		return nil
	}
	if err2 := f.Secondary.Record(ctx, entry); err2 != nil {
		return errors.Join(err, err2)
	}
	return nil
}

var _ Sink = Fallback{}
