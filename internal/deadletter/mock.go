package deadletter

import (
	"context"
	"sync"
)

// Recorder keeps entries in memory. Err, when set, is returned by Record
// after the entry is kept.
type Recorder struct {
	Err error

	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.Err
}

// Entries returns the entries recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

var _ Sink = (*Recorder)(nil)
