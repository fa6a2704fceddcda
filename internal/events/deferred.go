package events

import (
	"context"
	"sync"

	"token-launchpad/internal/domain"
)

// Deferred buffers events until the surrounding transaction commits.
// Release flushes the buffer in order and switches to pass-through;
// Discard drops the buffer and turns the sink into a no-op.
type Deferred struct {
	mu       sync.Mutex
	next     Sink
	buffer   []domain.Event
	released bool
	dropped  bool
}

// NewDeferred creates a holding sink in front of next.
func NewDeferred(next Sink) *Deferred {
	return &Deferred{next: next}
}

// Publish buffers e while held, forwards it once released.
func (d *Deferred) Publish(ctx context.Context, e domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.dropped:
		return
	case d.released:
		d.next.Publish(ctx, e)
	default:
		d.buffer = append(d.buffer, e)
	}
}

// Release forwards buffered events and passes later ones straight through.
func (d *Deferred) Release(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released || d.dropped {
		return
	}
	for _, e := range d.buffer {
		d.next.Publish(ctx, e)
	}
	d.buffer = nil
	d.released = true
}

// Discard drops buffered events. Later events are dropped too.
func (d *Deferred) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return
	}
	d.buffer = nil
	d.dropped = true
}

// Pending returns the number of buffered events.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffer)
}
