package events

import (
	"context"
	"sync"
	"time"
)

const defaultCapacity = 1024

// Publisher accepts events. A nil *Bus is a valid no-op Publisher.
type Publisher interface {
	Publish(Event)
}

// Bus stores recent events and wakes waiters when new ones arrive.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewBus constructs a bounded in-memory event buffer.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	b := &Bus{capacity: capacity}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish appends evt, assigning its sequence number.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSeq++
	evt.Seq = b.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(b.buffer) == b.capacity {
		copy(b.buffer, b.buffer[1:])
		b.buffer = b.buffer[:b.capacity-1]
	}
	b.buffer = append(b.buffer, evt)
	b.cond.Broadcast()
}

// Since returns buffered events with sequence greater than since, up to limit.
// When wait is true it blocks until at least one event is available or ctx
// ends. The second return value is the latest assigned sequence.
func (b *Bus) Since(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if b == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > b.capacity {
		limit = b.capacity
	}

	stopWake := make(chan struct{})
	if wait && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.mu.Lock()
				b.cond.Broadcast()
				b.mu.Unlock()
			case <-stopWake:
			}
		}()
	}
	defer close(stopWake)

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		events, next := b.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		b.cond.Wait()
	}
}

// Tail returns the most recent limit events without blocking.
func (b *Bus) Tail(limit int) ([]Event, uint64) {
	if b == nil {
		return nil, 0
	}
	if limit <= 0 || limit > b.capacity {
		limit = b.capacity
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	start := max(len(b.buffer)-limit, 0)
	out := make([]Event, len(b.buffer)-start)
	copy(out, b.buffer[start:])
	return out, b.nextSeq
}

// Run returns the buffered events belonging to runID in order.
func (b *Bus) Run(runID string) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, evt := range b.buffer {
		if evt.RunID == runID {
			out = append(out, evt)
		}
	}
	return out
}

func (b *Bus) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	start := len(b.buffer)
	for i, evt := range b.buffer {
		if evt.Seq > since {
			start = i
			break
		}
	}
	end := min(start+limit, len(b.buffer))
	if start >= end {
		return nil, b.nextSeq
	}
	out := make([]Event, end-start)
	copy(out, b.buffer[start:end])
	return out, b.nextSeq
}
