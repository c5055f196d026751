package node

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"

	"github.com/andydunstall/glomers/pkg/protocol"
)

type eventKind uint8

const (
	eventMessage eventKind = iota + 1
	eventTick
	eventInspect
)

func (k eventKind) String() string {
	switch k {
	case eventMessage:
		return "message"
	case eventTick:
		return "tick"
	case eventInspect:
		return "inspect"
	default:
		return "unknown"
	}
}

type event struct {
	kind eventKind

	// req is the inbound request for message events.
	req *protocol.Request
	// decodeErr is set when req failed to decode. req may still be set if
	// the error can be returned to the sender.
	decodeErr error

	// inspect is run on the consumer goroutine for inspect events.
	inspect func()
}

var errQueueClosed = errors.New("queue closed")

// eventQueue is a bounded multi-producer single-consumer queue of events.
//
// Messages and inspect events block when the queue is full. Ticks never
// block: at most one tick is queued at a time and any tick offered while one
// is pending is dropped, since the pending tick has the same effect.
type eventQueue struct {
	ch chan event

	tickPending *atomic.Bool

	// mu protects closing ch. Producers hold a read lock while sending.
	mu     sync.RWMutex
	closed bool
}

func newEventQueue(size int) *eventQueue {
	return &eventQueue{
		ch:          make(chan event, size),
		tickPending: atomic.NewBool(false),
	}
}

// Push adds the event to the queue, blocking until there is space or the
// context is cancelled.
func (q *eventQueue) Push(ctx context.Context, e event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return errQueueClosed
	}

	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OfferTick adds a tick to the queue without blocking. Returns false if the
// tick was dropped.
func (q *eventQueue) OfferTick() bool {
	if !q.tickPending.CompareAndSwap(false, true) {
		return false
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.tickPending.Store(false)
		return false
	}

	select {
	case q.ch <- event{kind: eventTick}:
		return true
	default:
		q.tickPending.Store(false)
		return false
	}
}

// Events returns the channel the consumer reads from. The channel is closed
// once the queue is closed and all queued events have been consumed.
func (q *eventQueue) Events() <-chan event {
	return q.ch
}

// AckTick must be called by the consumer when it receives a tick so another
// tick can be queued.
func (q *eventQueue) AckTick() {
	q.tickPending.Store(false)
}

// Close closes the queue. Events already queued are still delivered.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	return len(q.ch)
}
