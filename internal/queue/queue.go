// Package queue provides the shared inbound event queue: an unbounded FIFO
// with a blocking multi-consumer pop. The listener pushes, workers pop.
//
// The queue is deliberately unbounded; sustained arrival faster than the
// worker pool drains grows it without limit. That is an accepted design
// trade-off, not a crash risk.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/mattjoyce/botgw/internal/protocol"
)

// ErrClosed is returned by Pop after Close once the queue has drained.
var ErrClosed = errors.New("queue closed")

// Queue is a FIFO of inbound events, safe for concurrent producers and
// consumers.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*protocol.Event
	closed bool
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an event. Pushing to a closed queue is a no-op.
func (q *Queue) Push(ev *protocol.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, ev)
	q.cond.Signal()
}

// Pop blocks until an event is available, the context is cancelled, or the
// queue is closed and drained. Exactly one consumer receives each event.
func (q *Queue) Pop(ctx context.Context) (*protocol.Event, error) {
	// Wake all waiters when the context ends so they can observe it.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.cond.Wait()
	}

	ev := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return ev, nil
}

// Depth returns the number of queued events, exposed by the listener's
// health endpoint.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting events. Blocked consumers drain what remains and
// then receive ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
