// Package worker runs the fixed pool of goroutines that drain the inbound
// queue. Each event is owned by exactly one worker for its whole lifetime;
// there is no fan-out and no ordering guarantee across workers.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
	"github.com/mattjoyce/botgw/internal/queue"
)

// Processor handles one dequeued event to completion.
type Processor interface {
	Process(ctx context.Context, ev *protocol.Event)
}

// Pool drains the shared queue with a fixed number of long-lived workers.
type Pool struct {
	queue     *queue.Queue
	processor Processor
	count     int
	wg        sync.WaitGroup
}

// New creates a pool of count workers.
func New(q *queue.Queue, p Processor, count int) *Pool {
	return &Pool{queue: q, processor: p, count: count}
}

// Start launches the workers. Each runs until the queue closes or ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop closes the queue and waits for workers to finish their current
// events and drain what is already queued.
func (p *Pool) Stop() {
	p.queue.Close()
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := log.WithWorker(id)
	logger.Info("worker started")
	defer logger.Info("worker stopped")

	for {
		ev, err := p.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrClosed) && !errors.Is(err, context.Canceled) {
				logger.Error("queue pop failed", "error", err)
			}
			return
		}
		p.process(ctx, ev, logger)
	}
}

// process isolates one event: a panic escaping the router is logged here
// and the worker moves on. A single bad event never terminates a worker.
func (p *Pool) process(ctx context.Context, ev *protocol.Event, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("worker recovered from panic", "event_id", ev.EventID, "panic", rec)
		}
	}()
	p.processor.Process(ctx, ev)
}
