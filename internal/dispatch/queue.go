package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pastebot/internal/metrics"
)

const enqueueTimeout = 10 * time.Second

// Handler is a deferred work handler. It must not be run more than once
// per task and must not let failures escape; panics are recovered so one
// bad task never kills the worker.
type Handler func(ctx context.Context, wc WorkContext)

type task struct {
	run Handler
	wc  WorkContext
}

// Queue is a run-once FIFO scheduler. It exists purely to decouple the
// "Processing" acknowledgment from the slow network calls that follow:
// tasks run as soon as the single worker is free, with zero delay target,
// no retry, no cancellation and no priority.
type Queue struct {
	tasks  chan task
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(bufferSize int, logger *slog.Logger) *Queue {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Queue{
		tasks:  make(chan task, bufferSize),
		logger: logger,
	}
}

// Enqueue schedules handler to run with wc as soon as the worker is free.
// Tasks from the same caller run FIFO by enqueue time. Blocks up to
// enqueueTimeout when the queue is full instead of dropping.
func (q *Queue) Enqueue(handler Handler, wc WorkContext) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("attempted to enqueue on closed queue", "kind", wc.Kind)
		return
	}

	t := task{run: handler, wc: wc}
	select {
	case q.tasks <- t:
		metrics.QueueDepth.Inc()
	default:
		q.logger.Warn("deferred queue full, waiting...", "kind", wc.Kind)
		timer := time.NewTimer(enqueueTimeout)
		defer timer.Stop()
		select {
		case q.tasks <- t:
			metrics.QueueDepth.Inc()
		case <-timer.C:
			q.logger.Error("task dropped: queue full", "kind", wc.Kind, "chat", wc.ChatID)
		}
	}
}

// Run processes tasks until ctx is cancelled or the queue is closed.
// It is the single worker; starting it more than once would break the
// FIFO guarantee.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			metrics.QueueDepth.Dec()
			q.execute(ctx, t)
		}
	}
}

func (q *Queue) execute(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("deferred task panic", "kind", t.wc.Kind, "chat", t.wc.ChatID, "panic", r)
		}
	}()
	t.run(ctx, t.wc)
}

// Close stops accepting tasks. Already-queued tasks still run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
}
