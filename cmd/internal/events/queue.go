package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
)

var (
	ErrQueueFull   = errors.New("event queue is full")
	ErrQueueClosed = errors.New("event queue is closed")
)

// LocalQueue runs handlers on a fixed pool of goroutines inside the process.
type LocalQueue struct {
	events  chan LifecycleEvent
	handler Handler
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewLocalQueue(size, workers int, timeout time.Duration, handler Handler) *LocalQueue {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &LocalQueue{
		events:  make(chan LifecycleEvent, size),
		handler: handler,
		workers: workers,
		timeout: timeout,
	}
}

func (q *LocalQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

// Publish never blocks; a full queue is reported to the caller.
func (q *LocalQueue) Publish(_ context.Context, evt LifecycleEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.events <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be handled.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.events)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *LocalQueue) work() {
	defer q.wg.Done()
	for evt := range q.events {
		q.handle(evt)
	}
}

func (q *LocalQueue) handle(evt LifecycleEvent) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic while handling %s event %s: %v", evt.Type, evt.ID, r)
		}
	}()
	if err := q.handler.Handle(ctx, evt); err != nil {
		log.Errorf("failed to handle %s event %s: %v", evt.Type, evt.ID, err)
	}
}
