// Package async provides concurrency primitives for background work: a
// serial FIFO queue and a panic-safe goroutine helper.
package async

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// Task is a unit of queued work
type Task func(context.Context)

// Queue runs tasks one at a time in arrival order. A single worker drains
// the queue, so two tasks never overlap and ordering is preserved end to end.
// Used to serialize audit-event writes off the request path.
type Queue struct {
	name      string
	tasks     chan Task
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    chan struct{}
}

// NewQueue creates a serial queue with the given buffer size and starts its
// worker.
func NewQueue(ctx context.Context, name string, buffer int) *Queue {
	if buffer <= 0 {
		buffer = 256
	}
	ctx, cancel := context.WithCancel(ctx)

	q := &Queue{
		name:   name,
		tasks:  make(chan Task, buffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		closed: make(chan struct{}),
	}

	go q.worker()
	return q
}

// Enqueue adds a task. It fails once the queue is closed or when the buffer
// is full; callers treat a full buffer as a dropped background task, not a
// request failure.
func (q *Queue) Enqueue(fn Task) error {
	select {
	case <-q.closed:
		return fmt.Errorf("queue %s closed", q.name)
	default:
	}

	select {
	case q.tasks <- fn:
		return nil
	default:
		return fmt.Errorf("queue %s full", q.name)
	}
}

// Depth reports the number of tasks waiting to run
func (q *Queue) Depth() int {
	return len(q.tasks)
}

// Close stops accepting tasks, waits up to timeout for the worker to drain
// what was already enqueued, then cancels anything still running.
func (q *Queue) Close(timeout time.Duration) error {
	var closeErr error
	q.closeOnce.Do(func() {
		close(q.closed)
		close(q.tasks)

		select {
		case <-q.done:
		case <-time.After(timeout):
			q.cancel()
			closeErr = fmt.Errorf("queue %s close timed out after %v", q.name, timeout)
			return
		}
		q.cancel()
	})
	return closeErr
}

func (q *Queue) worker() {
	defer close(q.done)

	for fn := range q.tasks {
		q.run(fn)
	}
}

func (q *Queue) run(fn Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Queue] PANIC in %s task: %v\nStack trace:\n%s",
				q.name, r, string(debug.Stack()))
		}
	}()
	fn(q.ctx)
}
