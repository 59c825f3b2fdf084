package audit

import (
	"context"
	"time"

	"github.com/elettorale/seggio/pkg/async"
	"github.com/elettorale/seggio/pkg/observability"
)

// Recorder accepts audit events for eventual writing. A nil *Dispatcher is
// a valid Recorder that drops everything, so wiring audit is optional.
type Recorder interface {
	Record(event Event)
}

// Dispatcher queues events and writes them serially through a single
// worker, preserving arrival order across concurrent requests.
type Dispatcher struct {
	queue   *async.Queue
	logger  Logger
	log     *observability.Logger
	metrics *observability.Metrics
}

// NewDispatcher creates a dispatcher writing to the given sink.
// log and metrics may be nil.
func NewDispatcher(ctx context.Context, sink Logger, log *observability.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		queue:   async.NewQueue(ctx, "audit", 1024),
		logger:  sink,
		log:     log,
		metrics: metrics,
	}
}

// Record enqueues an event. The event's timestamp is stamped here so queue
// latency never shifts it.
func (d *Dispatcher) Record(event Event) {
	if d == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	err := d.queue.Enqueue(func(ctx context.Context) {
		if logErr := d.logger.Log(ctx, &event); logErr != nil && d.log != nil {
			d.log.WithError(logErr).Warn("failed to write audit event")
		}
		if d.metrics != nil {
			d.metrics.AuditQueueDepth.Set(float64(d.queue.Depth()))
		}
	})
	if err != nil && d.log != nil {
		d.log.WithError(err).Warn("audit event dropped")
	}
	if d.metrics != nil {
		d.metrics.AuditQueueDepth.Set(float64(d.queue.Depth()))
	}
}

// Close drains the queue and closes the sink
func (d *Dispatcher) Close(timeout time.Duration) error {
	if d == nil {
		return nil
	}
	if err := d.queue.Close(timeout); err != nil {
		return err
	}
	return d.logger.Close()
}
