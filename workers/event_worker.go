package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/camden-git/identitybackend/metrics"
	"github.com/camden-git/identitybackend/models"
)

const deliveryTimeout = 5 * time.Second

// EventSink receives identity events from the dispatcher workers
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, event models.IdentityEvent) error
}

// EventDispatcher delivers identity events to every sink from a bounded
// queue served by a fixed pool of workers.
type EventDispatcher struct {
	JobQueue chan models.IdentityEvent
	Sinks    []EventSink
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Mutex    sync.Mutex
	stopped  bool
	logger   *zap.Logger
}

func NewEventDispatcher(sinks []EventSink, queueSize, numWorkers int, logger *zap.Logger) *EventDispatcher {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &EventDispatcher{
		JobQueue: make(chan models.IdentityEvent, queueSize),
		Sinks:    sinks,
		StopChan: make(chan struct{}),
		logger:   logger.Named("events"),
	}
	d.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go d.worker(i)
	}
	d.logger.Info("started event workers", zap.Int("workers", numWorkers), zap.Int("queue_size", queueSize), zap.Int("sinks", len(sinks)))
	return d
}

func (d *EventDispatcher) worker(id int) {
	defer d.Wg.Done()

	for {
		select {
		case event := <-d.JobQueue:
			d.deliver(id, event)
		case <-d.StopChan:
			// flush what was queued before Stop
			for {
				select {
				case event := <-d.JobQueue:
					d.deliver(id, event)
				default:
					d.logger.Debug("event worker stopping", zap.Int("worker", id))
					return
				}
			}
		}
	}
}

func (d *EventDispatcher) deliver(id int, event models.IdentityEvent) {
	for _, sink := range d.Sinks {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := sink.Deliver(ctx, event)
		cancel()

		if err != nil {
			metrics.EventDeliveriesTotal.WithLabelValues(sink.Name(), "error").Inc()
			d.logger.Warn("failed to deliver identity event",
				zap.Int("worker", id),
				zap.String("sink", sink.Name()),
				zap.String("type", string(event.Type)),
				zap.Uint("contact_id", event.ContactID),
				zap.Error(err),
			)
			continue
		}
		metrics.EventDeliveriesTotal.WithLabelValues(sink.Name(), "ok").Inc()
	}
}

// Publish queues an event without blocking. A full queue or a stopped
// dispatcher drops the event.
func (d *EventDispatcher) Publish(event models.IdentityEvent) {
	d.Mutex.Lock()
	defer d.Mutex.Unlock()

	if d.stopped {
		metrics.EventsDroppedTotal.Inc()
		return
	}

	select {
	case d.JobQueue <- event:
	default:
		metrics.EventsDroppedTotal.Inc()
		d.logger.Warn("event queue full, dropping identity event",
			zap.String("type", string(event.Type)),
			zap.Uint("contact_id", event.ContactID),
		)
	}
}

// Stop signals the workers, waits for the queue to drain and returns.
func (d *EventDispatcher) Stop() {
	d.Mutex.Lock()
	if d.stopped {
		d.Mutex.Unlock()
		return
	}
	d.stopped = true
	d.Mutex.Unlock()

	d.logger.Info("stopping event workers")
	close(d.StopChan)
	d.Wg.Wait()
	d.logger.Info("all event workers stopped")
}
