package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/identitybackend/metrics"
	"github.com/camden-git/identitybackend/models"
)

type fakeSink struct {
	name    string
	err     error
	started chan struct{}
	gate    chan struct{}

	mu     sync.Mutex
	events []models.IdentityEvent
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Deliver(ctx context.Context, event models.IdentityEvent) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return s.err
}

func (s *fakeSink) received() []models.IdentityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.IdentityEvent(nil), s.events...)
}

func TestEventDispatcherDeliversToEverySink(t *testing.T) {
	ok := &fakeSink{name: "ok-sink"}
	failing := &fakeSink{name: "failing-sink", err: errors.New("unreachable")}
	failuresBefore := testutil.ToFloat64(metrics.EventDeliveriesTotal.WithLabelValues("failing-sink", "error"))

	d := NewEventDispatcher([]EventSink{ok, failing}, 10, 2, nil)
	d.Publish(models.IdentityEvent{Type: models.EventContactCreated, ContactID: 1, PrimaryContactID: 1})
	d.Publish(models.IdentityEvent{Type: models.EventContactLinked, ContactID: 2, PrimaryContactID: 1})
	d.Stop()

	assert.Len(t, ok.received(), 2)
	assert.Len(t, failing.received(), 2)
	assert.Equal(t, failuresBefore+2, testutil.ToFloat64(metrics.EventDeliveriesTotal.WithLabelValues("failing-sink", "error")))
}

func TestEventDispatcherDropsWhenQueueFull(t *testing.T) {
	sink := &fakeSink{name: "slow-sink", started: make(chan struct{}, 10), gate: make(chan struct{})}
	droppedBefore := testutil.ToFloat64(metrics.EventsDroppedTotal)

	d := NewEventDispatcher([]EventSink{sink}, 1, 1, nil)

	d.Publish(models.IdentityEvent{ContactID: 1})
	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first event")
	}

	d.Publish(models.IdentityEvent{ContactID: 2}) // queued
	d.Publish(models.IdentityEvent{ContactID: 3}) // dropped
	assert.Equal(t, droppedBefore+1, testutil.ToFloat64(metrics.EventsDroppedTotal))

	close(sink.gate)
	d.Stop()

	ids := make([]uint, 0)
	for _, e := range sink.received() {
		ids = append(ids, e.ContactID)
	}
	assert.Equal(t, []uint{1, 2}, ids)
}

func TestEventDispatcherPublishAfterStop(t *testing.T) {
	sink := &fakeSink{name: "after-stop"}
	d := NewEventDispatcher([]EventSink{sink}, 5, 1, nil)
	d.Stop()
	d.Stop()

	droppedBefore := testutil.ToFloat64(metrics.EventsDroppedTotal)
	d.Publish(models.IdentityEvent{ContactID: 9})

	require.Empty(t, sink.received())
	assert.Equal(t, droppedBefore+1, testutil.ToFloat64(metrics.EventsDroppedTotal))
}
