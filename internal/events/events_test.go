package events

import (
	"context"
	"sicakap/pkg/kafka"
	"sicakap/pkg/logger"
	"sicakap/pkg/metrics"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mu        sync.Mutex
	published []kafka.Message
	publishFn func(ctx context.Context, msg kafka.Message) error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.mu.Lock()
	m.published = append(m.published, msg)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, msg)
	}
	return nil
}

func TestBroadcaster_FansOutInOrderAndStamps(t *testing.T) {
	var first, second Recorder
	b := NewBroadcaster(&first)
	b.Subscribe(&second)

	b.Notify(Event{Type: NumberBooked, Number: 601, Date: "2025-08-10"})
	b.Notify(Event{Type: NumberReleased, Number: 601})

	assert.Equal(t, []Type{NumberBooked, NumberReleased}, first.Types())
	assert.Equal(t, first.Types(), second.Types())

	last, ok := first.Last()
	require.True(t, ok)
	assert.False(t, last.At.IsZero())
}

func TestMetricsObserver_TracksHeldNumber(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	o := NewMetricsObserver(m)

	o.Notify(Event{Type: NumberBooked, Number: 601})
	assert.Equal(t, float64(601), testutil.ToFloat64(m.HeldNumber))

	o.Notify(Event{Type: NumberConfirmed, Number: 601})
	assert.Equal(t, float64(0), testutil.ToFloat64(m.HeldNumber))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DeskEvents.WithLabelValues(string(NumberBooked))))
}

func TestKafkaObserver_PublishesQueuedEventsOnStop(t *testing.T) {
	pub := &mockPublisher{}
	o := NewKafkaObserver(pub, "desk-1", "sicakap-desk", 8, time.Second, logger.Discard())
	o.Start(context.Background())

	o.Notify(Event{Type: NumberBooked, Number: 601, Date: "2025-08-10", At: time.Now()})
	o.Notify(Event{Type: DateSwitched, Date: "2025-08-11", At: time.Now()})
	o.Stop()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.published, 2)
	assert.Equal(t, "desk-1", pub.published[0].Key)
	assert.Equal(t, string(NumberBooked), pub.published[0].GetEventType())

	var decoded Event
	require.NoError(t, pub.published[1].DecodeValue(&decoded))
	assert.Equal(t, DateSwitched, decoded.Type)
}

func TestKafkaObserver_DropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	pub := &mockPublisher{publishFn: func(ctx context.Context, msg kafka.Message) error {
		<-release
		return nil
	}}
	o := NewKafkaObserver(pub, "desk-1", "sicakap-desk", 1, time.Second, logger.Discard())

	// worker not started: the single slot fills and the second event is dropped
	o.Notify(Event{Type: NumberBooked})
	o.Notify(Event{Type: NumberReleased})
	assert.Len(t, o.queue, 1)

	close(release)
	o.Start(context.Background())
	o.Stop()
	assert.Len(t, pub.published, 1)
}

func TestRecorder_KeepsNewestWithinLimit(t *testing.T) {
	r := &Recorder{Limit: 2}
	for n := 1; n <= 5; n++ {
		r.Notify(Event{Type: NumberBooked, Number: n})
	}

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Number)
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 5, last.Number)
}

func TestKafkaObserver_NotifyAfterStopIsDropped(t *testing.T) {
	pub := &mockPublisher{}
	o := NewKafkaObserver(pub, "desk-1", "sicakap-desk", 4, time.Second, logger.Discard())
	o.Start(context.Background())
	o.Stop()

	assert.NotPanics(t, func() {
		o.Notify(Event{Type: DateSwitched, Date: "2025-08-11"})
	})
	o.Stop()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Empty(t, pub.published)
}
