package events

import (
	"context"
	"sicakap/pkg/kafka"
	"sicakap/pkg/logger"
	"sicakap/pkg/metrics"
	"sync"
	"time"
)

type LogObserver struct {
	log *logger.Logger
}

func NewLogObserver(log *logger.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) Notify(e Event) {
	args := []any{"event", e.Type}
	if e.Number != 0 {
		args = append(args, "reg_number", e.Number)
	}
	if !e.Date.IsZero() {
		args = append(args, "date", e.Date)
	}
	if e.State != "" {
		args = append(args, "state", e.State)
	}
	if e.Countdown != 0 {
		args = append(args, "countdown", e.Countdown)
	}
	if e.Reason != "" {
		args = append(args, "reason", e.Reason)
	}

	switch e.Type {
	case NumberExhausted, SessionExpired:
		o.log.Warn("Desk state changed", args...)
	default:
		o.log.Info("Desk state changed", args...)
	}
}

type MetricsObserver struct {
	metrics *metrics.Metrics
}

func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) Notify(e Event) {
	o.metrics.IncrementEvent(string(e.Type))
	switch e.Type {
	case NumberBooked:
		o.metrics.HeldNumber.Set(float64(e.Number))
	case NumberReleased, NumberConfirmed, NumberExhausted, SessionExpired:
		o.metrics.HeldNumber.Set(0)
	}
}

// Publisher is the subset of *kafka.Producer the Kafka observer needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaObserver publishes events from a buffered queue so Notify never waits on the broker.
// Events are dropped (and logged) when the queue is full.
type KafkaObserver struct {
	publisher Publisher
	key       string
	source    string
	timeout   time.Duration
	log       *logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
	cancel context.CancelFunc
	once   sync.Once
}

func NewKafkaObserver(publisher Publisher, operatorID, source string, buffer int, timeout time.Duration, log *logger.Logger) *KafkaObserver {
	return &KafkaObserver{
		publisher: publisher,
		key:       operatorID,
		source:    source,
		timeout:   timeout,
		log:       log,
		queue:     make(chan Event, buffer),
	}
}

func (o *KafkaObserver) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.wg.Add(1)
	go o.run(ctx)
}

// Notify queues e. Events arriving after Stop are dropped.
func (o *KafkaObserver) Notify(e Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.log.Debug("Desk event publisher stopped, dropping event", "event", e.Type)
		return
	}

	select {
	case o.queue <- e:
	default:
		o.log.Warn("Desk event queue full, dropping event", "event", e.Type)
	}
}

// Stop drains queued events and waits for the worker to exit.
func (o *KafkaObserver) Stop() {
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.queue)
		o.mu.Unlock()

		o.wg.Wait()
		if o.cancel != nil {
			o.cancel()
		}
	})
}

func (o *KafkaObserver) run(ctx context.Context) {
	defer o.wg.Done()
	for e := range o.queue {
		o.publish(ctx, e)
	}
}

func (o *KafkaObserver) publish(ctx context.Context, e Event) {
	msg, err := kafka.NewMessage().
		WithKey(o.key).
		WithEventType(string(e.Type)).
		WithSource(o.source).
		WithSchemaVersion("1").
		WithTimestamp(e.At).
		WithValue(e).
		Build()
	if err != nil {
		o.log.Error("Failed to build desk event message", "event", e.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	// failures are logged by the producer middleware
	_ = o.publisher.Publish(ctx, msg)
}
