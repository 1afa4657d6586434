package kafka_middleware

import (
	"context"
	"time"

	"sicakap/pkg/kafka"
	"sicakap/pkg/metrics"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// MetricsProducerMiddleware counts publish results and observes publish latency.
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.PublishDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			m.EventsPublished.WithLabelValues(resultFailure).Inc()
		} else {
			m.EventsPublished.WithLabelValues(resultSuccess).Inc()
		}
		return err
	}
}
