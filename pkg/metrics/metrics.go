package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the desk: booking lifecycle, session
// transitions, registry latency and event publishing.
type Metrics struct {
	DeskEvents       *prometheus.CounterVec
	HeldNumber       prometheus.Gauge
	RegistryDuration *prometheus.HistogramVec
	Submissions      *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	PublishDuration  prometheus.Histogram
	RemainingNumbers prometheus.Gauge
}

// New registers the desk metrics on reg. Pass prometheus.DefaultRegisterer in production
// and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DeskEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sicakap_desk_events_total",
			Help: "Desk lifecycle events by type",
		}, []string{"type"}),
		HeldNumber: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sicakap_held_registration_number",
			Help: "Registration number currently held by the desk, 0 when none",
		}),
		RegistryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sicakap_registry_call_duration_seconds",
			Help:    "Duration of registry calls by operation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sicakap_record_submissions_total",
			Help: "Record submissions by outcome",
		}, []string{"outcome"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sicakap_kafka_messages_published_total",
			Help: "Kafka publish attempts by result",
		}, []string{"result"}),
		PublishDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sicakap_kafka_publish_duration_seconds",
			Help:    "Duration of Kafka publish operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RemainingNumbers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sicakap_remaining_registration_numbers",
			Help: "Remaining numbers in the active date's range at the last settings read",
		}),
	}
}

// ObserveRegistry records the duration of a registry call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegistry(operation string, start time.Time) {
	m.RegistryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementEvent(eventType string) {
	m.DeskEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncrementSubmission(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}
