package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "amenityhub"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "code"},
	)

	reservationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_operations_total",
			Help:      "Reservation operations by kind and outcome.",
		},
		[]string{"op", "outcome"},
	)

	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_operation_seconds",
			Help:      "Latency of coordinator operations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	sweepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_transitions_total",
			Help:      "Time-driven transitions applied by the expiry sweep.",
		},
		[]string{"status"},
	)

	indexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "availability_index_entries",
			Help:      "Active intervals held in the availability index.",
		},
	)

	outboxMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages by relay outcome.",
		},
		[]string{"outcome"},
	)

	outboxFailed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_failed_messages",
			Help:      "Outbox messages that exhausted their retries.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationOps, operationLatency,
			sweepTransitions, indexEntries, outboxMessages, outboxFailed)
	})
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

// ObserveOperation records the outcome and latency of a coordinator call.
func ObserveOperation(op, outcome string, started time.Time) {
	reservationOps.WithLabelValues(op, outcome).Inc()
	operationLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func IncSweep(status string, n int) {
	if n > 0 {
		sweepTransitions.WithLabelValues(status).Add(float64(n))
	}
}

func AddIndexEntries(delta int) {
	indexEntries.Add(float64(delta))
}

func IncOutbox(outcome string) {
	outboxMessages.WithLabelValues(outcome).Inc()
}

func SetOutboxFailed(n int) {
	outboxFailed.Set(float64(n))
}
