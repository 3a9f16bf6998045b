package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventpulse_events_published_total",
			Help: "Total number of events appended to the event log.",
		},
	)

	PublishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventpulse_publish_failures_total",
			Help: "Total number of event log publish failures (event persisted, entry not appended).",
		},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_deliveries_total",
			Help: "Total number of delivery attempts by outcome.",
		},
		[]string{"status"},
	)

	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpulse_retries_total",
			Help: "Total number of scheduled retries by failure reason.",
		},
		[]string{"reason"}, // e.g. http_5xx, timeout, network, other
	)

	DLQTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventpulse_dlq_total",
			Help: "Total number of events moved to the dead letter store.",
		},
	)

	ReplaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventpulse_dlq_replays_total",
			Help: "Total number of dead letters replayed into the event log.",
		},
	)

	ReconciledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventpulse_reconciled_events_total",
			Help: "Total number of persisted-but-unlogged events re-published by the sweeper.",
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		EventsPublishedTotal,
		PublishFailuresTotal,
		DeliveriesTotal,
		RetriesTotal,
		DLQTotal,
		ReplaysTotal,
		ReconciledTotal,
	)
}

// RecordDelivery increments the delivery counter for the given outcome.
func RecordDelivery(status string) {
	DeliveriesTotal.WithLabelValues(status).Inc()
}

// RecordRetry increments the retry counter for the given failure reason.
func RecordRetry(reason string) {
	RetriesTotal.WithLabelValues(reason).Inc()
}
