package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_outcomes_total",
			Help: "Reservation create/cancel attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	txRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_tx_retries_total",
			Help: "Transactions retried after serialization failure or ticket race",
		},
		[]string{"operation"},
	)

	domainEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_total",
			Help: "Domain events handled by the event worker",
		},
		[]string{"type", "status"},
	)

	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domain_event_publish_failures_total",
			Help: "Events that could not be published after commit",
		},
	)

	penalties = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_penalties_total",
			Help: "Absence penalties applied, labelled by whether they caused a suspension",
		},
		[]string{"suspended"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// 預約結果標籤
const (
	OutcomeOK                 = "ok"
	OutcomeFull               = "full"
	OutcomeDuplicate          = "duplicate"
	OutcomeNoTicket           = "no_ticket"
	OutcomeSuspended          = "suspended"
	OutcomeCancellationClosed = "cancellation_closed"
	OutcomeRejected           = "rejected"
	OutcomeError              = "error"
)

func TrackReservation(operation, outcome string) {
	reservationOutcomes.WithLabelValues(operation, outcome).Inc()
}

func TrackRetry(operation string) {
	txRetries.WithLabelValues(operation).Inc()
}

func TrackEvent(eventType, status string) {
	domainEvents.WithLabelValues(eventType, status).Inc()
}

func TrackPublishFailure() {
	publishFailures.Inc()
}

func TrackPenalty(suspended bool) {
	label := "false"
	if suspended {
		label = "true"
	}
	penalties.WithLabelValues(label).Inc()
}

func ObserveHTTP(method, route, status string, duration time.Duration) {
	httpDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
