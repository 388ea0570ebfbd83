package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "booking_transitions_total", Help: "Booking status transitions by target state"},
		[]string{"to"},
	)
	ScheduleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "schedule_transitions_total", Help: "Schedule status transitions by target state"},
		[]string{"to"},
	)
	DispatchConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "dispatch_conflicts_total", Help: "Driver claims rejected because the driver was not online"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "backoffice",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
