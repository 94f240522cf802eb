package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slack",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slack",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	// NotificationsCreated counts fan-out inserts by notification type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slack",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications created by message and reaction fan-out",
		},
		[]string{"type", "status"},
	)

	MemberCascades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slack",
			Subsystem: "members",
			Name:      "cascade_total",
			Help:      "Member removals by outcome",
		},
		[]string{"status"},
	)

	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slack",
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Search queries by backend that answered",
		},
		[]string{"backend"},
	)
)

// StatusLabel collapses an error into the label value used by the counters.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
