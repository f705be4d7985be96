package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catagency",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catagency",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	missionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catagency",
			Subsystem: "missions",
			Name:      "status_transitions_total",
			Help:      "Derived mission status transitions.",
		},
		[]string{"from", "to"},
	)
	assignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catagency",
			Subsystem: "missions",
			Name:      "assignments_total",
			Help:      "Agent assignment attempts by outcome.",
		},
		[]string{"result"},
	)
	breedLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catagency",
			Subsystem: "breeds",
			Name:      "lookups_total",
			Help:      "Breed verification lookups by outcome.",
		},
		[]string{"result", "source"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, missionTransitions, assignments, breedLookups)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordTransition(from, to string) {
	RegisterMetrics()
	missionTransitions.WithLabelValues(from, to).Inc()
}

// RecordAssignment counts an assignment outcome: ok, busy, invalid_transition, not_found.
func RecordAssignment(result string) {
	RegisterMetrics()
	assignments.WithLabelValues(result).Inc()
}

func RecordBreedLookup(result, source string) {
	RegisterMetrics()
	breedLookups.WithLabelValues(result, source).Inc()
}
