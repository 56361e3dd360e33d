package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studio"

// Save outcomes.
const (
	ResultSaved     = "saved"
	ResultConflicts = "conflicts"
	ResultInvalid   = "invalid"
	ResultError     = "error"
)

var (
	once sync.Once

	openingHoursSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opening_hours_saves_total",
			Help:      "Count of opening hours save attempts by result.",
		},
		[]string{"result"},
	)

	conflictsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_detected_total",
			Help:      "Count of booked sessions reported as conflicting with proposed hours.",
		},
	)

	conflictScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conflict_scan_duration_seconds",
			Help:      "Time spent scanning booked sessions for conflicts.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2},
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(openingHoursSaves, conflictsDetected, conflictScanDuration, httpRequests)
	})
}

func IncSave(result string) {
	openingHoursSaves.WithLabelValues(result).Inc()
}

// ObserveConflictScan records one detector run.
func ObserveConflictScan(d time.Duration, conflicts int) {
	conflictScanDuration.Observe(d.Seconds())
	conflictsDetected.Add(float64(conflicts))
}

func IncHTTPRequest(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
