package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		recordAttempts,
		recordOutcomes,
		externalCallSeconds,
		runsTotal,
	)
}

var (
	recordAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pingen_record_attempts_total",
			Help: "Record generation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	recordOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pingen_records_total",
			Help: "Records that finished the image phase, by final status.",
		},
		[]string{"status"},
	)

	externalCallSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pingen_external_call_seconds",
			Help:    "Latency of calls to text, image and storage services.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"service", "success"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pingen_runs_total",
			Help: "Workflow runs by result.",
		},
		[]string{"result"},
	)
)

func RecordAttempt(outcome string) {
	recordAttempts.WithLabelValues(norm(outcome)).Inc()
}

func RecordOutcome(status string) {
	recordOutcomes.WithLabelValues(norm(status)).Inc()
}

func ObserveCall(service string, elapsed time.Duration, success bool) {
	externalCallSeconds.WithLabelValues(norm(service), strconv.FormatBool(success)).
		Observe(elapsed.Seconds())
}

func RunFinished(result string) {
	runsTotal.WithLabelValues(norm(result)).Inc()
}

func norm(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
