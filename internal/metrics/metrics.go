package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "journalq"

// QueryMetrics holds the Prometheus collectors for journal queries.
type QueryMetrics struct {
	QueriesTotal    *prometheus.CounterVec
	EntriesTotal    prometheus.Counter
	SkippedTotal    prometheus.Counter
	ReadErrorsTotal prometheus.Counter
	Duration        prometheus.Histogram
	RateLimited     prometheus.Counter
}

// NewQueryMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	f := promauto.With(reg)
	return &QueryMetrics{
		QueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "queries_total",
			Help:      "Total number of journal queries by outcome.",
		}, []string{"status"}), // status: ok, open_error, read_error, cancelled
		EntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "entries_total",
			Help:      "Total number of entries returned.",
		}),
		SkippedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "skipped_total",
			Help:      "Total number of entries dropped by the severity filter.",
		}),
		ReadErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "read_errors_total",
			Help:      "Total number of traversals stopped by a journal read failure.",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Time spent walking the journal per query.",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		}),
	}
}
