// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wbs"

var (
	// TasksCreated counts tasks created. Labels: level (1..3)
	TasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total WBS tasks created",
	}, []string{"level"})

	// TaskMutations counts task mutations by outcome.
	// Labels: op (update, delete), result (ok, error)
	TaskMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_mutations_total",
		Help:      "Total WBS task mutations",
	}, []string{"op", "result"})

	// OrdinalRetries counts task creations retried after a sibling ordinal collision.
	OrdinalRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ordinal_retries_total",
		Help:      "Task creations retried after a sibling ordinal conflict",
	})

	// TimeEntries counts time entry mutations.
	// Labels: op (create, update, delete, start, stop), result (ok, error)
	TimeEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "time_entries_total",
		Help:      "Total time entry mutations",
	}, []string{"op", "result"})

	// TimerConflicts counts rejected timer starts.
	TimerConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timer_conflicts_total",
		Help:      "Timer starts rejected because another timer was running",
	})

	// HoursRecompute measures full actual_hours recomputations.
	HoursRecompute = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "hours_recompute_seconds",
		Help:      "Time spent recomputing a task's actual hours",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	// HTTPRequests counts served HTTP requests. Labels: method, path, status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPDuration measures HTTP request latency. Labels: method, path
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Result maps an error to the result label value
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
