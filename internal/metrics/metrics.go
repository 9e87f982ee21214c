// Package metrics defines the Prometheus collectors exposed at /metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsmithery_collaborator_calls_total",
			Help: "Calls to external collaborators by outcome",
		},
		[]string{"collaborator", "outcome"},
	)

	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailsmithery_collaborator_duration_seconds",
			Help:    "Duration of collaborator calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"collaborator"},
	)

	EditBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsmithery_edit_batches_total",
			Help: "Edit operation batches by result",
		},
		[]string{"result"},
	)

	EditOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsmithery_edit_ops_total",
			Help: "Edit operations applied, by op kind",
		},
		[]string{"op"},
	)

	VersionsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsmithery_versions_recorded_total",
			Help: "Template versions appended to history",
		},
	)

	CompileCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsmithery_compile_cache_total",
			Help: "Compile cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)
)

// Outcome labels for CollaboratorCalls.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// ObserveCollaborator records one finished collaborator call.
func ObserveCollaborator(name string, started time.Time, err error) {
	CollaboratorDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
	default:
		outcome = OutcomeError
	}
	CollaboratorCalls.WithLabelValues(name, outcome).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
