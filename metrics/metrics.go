// Package metrics provides Prometheus metrics for the identity service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes used as the "outcome" label.
const (
	OutcomeCreated   = "created"
	OutcomeUnchanged = "unchanged"
	OutcomeAppended  = "appended"
	OutcomeMerged    = "merged"
	OutcomeFailed    = "failed"
)

var (
	// ResolutionsTotal counts identify resolutions by outcome
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identity",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of identity resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// ResolutionDuration tracks end-to-end resolution time in seconds
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "identity",
			Subsystem: "resolver",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of identity resolutions in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// ChainLength tracks the number of contacts in resolved chains
	ChainLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "identity",
			Subsystem: "resolver",
			Name:      "chain_length",
			Help:      "Number of contacts in each resolved identity chain",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		},
	)

	// ConsistencyErrorsTotal counts corrupted chains found during traversal
	ConsistencyErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "identity",
			Subsystem: "chain",
			Name:      "consistency_errors_total",
			Help:      "Total number of chain traversals aborted by a data consistency error",
		},
	)

	// EventsDroppedTotal counts identity events dropped because the queue was full
	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "identity",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of identity events dropped before delivery",
		},
	)

	// EventDeliveriesTotal counts sink deliveries by sink and status
	EventDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identity",
			Subsystem: "events",
			Name:      "deliveries_total",
			Help:      "Total number of identity event deliveries by sink and status",
		},
		[]string{"sink", "status"},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identity",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"route", "method", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "identity",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route", "method"},
	)
)
