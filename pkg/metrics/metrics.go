// Package metrics holds the prometheus collectors for the deposit flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DepositsCreatedCounter counts successfully created deposits by method
	DepositsCreatedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrisgate_deposits_created_total",
		Help: "Number of deposits successfully created at the gateway",
	}, []string{"method"})

	// StatusTransitionsCounter counts applied terminal transitions by status
	StatusTransitionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrisgate_status_transitions_total",
		Help: "Number of deposit status transitions applied",
	}, []string{"status"})

	// PollTicksCounter counts status poll attempts
	PollTicksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrisgate_poll_ticks_total",
		Help: "Number of status poll ticks executed",
	})

	// PollSkippedCounter counts poll ticks skipped because a prior check was in flight
	PollSkippedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrisgate_poll_ticks_skipped_total",
		Help: "Number of poll ticks skipped due to an outstanding status request",
	})

	// PollErrorsCounter counts failed status polls
	PollErrorsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrisgate_poll_errors_total",
		Help: "Number of status polls that failed",
	})

	// ActiveDepositGauge is 1 while a deposit is pending, 0 otherwise
	ActiveDepositGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qrisgate_active_deposit",
		Help: "Whether a deposit is currently pending",
	})

	// GatewayRequestDuration observes upstream gateway call latency
	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qrisgate_gateway_request_duration_seconds",
		Help:    "Latency of calls to the upstream payment gateway",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})

	// ReconciliationRunsCounter counts sweeper passes by outcome
	ReconciliationRunsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrisgate_reconciliation_runs_total",
		Help: "Number of ledger reconciliation passes",
	}, []string{"outcome"})
)
