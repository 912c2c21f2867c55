// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled HTTP requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripdana_http_requests_total",
		Help: "Total HTTP requests handled.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripdana_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// PaymentTransitions counts savings payment status transitions applied
	// from gateway notifications or status polls.
	PaymentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripdana_payment_transitions_total",
		Help: "Savings payment status transitions.",
	}, []string{"status"})

	// WithdrawalOutcomes counts withdrawal requests leaving the pending state.
	WithdrawalOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripdana_withdrawal_outcomes_total",
		Help: "Withdrawal voting outcomes.",
	}, []string{"outcome"})

	// WebhookRejections counts rejected gateway notifications by reason.
	WebhookRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripdana_webhook_rejections_total",
		Help: "Rejected payment gateway notifications.",
	}, []string{"reason"})
)
