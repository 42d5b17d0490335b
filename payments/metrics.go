package payments

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsCreated counts ledger inserts, split by whether an idempotency
	// key collapsed the call onto an existing attempt
	attemptsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_created_total",
		Help: "Payment attempts by method and outcome (created|replayed)",
	}, []string{"method", "outcome"})

	attemptsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_settled_total",
		Help: "Payment attempts settled by terminal status",
	}, []string{"status"})

	// reconciliationNeeded counts outcomes that a human must check
	reconciliationNeeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliation_needed_total",
		Help: "Payment operations whose outcome is unknown or could not be applied",
	}, []string{"operation"})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_validation_failures_total",
		Help: "Payment field validation failures by code",
	}, []string{"code"})
)
