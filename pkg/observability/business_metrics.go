package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway client metrics
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total requests sent to the banking gateway",
	}, []string{
		"operation", // pix_create, bank_slip_get, token, ...
		"status",    // HTTP status code, or "network" / "circuit_open"
	})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of banking gateway requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"operation",
	})

	gatewayCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_circuit_state",
		Help: "Gateway circuit breaker state (0=closed, 1=open, 2=half-open)",
	})

	gatewayTokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_token_refresh_total",
		Help: "Access token fetches from the gateway",
	}, []string{
		"environment",
		"result", // success, failure
	})

	// Charge creation metrics
	chargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charges_total",
		Help: "Charge requests by payment type and outcome",
	}, []string{
		"payment_type", // instant_transfer, bank_slip, card
		"outcome",      // created, reused, rejected, gateway_error
	})

	chargeAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_amount_total",
		Help: "Sum of amounts charged at the gateway, in BRL",
	}, []string{
		"payment_type",
	})

	// Settlement and reconciliation metrics
	notificationEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_notification_events_total",
		Help: "Settlement notification events by outcome",
	}, []string{
		"outcome", // settled, duplicate, skipped, error
	})

	transactionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_status_transitions_total",
		Help: "Transaction status transitions applied by reconciliation",
	}, []string{
		"payment_type",
		"from",
		"to",
	})

	reconcileSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_sweep_duration_seconds",
		Help:    "Duration of a pending-transaction reconciliation sweep",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})
)

// RecordGatewayRequest records one gateway round trip
func RecordGatewayRequest(operation, status string, duration time.Duration) {
	gatewayRequestsTotal.WithLabelValues(operation, status).Inc()
	gatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetGatewayCircuitState exports the breaker state as a gauge
func SetGatewayCircuitState(state int) {
	gatewayCircuitState.Set(float64(state))
}

// RecordTokenRefresh records an access token fetch
func RecordTokenRefresh(environment string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	gatewayTokenRefreshTotal.WithLabelValues(environment, result).Inc()
}

// RecordCharge records a charge request outcome. Amount only counts toward
// the total for newly created charges.
func RecordCharge(paymentType, outcome string, amount float64) {
	chargesTotal.WithLabelValues(paymentType, outcome).Inc()
	if outcome == "created" {
		chargeAmountTotal.WithLabelValues(paymentType).Add(amount)
	}
}

// RecordNotificationEvent records the outcome of one settlement event
func RecordNotificationEvent(outcome string) {
	notificationEventsTotal.WithLabelValues(outcome).Inc()
}

// RecordStatusTransition records a transaction status change
func RecordStatusTransition(paymentType, from, to string) {
	transactionTransitionsTotal.WithLabelValues(paymentType, from, to).Inc()
}

// ObserveReconcileSweep records how long a sweep took
func ObserveReconcileSweep(duration time.Duration) {
	reconcileSweepDuration.Observe(duration.Seconds())
}
