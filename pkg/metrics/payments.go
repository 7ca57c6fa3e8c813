package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks reconciliation outcomes and gateway latency.
type PaymentMetrics struct {
	reconciliations *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_reconciliation_total",
		Help: "Payment reconciliation signals by outcome.",
	}, []string{"signal", "outcome"})
	gatewayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "razorpay_request_duration_seconds",
		Help:    "Latency of Razorpay API calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"operation", "result"})
	reg.MustRegister(reconciliations, gatewayLatency)
	return &PaymentMetrics{reconciliations: reconciliations, gatewayLatency: gatewayLatency}
}

// IncReconciliation counts one processed signal.
func (m *PaymentMetrics) IncReconciliation(signal, outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(signal), normalizeLabel(outcome)).Inc()
}

// ObserveGatewayCall records one gateway request. result is "ok" or "error".
func (m *PaymentMetrics) ObserveGatewayCall(operation string, d time.Duration, err error) {
	if m == nil || m.gatewayLatency == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gatewayLatency.WithLabelValues(normalizeLabel(operation), result).Observe(d.Seconds())
}
