package enums

// ReconcileSignal names the channel a gateway outcome arrived on.
type ReconcileSignal string

const (
	SignalSuccessRedirect ReconcileSignal = "success_redirect"
	SignalFailureRedirect ReconcileSignal = "failure_redirect"
	SignalPaymentCaptured ReconcileSignal = "payment.captured"
	SignalPaymentFailed   ReconcileSignal = "payment.failed"
	SignalOrderPaid       ReconcileSignal = "order.paid"
)

var validReconcileSignals = []ReconcileSignal{
	SignalSuccessRedirect,
	SignalFailureRedirect,
	SignalPaymentCaptured,
	SignalPaymentFailed,
	SignalOrderPaid,
}

// String implements fmt.Stringer.
func (s ReconcileSignal) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReconcileSignal.
func (s ReconcileSignal) IsValid() bool {
	for _, candidate := range validReconcileSignals {
		if candidate == s {
			return true
		}
	}
	return false
}
