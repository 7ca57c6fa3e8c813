package enums

// ReconcileOutcome is the result of applying one gateway signal to an order.
type ReconcileOutcome string

const (
	ReconcileCredited        ReconcileOutcome = "credited"
	ReconcileAlreadyPaid     ReconcileOutcome = "already_paid"
	ReconcileFailureRecorded ReconcileOutcome = "failure_recorded"
	ReconcileNotFound        ReconcileOutcome = "not_found"
	ReconcileIgnored         ReconcileOutcome = "ignored"
	ReconcileRejected        ReconcileOutcome = "rejected"
)

var validReconcileOutcomes = []ReconcileOutcome{
	ReconcileCredited,
	ReconcileAlreadyPaid,
	ReconcileFailureRecorded,
	ReconcileNotFound,
	ReconcileIgnored,
	ReconcileRejected,
}

// String implements fmt.Stringer.
func (o ReconcileOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known ReconcileOutcome.
func (o ReconcileOutcome) IsValid() bool {
	for _, candidate := range validReconcileOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}
