package enums

import "fmt"

// ActivityType classifies entries of the order audit trail.
type ActivityType string

const (
	ActivityOrderCreated    ActivityType = "order_created"
	ActivityStatusChange    ActivityType = "status_change"
	ActivityPaymentReceived ActivityType = "payment_received"
	ActivityPaymentFailed   ActivityType = "payment_failed"
	ActivityNoteAdded       ActivityType = "note_added"
	ActivityTrackingUpdated ActivityType = "tracking_updated"
)

var validActivityTypes = []ActivityType{
	ActivityOrderCreated,
	ActivityStatusChange,
	ActivityPaymentReceived,
	ActivityPaymentFailed,
	ActivityNoteAdded,
	ActivityTrackingUpdated,
}

// String implements fmt.Stringer.
func (a ActivityType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActivityType.
func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into a ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
