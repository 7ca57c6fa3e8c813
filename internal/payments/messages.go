package payments

const failurePrefix = "Your payment was not successful. "

var failureMessages = map[string]string{
	"PAYMENT_CANCELLED":     "You cancelled the payment.",
	"BAD_REQUEST_ERROR":     "There was an issue with the payment request. Please check your payment details and try again.",
	"AUTHENTICATION_FAILED": "Payment authentication failed. Please try again or use a different payment method.",
	"INSUFFICIENT_BALANCE":  "Insufficient balance in your account. Please use a different payment method.",
}

// FailureMessage maps a gateway error code to the sentence shown to the customer.
// Gateway descriptions are never shown.
func FailureMessage(code string) string {
	if msg, ok := failureMessages[code]; ok {
		return failurePrefix + msg
	}
	return failurePrefix + "Please try again or contact support if the issue persists."
}

const (
	messagePaid        = "Payment successful. Your order is being processed."
	messageUnconfirmed = "We could not confirm your payment. If you were charged, please contact support with your order number."
	messageNotFound    = "We could not find your order. Please contact support if you were charged."
)
