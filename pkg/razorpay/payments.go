package razorpay

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/razorpay/razorpay-go/requests"
	"github.com/razorpay/razorpay-go/resources"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

// PaymentStatus is the lifecycle state reported by Razorpay for a payment.
type PaymentStatus string

const (
	StatusCreated    PaymentStatus = "created"
	StatusAuthorized PaymentStatus = "authorized"
	StatusCaptured   PaymentStatus = "captured"
	StatusRefunded   PaymentStatus = "refunded"
	StatusFailed     PaymentStatus = "failed"
)

// Payment is the Razorpay payment entity. Raw keeps the full body for the payments table.
type Payment struct {
	ID               string          `json:"id"`
	Entity           string          `json:"entity"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status"`
	OrderID          string          `json:"order_id"`
	Method           string          `json:"method"`
	Captured         bool            `json:"captured"`
	Email            string          `json:"email"`
	Contact          string          `json:"contact"`
	ErrorCode        string          `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
	ErrorSource      string          `json:"error_source"`
	ErrorStep        string          `json:"error_step"`
	ErrorReason      string          `json:"error_reason"`
	CreatedAt        int64           `json:"created_at"`
	Raw              json.RawMessage `json:"-"`
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	type alias Payment
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Payment(a)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// FetchPayment reads a payment, retrying transport failures and 5xx answers with exponential backoff.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	var payment Payment
	backoff := retry.WithMaxRetries(c.statusRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, "fetch_payment", func(req *requests.Request) (map[string]interface{}, error) {
			return (&resources.Payment{Request: req}).Fetch(paymentID, nil, nil)
		}, &payment)
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, toDomainError("fetch payment", err)
	}
	return &payment, nil
}

// CapturePayment captures an authorized payment for the full amount.
func (c *Client) CapturePayment(ctx context.Context, paymentID string, amountPaise int64, currency string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if currency == "" {
		currency = c.currency
	}
	var payment Payment
	err := c.do(ctx, "capture_payment", func(req *requests.Request) (map[string]interface{}, error) {
		return (&resources.Payment{Request: req}).Capture(paymentID, int(amountPaise), map[string]interface{}{"currency": currency}, nil)
	}, &payment)
	if err != nil {
		return nil, toDomainError("capture payment", err)
	}
	return &payment, nil
}
