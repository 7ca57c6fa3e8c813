package razorpay

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// WebhookEvent is one of PaymentCaptured, PaymentFailed, OrderPaid or Unrecognized.
type WebhookEvent interface {
	EventName() string
	webhookEvent()
}

// PaymentEntity is the payment object embedded in webhook payloads.
type PaymentEntity struct {
	ID               string        `json:"id"`
	OrderID          string        `json:"order_id"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           PaymentStatus `json:"status"`
	Method           string        `json:"method"`
	ErrorCode        string        `json:"error_code"`
	ErrorDescription string        `json:"error_description"`
	ErrorSource      string        `json:"error_source"`
	ErrorStep        string        `json:"error_step"`
	ErrorReason      string        `json:"error_reason"`
}

type PaymentCaptured struct {
	Payment PaymentEntity
}

type PaymentFailed struct {
	Payment PaymentEntity
}

// OrderPaid carries the order id from the order entity and the payment that settled it.
type OrderPaid struct {
	GatewayOrderID string
	Payment        PaymentEntity
}

// Unrecognized events are acknowledged and ignored.
type Unrecognized struct {
	Name string
}

func (PaymentCaptured) EventName() string { return EventPaymentCaptured }
func (PaymentFailed) EventName() string   { return EventPaymentFailed }
func (OrderPaid) EventName() string       { return EventOrderPaid }
func (u Unrecognized) EventName() string  { return u.Name }

func (PaymentCaptured) webhookEvent() {}
func (PaymentFailed) webhookEvent()   {}
func (OrderPaid) webhookEvent()       {}
func (Unrecognized) webhookEvent()    {}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhookEvent decodes a verified webhook body.
func ParseWebhookEvent(raw []byte) (WebhookEvent, error) {
	var body webhookPayload
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	name := strings.TrimSpace(body.Event)
	var payment PaymentEntity
	if body.Payload.Payment != nil {
		payment = body.Payload.Payment.Entity
	}

	switch name {
	case EventPaymentCaptured:
		if err := requireFields(name, payment.ID, payment.OrderID); err != nil {
			return nil, err
		}
		return PaymentCaptured{Payment: payment}, nil
	case EventPaymentFailed:
		if err := requireFields(name, payment.ID, payment.OrderID); err != nil {
			return nil, err
		}
		return PaymentFailed{Payment: payment}, nil
	case EventOrderPaid:
		orderID := payment.OrderID
		if body.Payload.Order != nil && body.Payload.Order.Entity.ID != "" {
			orderID = body.Payload.Order.Entity.ID
		}
		if err := requireFields(name, payment.ID, orderID); err != nil {
			return nil, err
		}
		return OrderPaid{GatewayOrderID: orderID, Payment: payment}, nil
	default:
		return Unrecognized{Name: name}, nil
	}
}

func requireFields(event, paymentID, orderID string) error {
	var missing []string
	if strings.TrimSpace(paymentID) == "" {
		missing = append(missing, "payment_id")
	}
	if strings.TrimSpace(orderID) == "" {
		missing = append(missing, "order_id")
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMissingField, fmt.Sprintf("%s webhook missing %s", event, strings.Join(missing, ", "))).
		WithDetails(map[string]any{"event": event, "missing": missing})
}
