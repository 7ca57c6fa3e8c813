package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/pkg/enums"
)

// OrderCreatedEvent is emitted by checkout once the order row and its items exist.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Total       string     `json:"total"`
	Currency    string     `json:"currency"`
	ItemCount   int        `json:"item_count"`
}

// OrderPaidEvent drives the order confirmation email.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	Email            string    `json:"email"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	AmountPaise      int64     `json:"amount_paise"`
	Currency         string    `json:"currency"`
	Signal           string    `json:"signal"`
	PaidAt           time.Time `json:"paid_at"`
}

// PaymentFailedEvent carries the sanitized failure reason shown to the customer.
type PaymentFailedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	Email            string    `json:"email"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	ErrorCode        string    `json:"error_code,omitempty"`
	Message          string    `json:"message"`
	Signal           string    `json:"signal"`
}

// OrderStatusChangedEvent is emitted for every staff transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	Email          string            `json:"email"`
	OldStatus      enums.OrderStatus `json:"old_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	TrackingURL    string            `json:"tracking_url,omitempty"`
	Note           string            `json:"note,omitempty"`
}

// OrderExpiredEvent reports an unpaid order cancelled by the expiry job.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Email       string            `json:"email"`
	PriorStatus enums.OrderStatus `json:"prior_status"`
	ExpiredAt   time.Time         `json:"expired_at"`
}
