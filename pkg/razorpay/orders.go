package razorpay

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/razorpay/razorpay-go/requests"
	"github.com/razorpay/razorpay-go/resources"

	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

const (
	receiptPrefix    = "order_rcpt_"
	maxReceiptLength = 40
)

type CreateOrderInput struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// GatewayOrder is the subset of the Razorpay order entity the checkout needs.
type GatewayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
}

// ReceiptFor derives the deterministic receipt for an order. Razorpay dedups on it,
// which makes a repeated CreateOrder for the same order safe.
func ReceiptFor(orderID uuid.UUID) string {
	hex := strings.ReplaceAll(orderID.String(), "-", "")
	return receiptPrefix + hex[:16]
}

// ValidateAmount checks amountPaise against the configured gateway bounds.
func (c *Client) ValidateAmount(amountPaise int64) error {
	if amountPaise < c.minAmount || amountPaise > c.maxAmount {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, ErrInvalidAmount, fmt.Sprintf("amount must be between %d and %d paise", c.minAmount, c.maxAmount)).
			WithDetails(map[string]int64{"amountPaise": amountPaise, "min": c.minAmount, "max": c.maxAmount})
	}
	return nil
}

// CreateOrder registers a gateway order with auto-capture. It is never retried here; callers decide.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput) (*GatewayOrder, error) {
	if err := c.ValidateAmount(in.AmountPaise); err != nil {
		return nil, err
	}
	receipt := strings.TrimSpace(in.Receipt)
	if receipt == "" || len(receipt) > maxReceiptLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("receipt must be 1-%d characters", maxReceiptLength))
	}
	currency := in.Currency
	if currency == "" {
		currency = c.currency
	}

	params := map[string]interface{}{
		"amount":          in.AmountPaise,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	if len(in.Notes) > 0 {
		params["notes"] = in.Notes
	}

	var order GatewayOrder
	err := c.do(ctx, "create_order", func(req *requests.Request) (map[string]interface{}, error) {
		return (&resources.Order{Request: req}).Create(params, nil)
	}, &order)
	if err != nil {
		return nil, toDomainError("create gateway order", err)
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned an order without id")
	}
	return &order, nil
}
