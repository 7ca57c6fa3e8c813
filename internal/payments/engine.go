package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/metrics"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
	"github.com/angelsplants/checkout-backend/pkg/outbox/payloads"
	"github.com/angelsplants/checkout-backend/pkg/razorpay"
)

const webhookSignal = "webhook"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartConverter interface {
	ConvertCartToOrder(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway is the part of the Razorpay client reconciliation relies on.
type Gateway interface {
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	CapturePayment(ctx context.Context, paymentID string, amountPaise int64, currency string) (*razorpay.Payment, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhook(rawBody []byte, header string) bool
}

type Deps struct {
	Tx       txRunner
	Orders   *orders.Repository
	Payments *Repository
	Carts    cartConverter
	Outbox   outboxPublisher
	Gateway  Gateway
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// Engine applies gateway signals to orders. Every signal is safe to apply more than once
// and in any order: the gateway payment id is unique and the paid flag is re-checked under
// the order row lock.
type Engine struct {
	tx       txRunner
	orders   *orders.Repository
	payments *Repository
	carts    cartConverter
	outbox   outboxPublisher
	gateway  Gateway
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewEngine(deps Deps) (*Engine, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Payments == nil:
		return nil, fmt.Errorf("payments repository required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart converter required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		tx:       deps.Tx,
		orders:   deps.Orders,
		payments: deps.Payments,
		carts:    deps.Carts,
		outbox:   deps.Outbox,
		gateway:  deps.Gateway,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		now:      now,
	}, nil
}

// Result describes what a signal did. Message is safe to show to the customer.
type Result struct {
	Outcome enums.ReconcileOutcome
	Order   *models.Order
	Message string
}

// Settled reports whether the order is paid after the signal.
func (r Result) Settled() bool {
	return r.Outcome == enums.ReconcileCredited || r.Outcome == enums.ReconcileAlreadyPaid
}

type SuccessInput struct {
	UserID           uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// GatewayError carries the error fields Razorpay reports for a failed payment.
type GatewayError struct {
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	Step        string `json:"step,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type FailureInput struct {
	UserID           uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Error            GatewayError
}

type creditRequest struct {
	signal         enums.ReconcileSignal
	gatewayOrderID string
	paymentID      string
	signature      string
	owner          *uuid.UUID
	capture        bool
}

type failureRequest struct {
	signal         enums.ReconcileSignal
	gatewayOrderID string
	paymentID      string
	gatewayErr     GatewayError
	raw            json.RawMessage
	owner          *uuid.UUID
}

// HandleSuccessRedirect credits the order named by the browser redirect after verifying its
// signature and confirming the payment with the gateway.
func (e *Engine) HandleSuccessRedirect(ctx context.Context, in SuccessInput) (*Result, error) {
	gatewayOrderID := strings.TrimSpace(in.GatewayOrderID)
	paymentID := strings.TrimSpace(in.GatewayPaymentID)
	signature := strings.TrimSpace(in.Signature)
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		e.count(enums.SignalSuccessRedirect, enums.ReconcileRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id, order id and signature are required")
	}
	if !e.gateway.VerifyPaymentSignature(gatewayOrderID, paymentID, signature) {
		e.count(enums.SignalSuccessRedirect, enums.ReconcileRejected)
		e.logg.Warn(e.logg.WithPaymentID(e.logg.WithOrderID(ctx, "", gatewayOrderID), paymentID), "payment signature mismatch")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, razorpay.ErrInvalidSignature, "payment signature verification failed")
	}
	return e.credit(ctx, creditRequest{
		signal:         enums.SignalSuccessRedirect,
		gatewayOrderID: gatewayOrderID,
		paymentID:      paymentID,
		signature:      signature,
		owner:          ownerRef(in.UserID),
		capture:        true,
	})
}

// HandleWebhook verifies rawBody against the signature header before parsing it.
func (e *Engine) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*Result, error) {
	if !e.gateway.VerifyWebhook(rawBody, signature) {
		e.metrics.IncReconciliation(webhookSignal, enums.ReconcileRejected.String())
		e.logg.Warn(ctx, "webhook signature mismatch")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, razorpay.ErrInvalidSignature, "webhook signature verification failed")
	}
	event, err := razorpay.ParseWebhookEvent(rawBody)
	if err != nil {
		e.metrics.IncReconciliation(webhookSignal, enums.ReconcileRejected.String())
		return nil, err
	}

	switch ev := event.(type) {
	case razorpay.PaymentCaptured:
		return e.credit(ctx, creditRequest{
			signal:         enums.SignalPaymentCaptured,
			gatewayOrderID: ev.Payment.OrderID,
			paymentID:      ev.Payment.ID,
		})
	case razorpay.OrderPaid:
		return e.credit(ctx, creditRequest{
			signal:         enums.SignalOrderPaid,
			gatewayOrderID: ev.GatewayOrderID,
			paymentID:      ev.Payment.ID,
		})
	case razorpay.PaymentFailed:
		return e.fail(ctx, failureRequest{
			signal:         enums.SignalPaymentFailed,
			gatewayOrderID: ev.Payment.OrderID,
			paymentID:      ev.Payment.ID,
			gatewayErr: GatewayError{
				Code:        ev.Payment.ErrorCode,
				Description: ev.Payment.ErrorDescription,
				Source:      ev.Payment.ErrorSource,
				Step:        ev.Payment.ErrorStep,
				Reason:      ev.Payment.ErrorReason,
			},
			raw: append(json.RawMessage(nil), rawBody...),
		})
	default:
		e.metrics.IncReconciliation(webhookSignal, enums.ReconcileIgnored.String())
		e.logg.Info(e.logg.WithField(ctx, "event", event.EventName()), "ignoring webhook event")
		return &Result{Outcome: enums.ReconcileIgnored}, nil
	}
}

// HandleFailureRedirect records the failed attempt and returns the sanitized reason.
func (e *Engine) HandleFailureRedirect(ctx context.Context, in FailureInput) (*Result, error) {
	gatewayOrderID := strings.TrimSpace(in.GatewayOrderID)
	if gatewayOrderID == "" {
		e.count(enums.SignalFailureRedirect, enums.ReconcileRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	raw, err := json.Marshal(map[string]any{
		"order_id":   gatewayOrderID,
		"payment_id": strings.TrimSpace(in.GatewayPaymentID),
		"error":      in.Error,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode failure details")
	}
	return e.fail(ctx, failureRequest{
		signal:         enums.SignalFailureRedirect,
		gatewayOrderID: gatewayOrderID,
		paymentID:      strings.TrimSpace(in.GatewayPaymentID),
		gatewayErr:     in.Error,
		raw:            raw,
		owner:          ownerRef(in.UserID),
	})
}

func (e *Engine) credit(ctx context.Context, req creditRequest) (*Result, error) {
	ctx = e.logg.WithPaymentID(e.logg.WithOrderID(ctx, "", req.gatewayOrderID), req.paymentID)

	order, ok, err := e.lookup(ctx, req.gatewayOrderID, req.owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return e.finish(ctx, req.signal, enums.ReconcileNotFound, nil, messageNotFound), nil
	}
	ctx = e.logg.WithField(ctx, "order_id", order.ID.String())
	if order.Paid && paidWith(order, req.paymentID) {
		return e.finish(ctx, req.signal, enums.ReconcileAlreadyPaid, order, messagePaid), nil
	}

	// Gateway calls happen before any row lock is taken.
	payment, err := e.gateway.FetchPayment(ctx, req.paymentID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return e.reject(ctx, req.signal, order, "payment not found at gateway"), nil
		}
		e.logg.Error(ctx, "fetch payment failed", err)
		return nil, err
	}
	// Order and amount are checked before capture so a mismatched payment is never captured here.
	expected := razorpay.ToPaise(order.Total)
	switch {
	case payment.OrderID != req.gatewayOrderID:
		return e.reject(ctx, req.signal, order, fmt.Sprintf("payment belongs to gateway order %q", payment.OrderID)), nil
	case payment.Amount != expected:
		return e.refuse(ctx, req, order, payment, fmt.Sprintf("payment amount %d does not match order amount %d", payment.Amount, expected))
	}
	if payment.Status == razorpay.StatusAuthorized && req.capture {
		payment, err = e.gateway.CapturePayment(ctx, payment.ID, payment.Amount, payment.Currency)
		if err != nil {
			e.logg.Error(ctx, "capture payment failed", err)
			return nil, err
		}
	}
	if payment.Status != razorpay.StatusCaptured {
		return e.reject(ctx, req.signal, order, fmt.Sprintf("payment status is %q", payment.Status)), nil
	}

	actor := signalActor(req)
	var (
		outcome enums.ReconcileOutcome
		updated *models.Order
	)
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := e.orders.WithTx(tx)
		paymentRepo := e.payments.WithTx(tx)

		locked, err := orderRepo.LockByID(ctx, order.ID)
		if err != nil {
			return err
		}
		existing, err := paymentRepo.FindByGatewayPaymentID(ctx, payment.ID)
		if err != nil {
			return err
		}
		record := completedPayment(locked.ID, payment)

		if locked.Paid {
			outcome, updated = enums.ReconcileAlreadyPaid, locked
			if existing != nil || paidWith(locked, payment.ID) {
				return nil
			}
			// a second, distinct payment settled an order that was already credited
			if err := paymentRepo.Upsert(ctx, record); err != nil {
				return err
			}
			return orderRepo.AppendActivity(ctx, orders.NewActivity(locked.ID, enums.ActivityPaymentReceived, actor,
				orders.WithNote(fmt.Sprintf("Additional payment %s received for a paid order; refund required.", payment.ID)),
				orders.WithDetails(paymentDetails(req.signal, payment))))
		}

		if !locked.Status.AwaitingPayment() {
			outcome, updated = enums.ReconcileIgnored, locked
			if existing != nil {
				return nil
			}
			if err := paymentRepo.Upsert(ctx, record); err != nil {
				return err
			}
			return orderRepo.AppendActivity(ctx, orders.NewActivity(locked.ID, enums.ActivityPaymentReceived, actor,
				orders.WithNote(fmt.Sprintf("Payment captured for a %s order; refund required.", locked.Status)),
				orders.WithDetails(paymentDetails(req.signal, payment))))
		}

		if err := paymentRepo.Upsert(ctx, record); err != nil {
			return err
		}
		paidAt := e.now()
		columns := map[string]any{
			"paid":               true,
			"paid_at":            paidAt,
			"status":             enums.OrderStatusProcessing,
			"gateway_payment_id": payment.ID,
		}
		if req.signature != "" {
			columns["payment_signature"] = req.signature
		}
		if payment.Method != "" {
			columns["payment_method"] = payment.Method
		}
		if err := orderRepo.Update(ctx, locked.ID, columns); err != nil {
			return err
		}

		if err := orderRepo.AppendActivity(ctx, orders.NewActivity(locked.ID, enums.ActivityPaymentReceived, actor,
			orders.WithDetails(paymentDetails(req.signal, payment)))); err != nil {
			return err
		}
		if err := orderRepo.AppendActivity(ctx, orders.NewActivity(locked.ID, enums.ActivityStatusChange, actor,
			orders.WithStatusChange(locked.Status, enums.OrderStatusProcessing),
			orders.WithNote("Payment confirmed via "+req.signal.String()))); err != nil {
			return err
		}
		if locked.CartID != nil {
			if err := e.carts.ConvertCartToOrder(ctx, tx, *locked.CartID); err != nil {
				return err
			}
		}

		err = e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   locked.ID,
			Actor:         actor.Ref(),
			Data: payloads.OrderPaidEvent{
				OrderID:          locked.ID,
				OrderNumber:      locked.OrderNumber,
				Email:            locked.Email,
				GatewayOrderID:   req.gatewayOrderID,
				GatewayPaymentID: payment.ID,
				AmountPaise:      payment.Amount,
				Currency:         payment.Currency,
				Signal:           req.signal.String(),
				PaidAt:           paidAt,
			},
			OccurredAt: paidAt,
		})
		if err != nil {
			return err
		}

		updated, err = orderRepo.FindByID(ctx, locked.ID)
		if err != nil {
			return err
		}
		outcome = enums.ReconcileCredited
		return nil
	})
	if err != nil {
		e.logg.Error(ctx, "credit order failed", err)
		return nil, asInternal(err, "credit order")
	}

	message := messagePaid
	if outcome == enums.ReconcileIgnored {
		message = messageUnconfirmed
		e.logg.Warn(ctx, "payment captured for an order that no longer accepts payment")
	}
	return e.finish(ctx, req.signal, outcome, updated, message), nil
}

func (e *Engine) fail(ctx context.Context, req failureRequest) (*Result, error) {
	ctx = e.logg.WithPaymentID(e.logg.WithOrderID(ctx, "", req.gatewayOrderID), req.paymentID)
	message := FailureMessage(req.gatewayErr.Code)

	order, ok, err := e.lookup(ctx, req.gatewayOrderID, req.owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return e.finish(ctx, req.signal, enums.ReconcileNotFound, nil, message), nil
	}
	ctx = e.logg.WithField(ctx, "order_id", order.ID.String())
	if order.Paid {
		return e.finish(ctx, req.signal, enums.ReconcileAlreadyPaid, order, messagePaid), nil
	}

	actor := orders.SystemActor()
	if req.owner != nil {
		actor = orders.UserActor(*req.owner, enums.UserRoleCustomer)
	}
	var (
		outcome enums.ReconcileOutcome
		updated *models.Order
	)
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := e.orders.WithTx(tx)
		paymentRepo := e.payments.WithTx(tx)

		locked, err := orderRepo.LockByID(ctx, order.ID)
		if err != nil {
			return err
		}
		updated = locked
		if locked.Paid {
			outcome = enums.ReconcileAlreadyPaid
			return nil
		}

		paymentID := req.paymentID
		if paymentID == "" {
			paymentID = fmt.Sprintf("failed_%s_%d", locked.OrderNumber, e.now().Unix())
		}
		existing, err := paymentRepo.FindByGatewayPaymentID(ctx, paymentID)
		if err != nil {
			return err
		}
		switch {
		case existing != nil && existing.Status == enums.PaymentStatusCompleted:
			outcome = enums.ReconcileIgnored
			return nil
		case existing != nil && existing.Status == enums.PaymentStatusFailed:
			outcome = enums.ReconcileFailureRecorded
			return nil
		}

		if err := paymentRepo.Upsert(ctx, failedPayment(locked, paymentID, req)); err != nil {
			return err
		}

		opts := []orders.ActivityOption{
			orders.WithNote(message),
			orders.WithDetails(map[string]any{
				"signal":           req.signal.String(),
				"gatewayPaymentId": paymentID,
				"errorCode":        req.gatewayErr.Code,
				"errorDescription": req.gatewayErr.Description,
				"errorSource":      req.gatewayErr.Source,
				"errorStep":        req.gatewayErr.Step,
				"errorReason":      req.gatewayErr.Reason,
			}),
		}
		if locked.Status == enums.OrderStatusPending {
			if err := orderRepo.Update(ctx, locked.ID, map[string]any{"status": enums.OrderStatusPaymentFailed}); err != nil {
				return err
			}
			opts = append(opts, orders.WithStatusChange(locked.Status, enums.OrderStatusPaymentFailed))
		}
		if err := orderRepo.AppendActivity(ctx, orders.NewActivity(locked.ID, enums.ActivityPaymentFailed, actor, opts...)); err != nil {
			return err
		}

		err = e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   locked.ID,
			Actor:         actor.Ref(),
			Data: payloads.PaymentFailedEvent{
				OrderID:          locked.ID,
				OrderNumber:      locked.OrderNumber,
				Email:            locked.Email,
				GatewayOrderID:   req.gatewayOrderID,
				GatewayPaymentID: paymentID,
				ErrorCode:        req.gatewayErr.Code,
				Message:          message,
				Signal:           req.signal.String(),
			},
		})
		if err != nil {
			return err
		}

		updated, err = orderRepo.FindByID(ctx, locked.ID)
		if err != nil {
			return err
		}
		outcome = enums.ReconcileFailureRecorded
		return nil
	})
	if err != nil {
		e.logg.Error(ctx, "record payment failure failed", err)
		return nil, asInternal(err, "record payment failure")
	}
	if outcome == enums.ReconcileAlreadyPaid {
		message = messagePaid
	}
	return e.finish(ctx, req.signal, outcome, updated, message), nil
}

// lookup finds the order registered under gatewayOrderID. An order owned by someone other
// than owner is reported as missing.
func (e *Engine) lookup(ctx context.Context, gatewayOrderID string, owner *uuid.UUID) (*models.Order, bool, error) {
	order, err := e.orders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.logg.Warn(ctx, "no order for gateway order id")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if owner != nil && !order.OwnedBy(*owner) {
		e.logg.Warn(e.logg.WithUserID(ctx, owner.String()), "gateway order belongs to another user")
		return nil, false, nil
	}
	return order, true, nil
}

// refuse rejects a payment that cannot settle the order. If the gateway already captured it
// for this order, the payment row is still written and the order is flagged for a refund.
func (e *Engine) refuse(ctx context.Context, req creditRequest, order *models.Order, payment *razorpay.Payment, reason string) (*Result, error) {
	if payment.Status != razorpay.StatusCaptured {
		return e.reject(ctx, req.signal, order, reason), nil
	}
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := e.orders.WithTx(tx)
		paymentRepo := e.payments.WithTx(tx)

		locked, err := orderRepo.LockByID(ctx, order.ID)
		if err != nil {
			return err
		}
		existing, err := paymentRepo.FindByGatewayPaymentID(ctx, payment.ID)
		if err != nil || existing != nil {
			return err
		}
		if err := paymentRepo.Upsert(ctx, completedPayment(locked.ID, payment)); err != nil {
			return err
		}
		return orderRepo.AppendActivity(ctx, orders.NewActivity(locked.ID, enums.ActivityPaymentReceived, signalActor(req),
			orders.WithNote(fmt.Sprintf("Payment %s captured but not credited (%s); refund required.", payment.ID, reason)),
			orders.WithDetails(paymentDetails(req.signal, payment))))
	})
	if err != nil {
		e.logg.Error(ctx, "record uncredited payment failed", err)
		return nil, asInternal(err, "record uncredited payment")
	}
	return e.reject(ctx, req.signal, order, reason), nil
}

func (e *Engine) reject(ctx context.Context, signal enums.ReconcileSignal, order *models.Order, reason string) *Result {
	e.logg.Warn(e.logg.WithField(ctx, "reason", reason), "payment not credited")
	return e.finish(ctx, signal, enums.ReconcileRejected, order, messageUnconfirmed)
}

func (e *Engine) finish(ctx context.Context, signal enums.ReconcileSignal, outcome enums.ReconcileOutcome, order *models.Order, message string) *Result {
	e.count(signal, outcome)
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{"signal": signal.String(), "outcome": outcome.String()}), "payment signal reconciled")
	return &Result{Outcome: outcome, Order: order, Message: message}
}

func (e *Engine) count(signal enums.ReconcileSignal, outcome enums.ReconcileOutcome) {
	e.metrics.IncReconciliation(signal.String(), outcome.String())
}

func paidWith(order *models.Order, paymentID string) bool {
	return order.GatewayPaymentID != nil && *order.GatewayPaymentID == paymentID
}

func ownerRef(userID uuid.UUID) *uuid.UUID {
	if userID == uuid.Nil {
		return nil
	}
	return &userID
}

func signalActor(req creditRequest) orders.Actor {
	if req.owner != nil {
		return orders.UserActor(*req.owner, enums.UserRoleCustomer)
	}
	return orders.SystemActor()
}

func paymentDetails(signal enums.ReconcileSignal, payment *razorpay.Payment) map[string]any {
	return map[string]any{
		"signal":           signal.String(),
		"gatewayPaymentId": payment.ID,
		"amountPaise":      payment.Amount,
		"currency":         payment.Currency,
		"method":           payment.Method,
	}
}

func completedPayment(orderID uuid.UUID, payment *razorpay.Payment) *models.Payment {
	return &models.Payment{
		OrderID:          orderID,
		GatewayPaymentID: payment.ID,
		Amount:           razorpay.FromPaise(payment.Amount),
		Currency:         payment.Currency,
		Method:           payment.Method,
		Status:           enums.PaymentStatusCompleted,
		RawResponse:      payment.Raw,
	}
}

func failedPayment(order *models.Order, paymentID string, req failureRequest) *models.Payment {
	return &models.Payment{
		OrderID:          order.ID,
		GatewayPaymentID: paymentID,
		Amount:           order.Total,
		Currency:         order.Currency,
		Status:           enums.PaymentStatusFailed,
		RawResponse:      req.raw,
		ErrorCode:        optional(req.gatewayErr.Code),
		ErrorDescription: optional(req.gatewayErr.Description),
		ErrorSource:      optional(req.gatewayErr.Source),
		ErrorStep:        optional(req.gatewayErr.Step),
		ErrorReason:      optional(req.gatewayErr.Reason),
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func asInternal(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
