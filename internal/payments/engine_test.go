package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/internal/cart"
	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/internal/stock"
	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/dbtest"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
	"github.com/angelsplants/checkout-backend/pkg/razorpay"
)

const (
	testKeySecret     = "rzp_secret"
	testWebhookSecret = "whsec_test"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type fakeGateway struct {
	mu       sync.Mutex
	payments map[string]*razorpay.Payment
	fetchErr error
	fetches  int
	captures int
	onFetch  func()
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*razorpay.Payment, error) {
	g.mu.Lock()
	g.fetches++
	hook := g.onFetch
	g.onFetch = nil
	err := g.fetchErr
	payment, ok := g.payments[paymentID]
	var out razorpay.Payment
	if ok {
		out = *payment
	}
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fetch payment: resource not found at gateway")
	}
	return &out, nil
}

func (g *fakeGateway) CapturePayment(_ context.Context, paymentID string, _ int64, _ string) (*razorpay.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captures++
	payment := g.payments[paymentID]
	payment.Status = razorpay.StatusCaptured
	payment.Captured = true
	out := *payment
	return &out, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return razorpay.PaymentSignature(orderID, paymentID, testKeySecret) == signature
}

func (g *fakeGateway) VerifyWebhook(rawBody []byte, header string) bool {
	return razorpay.VerifyWebhookSignature(rawBody, header, testWebhookSecret)
}

func (g *fakeGateway) put(payment razorpay.Payment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[payment.ID] = &payment
}

type fixture struct {
	engine  *Engine
	conn    *gorm.DB
	gateway *fakeGateway
	user    *models.User
	order   *models.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	client := db.NewFromConn(conn)
	carts, err := cart.NewService(cart.NewRepository(conn), client, stock.NewGuard(conn), logg)
	require.NoError(t, err)

	gateway := &fakeGateway{payments: map[string]*razorpay.Payment{}}
	engine, err := NewEngine(Deps{
		Tx:       client,
		Orders:   orders.NewRepository(conn),
		Payments: NewRepository(conn),
		Carts:    carts,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Gateway:  gateway,
		Logger:   logg,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	user := dbtest.SeedUser(t, conn)
	product := dbtest.SeedProduct(t, conn, dbtest.ProductOpts{})
	active, err := carts.AddItem(context.Background(), cart.AddItemInput{UserID: user.ID, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	order := dbtest.SeedOrder(t, conn, dbtest.OrderOpts{UserID: &user.ID, CartID: &active.ID, GatewayOrderID: "order_T1"})

	gateway.put(razorpay.Payment{ID: "pay_T1", OrderID: "order_T1", Amount: 118000, Currency: "INR", Status: razorpay.StatusCaptured, Method: "upi"})
	return &fixture{engine: engine, conn: conn, gateway: gateway, user: user, order: order}
}

func (f *fixture) reload(t *testing.T) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", f.order.ID).Error)
	return order
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f *fixture) statusChanges(t *testing.T) int64 {
	return f.count(t, &models.OrderActivity{}, "order_id = ? AND activity_type = ?", f.order.ID, enums.ActivityStatusChange)
}

func (f *fixture) paymentRows(t *testing.T) int64 {
	return f.count(t, &models.Payment{}, "order_id = ?", f.order.ID)
}

func (f *fixture) successInput(paymentID string) SuccessInput {
	return SuccessInput{
		UserID:           f.user.ID,
		GatewayOrderID:   "order_T1",
		GatewayPaymentID: paymentID,
		Signature:        razorpay.PaymentSignature("order_T1", paymentID, testKeySecret),
	}
}

func webhookBody(event, paymentID, orderID string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"entity":"event","event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d,"currency":"INR","status":"captured","method":"upi"}}}}`,
		event, paymentID, orderID, amount))
}

func signed(body []byte) string {
	return razorpay.WebhookSignature(body, testWebhookSecret)
}

func TestSuccessRedirectCreditsOrder(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.HandleSuccessRedirect(context.Background(), f.successInput("pay_T1"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileCredited, result.Outcome)
	assert.True(t, result.Settled())

	order := f.reload(t)
	assert.True(t, order.Paid)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	require.NotNil(t, order.PaidAt)
	require.NotNil(t, order.GatewayPaymentID)
	assert.Equal(t, "pay_T1", *order.GatewayPaymentID)
	require.NotNil(t, order.PaymentSignature)
	assert.Equal(t, "upi", order.PaymentMethod)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "gateway_payment_id = ?", "pay_T1").Error)
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("1180.00")))

	assert.EqualValues(t, 1, f.statusChanges(t))
	assert.EqualValues(t, 1, f.count(t, &models.OrderActivity{}, "order_id = ? AND activity_type = ?", f.order.ID, enums.ActivityPaymentReceived))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "aggregate_id = ? AND event_type = ?", f.order.ID, enums.EventOrderPaid))

	var storedCart models.Cart
	require.NoError(t, f.conn.First(&storedCart, "id = ?", *f.order.CartID).Error)
	assert.Equal(t, enums.CartStatusConverted, storedCart.Status)
}

func TestSuccessRedirectInvalidSignatureChangesNothing(t *testing.T) {
	f := newFixture(t)
	input := f.successInput("pay_T1")
	input.Signature = "deadbeef"

	_, err := f.engine.HandleSuccessRedirect(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature))
	assert.True(t, errors.Is(err, razorpay.ErrInvalidSignature))

	order := f.reload(t)
	assert.False(t, order.Paid)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Nil(t, order.GatewayPaymentID)
	assert.Zero(t, f.paymentRows(t))
	assert.Zero(t, f.gateway.fetches)
}

func TestSuccessRedirectRequiresAllFields(t *testing.T) {
	f := newFixture(t)
	input := f.successInput("pay_T1")
	input.Signature = ""

	_, err := f.engine.HandleSuccessRedirect(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSuccessRedirectCapturesAuthorizedPayment(t *testing.T) {
	f := newFixture(t)
	f.gateway.put(razorpay.Payment{ID: "pay_T1", OrderID: "order_T1", Amount: 118000, Currency: "INR", Status: razorpay.StatusAuthorized, Method: "card"})

	result, err := f.engine.HandleSuccessRedirect(context.Background(), f.successInput("pay_T1"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileCredited, result.Outcome)
	assert.Equal(t, 1, f.gateway.captures)
}

func TestSuccessRedirectForAnotherUsersOrder(t *testing.T) {
	f := newFixture(t)
	input := f.successInput("pay_T1")
	input.UserID = uuid.New()

	result, err := f.engine.HandleSuccessRedirect(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileNotFound, result.Outcome)
	assert.False(t, f.reload(t).Paid)
	assert.Zero(t, f.gateway.fetches)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := webhookBody(razorpay.EventPaymentCaptured, "pay_T1", "order_T1", 118000)

	first, err := f.engine.HandleWebhook(ctx, body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileCredited, first.Outcome)

	second, err := f.engine.HandleWebhook(ctx, body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileAlreadyPaid, second.Outcome)

	assert.EqualValues(t, 1, f.paymentRows(t))
	assert.EqualValues(t, 1, f.statusChanges(t))
	assert.Equal(t, 1, f.gateway.fetches, "a replay for the recorded payment skips the gateway")
}

func TestOrderPaidAfterCapturedIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	captured := webhookBody(razorpay.EventPaymentCaptured, "pay_T1", "order_T1", 118000)
	paid := []byte(`{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_T1","order_id":"order_T1"}},"order":{"entity":{"id":"order_T1"}}}}`)

	_, err := f.engine.HandleWebhook(ctx, paid, signed(paid))
	require.NoError(t, err)
	result, err := f.engine.HandleWebhook(ctx, captured, signed(captured))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileAlreadyPaid, result.Outcome)
	assert.EqualValues(t, 1, f.paymentRows(t))
	assert.EqualValues(t, 1, f.statusChanges(t))
}

func TestRedirectAndWebhookRaceCreditOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := webhookBody(razorpay.EventPaymentCaptured, "pay_T1", "order_T1", 118000)

	var webhookResult *Result
	var webhookErr error
	// the webhook lands while the redirect is waiting on the gateway
	f.gateway.onFetch = func() {
		webhookResult, webhookErr = f.engine.HandleWebhook(ctx, body, signed(body))
	}

	redirect, err := f.engine.HandleSuccessRedirect(ctx, f.successInput("pay_T1"))
	require.NoError(t, err)
	require.NoError(t, webhookErr)

	assert.Equal(t, enums.ReconcileCredited, webhookResult.Outcome)
	assert.Equal(t, enums.ReconcileAlreadyPaid, redirect.Outcome)
	assert.True(t, redirect.Settled())

	order := f.reload(t)
	assert.True(t, order.Paid)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.EqualValues(t, 1, f.paymentRows(t))
	assert.EqualValues(t, 1, f.statusChanges(t))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "aggregate_id = ? AND event_type = ?", f.order.ID, enums.EventOrderPaid))
}

func TestWebhookForUnknownOrderIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	body := webhookBody(razorpay.EventPaymentCaptured, "pay_X", "order_missing", 5000)

	result, err := f.engine.HandleWebhook(context.Background(), body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileNotFound, result.Outcome)
	assert.Zero(t, f.gateway.fetches)
}

func TestWebhookInvalidSignature(t *testing.T) {
	f := newFixture(t)
	body := webhookBody(razorpay.EventPaymentCaptured, "pay_T1", "order_T1", 118000)

	_, err := f.engine.HandleWebhook(context.Background(), body, signed([]byte("other body")))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature))
	assert.False(t, f.reload(t).Paid)
	assert.Zero(t, f.paymentRows(t))
}

func TestWebhookMissingFields(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"order_T1"}}}}`)

	_, err := f.engine.HandleWebhook(context.Background(), body, signed(body))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.True(t, errors.Is(err, razorpay.ErrMissingField))
}

func TestWebhookUnrecognizedEventIgnored(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"refund.processed","payload":{}}`)

	result, err := f.engine.HandleWebhook(context.Background(), body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileIgnored, result.Outcome)
}

func TestCreditRejectsAmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.gateway.put(razorpay.Payment{ID: "pay_T1", OrderID: "order_T1", Amount: 100, Currency: "INR", Status: razorpay.StatusCaptured,
		Raw: json.RawMessage(`{"id":"pay_T1","amount":100}`)})
	body := webhookBody(razorpay.EventPaymentCaptured, "pay_T1", "order_T1", 100)

	result, err := f.engine.HandleWebhook(context.Background(), body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileRejected, result.Outcome)
	assert.False(t, f.reload(t).Paid)

	// captured money stays on record against the order for a refund
	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "gateway_payment_id = ?", "pay_T1").Error)
	assert.Equal(t, f.order.ID, payment.OrderID)
	assert.NotEmpty(t, payment.RawResponse)
	var activity models.OrderActivity
	require.NoError(t, f.conn.First(&activity, "order_id = ? AND activity_type = ?", f.order.ID, enums.ActivityPaymentReceived).Error)
	require.NotNil(t, activity.Note)
	assert.Contains(t, *activity.Note, "refund required")

	_, err = f.engine.HandleWebhook(context.Background(), body, signed(body))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.paymentRows(t))
	assert.EqualValues(t, 0, f.statusChanges(t))
}

func TestSuccessRedirectDoesNotCaptureMismatchedAmount(t *testing.T) {
	f := newFixture(t)
	f.gateway.put(razorpay.Payment{ID: "pay_T1", OrderID: "order_T1", Amount: 5000, Currency: "INR", Status: razorpay.StatusAuthorized, Method: "card"})

	result, err := f.engine.HandleSuccessRedirect(context.Background(), f.successInput("pay_T1"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileRejected, result.Outcome)
	assert.Zero(t, f.gateway.captures)
	assert.Zero(t, f.paymentRows(t))
	assert.False(t, f.reload(t).Paid)
}

func TestSuccessRedirectDoesNotCaptureForeignPayment(t *testing.T) {
	f := newFixture(t)
	f.gateway.put(razorpay.Payment{ID: "pay_T1", OrderID: "order_OTHER", Amount: 118000, Currency: "INR", Status: razorpay.StatusAuthorized})

	result, err := f.engine.HandleSuccessRedirect(context.Background(), f.successInput("pay_T1"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileRejected, result.Outcome)
	assert.Zero(t, f.gateway.captures)
}

func TestCreditRejectsPaymentForOtherGatewayOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.put(razorpay.Payment{ID: "pay_T1", OrderID: "order_OTHER", Amount: 118000, Currency: "INR", Status: razorpay.StatusCaptured})

	result, err := f.engine.HandleSuccessRedirect(context.Background(), f.successInput("pay_T1"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileRejected, result.Outcome)
	assert.False(t, result.Settled())
	assert.False(t, f.reload(t).Paid)
}

func TestGatewayOutageSurfacesError(t *testing.T) {
	f := newFixture(t)
	f.gateway.fetchErr = pkgerrors.Wrap(pkgerrors.CodeGateway, razorpay.ErrGatewayUnavailable, "fetch payment failed")
	body := webhookBody(razorpay.EventPaymentCaptured, "pay_T1", "order_T1", 118000)

	_, err := f.engine.HandleWebhook(context.Background(), body, signed(body))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.False(t, f.reload(t).Paid)
}

func TestFailureRedirectRecordsFailedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := FailureInput{
		UserID:         f.user.ID,
		GatewayOrderID: "order_T1",
		Error:          GatewayError{Code: "PAYMENT_CANCELLED", Description: "Payment processing cancelled by user", Source: "customer"},
	}

	result, err := f.engine.HandleFailureRedirect(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileFailureRecorded, result.Outcome)
	assert.Equal(t, "Your payment was not successful. You cancelled the payment.", result.Message)

	order := f.reload(t)
	assert.Equal(t, enums.OrderStatusPaymentFailed, order.Status)
	assert.False(t, order.Paid)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "order_id = ?", f.order.ID).Error)
	assert.Equal(t, fmt.Sprintf("failed_%s_%d", f.order.OrderNumber, fixedNow.Unix()), payment.GatewayPaymentID)
	assert.Equal(t, enums.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.ErrorCode)
	assert.Equal(t, "PAYMENT_CANCELLED", *payment.ErrorCode)

	again, err := f.engine.HandleFailureRedirect(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileFailureRecorded, again.Outcome)
	assert.EqualValues(t, 1, f.paymentRows(t))
	assert.EqualValues(t, 1, f.count(t, &models.OrderActivity{}, "order_id = ? AND activity_type = ?", f.order.ID, enums.ActivityPaymentFailed))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "aggregate_id = ? AND event_type = ?", f.order.ID, enums.EventPaymentFailed))
}

func TestFailureThenSuccessCreditsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.HandleFailureRedirect(ctx, FailureInput{UserID: f.user.ID, GatewayOrderID: "order_T1", GatewayPaymentID: "pay_FAILED", Error: GatewayError{Code: "BAD_REQUEST_ERROR"}})
	require.NoError(t, err)

	result, err := f.engine.HandleSuccessRedirect(ctx, f.successInput("pay_T1"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileCredited, result.Outcome)
	assert.Equal(t, enums.OrderStatusProcessing, f.reload(t).Status)
	assert.EqualValues(t, 2, f.paymentRows(t))
}

func TestPaymentFailedWebhookLeavesPaidOrderAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.HandleSuccessRedirect(ctx, f.successInput("pay_T1"))
	require.NoError(t, err)

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_LATE","order_id":"order_T1","status":"failed","error_code":"BAD_REQUEST_ERROR"}}}}`)
	result, err := f.engine.HandleWebhook(ctx, body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileAlreadyPaid, result.Outcome)

	order := f.reload(t)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.True(t, order.Paid)
	assert.EqualValues(t, 1, f.paymentRows(t))
}

func TestFailureNeverDowngradesCompletedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, NewRepository(f.conn).Upsert(ctx, &models.Payment{
		OrderID:          f.order.ID,
		GatewayPaymentID: "pay_T1",
		Amount:           f.order.Total,
		Currency:         "INR",
		Status:           enums.PaymentStatusCompleted,
	}))

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_T1","order_id":"order_T1","status":"failed"}}}}`)
	result, err := f.engine.HandleWebhook(ctx, body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileIgnored, result.Outcome)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "gateway_payment_id = ?", "pay_T1").Error)
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, enums.OrderStatusPending, f.reload(t).Status)
}

func TestCaptureForCancelledOrderNeedsRefund(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", f.order.ID).Update("status", enums.OrderStatusCancelled).Error)
	body := webhookBody(razorpay.EventPaymentCaptured, "pay_T1", "order_T1", 118000)

	result, err := f.engine.HandleWebhook(context.Background(), body, signed(body))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileIgnored, result.Outcome)

	order := f.reload(t)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	assert.False(t, order.Paid)
	assert.EqualValues(t, 1, f.paymentRows(t))

	var activity models.OrderActivity
	require.NoError(t, f.conn.First(&activity, "order_id = ? AND activity_type = ?", f.order.ID, enums.ActivityPaymentReceived).Error)
	require.NotNil(t, activity.Note)
	assert.Contains(t, *activity.Note, "refund required")
}

func TestFailureRedirectForAnotherUsersOrder(t *testing.T) {
	f := newFixture(t)
	result, err := f.engine.HandleFailureRedirect(context.Background(), FailureInput{UserID: uuid.New(), GatewayOrderID: "order_T1"})
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileNotFound, result.Outcome)
	assert.Equal(t, enums.OrderStatusPending, f.reload(t).Status)
	assert.Zero(t, f.paymentRows(t))
}

func TestFailureMessage(t *testing.T) {
	cases := map[string]string{
		"PAYMENT_CANCELLED":     "You cancelled the payment.",
		"AUTHENTICATION_FAILED": "Payment authentication failed. Please try again or use a different payment method.",
		"INSUFFICIENT_BALANCE":  "Insufficient balance in your account. Please use a different payment method.",
		"GATEWAY_ERROR":         "Please try again or contact support if the issue persists.",
		"":                      "Please try again or contact support if the issue persists.",
	}
	for code, want := range cases {
		assert.Equal(t, "Your payment was not successful. "+want, FailureMessage(code), code)
	}
}
