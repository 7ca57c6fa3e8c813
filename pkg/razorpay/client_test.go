package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelsplants/checkout-backend/pkg/config"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

func testConfig() config.RazorpayConfig {
	return config.RazorpayConfig{
		KeyID:           "rzp_test_key",
		KeySecret:       "rzp_test_secret",
		WebhookSecret:   "whsec",
		Currency:        "INR",
		MinAmountPaise:  100,
		MaxAmountPaise:  50000000,
		ConnectTimeout:  time.Second,
		RequestTimeout:  2 * time.Second,
		StatusRetries:   2,
		BreakerFailures: 5,
		BreakerCooldown: time.Minute,
	}
}

func newTestClient(t *testing.T, cfg config.RazorpayConfig, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := NewClient(cfg, logg, WithBaseURL(srv.URL), WithRetryBase(time.Millisecond))
	require.NoError(t, err)
	return client
}

func writeGatewayError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "description": description},
	})
}

func TestNewClientRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.KeySecret = ""
	_, err := NewClient(cfg, nil)
	require.ErrorIs(t, err, errKeyRequired)
}

func TestCreateOrderSendsAutoCapturePayload(t *testing.T) {
	orderID := uuid.New()
	var received struct {
		Amount         int64             `json:"amount"`
		Currency       string            `json:"currency"`
		Receipt        string            `json:"receipt"`
		Notes          map[string]string `json:"notes"`
		PaymentCapture int               `json:"payment_capture"`
	}
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)
		assert.Contains(t, r.Header.Get("User-Agent"), "razorpay-go")
		assert.Contains(t, r.Header.Get("User-Agent"), userAgent)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_RZP123", "entity": "order", "amount": received.Amount,
			"currency": received.Currency, "receipt": received.Receipt, "status": "created",
		})
	})

	order, err := client.CreateOrder(t.Context(), CreateOrderInput{
		AmountPaise: 129900,
		Receipt:     ReceiptFor(orderID),
		Notes:       map[string]string{"order_number": "ORD-20260301-ABC123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_RZP123", order.ID)
	assert.Equal(t, int64(129900), received.Amount)
	assert.Equal(t, "INR", received.Currency)
	assert.Equal(t, 1, received.PaymentCapture)
	assert.Equal(t, ReceiptFor(orderID), received.Receipt)
	assert.Equal(t, "ORD-20260301-ABC123", received.Notes["order_number"])
}

func TestCreateOrderRejectsAmountOutsideBoundsWithoutCallingGateway(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	for _, amount := range []int64{0, 99, 50000001} {
		_, err := client.CreateOrder(t.Context(), CreateOrderInput{AmountPaise: amount, Receipt: "order_rcpt_x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidAmount))
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestCreateOrderRejectsLongReceipt(t *testing.T) {
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called")
	})
	_, err := client.CreateOrder(t.Context(), CreateOrderInput{
		AmountPaise: 1000,
		Receipt:     "order_rcpt_0123456789012345678901234567890",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateOrderIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeGatewayError(w, http.StatusBadGateway, "SERVER_ERROR", "upstream")
	})
	_, err := client.CreateOrder(t.Context(), CreateOrderInput{AmountPaise: 1000, Receipt: "order_rcpt_1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchPaymentRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_1", r.URL.Path)
		if hits.Add(1) == 1 {
			writeGatewayError(w, http.StatusServiceUnavailable, "SERVER_ERROR", "try later")
			return
		}
		_, _ = w.Write([]byte(`{"id":"pay_1","order_id":"order_1","amount":129900,"currency":"INR","status":"captured","method":"upi"}`))
	})

	payment, err := client.FetchPayment(t.Context(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, StatusCaptured, payment.Status)
	assert.Equal(t, "order_1", payment.OrderID)
	assert.Equal(t, int64(129900), payment.Amount)
	assert.JSONEq(t, `{"id":"pay_1","order_id":"order_1","amount":129900,"currency":"INR","status":"captured","method":"upi"}`, string(payment.Raw))
}

func TestFetchPaymentDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeGatewayError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "The id provided does not exist")
	})

	_, err := client.FetchPayment(t.Context(), "pay_missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.Equal(t, int32(1), hits.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
}

func TestFetchPaymentNotFoundMapsToNotFound(t *testing.T) {
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		writeGatewayError(w, http.StatusNotFound, "NOT_FOUND", "no such payment")
	})
	_, err := client.FetchPayment(t.Context(), "pay_x")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFetchPaymentGivesUpAfterBoundedRetries(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeGatewayError(w, http.StatusInternalServerError, "SERVER_ERROR", "boom")
	})
	_, err := client.FetchPayment(t.Context(), "pay_1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.Equal(t, int32(3), hits.Load())
}

func TestCircuitBreakerFailsFastOnceOpen(t *testing.T) {
	cfg := testConfig()
	cfg.StatusRetries = 0
	cfg.BreakerFailures = 2

	var hits atomic.Int32
	client := newTestClient(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeGatewayError(w, http.StatusInternalServerError, "SERVER_ERROR", "down")
	})

	for i := 0; i < 2; i++ {
		_, err := client.FetchPayment(t.Context(), "pay_1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrGatewayUnavailable)
	}

	_, err := client.FetchPayment(t.Context(), "pay_1")
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.Equal(t, int32(2), hits.Load())
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerFailures = 1

	client := newTestClient(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		writeGatewayError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "bad")
	})
	for i := 0; i < 3; i++ {
		_, err := client.FetchPayment(t.Context(), "pay_1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrGatewayUnavailable)
	}
}

func TestCapturePaymentPostsAmount(t *testing.T) {
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments/pay_9/capture", r.URL.Path)
		var body struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(50000), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		_, _ = w.Write([]byte(`{"id":"pay_9","order_id":"order_9","amount":50000,"status":"captured"}`))
	})

	payment, err := client.CapturePayment(t.Context(), "pay_9", 50000, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, payment.Status)
}

func TestFetchPaymentStopsWhenContextIsCanceled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := client.FetchPayment(ctx, "pay_slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGatewayErrorKeepsWireStatus(t *testing.T) {
	client := newTestClient(t, testConfig(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.CreateOrder(t.Context(), CreateOrderInput{AmountPaise: 1000, Receipt: "order_rcpt_2"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.True(t, apiErr.Temporary())
}
