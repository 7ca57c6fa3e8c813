package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/angelsplants/checkout-backend/internal/payments"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

type fakeWebhookService struct {
	calls   int
	outcome enums.ReconcileOutcome
	err     error
}

func (f *fakeWebhookService) HandleWebhook(context.Context, []byte, string) (*payments.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Result{Outcome: f.outcome}, nil
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]struct{}
	err  error
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]struct{}{}}
}

func (s *inMemoryStore) ClaimWebhook(_ context.Context, provider, digest string, _ time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := provider + ":" + digest
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = struct{}{}
	return true, nil
}

func (s *inMemoryStore) ReleaseWebhook(_ context.Context, provider, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, provider+":"+digest)
	return nil
}

func newGuard(t *testing.T, store *inMemoryStore) *payments.WebhookGuard {
	t.Helper()
	guard, err := payments.NewWebhookGuard(store, time.Minute)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func postWebhook(handler http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func statusOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Data webhookResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data.Status
}

func TestRazorpayWebhookProcessesOnce(t *testing.T) {
	svc := &fakeWebhookService{outcome: enums.ReconcileCredited}
	handler := RazorpayWebhook(svc, newGuard(t, newInMemoryStore()), nil)
	body := []byte(`{"event":"payment.captured"}`)

	rec := postWebhook(handler, body, "sig")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := statusOf(t, rec); got != "credited" {
		t.Fatalf("expected credited got %s", got)
	}

	dup := postWebhook(handler, body, "sig")
	if dup.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate got %d", dup.Code)
	}
	if got := statusOf(t, dup); got != "duplicate" {
		t.Fatalf("expected duplicate got %s", got)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one call, got %d", svc.calls)
	}
}

func TestRazorpayWebhookMissingSignature(t *testing.T) {
	svc := &fakeWebhookService{}
	rec := postWebhook(RazorpayWebhook(svc, newGuard(t, newInMemoryStore()), nil), []byte(`{}`), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not run without a signature")
	}
}

func TestRazorpayWebhookInvalidSignatureReleasesDigest(t *testing.T) {
	store := newInMemoryStore()
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeInvalidSignature, "webhook signature verification failed")}
	handler := RazorpayWebhook(svc, newGuard(t, store), nil)

	rec := postWebhook(handler, []byte(`{"event":"payment.failed"}`), "forged")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected digest released, store has %d keys", len(store.data))
	}
}

func TestRazorpayWebhookGatewayOutageIsRetryable(t *testing.T) {
	store := newInMemoryStore()
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeGateway, "fetch payment")}
	handler := RazorpayWebhook(svc, newGuard(t, store), nil)
	body := []byte(`{"event":"order.paid"}`)

	rec := postWebhook(handler, body, "sig")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}

	svc.err = nil
	svc.outcome = enums.ReconcileCredited
	retry := postWebhook(handler, body, "sig")
	if retry.Code != http.StatusOK || statusOf(t, retry) != "credited" {
		t.Fatalf("expected redelivery processed, got %d %s", retry.Code, retry.Body.String())
	}
	if svc.calls != 2 {
		t.Fatalf("expected two calls, got %d", svc.calls)
	}
}

func TestRazorpayWebhookGuardStoreDown(t *testing.T) {
	store := newInMemoryStore()
	store.err = errors.New("redis unavailable")
	svc := &fakeWebhookService{}
	rec := postWebhook(RazorpayWebhook(svc, newGuard(t, store), nil), []byte(`{}`), "sig")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not run when the guard fails")
	}
}

func TestRazorpayWebhookRejectsOversizedBody(t *testing.T) {
	svc := &fakeWebhookService{}
	rec := postWebhook(RazorpayWebhook(svc, newGuard(t, newInMemoryStore()), nil), bytes.Repeat([]byte("a"), maxWebhookBody+10), "sig")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
