package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/requests"
	"github.com/sony/gobreaker/v2"

	"github.com/angelsplants/checkout-backend/pkg/config"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/metrics"
)

const (
	defaultBaseURL         = "https://api.razorpay.com"
	defaultRetryBase       = 200 * time.Millisecond
	defaultRequestTimeout  = 10 * time.Second
	responseBodyReadLimit  = 64 << 10
	errorBodyLogLimit      = 2048
	breakerHalfOpenProbes  = 1
	defaultBreakerFailures = 5
	userAgent              = "angelsplants-checkout"
)

var (
	errKeyRequired = errors.New("razorpay key id and secret are required")
	errNoResponse  = errors.New("razorpay sent no response")

	// ErrGatewayUnavailable is returned while the circuit breaker is open.
	ErrGatewayUnavailable = errors.New("razorpay unavailable")
	ErrInvalidAmount      = errors.New("amount outside gateway bounds")
	ErrInvalidSignature   = errors.New("razorpay signature mismatch")
	ErrMissingField       = errors.New("webhook payload missing required field")
)

// Client wraps the razorpay-go SDK with a circuit breaker, per-call deadlines and typed
// responses. Construct one per process and share it.
type Client struct {
	api           *requests.Request
	transport     http.RoundTripper
	timeout       time.Duration
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	currency      string
	minAmount     int64
	maxAmount     int64
	statusRetries uint64
	retryBase     time.Duration
	breaker       *gobreaker.CircuitBreaker[[]byte]
	metrics       *metrics.PaymentMetrics
	logg          *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

func WithMetrics(m *metrics.PaymentMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRetryBase sets the first backoff step for status fetch retries.
func WithRetryBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryBase = d
		}
	}
}

// NewClient builds a client from cfg. Dial and overall request timeouts come from cfg.
func NewClient(cfg config.RazorpayConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if !cfg.Configured() {
		return nil, errKeyRequired
	}

	c := &Client{
		transport:     newTransport(cfg.ConnectTimeout),
		timeout:       cfg.RequestTimeout,
		baseURL:       defaultBaseURL,
		keyID:         strings.TrimSpace(cfg.KeyID),
		keySecret:     strings.TrimSpace(cfg.KeySecret),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		currency:      cfg.Currency,
		minAmount:     cfg.MinAmountPaise,
		maxAmount:     cfg.MaxAmountPaise,
		statusRetries: cfg.StatusRetries,
		retryBase:     defaultRetryBase,
		logg:          logg,
	}
	if c.currency == "" {
		c.currency = "INR"
	}
	if c.timeout <= 0 {
		c.timeout = defaultRequestTimeout
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	sdk := rzp.NewClient(c.keyID, c.keySecret)
	sdk.SetUserAgent(userAgent)
	sdk.Request.BaseURL = c.baseURL
	c.api = sdk.Request
	c.breaker = newBreaker(cfg.BreakerFailures, cfg.BreakerCooldown, logg)
	return c, nil
}

func newTransport(connectTimeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	return transport
}

func newBreaker(failures uint32, cooldown time.Duration, logg *logger.Logger) *gobreaker.CircuitBreaker[[]byte] {
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: breakerHalfOpenProbes,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 4xx answers mean the gateway is healthy and rejected our input.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "razorpay circuit breaker state changed")
		},
	})
}

// KeyID is the public key handed to the checkout widget.
func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) Currency() string {
	return c.currency
}

// APIError is a non-2xx answer from Razorpay.
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Step        string `json:"step"`
	Reason      string `json:"reason"`
	Field       string `json:"field"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// sdkCall runs one razorpay-go resource method against req.
type sdkCall func(req *requests.Request) (map[string]interface{}, error)

func (c *Client) do(ctx context.Context, operation string, call sdkCall, out any) error {
	start := time.Now()
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.exchange(ctx, operation, call)
	})
	c.metrics.ObserveGatewayCall(operation, time.Since(start), err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// exchange runs call on a copy of the SDK request whose transport carries ctx and keeps
// the status and body of the answer. The SDK builds requests without a context and folds
// every error answer into BadRequestError, so both are read off the wire instead.
func (c *Client) exchange(ctx context.Context, operation string, call sdkCall) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	wire := &wireCapture{ctx: ctx, base: c.transport}
	req := *c.api
	req.HTTPClient = &http.Client{Transport: wire}
	_, err := call(&req)

	switch {
	case wire.status == 0:
		if err == nil {
			err = errNoResponse
		}
		return nil, err
	case wire.status >= 200 && wire.status < 300:
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return wire.body, nil
	}

	apiErr := &APIError{StatusCode: wire.status}
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(wire.body, &envelope) == nil && envelope.Error != nil {
		envelope.Error.StatusCode = wire.status
		apiErr = envelope.Error
	} else if err != nil {
		apiErr.Description = err.Error()
	}
	if c.logg != nil {
		snippet := wire.body
		if len(snippet) > errorBodyLogLimit {
			snippet = snippet[:errorBodyLogLimit]
		}
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"gateway_operation": operation,
			"gateway_status":    wire.status,
			"gateway_body":      string(snippet),
		})
		c.logg.Error(logCtx, "razorpay request failed", apiErr)
	}
	return nil, apiErr
}

// wireCapture is the RoundTripper handed to the SDK for a single call.
type wireCapture struct {
	ctx    context.Context
	base   http.RoundTripper
	status int
	body   []byte
}

func (w *wireCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(w.ctx)
	out.Header.Set("Accept", "application/json")
	resp, err := w.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	w.status, w.body = resp.StatusCode, body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// retryable reports whether a failed call may succeed on a later attempt.
func retryable(err error) bool {
	if err == nil || errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// transport failures and timeouts
	return true
}

// toDomainError converts gateway failures into the API error vocabulary.
func toDomainError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, operation+": resource not found at gateway")
		case apiErr.StatusCode == http.StatusBadRequest:
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, operation+" rejected by gateway").
				WithDetails(map[string]string{"gatewayCode": apiErr.Code, "field": apiErr.Field})
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, operation+" failed")
}
