package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")

	log.Error(ctx, "boom", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestLoggerPaymentFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithOrderID(context.Background(), "ord-1", "order_RZP1")
	ctx = log.WithPaymentID(ctx, "pay_RZP1")
	log.Info(ctx, "payment credited")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ord-1", entry["order_id"])
	assert.Equal(t, "order_RZP1", entry["gateway_order_id"])
	assert.Equal(t, "pay_RZP1", entry["gateway_payment_id"])
	assert.Equal(t, "test", entry["service"])
}

func TestLoggerEmptyIDsLeaveContextUntouched(t *testing.T) {
	log := New(Options{ServiceName: "test", Output: &bytes.Buffer{}})
	ctx := context.Background()

	assert.Equal(t, ctx, log.WithOrderID(ctx, "", ""))
	assert.Equal(t, ctx, log.WithPaymentID(ctx, ""))
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}

func TestLoggerStaticFieldsAndCodedErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf, Fields: map[string]any{"instance": "api-7"}})

	cause := errors.New("connection reset")
	log.Error(context.Background(), "capture failed", pkgerrors.Wrap(pkgerrors.CodeGateway, cause, "razorpay capture"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "api-7", entry["instance"])
	assert.Equal(t, string(pkgerrors.CodeGateway), entry["error_code"])
	assert.Len(t, entry["error_chain"], 2)
}

func TestLoggerContextFieldsDoNotLeakAcrossContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	_ = log.WithUserID(context.Background(), "user-1")
	log.Info(context.Background(), "fresh")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "user_id")
}
