package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hmacHex(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentSignatureMatchesGatewayFormula(t *testing.T) {
	assert.Equal(t, hmacHex("order_1|pay_1", "secret"), PaymentSignature("order_1", "pay_1", "secret"))
}

func TestVerifyPaymentSignature(t *testing.T) {
	client := &Client{keySecret: "rzp_test_secret"}
	valid := PaymentSignature("order_1", "pay_1", "rzp_test_secret")

	assert.True(t, client.VerifyPaymentSignature("order_1", "pay_1", valid))
	assert.True(t, client.VerifyPaymentSignature("order_1", "pay_1", strings.ToUpper(valid)))
	assert.False(t, client.VerifyPaymentSignature("order_1", "pay_2", valid))
	assert.False(t, client.VerifyPaymentSignature("order_1", "pay_1", ""))
	assert.False(t, client.VerifyPaymentSignature("", "pay_1", valid))
	assert.False(t, client.VerifyPaymentSignature("order_1", "pay_1", PaymentSignature("order_1", "pay_1", "other")))
}

func TestVerifyWebhookSignatureUsesRawBytes(t *testing.T) {
	body := []byte(`{"event":"payment.captured", "payload":{}}`)
	header := WebhookSignature(body, "whsec")

	assert.True(t, VerifyWebhookSignature(body, header, "whsec"))
	// re-serialized JSON no longer matches
	assert.False(t, VerifyWebhookSignature([]byte(`{"event":"payment.captured","payload":{}}`), header, "whsec"))
	assert.False(t, VerifyWebhookSignature(body, header, ""))
	assert.False(t, VerifyWebhookSignature(body, "", "whsec"))
	assert.False(t, VerifyWebhookSignature(nil, header, "whsec"))

	client := &Client{webhookSecret: "whsec"}
	assert.True(t, client.VerifyWebhook(body, header))
}
