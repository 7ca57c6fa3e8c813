package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PaymentSignature is hex(HMAC_SHA256(orderID|paymentID, secret)) as sent on the checkout success redirect.
func PaymentSignature(orderID, paymentID, secret string) string {
	return sign([]byte(orderID+"|"+paymentID), secret)
}

// WebhookSignature is hex(HMAC_SHA256(rawBody, secret)) as sent in X-Razorpay-Signature.
func WebhookSignature(rawBody []byte, secret string) string {
	return sign(rawBody, secret)
}

// VerifyPaymentSignature checks a success redirect signature against the API key secret in constant time.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" {
		return false
	}
	return equalHex(PaymentSignature(orderID, paymentID, c.keySecret), signature)
}

// VerifyWebhook checks header against the configured webhook secret.
func (c *Client) VerifyWebhook(rawBody []byte, header string) bool {
	return VerifyWebhookSignature(rawBody, header, c.webhookSecret)
}

// VerifyWebhookSignature must be given the unparsed request body.
func VerifyWebhookSignature(rawBody []byte, header, secret string) bool {
	if secret == "" || len(rawBody) == 0 {
		return false
	}
	return equalHex(WebhookSignature(rawBody, secret), header)
}

func sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func equalHex(expected, got string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(got))
}
