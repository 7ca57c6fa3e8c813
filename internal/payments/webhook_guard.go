package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const webhookProvider = "razorpay"

type webhookStore interface {
	ClaimWebhook(ctx context.Context, provider, digest string, ttl time.Duration) (bool, error)
	ReleaseWebhook(ctx context.Context, provider, digest string) error
}

// WebhookGuard drops repeated deliveries of the same webhook body.
type WebhookGuard struct {
	store webhookStore
	ttl   time.Duration
}

func NewWebhookGuard(store webhookStore, ttl time.Duration) (*WebhookGuard, error) {
	if store == nil {
		return nil, errors.New("webhook store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &WebhookGuard{store: store, ttl: ttl}, nil
}

// Digest is the key a delivery is remembered under.
func Digest(rawBody []byte) string {
	sum := sha256.Sum256(rawBody)
	return hex.EncodeToString(sum[:])
}

// Claim reports whether this is the first delivery of rawBody.
func (g *WebhookGuard) Claim(ctx context.Context, rawBody []byte) (string, bool, error) {
	digest := Digest(rawBody)
	fresh, err := g.store.ClaimWebhook(ctx, webhookProvider, digest, g.ttl)
	if err != nil {
		return digest, false, fmt.Errorf("claim webhook: %w", err)
	}
	return digest, fresh, nil
}

// Release forgets digest so a redelivery is processed again.
func (g *WebhookGuard) Release(ctx context.Context, digest string) error {
	if digest == "" {
		return errors.New("digest is required")
	}
	return g.store.ReleaseWebhook(ctx, webhookProvider, digest)
}
