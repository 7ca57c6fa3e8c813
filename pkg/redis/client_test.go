package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelsplants/checkout-backend/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "checkout:user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
	require.Len(t, mock.expireCalls, 1)
	assert.Equal(t, "ap:rate_limit:checkout:user-1", mock.expireCalls[0].key)

	allowed, count, err = client.FixedWindowAllow(ctx, "checkout:user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(2), count)
	assert.Len(t, mock.expireCalls, 1, "expire is only set on the first hit")

	allowed, _, err = client.FixedWindowAllow(ctx, "checkout:user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestClaimWebhookDedup(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	first, err := client.ClaimWebhook(ctx, "razorpay", "abc123", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := client.ClaimWebhook(ctx, "razorpay", "abc123", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, client.ReleaseWebhook(ctx, "razorpay", "abc123"))
	reclaimed, err := client.ClaimWebhook(ctx, "razorpay", "abc123", time.Hour)
	require.NoError(t, err)
	assert.True(t, reclaimed)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	_, err := client.SetNX(context.Background(), "k", "v", 0)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "ap:idempotency:notifications:evt-1", client.IdempotencyKey("notifications", "evt-1"))
	assert.Equal(t, "ap:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "ap:webhook:razorpay:ff00", client.WebhookKey("razorpay", "ff00"))
	assert.Equal(t, "ap:lock:cron", client.LockKey(" cron "))
	assert.Equal(t, "ap:idempotency:scope", client.IdempotencyKey("scope", ""), "empty parts are skipped")
}

func TestOptionsFromConfigRequiresAddress(t *testing.T) {
	_, err := optionsFromConfig(configWith("", ""))
	require.Error(t, err)

	opts, err := optionsFromConfig(configWith("redis://localhost:6379/3", ""))
	require.NoError(t, err)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)
}

func configWith(url, addr string) config.RedisConfig {
	return config.RedisConfig{URL: url, Address: addr, PoolSize: 10, MinIdleConns: 2}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
