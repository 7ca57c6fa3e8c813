package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	seen        map[string]bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]bool{}}
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	if f.setNXError != nil {
		return false, f.setNXError
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ap:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.seen, k)
		f.lastDeleted = k
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "ap:idempotency:evt:notifications:"+eventID.String(), store.lastKey)
	assert.Equal(t, 24*time.Hour, store.lastTTL)

	already, err = manager.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestCheckAndMarkProcessedStoreError(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("boom")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "notifications", uuid.New())
	require.Error(t, err)
}

func TestDeleteAllowsReprocessing(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	_, err = manager.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Delete(context.Background(), "notifications", eventID))
	assert.Equal(t, "ap:idempotency:evt:notifications:"+eventID.String(), store.lastDeleted)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	assert.False(t, already)
}

func TestManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	require.Error(t, err)

	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)
	_, err = manager.CheckAndMarkProcessed(context.Background(), "", uuid.New())
	require.Error(t, err)
	_, err = manager.CheckAndMarkProcessed(context.Background(), "notifications", uuid.Nil)
	require.Error(t, err)
}
