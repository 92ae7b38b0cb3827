package lock

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLockerWithoutClient(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	assert.Nil(t, NewRecalculationGuard(nil, time.Minute))
}

func TestNilGuardAlwaysGrants(t *testing.T) {
	var guard *RecalculationGuard
	release, ok, err := guard.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, release)
	assert.NoError(t, release(context.Background()))
}

func TestTryLockValidatesArguments(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)

	_, _, err := locker.TryLock(context.Background(), "", time.Second)
	assert.Error(t, err)

	_, _, err = locker.TryLock(context.Background(), "key", 0)
	assert.Error(t, err)
}

func TestReleaseIgnoresEmptyToken(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, NewLocker(client).Release(context.Background(), "key", ""))
}
