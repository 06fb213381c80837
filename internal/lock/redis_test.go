package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/store/memory"
)

func newLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, "test:", time.Minute), mr, rdb
}

func TestRedisLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	l, mr, _ := newLocker(t)

	ok, err := l.TryLock(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("test:k"))

	ok, err = l.TryLock(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Unlock(ctx, "k"))
	assert.False(t, mr.Exists("test:k"))

	ok, err = l.TryLock(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_SharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	a, _, rdb := newLocker(t)
	b := NewRedisLocker(rdb, "test:", time.Minute)

	ok, err := a.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.TryLock(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// b never held it, so its unlock must not free a's key.
	require.NoError(t, b.Unlock(ctx, "k"))
	ok, err = b.TryLock(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLocker_ExpiredKeyNotStolen(t *testing.T) {
	ctx := context.Background()
	a, mr, rdb := newLocker(t)
	b := NewRedisLocker(rdb, "test:", time.Minute)

	ok, err := a.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = b.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Unlock(ctx, "k"))
	assert.True(t, mr.Exists("test:k"), "stale holder must not delete the new owner's key")
}

func TestRedisLocker_TTL(t *testing.T) {
	ctx := context.Background()
	l, mr, _ := newLocker(t)
	_, err := l.TryLock(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("test:k"))
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	ctx := context.Background()
	l, mr, _ := newLocker(t)
	mr.Close()
	_, err := l.TryLock(ctx, "k")
	assert.Error(t, err)
}

func TestRedisLocker_GuardsCompletion(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLocker(t)
	guard := gamification.NewCompletionGuard(l, memory.New(), nil)
	user, course := uuid.New(), uuid.New()

	release, admitted, err := guard.TryComplete(ctx, user, course)
	require.NoError(t, err)
	require.True(t, admitted)

	_, admitted, err = guard.TryComplete(ctx, user, course)
	require.NoError(t, err)
	assert.False(t, admitted)

	release()
	release2, admitted, err := guard.TryComplete(ctx, user, course)
	require.NoError(t, err)
	assert.True(t, admitted)
	release2()
}
