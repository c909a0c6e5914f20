package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-distribution/internal/config"
)

// fakeLockStore implements the two commands the locker issues against an
// in-memory key space. Any other command panics through the nil embed.
type fakeLockStore struct {
	redis.Cmdable

	mu   sync.Mutex
	keys map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{keys: map[string]string{}}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := redis.NewBoolCmd(ctx)
	if _, held := f.keys[key]; held {
		cmd.SetVal(false)
		return cmd
	}
	f.keys[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

// EvalSha runs the release script's compare-and-delete.
func (f *fakeLockStore) EvalSha(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := redis.NewCmd(ctx)
	if f.keys[keys[0]] == args[0].(string) {
		delete(f.keys, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}
	cmd.SetVal(int64(0))
	return cmd
}

func (f *fakeLockStore) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, lockPrefix+key)
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	store := newFakeLockStore()
	locker := NewRedisLocker(store)

	release, err := locker.Acquire(ctx, "upload:admin-1", time.Minute)
	require.NoError(t, err)
	require.Contains(t, store.keys, lockPrefix+"upload:admin-1")

	_, err = locker.Acquire(ctx, "upload:admin-1", time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)

	other, err := locker.Acquire(ctx, "upload:agent-1", time.Minute)
	require.NoError(t, err)
	other(ctx)

	release(ctx)
	require.NotContains(t, store.keys, lockPrefix+"upload:admin-1")

	again, err := locker.Acquire(ctx, "upload:admin-1", time.Minute)
	require.NoError(t, err)
	again(ctx)
}

func TestRedisLocker_StaleReleaseKeepsNewHolder(t *testing.T) {
	ctx := context.Background()
	store := newFakeLockStore()
	locker := NewRedisLocker(store)

	stale, err := locker.Acquire(ctx, "upload:admin-1", time.Millisecond)
	require.NoError(t, err)

	store.expire("upload:admin-1")
	_, err = locker.Acquire(ctx, "upload:admin-1", time.Minute)
	require.NoError(t, err)

	stale(ctx)
	_, err = locker.Acquire(ctx, "upload:admin-1", time.Minute)
	require.ErrorIs(t, err, ErrLockHeld, "expired holder must not release the new lock")
}

func TestNewRedis_UnreachableIsNotFatal(t *testing.T) {
	r := NewRedis(config.RedisConfig{Addr: "127.0.0.1:1"}, zap.NewNop())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, r.Ping(ctx))

	_, err := r.Locker().Acquire(ctx, "upload:admin-1", time.Second)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLockHeld)
}

func TestRedis_NilPing(t *testing.T) {
	var r *Redis
	require.Error(t, r.Ping(context.Background()))
	r.Close()
}
