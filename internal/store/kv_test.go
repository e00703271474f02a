package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisKV(c), mr
}

func TestRedisKV_GetMiss(t *testing.T) {
	kv, _ := setupKV(t)
	_, err := kv.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_IncrAndScan(t *testing.T) {
	kv, _ := setupKV(t)
	ctx := context.Background()

	n, err := kv.IncrBy(ctx, "dashboard:program:P2:ADMITTED", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = kv.IncrBy(ctx, "dashboard:program:P2:ADMITTED", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	_, err = kv.IncrBy(ctx, "dashboard:program:P2:CLOSED", 1)
	require.NoError(t, err)
	_, err = kv.IncrBy(ctx, "dashboard:program:P9:CLOSED", 1)
	require.NoError(t, err)

	keys, err := kv.ScanKeys(ctx, "dashboard:program:P2:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"dashboard:program:P2:ADMITTED", "dashboard:program:P2:CLOSED"}, keys)

	v, err := kv.Get(ctx, "dashboard:program:P2:ADMITTED")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestRedisKV_SetNXExpires(t *testing.T) {
	kv, mr := setupKV(t)
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "seen:1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = kv.SetNX(ctx, "seen:1", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = kv.SetNX(ctx, "seen:1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
