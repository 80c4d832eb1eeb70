package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contractTTL  = 50 * time.Millisecond
	contractWait = 150 * time.Millisecond
)

// runKVContract checks the behaviour every KV backend must share.
func runKVContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := kv.Get(ctx, "missing")
		assert.True(t, IsMiss(err), "got %v", err)
	})

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "alpha", []byte("value"), 0))
		v, err := kv.Get(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, "value", string(v))

		v[0] = 'X'
		v2, err := kv.Get(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, "value", string(v2))
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "beta", []byte("one"), 0))
		require.NoError(t, kv.Put(ctx, "beta", []byte("two"), 0))
		v, err := kv.Get(ctx, "beta")
		require.NoError(t, err)
		assert.Equal(t, "two", string(v))
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "ttl", []byte("v"), contractTTL))
		_, err := kv.Get(ctx, "ttl")
		require.NoError(t, err)
		time.Sleep(contractWait)
		_, err = kv.Get(ctx, "ttl")
		assert.True(t, IsMiss(err), "got %v", err)
	})

	t.Run("incr creates and increments", func(t *testing.T) {
		n, err := kv.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = kv.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		v, err := kv.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, "2", string(v))
	})

	t.Run("incr after reset", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "reset", []byte("7"), 0))
		require.NoError(t, kv.Put(ctx, "reset", []byte("0"), 0))
		n, err := kv.Incr(ctx, "reset")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("incr keeps ttl", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "ttl-counter", []byte("5"), contractTTL))
		n, err := kv.Incr(ctx, "ttl-counter")
		require.NoError(t, err)
		assert.Equal(t, int64(6), n)
		time.Sleep(contractWait)
		_, err = kv.Get(ctx, "ttl-counter")
		assert.True(t, IsMiss(err), "got %v", err)
	})

	t.Run("incr non-integer", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "text", []byte("abc"), 0))
		_, err := kv.Incr(ctx, "text")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "gone", []byte("v"), 0))
		require.NoError(t, kv.Delete(ctx, "gone"))
		_, err := kv.Get(ctx, "gone")
		assert.True(t, IsMiss(err), "got %v", err)
		assert.NoError(t, kv.Delete(ctx, "never-set"))
	})
}
