package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.bbolt"), Options{Bucket: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	runKVContract(t, openTestStore(t))
}

func TestStoreExpiryUsesClock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "result:http://x", []byte("A"), 10*time.Second))

	now = now.Add(9 * time.Second)
	v, err := s.Get(ctx, "result:http://x")
	require.NoError(t, err)
	assert.Equal(t, "A", string(v))

	now = now.Add(1 * time.Second)
	_, err = s.Get(ctx, "result:http://x")
	assert.ErrorIs(t, err, ErrExpired)

	// An expired counter restarts from zero and drops the old expiry.
	require.NoError(t, s.Put(ctx, "count:http://x", []byte("4"), time.Second))
	now = now.Add(2 * time.Second)
	n, err := s.Incr(ctx, "count:http://x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	now = now.Add(time.Hour)
	v, err = s.Get(ctx, "count:http://x")
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bbolt")
	ctx := context.Background()

	s, err := Open(path, Options{})
	require.NoError(t, err)
	_, err = s.Incr(ctx, "count:u")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Incr(ctx, "count:u")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStoreConcurrentIncr(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.Incr(ctx, "count:hot")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	v, err := s.Get(ctx, "count:hot")
	require.NoError(t, err)
	assert.Equal(t, "200", string(v))
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	b, err := OpenBackend(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)
	require.NoError(t, b.Close())

	b, err = OpenBackend(ctx, Config{Driver: DriverBolt, DBPath: filepath.Join(t.TempDir(), "nested", "c.bbolt")})
	require.NoError(t, err)
	assert.IsType(t, &Store{}, b)
	require.NoError(t, b.Close())

	b, err = OpenBackend(ctx, Config{Driver: DriverDaemon, SocketPath: "/nonexistent.sock"})
	require.NoError(t, err)
	assert.IsType(t, &Client{}, b)

	_, err = OpenBackend(ctx, Config{Driver: "etcd"})
	assert.Error(t, err)
}
