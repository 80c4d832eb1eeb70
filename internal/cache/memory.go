package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process KV. Expired items are dropped lazily on read and
// by a janitor running every cleanup interval.
type Memory struct {
	mu    sync.Mutex // serializes writers so Incr is atomic
	items *gocache.Cache
}

func NewMemory(cleanup time.Duration) *Memory {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Memory{items: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v.([]byte)...), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := gocache.NoExpiration
	if ttl > 0 {
		d = ttl
	}
	m.mu.Lock()
	m.items.Set(key, append([]byte(nil), value...), d)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	d := gocache.NoExpiration
	if v, exp, ok := m.items.GetWithExpiration(key); ok {
		cur, err := strconv.ParseInt(string(v.([]byte)), 10, 64)
		if err != nil {
			return 0, storeErr("incr", key, ErrNotInteger)
		}
		n = cur
		if !exp.IsZero() {
			if d = time.Until(exp); d <= 0 {
				n, d = 0, gocache.NoExpiration
			}
		}
	}
	n++
	m.items.Set(key, []byte(strconv.FormatInt(n, 10)), d)
	return n, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.items.Delete(key)
	m.mu.Unlock()
	return nil
}

// Close drops every item.
func (m *Memory) Close() error {
	m.items.Flush()
	return nil
}
