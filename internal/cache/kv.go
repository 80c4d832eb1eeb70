package cache

import (
	"context"
	"time"
)

// KV defines the minimal key-value cache contract with TTL semantics.
// Implementations must be safe for concurrent use by multiple goroutines.
type KV interface {
	// Get returns ErrNotFound or ErrExpired when there is no live value.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value. A ttl <= 0 stores it without expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr atomically adds one to the decimal integer at key, creating it at 1.
	// An existing expiry is kept.
	Incr(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Backend is a KV that owns a connection or file handle.
type Backend interface {
	KV
	Close() error
}
