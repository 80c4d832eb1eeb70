package cache

import (
	"context"
	"encoding/binary"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is a persistent KV backed by a single bbolt bucket.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

type Options struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
}

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, storeErr("open", "", err)
	}
	bucket := []byte("cache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, storeErr("open", "", err)
	}
	return &Store{db: db, bucket: bucket, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Layout: 8 bytes big endian expiresAt (unix nanos, 0 = never) || raw value
func encodeEntry(expiresAt int64, value []byte) []byte {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt))
	copy(buf[8:], value)
	return buf
}

func (s *Store) expired(entry []byte) bool {
	expiresAt := int64(binary.BigEndian.Uint64(entry[:8]))
	return expiresAt > 0 && s.now().UnixNano() >= expiresAt
}

// Put stores value with an absolute expiration computed as now+ttl.
// If ttl <= 0 the item never expires.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expiresAt := int64(0)
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	buf := encodeEntry(expiresAt, value)
	return storeErr("put", key, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), buf)
	}))
}

// Get returns cached value if present and not expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	var expired bool
	var exists bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if len(v) < 8 {
			return nil
		}
		exists = true
		if s.expired(v) {
			expired = true
			return nil
		}
		out = append([]byte(nil), v[8:]...)
		return nil
	}); err != nil {
		return nil, storeErr("get", key, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	if expired {
		return nil, ErrExpired
	}
	return out, nil
}

// Incr increments the counter at key inside a single write transaction.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		expiresAt := int64(0)
		if v := b.Get([]byte(key)); len(v) >= 8 && !s.expired(v) {
			cur, err := strconv.ParseInt(string(v[8:]), 10, 64)
			if err != nil {
				return ErrNotInteger
			}
			n = cur
			expiresAt = int64(binary.BigEndian.Uint64(v[:8]))
		}
		n++
		return b.Put([]byte(key), encodeEntry(expiresAt, []byte(strconv.FormatInt(n, 10))))
	})
	if err != nil {
		return 0, storeErr("incr", key, err)
	}
	return n, nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storeErr("delete", key, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	}))
}
