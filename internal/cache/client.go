package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"
)

const dialTimeout = 500 * time.Millisecond

// Client implements KV over a Unix socket served by Serve.
type Client struct {
	socketPath string
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Close is a no-op; every call dials its own connection.
func (c *Client) Close() error { return nil }

func (c *Client) roundTrip(ctx context.Context, req Request) (Response, error) {
	var resp Response
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return resp, storeErr(req.Op, req.Key, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return resp, storeErr(req.Op, req.Key, err)
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, storeErr(req.Op, req.Key, err)
	}
	if !resp.OK {
		switch resp.Error {
		case ErrNotFound.Error():
			return resp, ErrNotFound
		case ErrExpired.Error():
			return resp, ErrExpired
		}
		return resp, storeErr(req.Op, req.Key, errors.New(resp.Error))
	}
	return resp, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.roundTrip(ctx, Request{Op: OpGet, Key: key})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp.Value...), nil
}

func (c *Client) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.roundTrip(ctx, Request{Op: OpPut, Key: key, Value: value, TTLMillis: ttlMillis(ttl)})
	return err
}

// ttlMillis rounds a positive ttl up to at least one millisecond so it never
// turns into "no expiry" on the wire.
func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	ms := ttl.Milliseconds()
	if ttl%time.Millisecond != 0 {
		ms++
	}
	return ms
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	resp, err := c.roundTrip(ctx, Request{Op: OpIncr, Key: key})
	if err != nil {
		return 0, err
	}
	return resp.Int, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.roundTrip(ctx, Request{Op: OpDelete, Key: key})
	return err
}
