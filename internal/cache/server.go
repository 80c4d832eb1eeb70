package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/leonardcser/web-cache/internal/logger"
)

// Serve answers protocol requests on l against kv until ctx is done or l is
// closed. Each connection is handled on its own goroutine.
func Serve(ctx context.Context, l net.Listener, kv KV) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warnf("cache daemon: accept: %v", err)
			continue
		}
		go handleConn(ctx, conn, kv)
	}
}

func handleConn(ctx context.Context, conn net.Conn, kv KV) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(dispatch(ctx, kv, req))
	}
}

func dispatch(ctx context.Context, kv KV, req Request) Response {
	var (
		resp Response
		err  error
	)
	switch req.Op {
	case OpGet:
		resp.Value, err = kv.Get(ctx, req.Key)
	case OpPut:
		err = kv.Put(ctx, req.Key, req.Value, time.Duration(req.TTLMillis)*time.Millisecond)
	case OpIncr:
		resp.Int, err = kv.Incr(ctx, req.Key)
	case OpDelete:
		err = kv.Delete(ctx, req.Key)
	default:
		err = errors.New("unknown op")
	}
	if err != nil {
		if IsMiss(err) {
			// Sentinels travel as their bare text so the client can map them back.
			if errors.Is(err, ErrExpired) {
				return Response{Error: ErrExpired.Error()}
			}
			return Response{Error: ErrNotFound.Error()}
		}
		return Response{Error: err.Error()}
	}
	resp.OK = true
	return resp
}
