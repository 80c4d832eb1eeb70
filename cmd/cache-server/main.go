package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardcser/web-cache/internal/cache"
	"github.com/leonardcser/web-cache/internal/config"
	"github.com/leonardcser/web-cache/internal/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.InitLogger(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Close()

	store, l, err := listen(cfg.Store)
	if err != nil {
		logger.Errorf("cache daemon: %v", err)
		panic(err)
	}
	defer store.Close()
	defer os.Remove(cfg.Store.SocketPath)
	defer l.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("cache daemon listening on %s (db %s)", cfg.Store.SocketPath, cfg.Store.DBPath)
	if err := cache.Serve(ctx, l, store); err != nil {
		logger.Errorf("cache daemon: %v", err)
	}
	logger.Infof("cache daemon stopped")
}

// listen opens the store first: its file lock is what tells a second daemon
// that one is already running, so the socket is only replaced once the lock
// is held.
func listen(cfg cache.Config) (*cache.Store, net.Listener, error) {
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	store, err := cache.Open(cfg.DBPath, cache.Options{Bucket: cfg.Bucket})
	if err != nil {
		return nil, nil, err
	}

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755)
	_ = os.Remove(cfg.SocketPath)
	l, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	_ = os.Chmod(cfg.SocketPath, 0o600)
	return store, l, nil
}
