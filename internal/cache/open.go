package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverDaemon = "daemon"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver        string `yaml:"driver"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// Prefix namespaces keys on Redis.
	Prefix     string `yaml:"prefix"`
	SocketPath string `yaml:"socket"`
	DBPath     string `yaml:"db"`
	Bucket     string `yaml:"bucket"`
}

// OpenBackend connects the backend named by cfg.Driver.
func OpenBackend(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(0), nil
	case DriverBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, storeErr("open", "", err)
		}
		return Open(cfg.DBPath, Options{Bucket: cfg.Bucket})
	case DriverDaemon:
		return NewClient(cfg.SocketPath), nil
	case DriverRedis:
		return DialRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
