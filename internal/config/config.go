// Package config loads web-cache settings from an optional YAML file and
// WEB_CACHE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"

	"github.com/leonardcser/web-cache/internal/cache"
	"github.com/leonardcser/web-cache/internal/logger"
	"github.com/leonardcser/web-cache/internal/tracker"
	"github.com/leonardcser/web-cache/internal/web"
)

const (
	EnvConfig    = "WEB_CACHE_CONFIG"
	EnvStore     = "WEB_CACHE_STORE"
	EnvRedisAddr = "WEB_CACHE_REDIS_ADDR"
	EnvSocket    = "WEB_CACHE_SOCK"
	EnvDB        = "WEB_CACHE_DB"
	EnvTTL       = "WEB_CACHE_TTL"
	EnvFormat    = "WEB_CACHE_FORMAT"
	EnvLogPath   = "WEB_CACHE_LOG"
	EnvLogLevel  = "WEB_CACHE_LOG_LEVEL"
)

const fileName = "web-cache.yaml"

type Fetch struct {
	Timeout time.Duration `yaml:"timeout"`
	Delay   time.Duration `yaml:"delay"`
	Format  string        `yaml:"format"`
}

type Log struct {
	// Path empty means the default next to the executable.
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

type Config struct {
	// Source is the file the config was read from, empty for defaults.
	Source       string        `yaml:"-"`
	Store        cache.Config  `yaml:"store"`
	ResultTTL    time.Duration `yaml:"result_ttl"`
	SingleFlight bool          `yaml:"single_flight"`
	Fetch        Fetch         `yaml:"fetch"`
	Log          Log           `yaml:"log"`
}

// Default stores results for 10 seconds in the local cache daemon.
func Default() Config {
	dir := cacheDir()
	return Config{
		Store: cache.Config{
			Driver:     cache.DriverDaemon,
			RedisAddr:  "127.0.0.1:6379",
			SocketPath: filepath.Join(dir, "cache.sock"),
			DBPath:     filepath.Join(dir, "cache.bbolt"),
			Bucket:     "web",
		},
		ResultTTL: tracker.DefaultTTL,
		Fetch: Fetch{
			Timeout: web.DefaultRequestTimeout,
			Format:  string(web.FormatRaw),
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path, or the first config file found in the standard locations
// when path is empty, over Default and then applies environment overrides.
// No file at all is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Source = path
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.Store.Driver, EnvStore)
	setString(&c.Store.RedisAddr, EnvRedisAddr)
	setString(&c.Store.SocketPath, EnvSocket)
	setString(&c.Store.DBPath, EnvDB)
	setString(&c.Fetch.Format, EnvFormat)
	setString(&c.Log.Path, EnvLogPath)
	setString(&c.Log.Level, EnvLogLevel)
	if v := os.Getenv(EnvTTL); v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTTL, err)
		}
		c.ResultTTL = d
	}
	return nil
}

// parseTTL accepts a Go duration or a bare number of seconds.
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case cache.DriverMemory:
	case cache.DriverBolt:
		if c.Store.DBPath == "" {
			return errors.New("config: store.db is required for the bolt driver")
		}
	case cache.DriverDaemon:
		if c.Store.SocketPath == "" {
			return errors.New("config: store.socket is required for the daemon driver")
		}
	case cache.DriverRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("config: store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.ResultTTL <= 0 {
		return errors.New("config: result_ttl must be positive")
	}
	if _, err := web.ParseFormat(c.Fetch.Format); err != nil {
		return fmt.Errorf("config: fetch.%w", err)
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			return fmt.Errorf("config: log.level %q: %w", c.Log.Level, err)
		}
	}
	return nil
}

// InitLogger opens the log file and level named by the log section.
func (c Config) InitLogger() error {
	return logger.Init(c.Log.Path, c.Log.Level)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func findConfigFile() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	candidates := []string{}
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		candidates = append(candidates, filepath.Join(d, fileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+fileName))
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c
		}
	}
	return ""
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "web-cache")
}
