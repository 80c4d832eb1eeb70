package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/web-cache/internal/cache"
	"github.com/leonardcser/web-cache/internal/logger"
)

// isolate points every lookup location at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, env := range []string{EnvConfig, EnvStore, EnvRedisAddr, EnvSocket, EnvDB, EnvTTL, EnvFormat, EnvLogPath, EnvLogLevel} {
		t.Setenv(env, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, cache.DriverDaemon, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, ".cache", "web-cache", "cache.sock"), cfg.Store.SocketPath)
	assert.Equal(t, 10*time.Second, cfg.ResultTTL)
	assert.Equal(t, "raw", cfg.Fetch.Format)
	assert.False(t, cfg.SingleFlight)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantErr   bool
		checkFunc func(*testing.T, Config)
	}{
		{
			name: "redis store",
			yaml: `
store:
  driver: redis
  redis_addr: cache.internal:6379
  redis_db: 2
  prefix: web
result_ttl: 30s
single_flight: true
fetch:
  timeout: 5s
  format: markdown
`,
			checkFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, cache.DriverRedis, cfg.Store.Driver)
				assert.Equal(t, "cache.internal:6379", cfg.Store.RedisAddr)
				assert.Equal(t, 2, cfg.Store.RedisDB)
				assert.Equal(t, "web", cfg.Store.Prefix)
				assert.Equal(t, 30*time.Second, cfg.ResultTTL)
				assert.True(t, cfg.SingleFlight)
				assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
				assert.Equal(t, "markdown", cfg.Fetch.Format)
				// untouched fields keep their defaults
				assert.Equal(t, "web", cfg.Store.Bucket)
			},
		},
		{
			name:    "unknown driver",
			yaml:    "store:\n  driver: etcd\n",
			wantErr: true,
		},
		{
			name:    "bad format",
			yaml:    "fetch:\n  format: pdf\n",
			wantErr: true,
		},
		{
			name:    "zero ttl",
			yaml:    "result_ttl: 0s\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "store: [",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeFile(t, filepath.Join(dir, "cfg.yaml"), tt.yaml)

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Source)
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoadFindsStandardLocations(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, fileName), "store:\n  driver: memory\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, fileName), cfg.Source)
	assert.Equal(t, cache.DriverMemory, cfg.Store.Driver)

	other := writeFile(t, filepath.Join(dir, "other.yaml"), "store:\n  driver: bolt\n")
	t.Setenv(EnvConfig, other)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, cache.DriverBolt, cfg.Store.Driver)
}

func TestEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "cfg.yaml"), "store:\n  driver: memory\nresult_ttl: 1m\n")
	t.Setenv(EnvStore, "redis")
	t.Setenv(EnvRedisAddr, "10.0.0.1:6380")
	t.Setenv(EnvTTL, "15")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cache.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "10.0.0.1:6380", cfg.Store.RedisAddr)
	assert.Equal(t, 15*time.Second, cfg.ResultTTL)

	t.Setenv(EnvTTL, "250ms")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.ResultTTL)

	t.Setenv(EnvTTL, "soon")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLogSection(t *testing.T) {
	dir := isolate(t)
	logPath := filepath.Join(dir, "logs", "cache.log")
	path := writeFile(t, filepath.Join(dir, "cfg.yaml"), "log:\n  path: "+logPath+"\n  level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, logPath, cfg.Log.Path)
	assert.Equal(t, "debug", cfg.Log.Level)

	envPath := filepath.Join(dir, "env.log")
	t.Setenv(EnvLogPath, envPath)
	t.Setenv(EnvLogLevel, "error")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, envPath, cfg.Log.Path)
	assert.Equal(t, "error", cfg.Log.Level)

	require.NoError(t, cfg.InitLogger())
	t.Cleanup(func() { _ = logger.Close() })
	logger.Warnf("below threshold")
	logger.Errorf("store down")
	b, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "below threshold")
	assert.Contains(t, string(b), "[ERROR] store down")
}

func TestLogLevelValidated(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "cfg.yaml"), "log:\n  level: chatty\n")
	_, err := Load(path)
	assert.Error(t, err)
}
