package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 8080
  mode: release
  read_timeout: 10s
  write_timeout: 10s
  graceful_shutdown_timeout: 15s
database:
  postgres:
    host: localhost
    port: 5432
    db: datahub
    user: datahub
    password: secret
    sslmode: disable
    auto_migrate: true
state:
  backend: memory
jwt:
  signing_key: super-secret
  issuer: datahub
  access_token_ttl: 15m
  refresh_token_ttl: 720h
invite:
  enabled: true
log:
  level: info
  format: json
datasets:
  refresh_on_start: true
  sources:
    constituencies:
      path: /data/constituencies.csv
      refresh_interval: 1h
      max_retries: 5
      retry_delay_base: 2s
      timeout: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 15*time.Second, cfg.Server.GracefulShutdownTimeout)
	assert.True(t, cfg.Database.Postgres.AutoMigrate)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.Equal(t, 720*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.True(t, cfg.Invite.Enabled)
	assert.True(t, cfg.Datasets.RefreshOnStart)

	src, ok := cfg.Datasets.Sources["constituencies"]
	require.True(t, ok)
	assert.Equal(t, "/data/constituencies.csv", src.Path)
	assert.Equal(t, time.Hour, src.RefreshInterval)
	assert.Equal(t, 5, src.MaxRetries)
	assert.Equal(t, 2*time.Second, src.RetryDelayBase)
	assert.Equal(t, time.Minute, src.Timeout)
}

func TestLoadRequiresSigningKey(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.signing_key")
}

func TestLoadRejectsUnknownStateBackend(t *testing.T) {
	path := writeConfig(t, `
jwt:
  signing_key: k
state:
  backend: etcd
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state.backend")
}

func TestLoadRequiresDatasetPath(t *testing.T) {
	path := writeConfig(t, `
jwt:
  signing_key: k
datasets:
  sources:
    results:
      refresh_interval: 1h
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datasets.sources.results.path")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
