package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
env: prod
log_level: warn
http:
  addr: ":9090"
  read_timeout: 5s
database:
  dsn: postgres://tp:tp@localhost:5432/teampulse
cache:
  backend: redis
  redis_addr: localhost:6379
session:
  cookie_name: tp_session
  ttl: 12h
  secure: true
auth:
  state_ttl: 5m
  elevated_domains:
    - teampulse.dev
slack:
  client_id: cid
  client_secret: secret
  redirect_url: https://app.example.com/v1/auth/callback
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout.Std())
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL.Std())
	assert.Equal(t, 5*time.Minute, cfg.Auth.StateTTL.Std())
	assert.Equal(t, []string{"teampulse.dev"}, cfg.Auth.ElevatedDomains)
	// Defaults que el YAML no toca.
	assert.Equal(t, 5*time.Minute, cfg.Auth.GCInterval.Std())
	assert.Equal(t, "/admin/workspaces", cfg.Auth.AdminLandingPath)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEAMPULSE_ENV", "dev")
	t.Setenv("TEAMPULSE_DATABASE_DSN", "postgres://override")
	t.Setenv("TEAMPULSE_ELEVATED_DOMAINS", "a.com, b.com")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "postgres://override", cfg.Database.DSN)
	assert.Equal(t, []string{"a.com", "b.com"}, cfg.Auth.ElevatedDomains)
}

func TestValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "env: dev\n"))
	assert.Error(t, err, "sin DSN ni credenciales de Slack debe fallar")

	_, err = Load(writeConfig(t, `
database:
  dsn: postgres://x
cache:
  backend: memcached
slack:
  client_id: a
  client_secret: b
  redirect_url: c
`))
	assert.Error(t, err, "backend de cache desconocido debe fallar")
}

func TestInvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
http:
  read_timeout: soon
database:
  dsn: postgres://x
slack:
  client_id: a
  client_secret: b
  redirect_url: c
`))
	assert.Error(t, err)
}
