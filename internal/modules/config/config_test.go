package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaultsWhenFilesMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Service.PublicPort)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "instruments.db", cfg.Database.DSN)
	assert.Equal(t, 10*time.Second, cfg.Terminal.CallTimeout)
	assert.False(t, cfg.HasCredentials())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "values.yaml", `
service:
  host: 127.0.0.1
  public_port: 9000
  admin_port: 9001
terminal:
  bridge_url: ws://bridge:1/ws
  login: 42
  password: secret
  server: Demo-Server
  call_timeout: 3s
  symbol_cache_ttl: 0s
database:
  driver: postgres
  dsn: postgres://u:p@localhost:5432/db
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.PublicAddr())
	assert.Equal(t, "127.0.0.1:9001", cfg.AdminAddr())
	assert.Equal(t, "ws://bridge:1/ws", cfg.Terminal.BridgeURL)
	assert.Equal(t, 3*time.Second, cfg.Terminal.CallTimeout)
	assert.Equal(t, time.Duration(0), cfg.Terminal.SymbolCacheTTL)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.HasCredentials())
}

func TestEnvOverridesYAMLAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "values.yaml", "terminal:\n  server: FromYAML\n")
	envFile := writeFile(t, dir, ".env", "MT5_SERVER=FromDotEnv\nMT5_LOGIN=7\nTELEGRAM_CHAT_ID=-100\n")

	t.Setenv("MT5_PASSWORD", "pw")
	t.Setenv("JAEGER_HOST", "jaeger")
	t.Setenv("JAEGER_PORT", "6832")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "FromDotEnv", cfg.Terminal.Server)
	assert.Equal(t, int64(7), cfg.Terminal.Login)
	assert.Equal(t, "pw", cfg.Terminal.Password)
	assert.Equal(t, int64(-100), cfg.Telegram.ChatID)
	assert.Equal(t, "jaeger", cfg.Tracing.Host)
	assert.Equal(t, 6832, cfg.Tracing.Port)

	t.Setenv("MT5_SERVER", "FromEnv")
	cfg, err = Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "FromEnv", cfg.Terminal.Server)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	t.Run("driver", func(t *testing.T) {
		path := writeFile(t, dir, "driver.yaml", "database:\n  driver: mongo\n")
		_, err := Load(path, "")
		assert.Error(t, err)
	})

	t.Run("login", func(t *testing.T) {
		t.Setenv("MT5_LOGIN", "abc")
		_, err := Load(filepath.Join(dir, "missing.yaml"), "")
		assert.Error(t, err)
	})
}
