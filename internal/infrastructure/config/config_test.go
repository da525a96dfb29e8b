package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livepen/internal/domain/relay"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.Server.Compression)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Relay config
	assert.Equal(t, relay.DefaultSerializerConfig(), cfg.Serializer())
	assert.Equal(t, relay.DefaultCapacity, cfg.Relay.LogCapacity)

	// Preview config
	assert.True(t, cfg.Preview.Headless)
	assert.Equal(t, 2*time.Second, cfg.Renderer().Timeout)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                 "9000",
		"HOST":                 "127.0.0.1",
		"LOG_LEVEL":            "debug",
		"LOG_DEV":              "true",
		"RATE_LIMIT_RPS":       "500",
		"RATE_LIMIT_BURST":     "1000",
		"RATE_LIMIT_ENABLED":   "false",
		"RELAY_MAX_DEPTH":      "5",
		"RELAY_DENY_KEYS":      "window,secret",
		"PREVIEW_TIMEOUT":      "750ms",
		"SESSION_IDLE_TIMEOUT": "1h",
		"UPLOAD_MAX_BYTES":     "4096",
		"WS_ALLOWED_ORIGINS":   "http://localhost:3000,https://pen.example.com",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	assert.Equal(t, 5, cfg.Serializer().MaxDepth)
	assert.Equal(t, []string{"window", "secret"}, cfg.Serializer().DenyKeys)
	assert.Equal(t, 750*time.Millisecond, cfg.Renderer().Timeout)
	assert.Equal(t, time.Hour, cfg.Sessions().IdleTimeout)
	assert.Equal(t, int64(4096), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"http://localhost:3000", "https://pen.example.com"}, cfg.WebSocket.AllowedOrigins)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 256, cfg.Session.Max)
}

func TestLoadInvalidEnvironment(t *testing.T) {
	t.Setenv("PREVIEW_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
	assert.Equal(t, Default().Preview.Timeout, LoadOrDefault().Preview.Timeout)
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livepen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
relay:
  max_length: 500
preview:
  timeout: 3s
  headless: false
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 500, cfg.Relay.MaxLength)
	assert.Equal(t, 3*time.Second, cfg.Renderer().Timeout)
	assert.False(t, cfg.Preview.Headless)
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livepen.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[session]
max = 3
idle_timeout = "10m"

[websocket]
allowed_origins = ["http://localhost:5173"]
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Sessions().MaxSessions)
	assert.Equal(t, 10*time.Minute, cfg.Sessions().IdleTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.WebSocket.AllowedOrigins)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livepen.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"7000\"\n"), 0o600))
	t.Setenv("PORT", "7100")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Server.Port)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "livepen.ini")
	require.NoError(t, os.WriteFile(ini, []byte("port=1"), 0o600))
	_, err = LoadFile(ini)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[session\nmax ="), 0o600))
	_, err = LoadFile(broken)
	assert.Error(t, err)
}
