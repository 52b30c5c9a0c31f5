package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxSessions)
	assert.Equal(t, "/tmp/billtext_downloads", cfg.Download.Dir)
	assert.Equal(t, 120*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Download.Settle)
	assert.Equal(t, 5*time.Second, cfg.Cleanup.Delay)
	assert.Equal(t, "native", cfg.Extract.Engine)
	assert.Equal(t, "memory", cfg.Cleanup.Store)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "billtext.yaml", `
server:
  port: 9090
download:
  dir: /var/lib/billtext
  timeout: 90s
extract:
  engine: mupdf
cleanup:
  store: redis
  redis:
    addr: redis:6379
`)
	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/billtext", cfg.Download.Dir)
	assert.Equal(t, 90*time.Second, cfg.Download.Timeout)
	assert.Equal(t, "mupdf", cfg.Extract.Engine)
	assert.Equal(t, "redis", cfg.Cleanup.Store)
	assert.Equal(t, "redis:6379", cfg.Cleanup.Redis.Addr)
	// Untouched keys keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Download.Settle)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "billtext.yaml", "server:\n  port: 9090\ndownload:\n  dir: /from/yaml\n")
	envFile := writeFile(t, "test.env", "DOWNLOAD_DIR=/from/dotenv\nLOG_LEVEL=debug\n")

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("MAX_SESSIONS", "4")
	t.Setenv("DOWNLOAD_TIMEOUT", "60")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CHROME_NO_SANDBOX", "true")
	// Values loaded from the .env file must not leak into other tests.
	t.Setenv("DOWNLOAD_DIR", "")
	os.Unsetenv("DOWNLOAD_DIR")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/from/dotenv", cfg.Download.Dir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Server.MaxSessions)
	assert.Equal(t, time.Minute, cfg.Download.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Portal.NoSandbox)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("DOWNLOAD_TIMEOUT", "soon")

	_, err := Load("", noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "DOWNLOAD_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"engine", func(c *Config) { c.Extract.Engine = "ocr" }},
		{"store", func(c *Config) { c.Cleanup.Store = "s3" }},
		{"redis addr", func(c *Config) { c.Cleanup.Store = "redis"; c.Cleanup.Redis.Addr = "" }},
		{"download dir", func(c *Config) { c.Download.Dir = "" }},
		{"download timeout", func(c *Config) { c.Download.Timeout = 0 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"attempts", func(c *Config) { c.Cleanup.MaxAttempts = 0 }},
		{"sessions", func(c *Config) { c.Server.MaxSessions = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
