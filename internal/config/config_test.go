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
	path := filepath.Join(t.TempDir(), "passportview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0:8092", cfg.Server.Address())
	assert.Equal(t, "bg", cfg.Backend.DefaultLanguage)
	assert.Equal(t, "en", cfg.Backend.InternationalLanguage)
	assert.Equal(t, 10*time.Second, cfg.Backend.RequestTimeout())
	assert.Equal(t, 10*time.Minute, cfg.Access.TokenTTL())
	assert.Equal(t, 8, cfg.Render.MaxLookups)
	assert.Equal(t, "0 2 * * *", cfg.Database.CleanupSchedule)
	assert.Nil(t, cfg.Validate(), "defaults must validate")
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
backend:
  base_url: https://passport.example.org
  default_language: en
render:
  max_lookups: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://passport.example.org", cfg.Backend.BaseURL)
	assert.Equal(t, "en", cfg.Backend.DefaultLanguage)
	assert.Equal(t, 2, cfg.Render.MaxLookups)
	// Unset values keep their defaults
	assert.Equal(t, 10, cfg.Backend.Timeout)
	assert.Equal(t, "./data/passportview.db", cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PV_TEST_BACKEND", "http://backend:8000")
	t.Setenv("PV_TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"url: ${PV_TEST_BACKEND}", "url: http://backend:8000"},
		{"url: ${PV_TEST_UNSET:-http://fallback}", "url: http://fallback"},
		{"url: ${PV_TEST_EMPTY:-x}", "url: x"},
		{"url: ${PV_TEST_UNSET}", "url: "},
		{"secret: $2a$10$abc", "secret: $2a$10$abc"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.input))
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PV_SERVER_PORT", "7070")
	t.Setenv("PV_SERVER_DEBUG", "yes")
	t.Setenv("PV_BACKEND_URL", "http://override:1")
	t.Setenv("PV_ACCESS_REQUIRE_TOKEN", "1")
	t.Setenv("PV_LOG_LEVEL", "debug")
	t.Setenv("PV_PROMETHEUS_PORT", "not-a-number")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "http://override:1", cfg.Backend.BaseURL)
	assert.True(t, cfg.Access.RequireToken)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unparseable ints are ignored
	assert.Equal(t, 9090, cfg.Telemetry.Prometheus.Port)
}

func TestWriteAndExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	assert.False(t, Exists(path))

	cfg := Default()
	cfg.Backend.BaseURL = "http://written:8000"
	require.NoError(t, Write(path, cfg))
	assert.True(t, Exists(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# PassportView configuration")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://written:8000", loaded.Backend.BaseURL)
}
