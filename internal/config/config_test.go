package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origURL := os.Getenv("NPM_API_URL")
	defer os.Setenv("NPM_API_URL", origURL)

	os.Setenv("NPM_API_URL", "http://npm.internal:81")
	os.Setenv("RETRY_MAX_ATTEMPTS", "5")
	os.Setenv("RETRY_EXPONENTIAL", "false")
	os.Setenv("ARCHIVE_ENABLED", "true")
	defer func() {
		os.Unsetenv("RETRY_MAX_ATTEMPTS")
		os.Unsetenv("RETRY_EXPONENTIAL")
		os.Unsetenv("ARCHIVE_ENABLED")
	}()

	cfg := Load()

	assert.Equal(t, "http://npm.internal:81", cfg.Upstream.BaseURL)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.False(t, cfg.Retry.Exponential)
	assert.True(t, cfg.Archive.Enabled)
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("RETRY_MAX_ATTEMPTS")

	cfg := Load()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250, cfg.Retry.InitialBackoffMs)
	assert.True(t, cfg.Retry.Exponential)
	assert.Equal(t, "*", cfg.CORS.AllowOrigins)
}

func TestRedacted(t *testing.T) {
	cfg := &AppConfig{
		Database: DatabaseConfig{Host: "db", Password: "hunter2"},
		Archive:  ArchiveConfig{AccessKey: "AKIA", SecretKey: "s3cr3t"},
	}

	red := cfg.Redacted()

	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Archive.AccessKey)
	assert.Equal(t, "***", red.Archive.SecretKey)
	assert.Equal(t, "db", red.Database.Host)
	// Original is untouched
	assert.Equal(t, "hunter2", cfg.Database.Password)
}

func TestRedactedEmptySecrets(t *testing.T) {
	cfg := &AppConfig{}
	red := cfg.Redacted()
	assert.Empty(t, red.Database.Password)
	assert.Empty(t, red.Archive.SecretKey)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
