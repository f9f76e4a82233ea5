package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "LOG_LEVEL", "APP_ENV", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "JWT_SECRET",
	"JWT_EXPIRES_DAYS", "COOKIE_NAME", "ANON_COOKIE_NAME", "CLIENT_ORIGIN", "DAILY_SALT",
	"WORDS_CATALOG_FILE", "GEMINI_API_KEY", "GEMINI_MODEL", "ROUND_TTL", "REQUEST_TIMEOUT",
	"ADMIN_USERNAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c := Load()
	assert.Equal(t, "5175", c.Port)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "sqlite", c.DB.Driver)
	assert.Equal(t, "./data/geekdle.db", c.DB.Path)
	assert.Equal(t, 14, c.JWTExpiresDays)
	assert.Equal(t, 14*24*time.Hour, c.TokenTTL())
	assert.Equal(t, "geekdle_token", c.CookieName)
	assert.Equal(t, 6*time.Hour, c.RoundTTL)
	assert.False(t, c.Production())

	require.NoError(t, c.Validate())
	assert.Equal(t, DevJWTSecret, c.JWTSecret)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/geekdle")
	t.Setenv("JWT_EXPIRES_DAYS", "3")
	t.Setenv("ROUND_TTL", "90m")
	t.Setenv("REQUEST_TIMEOUT", "30")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GEMINI_API_KEY", "key")

	c := Load()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "postgres", c.DB.Driver)
	assert.Equal(t, "postgres://localhost/geekdle", c.DB.URL)
	assert.Equal(t, 3*24*time.Hour, c.TokenTTL())
	assert.Equal(t, 90*time.Minute, c.RoundTTL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.True(t, c.Production())
	assert.Equal(t, "key", c.GeminiAPIKey)
	require.NoError(t, c.Validate())
}

func TestLoadBadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_EXPIRES_DAYS", "two weeks")
	t.Setenv("ROUND_TTL", "soon")
	c := Load()
	assert.Equal(t, 14, c.JWTExpiresDays)
	assert.Equal(t, 6*time.Hour, c.RoundTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"production needs secret", func(c *Config) { c.AppEnv = "production" }, "JWT_SECRET"},
		{"unknown driver", func(c *Config) { c.DB.Driver = "oracle" }, "oracle"},
		{"bad expiry", func(c *Config) { c.JWTExpiresDays = 0 }, "JWT_EXPIRES_DAYS"},
		{"bad ttl", func(c *Config) { c.RoundTTL = -time.Second }, "ROUND_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			c := Load()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("DAILY_SALT"))
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DAILY_SALT=pepper\n"), 0o600))

	LoadDotEnv(path)
	t.Cleanup(func() { _ = os.Unsetenv("DAILY_SALT") })
	assert.Equal(t, "pepper", Load().DailySalt)
}
