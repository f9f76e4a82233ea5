package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/geekdle/internal/config"
	"github.com/robalobadob/geekdle/internal/database"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Port:           "0",
		AppEnv:         "test",
		DB:             database.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "data", "geekdle.db")},
		JWTExpiresDays: 1,
		CookieName:     "geekdle_token",
		AnonCookieName: "geekdle_anon",
		DailySalt:      "salt",
		RoundTTL:       time.Hour,
		RequestTimeout: time.Second,
		AdminUsername:  "root",
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	// The database file appears once wiring has reached the server.
	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.DB.Path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing catalog", func(c *config.Config) { c.CatalogFile = filepath.Join(t.TempDir(), "none.yaml") }, "load word catalog"},
		{"no database url", func(c *config.Config) { c.DB = database.Config{Driver: "postgres"} }, "open postgres database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			err := run(context.Background(), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
