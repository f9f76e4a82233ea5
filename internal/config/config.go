// internal/config/config.go
//
// Process configuration from the environment (and an optional .env file).
// Every setting has a development default; Validate tightens the rules for
// APP_ENV=production.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/robalobadob/geekdle/internal/database"
)

// DevJWTSecret is used when JWT_SECRET is unset outside production.
const DevJWTSecret = "dev_secret_change_me"

// Config holds all server settings.
type Config struct {
	Port           string
	LogLevel       string
	AppEnv         string
	DB             database.Config
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	AnonCookieName string
	ClientOrigin   string
	DailySalt      string
	CatalogFile    string
	GeminiAPIKey   string
	GeminiModel    string
	RoundTTL       time.Duration
	RequestTimeout time.Duration
	AdminUsername  string
}

// Production reports whether APP_ENV is "production".
func (c *Config) Production() bool { return strings.EqualFold(c.AppEnv, "production") }

// TokenTTL is the session lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}

// LoadDotEnv reads .env into the environment if present; existing variables win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5175"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppEnv:   getEnv("APP_ENV", "development"),
		DB: database.Config{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "./data/geekdle.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiresDays: getInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "geekdle_token"),
		AnonCookieName: getEnv("ANON_COOKIE_NAME", "geekdle_anon"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DailySalt:      getEnv("DAILY_SALT", "geekdle"),
		CatalogFile:    os.Getenv("WORDS_CATALOG_FILE"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    os.Getenv("GEMINI_MODEL"),
		RoundTTL:       getDuration("ROUND_TTL", 6*time.Hour),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
		AdminUsername:  os.Getenv("ADMIN_USERNAME"),
	}
}

// Validate checks the configuration and fills the development JWT secret.
func (c *Config) Validate() error {
	var errs []error
	if _, err := database.DialectFor(c.DB.Driver); err != nil {
		errs = append(errs, err)
	}
	if c.JWTSecret == "" {
		if c.Production() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			c.JWTSecret = DevJWTSecret
		}
	}
	if c.JWTExpiresDays <= 0 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRES_DAYS must be positive, got %d", c.JWTExpiresDays))
	}
	if c.RoundTTL <= 0 {
		errs = append(errs, errors.New("ROUND_TTL must be positive"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	return errors.Join(errs...)
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getDuration accepts Go durations ("90m") or whole seconds ("5400").
func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
