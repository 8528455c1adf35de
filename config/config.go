package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingDatabaseURL is returned by Validate when no store credentials are configured
var ErrMissingDatabaseURL = errors.New("DATABASE_URL (or SUPABASE_DB_URL) is not set")

// Config holds all application-level configuration
type Config struct {
	// Database
	DatabaseURL  string
	EnsureSchema bool
	DryRun       bool

	// Browser
	Headless   bool
	ChromePath string
	NavTimeout time.Duration
	NavRetries int

	// Pacing
	DealerDelay time.Duration
	PauseMin    time.Duration
	PauseMax    time.Duration
	RunTimeout  time.Duration

	// Output
	RawCSVPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from a .env file (if present) and environment
// variables, falling back to defaults
func Load() *Config {
	// a missing .env is the normal case in production
	_ = godotenv.Load()

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		dbURL = getEnv("SUPABASE_DB_URL", "")
	}

	return &Config{
		DatabaseURL:  dbURL,
		EnsureSchema: getEnvBool("ENSURE_SCHEMA", true),
		DryRun:       getEnvBool("DRY_RUN", false),
		Headless:     getEnvBool("HEADLESS", true),
		ChromePath:   getEnv("CHROME_PATH", ""),
		NavTimeout:   time.Duration(getEnvInt("NAV_TIMEOUT_SEC", 60)) * time.Second,
		NavRetries:   getEnvInt("NAV_RETRIES", 2),
		DealerDelay:  time.Duration(getEnvInt("DEALER_DELAY_MS", 3000)) * time.Millisecond,
		PauseMin:     time.Duration(getEnvInt("PAUSE_MIN_MS", 2000)) * time.Millisecond,
		PauseMax:     time.Duration(getEnvInt("PAUSE_MAX_MS", 5000)) * time.Millisecond,
		RunTimeout:   time.Duration(getEnvInt("RUN_TIMEOUT_MIN", 120)) * time.Minute,
		RawCSVPath:   getEnv("RAW_CSV_PATH", "output/raw_listings.csv"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks the settings the run cannot start without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrMissingDatabaseURL
	}
	if c.NavRetries < 1 {
		c.NavRetries = 1
	}
	if c.PauseMax < c.PauseMin {
		c.PauseMax = c.PauseMin
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
