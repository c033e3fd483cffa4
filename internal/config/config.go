// Package config reads service configuration from the environment,
// loading a local .env file first when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the service. All values have working
// defaults; only APP_TOKEN changes behavior by its absence (the API
// runs open when it is unset).
type Config struct {
	Addr         string
	ProfilesFile string
	AppToken     string

	PageBudget int
	CacheTTL   time.Duration

	FetchMaxAttempts    int
	FetchConnectTimeout time.Duration
	FetchReadTimeout    time.Duration
}

// Load builds the Config from the environment. A missing .env file is
// not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:         getEnv("ADDR", ":8080"),
		ProfilesFile: getEnv("PROFILES_FILE", "company_profiles.json"),
		AppToken:     os.Getenv("APP_TOKEN"),

		PageBudget: getEnvInt("PAGE_BUDGET", 4),
		CacheTTL:   getEnvDuration("CACHE_TTL", 30*time.Minute),

		FetchMaxAttempts:    getEnvInt("FETCH_MAX_ATTEMPTS", 3),
		FetchConnectTimeout: getEnvDuration("FETCH_CONNECT_TIMEOUT", 5*time.Second),
		FetchReadTimeout:    getEnvDuration("FETCH_READ_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
