package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pmtracker/pmtracker/internal/secrets"
)

// Config holds all application configuration. It is loaded once at startup
// and passed into constructors as an immutable value.
type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseDSN            string
	WorkerDatabaseMaxConns int
	APIDatabaseMaxConns    int

	// Worker
	WorkerEnabled         bool
	CollectionIntervalSec int
	TrackedMarkets        int
	Sources               []string

	// Source APIs
	KalshiBaseURL        string
	PolymarketBaseURL    string
	KalshiMarketsRPS     float64
	PolymarketMarketsRPS float64

	// Query API
	APIHost string
	APIPort int

	// Metrics/Health
	HealthPort int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:            getEnv("ENVIRONMENT", "production"),
		DatabaseDSN:            secrets.GetOptionalSecret("DATABASE_DSN", ""),
		WorkerDatabaseMaxConns: getEnvInt("WORKER_DATABASE_MAX_CONNS", 5),
		APIDatabaseMaxConns:    getEnvInt("API_DATABASE_MAX_CONNS", 10),
		WorkerEnabled:          getEnvBool("WORKER_ENABLED", true),
		CollectionIntervalSec:  getEnvInt("COLLECTION_INTERVAL_SECONDS", 3600),
		TrackedMarkets:         getEnvInt("TRACKED_MARKETS", 10),
		Sources:                parseCSV(getEnv("SOURCES", "polymarket,kalshi")),
		KalshiBaseURL:          getEnv("KALSHI_BASE_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		PolymarketBaseURL:      getEnv("POLYMARKET_BASE_URL", "https://gamma-api.polymarket.com"),
		KalshiMarketsRPS:       getEnvFloat("KALSHI_MARKETS_RPS", 5.0),
		PolymarketMarketsRPS:   getEnvFloat("POLYMARKET_MARKETS_RPS", 5.0),
		APIHost:                getEnv("API_HOST", "0.0.0.0"),
		APIPort:                getEnvInt("API_PORT", 3000),
		HealthPort:             getEnvInt("HEALTH_PORT", 8080),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if c.CollectionIntervalSec <= 0 {
		return fmt.Errorf("COLLECTION_INTERVAL_SECONDS must be positive, got %d", c.CollectionIntervalSec)
	}
	if c.TrackedMarkets < 0 {
		return fmt.Errorf("TRACKED_MARKETS must not be negative, got %d", c.TrackedMarkets)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("SOURCES must name at least one source")
	}
	for _, source := range c.Sources {
		switch source {
		case "polymarket", "kalshi":
		default:
			return fmt.Errorf("invalid source: %s (valid values: polymarket, kalshi)", source)
		}
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT out of range: %d", c.APIPort)
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT out of range: %d", c.HealthPort)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
