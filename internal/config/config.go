package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	PriceFeed PriceFeedConfig
	Secrets   SecretsConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// PriceFeedConfig holds the external price provider configuration. An empty
// BaseURL disables the feed; refresh and backfill endpoints then report an
// error while the rest of the API keeps working.
type PriceFeedConfig struct {
	BaseURL string
	// RefreshSchedule is a cron expression for the scheduled bulk refresh.
	// Default runs weekdays at 18:00, after market close.
	RefreshSchedule string
	// CacheTTLMinutes controls how long the provider's listings are reused
	// before a new fetch.
	CacheTTLMinutes int
}

// SecretsConfig holds encryption configuration. FernetKey encrypts stored
// secrets such as the price feed token; when empty, secrets are stored as
// plain text.
type SecretsConfig struct {
	FernetKey string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/optionfolio.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(
				getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost"), ","),
		},
		PriceFeed: PriceFeedConfig{
			BaseURL:         getEnv("PRICE_FEED_URL", ""),
			RefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "0 18 * * 1-5"),
			CacheTTLMinutes: 15,
		},
		Secrets: SecretsConfig{
			FernetKey: getEnv("FERNET_KEY", ""),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
