package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Log        LogConfig
	Polymarket PolymarketConfig
	Cache      CacheConfig
	Refresh    RefreshConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"5001"`
	Host         string        `env:"SERVER_HOST" envDefault:"localhost"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"90s"`
	Addr         string        // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string `env:"DB_PATH" envDefault:"./data/polymarket_tax.db"`
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost"`
}

// LogConfig selects the log level and output format ("text" or "json").
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// PolymarketConfig holds the activity API settings.
// MaxOffset is the highest offset the API accepts; PageDelay spaces consecutive page requests.
type PolymarketConfig struct {
	BaseURL        string        `env:"POLYMARKET_BASE_URL" envDefault:"https://data-api.polymarket.com"`
	PageSize       int           `env:"POLYMARKET_PAGE_SIZE" envDefault:"500"`
	MaxOffset      int           `env:"POLYMARKET_MAX_OFFSET" envDefault:"3000"`
	MaxWindows     int           `env:"POLYMARKET_MAX_WINDOWS" envDefault:"200"`
	PageDelay      time.Duration `env:"POLYMARKET_PAGE_DELAY" envDefault:"50ms"`
	RequestTimeout time.Duration `env:"POLYMARKET_REQUEST_TIMEOUT" envDefault:"10s"`
	FetchTimeout   time.Duration `env:"POLYMARKET_FETCH_TIMEOUT" envDefault:"55s"`
}

// CacheConfig controls how long stored histories and computed results are reused.
type CacheConfig struct {
	HistoryTTL time.Duration `env:"HISTORY_TTL" envDefault:"15m"`
	ReportTTL  time.Duration `env:"REPORT_CACHE_TTL" envDefault:"15m"`
}

// RefreshConfig controls the scheduled re-fetch of stored wallets. An empty schedule disables it.
type RefreshConfig struct {
	Schedule    string `env:"REFRESH_SCHEDULE"`
	Concurrency int    `env:"REFRESH_CONCURRENCY" envDefault:"2"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks settings that would make history retrieval loop or misbehave.
func (c *Config) Validate() error {
	if c.Polymarket.PageSize <= 0 {
		return errors.New("POLYMARKET_PAGE_SIZE must be positive")
	}
	if c.Polymarket.MaxOffset < 0 {
		return errors.New("POLYMARKET_MAX_OFFSET cannot be negative")
	}
	if c.Polymarket.MaxWindows <= 0 {
		return errors.New("POLYMARKET_MAX_WINDOWS must be positive")
	}
	if c.Refresh.Concurrency <= 0 {
		return errors.New("REFRESH_CONCURRENCY must be positive")
	}
	return nil
}
