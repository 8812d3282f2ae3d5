package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Shuttle   ShuttleConfig
	Media     MediaConfig
	Admin     AdminConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ShuttleConfig holds the boundary service configuration.
type ShuttleConfig struct {
	Root         string        `envconfig:"SHUTTLE_ROOT" default:"/storage"`
	Socket       string        `envconfig:"SHUTTLE_SOCKET" default:"/tmp/fileshuttle.sock"`
	HealthSocket string        `envconfig:"SHUTTLE_HEALTH_SOCKET" default:"/tmp/fileshuttle-health.sock"`
	IdleTimeout  time.Duration `envconfig:"SHUTTLE_IDLE_TIMEOUT" default:"10s"`
}

// MediaConfig holds media index and thumbnail cache configuration. A zero
// RescanInterval turns off periodic rescans while serving.
type MediaConfig struct {
	IndexDir       string        `envconfig:"MEDIA_INDEX_DIR" default:"/tmp/fileshuttle/index"`
	ThumbDir       string        `envconfig:"MEDIA_THUMB_DIR" default:"/tmp/fileshuttle/thumbs"`
	ThumbSize      int           `envconfig:"MEDIA_THUMB_SIZE" default:"512"`
	Exclude        []string      `envconfig:"MEDIA_EXCLUDE" default:"**/.*/**"`
	RescanInterval time.Duration `envconfig:"MEDIA_RESCAN_INTERVAL" default:"5m"`
}

// AdminConfig holds the admin HTTP server configuration. An empty address
// disables the server.
type AdminConfig struct {
	Addr string `envconfig:"ADMIN_ADDR" default:"127.0.0.1:9090"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds admin rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Shuttle: ShuttleConfig{
			Root:         "/storage",
			Socket:       "/tmp/fileshuttle.sock",
			HealthSocket: "/tmp/fileshuttle-health.sock",
			IdleTimeout:  10 * time.Second,
		},
		Media: MediaConfig{
			IndexDir:       "/tmp/fileshuttle/index",
			ThumbDir:       "/tmp/fileshuttle/thumbs",
			ThumbSize:      512,
			Exclude:        []string{"**/.*/**"},
			RescanInterval: 5 * time.Minute,
		},
		Admin: AdminConfig{
			Addr: "127.0.0.1:9090",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Shuttle.Root == "" {
		return fmt.Errorf("SHUTTLE_ROOT must not be empty")
	}
	if c.Shuttle.Socket == "" {
		return fmt.Errorf("SHUTTLE_SOCKET must not be empty")
	}
	if c.Shuttle.IdleTimeout <= 0 {
		return fmt.Errorf("SHUTTLE_IDLE_TIMEOUT must be positive, got %s", c.Shuttle.IdleTimeout)
	}
	if c.Media.ThumbSize <= 0 {
		return fmt.Errorf("MEDIA_THUMB_SIZE must be positive, got %d", c.Media.ThumbSize)
	}
	if c.Media.RescanInterval < 0 {
		return fmt.Errorf("MEDIA_RESCAN_INTERVAL must not be negative, got %s", c.Media.RescanInterval)
	}
	return nil
}
