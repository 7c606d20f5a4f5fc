// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"OCMS_AUDIT_DB_PATH" envDefault:"./data/audit.db"`
	ServerHost string `env:"OCMS_AUDIT_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OCMS_AUDIT_SERVER_PORT" envDefault:"8090"`
	Env        string `env:"OCMS_AUDIT_ENV" envDefault:"development"`
	LogLevel   string `env:"OCMS_AUDIT_LOG_LEVEL" envDefault:"info"`

	// Query defaults
	PageSize int `env:"OCMS_AUDIT_PAGE_SIZE" envDefault:"25"` // Default events per admin page

	// Retention configuration
	RetentionDays int    `env:"OCMS_AUDIT_RETENTION_DAYS" envDefault:"0"` // 0 keeps events forever
	RetentionSpec string `env:"OCMS_AUDIT_RETENTION_SPEC"`                // Cron spec override for cleanup

	// Recording configuration
	ContentTypes    []string `env:"OCMS_AUDIT_CONTENT_TYPES" envSeparator:","` // Empty records all content types
	LogEventsToDB   bool     `env:"OCMS_AUDIT_LOG_EVENTS" envDefault:"true"`   // Tee WARN+ logs into the trail
	ClientIPEnabled bool     `env:"OCMS_AUDIT_CLIENT_IP" envDefault:"true"`    // Record client address and agent

	// Cache configuration
	RedisURL    string `env:"OCMS_AUDIT_REDIS_URL"`                              // Optional Redis URL for the diff cache
	CachePrefix string `env:"OCMS_AUDIT_CACHE_PREFIX" envDefault:"ocms_audit:"`  // Redis key prefix
	CacheTTL    int    `env:"OCMS_AUDIT_CACHE_TTL" envDefault:"3600"`            // Diff cache TTL in seconds
	CacheMax    int    `env:"OCMS_AUDIT_CACHE_MAX_SIZE" envDefault:"10000"`      // Max memory cache entries

	// Rate limiting for the admin API
	RateLimitRPS   float64 `env:"OCMS_AUDIT_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"OCMS_AUDIT_RATE_LIMIT_BURST" envDefault:"20"`

	// GeoIP configuration
	GeoIPDBPath string `env:"OCMS_AUDIT_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
}

// IsDevelopment returns true when running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the listen address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true when Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true when a GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// Retention returns the retention period as a duration; 0 disables cleanup.
func (c Config) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// CacheTTLDuration returns the diff cache TTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	if c.CacheTTL <= 0 {
		return time.Hour
	}
	return time.Duration(c.CacheTTL) * time.Second
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("OCMS_AUDIT_SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("OCMS_AUDIT_PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("OCMS_AUDIT_RETENTION_DAYS must not be negative, got %d", cfg.RetentionDays)
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("OCMS_AUDIT_RATE_LIMIT_RPS must be positive, got %g", cfg.RateLimitRPS)
	}

	return cfg, nil
}
