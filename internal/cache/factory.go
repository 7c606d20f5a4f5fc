// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"time"
)

// Config selects and tunes the cache backend.
type Config struct {
	// Backend is "memory" or "redis".
	Backend string

	// RedisURL is required for the redis backend.
	RedisURL string

	// Prefix namespaces keys on shared backends.
	Prefix string

	DefaultTTL      time.Duration
	MaxItems        int
	CleanupInterval time.Duration
}

// DefaultConfig returns the memory backend with an hour TTL.
func DefaultConfig() Config {
	return Config{
		Backend:         "memory",
		DefaultTTL:      time.Hour,
		MaxItems:        10000,
		CleanupInterval: time.Minute,
	}
}

// New creates the configured cache backend. If Redis is configured but
// unreachable it logs the failure and falls back to the memory backend so
// the audit trail keeps working.
func New(cfg Config, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("cache backend %q requires a redis URL", cfg.Backend)
		}
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}
		c, err := NewRedisCache(opts)
		if err != nil {
			logger.Warn("redis cache unavailable, using memory cache", "error", err)
			return newMemory(cfg), nil
		}
		return c, nil
	case "", "memory":
		return newMemory(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func newMemory(cfg Config) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxItems:        cfg.MaxItems,
		CleanupInterval: cfg.CleanupInterval,
	})
}
