/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	DBBackend DatabaseBackend
	DBDSN     string

	// Search result cache
	CacheMaxEntries  int
	CacheTTL         time.Duration
	CacheMaxSizeMB   int
	CachePersistent  bool
	CacheStorageKey  string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Per-source result cap
	SearchLimit int
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("BRAGI_ENV", "development"),
		HTTPBind:    getEnv("BRAGI_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("BRAGI_HTTP_PORT", 8080),

		DBBackend: DatabaseBackend(getEnv("BRAGI_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("BRAGI_DB_DSN", "bragi.db"),

		CacheMaxEntries: getEnvInt("BRAGI_CACHE_MAX_ENTRIES", 200),
		CacheTTL:        time.Duration(getEnvInt("BRAGI_CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheMaxSizeMB:  getEnvInt("BRAGI_CACHE_MAX_SIZE_MB", 8),
		CachePersistent: getEnvBool("BRAGI_CACHE_PERSISTENT", false),
		CacheStorageKey: getEnv("BRAGI_CACHE_STORAGE_KEY", "bragi:cache:search"),
		RedisAddr:       getEnv("BRAGI_REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("BRAGI_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("BRAGI_REDIS_DB", 0),

		SearchLimit: getEnvInt("BRAGI_SEARCH_LIMIT", 50),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("BRAGI_DB_DSN must be provided")
	}

	if cfg.CacheMaxEntries <= 0 {
		return nil, fmt.Errorf("BRAGI_CACHE_MAX_ENTRIES must be positive")
	}

	if cfg.CachePersistent && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("BRAGI_REDIS_ADDR must be set when cache persistence is enabled")
	}

	return cfg, nil
}

// CacheMaxSizeBytes returns the configured cache size cap in bytes.
// A value of 0 means unbounded.
func (c *Config) CacheMaxSizeBytes() int64 {
	if c == nil || c.CacheMaxSizeMB <= 0 {
		return 0
	}
	return int64(c.CacheMaxSizeMB) * 1024 * 1024
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}
