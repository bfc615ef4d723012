/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore is a Store backed by Redis. When Redis is unreachable at
// startup the store degrades to a no-op so the cache keeps working without
// persistence.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, logger zerolog.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	storeLogger := logger.With().Str("component", "cache_store").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		storeLogger.Warn().Err(err).Msg("Redis unavailable, cache persistence disabled")
		return &RedisStore{logger: storeLogger}
	}

	storeLogger.Info().Str("addr", addr).Msg("Redis cache store initialized")
	return &RedisStore{client: client, logger: storeLogger}
}

// Put stores a snapshot blob. Snapshots carry their own expiry filtering, so
// no Redis TTL is set.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if s.client == nil {
		return nil
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

// Get reads a snapshot blob; ok is false when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
