// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tomtom215/mangashelf/internal/logging"
	"github.com/tomtom215/mangashelf/internal/metrics"
)

// redisOpTimeout bounds every Redis round trip. Cacher has no context
// parameter, and a slow cache must never be slower than the upstream call it saves.
const redisOpTimeout = 500 * time.Millisecond

// RedisConfig holds connection settings for RedisCache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisCache implements Cacher on top of Redis.
//
// Values are stored as bytes: []byte and string are written as-is, anything
// else is JSON encoded. Get always returns []byte. Redis failures are logged
// and degrade to a miss (Get) or a no-op (Set, Delete, Clear).
type RedisCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration

	statsMu sync.Mutex
	stats   Stats
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(cfg RedisConfig, ttl time.Duration) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisCacheWithClient(client, cfg.Prefix, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *goredis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisCache) key(k string) string {
	return r.prefix + k
}

// Get returns the stored bytes for key.
func (r *RedisCache) Get(key string) (interface{}, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logging.Warn().Err(err).Str("key", key).Msg("Redis cache get failed, treating as miss")
		}
		r.record(func(s *Stats) { s.Misses++ })
		metrics.CacheMisses.WithLabelValues(BackendRedis).Inc()
		return nil, false
	}

	r.record(func(s *Stats) { s.Hits++ })
	metrics.CacheHits.WithLabelValues(BackendRedis).Inc()
	return data, true
}

// Set stores value with the default TTL.
func (r *RedisCache) Set(key string, value interface{}) {
	r.SetWithTTL(key, value, r.ttl)
}

// SetWithTTL stores value with a custom TTL (SET key value PX ttl).
func (r *RedisCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	payload, err := encodeValue(value)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Redis cache value not encodable, skipping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Redis cache set failed")
	}
}

// Delete removes key.
func (r *RedisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Redis cache delete failed")
		return
	}
	if n > 0 {
		r.record(func(s *Stats) { s.Evictions += n })
		metrics.CacheEvictions.WithLabelValues(BackendRedis).Add(float64(n))
	}
}

// scanPattern matches every key starting with prefix, escaping glob
// metacharacters in the prefix itself.
func scanPattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}

// Clear deletes every key under the cache prefix using SCAN.
func (r *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*redisOpTimeout)
	defer cancel()

	var deleted int64
	iter := r.client.Scan(ctx, 0, scanPattern(r.prefix), 0).Iterator()
	for iter.Next(ctx) {
		n, err := r.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			logging.Warn().Err(err).Str("key", iter.Val()).Msg("Redis cache delete failed during clear")
			continue
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		logging.Warn().Err(err).Msg("Redis cache scan failed during clear")
	}

	if deleted > 0 {
		r.record(func(s *Stats) { s.Evictions += deleted })
		metrics.CacheEvictions.WithLabelValues(BackendRedis).Add(float64(deleted))
	}
}

// GetStats returns this process's view of hits, misses and evictions.
// TotalKeys is not tracked for Redis.
func (r *RedisCache) GetStats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return Stats{
		Hits:      r.stats.Hits,
		Misses:    r.stats.Misses,
		Evictions: r.stats.Evictions,
	}
}

// HitRate returns the cache hit rate as a percentage
func (r *RedisCache) HitRate() float64 {
	return hitRate(r.GetStats())
}

// Close closes the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) record(fn func(*Stats)) {
	r.statsMu.Lock()
	fn(&r.stats)
	r.statsMu.Unlock()
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
