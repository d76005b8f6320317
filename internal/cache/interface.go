// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package cache provides the response cache that sits in front of MangaDex.
//
// Two backends implement Cacher: the in-memory TTL Cache (default) and
// RedisCache for deployments that run several gateway replicas. A miss is
// always (nil, false), never an error.
package cache

import (
	"fmt"
	"time"
)

// Backend names, also used as the cache_type metric label.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cacher defines the interface for cache implementations.
//
//	var c cache.Cacher = cache.New(5 * time.Minute)
//	c.Set("key", value)
//	if val, ok := c.Get("key"); ok {
//	    // use val
//	}
type Cacher interface {
	// Get returns the value and true if found and not expired.
	Get(key string) (interface{}, bool)

	// Set stores a value with the default TTL.
	Set(key string, value interface{})

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value interface{}, ttl time.Duration)

	Delete(key string)
	Clear()

	GetStats() Stats
	HitRate() float64

	// Close releases background resources (sweeper, connections).
	Close() error
}

// Config selects and configures a Cacher.
type Config struct {
	Backend         string
	TTL             time.Duration
	CleanupInterval time.Duration
	Redis           RedisConfig
}

// NewCacher builds the configured backend. Redis connectivity is checked
// up front so a misconfigured deployment fails at startup.
func NewCacher(cfg Config) (Cacher, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return New(cfg.TTL, WithCleanupInterval(cfg.CleanupInterval)), nil
	case BackendRedis:
		return NewRedisCache(cfg.Redis, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

var (
	_ Cacher = (*Cache)(nil)
	_ Cacher = (*RedisCache)(nil)
)
