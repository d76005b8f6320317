// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults with secret", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.Security.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "at least 32"},
		{"placeholder secret", func(c *Config) { c.Security.JWTSecret = "changeme-changeme-changeme-changeme" }, "placeholder"},
		{"bad expiry", func(c *Config) { c.Security.JWTExpiresIn = "forever" }, "JWT_EXPIRES_IN"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "PORT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "qa" }, "NODE_ENV"},
		{"bad upstream scheme", func(c *Config) { c.MangaDex.APIURL = "ftp://api.mangadex.org" }, "scheme"},
		{"empty upstream", func(c *Config) { c.MangaDex.APIURL = "" }, "MANGADEX_API_URL is required"},
		{"zero queue", func(c *Config) { c.MangaDex.QueueSize = 0 }, "MANGADEX_QUEUE_SIZE"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "CACHE_BACKEND"},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = CacheBackendRedis
			c.Cache.RedisAddr = ""
		}, "REDIS_ADDR"},
		{"redis with defaults", func(c *Config) { c.Cache.Backend = CacheBackendRedis }, ""},
		{"redis without prefix", func(c *Config) {
			c.Cache.Backend = CacheBackendRedis
			c.Cache.RedisPrefix = ""
		}, "REDIS_PREFIX"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "DATABASE_DRIVER"},
		{"mongo without uri", func(c *Config) {
			c.Database.Driver = DatabaseDriverMongo
			c.Database.MongoURI = ""
		}, "MONGODB_URI"},
		{"wildcard cors in production", func(c *Config) {
			c.Server.Environment = EnvProduction
			c.Security.CORSOrigins = []string{"*"}
		}, "wildcard"},
		{"wildcard cors in development", func(c *Config) { c.Security.CORSOrigins = []string{"*"} }, ""},
		{"rate limit window too small", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"smtp without from", func(c *Config) {
			c.Email.SMTPHost = "smtp.local"
			c.Email.From = ""
		}, "EMAIL_FROM"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestNeedsBadger(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if !cfg.NeedsBadger() {
		t.Error("default config stores users in badger")
	}

	cfg.Database.Driver = DatabaseDriverMongo
	cfg.Security.SessionStore = SessionStoreMemory
	if cfg.NeedsBadger() {
		t.Error("mongo users with memory sessions should not need badger")
	}

	cfg.Security.SessionStore = SessionStoreBadger
	if !cfg.NeedsBadger() {
		t.Error("badger sessions need badger")
	}
}
