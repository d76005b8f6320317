// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package config loads Mangashelf configuration.
//
// Configuration is layered with Koanf v2:
//  1. Defaults: built-in values from defaultConfig()
//  2. Config file: optional YAML (config.yaml or CONFIG_PATH)
//  3. Environment variables: MANGADEX_API_URL, JWT_SECRET, PORT, SMTP_HOST, ...
//
// Later layers override earlier ones. Only the variables listed in
// envMappings are read; anything else in the environment is ignored.
package config

import (
	"strings"
	"time"
)

// Environment names recognised by Server.Environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Backend names.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	DatabaseDriverBadger = "badger"
	DatabaseDriverMongo  = "mongo"

	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	MangaDex MangaDexConfig `koanf:"mangadex"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Email    EmailConfig    `koanf:"email"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// MangaDexConfig holds upstream API settings.
type MangaDexConfig struct {
	APIURL     string        `koanf:"api_url"`
	UploadsURL string        `koanf:"uploads_url"`
	UserAgent  string        `koanf:"user_agent"`
	Timeout    time.Duration `koanf:"timeout"`

	// MinDelay is the minimum gap between the starts of two upstream calls.
	MinDelay  time.Duration `koanf:"min_delay"`
	QueueSize int           `koanf:"queue_size"`

	DefaultLanguage string `koanf:"default_language"`

	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Backend         string        `koanf:"backend"` // memory or redis
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
	RedisPassword   string        `koanf:"redis_password"`
	RedisDB         int           `koanf:"redis_db"`
	RedisPrefix     string        `koanf:"redis_prefix"`
}

// DatabaseConfig selects and configures the user store.
type DatabaseConfig struct {
	Driver         string        `koanf:"driver"` // badger or mongo
	BadgerPath     string        `koanf:"badger_path"`
	BadgerInMemory bool          `koanf:"badger_in_memory"`
	MongoURI       string        `koanf:"mongo_uri"`
	MongoDatabase  string        `koanf:"mongo_database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// SecurityConfig holds token, session and request limiting settings.
type SecurityConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	// JWTExpiresIn accepts Go durations, bare seconds, or d/w suffixes ("7d").
	JWTExpiresIn string `koanf:"jwt_expires_in"`

	RefreshTTL   time.Duration `koanf:"refresh_ttl"`
	SessionStore string        `koanf:"session_store"` // memory or badger

	OTPTTL         time.Duration `koanf:"otp_ttl"`
	ResetTokenTTL  time.Duration `koanf:"reset_token_ttl"`
	ResendInterval time.Duration `koanf:"resend_interval"`

	MinPasswordEntropy float64 `koanf:"min_password_entropy"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// EmailConfig holds SMTP settings. Email is disabled when SMTPHost is empty.
type EmailConfig struct {
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	From         string `koanf:"from"`
	ClientURL    string `koanf:"client_url"`
}

// LoggingConfig holds logging settings. An empty Format is resolved from
// Server.Environment at startup.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == EnvProduction || env == "prod"
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == EnvDevelopment || env == "dev"
}

// EmailEnabled reports whether SMTP delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.Email.SMTPHost != ""
}

// AccessTokenTTL returns the parsed JWT lifetime. Validate guarantees it parses.
func (c *Config) AccessTokenTTL() time.Duration {
	d, err := ParseExpiry(c.Security.JWTExpiresIn)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// NeedsBadger reports whether any component stores data in BadgerDB.
func (c *Config) NeedsBadger() bool {
	return c.Database.Driver == DatabaseDriverBadger || c.Security.SessionStore == SessionStoreBadger
}
