// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateMangaDex,
		c.validateCache,
		c.validateDatabase,
		c.validateSecurity,
		c.validateEmail,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	switch strings.ToLower(c.Server.Environment) {
	case EnvDevelopment, "dev", EnvStaging, EnvProduction, "prod", "test":
	default:
		return fmt.Errorf("NODE_ENV must be one of: development, staging, production, test; got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateMangaDex() error {
	if c.MangaDex.APIURL == "" {
		return fmt.Errorf("MANGADEX_API_URL is required")
	}
	if err := validateHTTPURL(c.MangaDex.APIURL, "MANGADEX_API_URL"); err != nil {
		return err
	}
	if c.MangaDex.UploadsURL != "" {
		if err := validateHTTPURL(c.MangaDex.UploadsURL, "MANGADEX_UPLOADS_URL"); err != nil {
			return err
		}
	}
	if c.MangaDex.MinDelay < 0 {
		return fmt.Errorf("MANGADEX_MIN_DELAY must not be negative")
	}
	if c.MangaDex.QueueSize < 1 {
		return fmt.Errorf("MANGADEX_QUEUE_SIZE must be at least 1")
	}
	if c.MangaDex.Timeout <= 0 {
		return fmt.Errorf("MANGADEX_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
		// Clear deletes everything under the prefix.
		if c.Cache.RedisPrefix == "" {
			return fmt.Errorf("REDIS_PREFIX must not be empty when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, redis; got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DatabaseDriverBadger:
		if c.Database.BadgerPath == "" && !c.Database.BadgerInMemory {
			return fmt.Errorf("BADGER_PATH is required when DATABASE_DRIVER=badger")
		}
	case DatabaseDriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when DATABASE_DRIVER=mongo")
		}
		if c.Database.MongoDatabase == "" {
			return fmt.Errorf("MONGODB_DATABASE is required when DATABASE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of: badger, mongo; got %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if _, err := ParseExpiry(c.Security.JWTExpiresIn); err != nil {
		return fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	if c.Security.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	switch c.Security.SessionStore {
	case SessionStoreMemory:
	case SessionStoreBadger:
		if c.Database.BadgerPath == "" && !c.Database.BadgerInMemory {
			return fmt.Errorf("BADGER_PATH is required when SESSION_STORE=badger")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger; got %q", c.Security.SessionStore)
	}
	if c.Security.OTPTTL <= 0 || c.Security.ResetTokenTTL <= 0 {
		return fmt.Errorf("OTP_TTL and RESET_TOKEN_TTL must be positive")
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// The refresh cookie is credentialed, so a wildcard origin cannot be used in production.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production; " +
			"set specific origins: CORS_ORIGINS=https://yourdomain.com")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports whether the CORS setup deserves a startup warning.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateEmail() error {
	if c.Email.ClientURL != "" {
		if err := validateHTTPURL(c.Email.ClientURL, "CLIENT_URL"); err != nil {
			return err
		}
	}
	if !c.EmailEnabled() {
		return nil
	}
	if c.Email.SMTPPort < 1 || c.Email.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	if c.Email.From == "" {
		return fmt.Errorf("EMAIL_FROM is required when SMTP_HOST is set")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateHTTPURL checks for an http(s) URL with a host and no query.
// A path is allowed (MangaDex mirrors are sometimes mounted under one).
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}

var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
