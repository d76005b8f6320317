// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mangashelf/config.yaml",
	"/etc/mangashelf/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     EnvDevelopment,
		},
		MangaDex: MangaDexConfig{
			APIURL:          "https://api.mangadex.org",
			UploadsURL:      "https://uploads.mangadex.org",
			UserAgent:       "Mangashelf/1.0",
			Timeout:         30 * time.Second,
			MinDelay:        250 * time.Millisecond, // MangaDex allows ~5 req/s per IP
			QueueSize:       256,
			DefaultLanguage: "vi",
			BreakerEnabled:  true,
		},
		Cache: CacheConfig{
			Backend:         CacheBackendMemory,
			TTL:             5 * time.Minute,
			CleanupInterval: time.Minute,
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "mangashelf:",
		},
		Database: DatabaseConfig{
			Driver:         DatabaseDriverBadger,
			BadgerPath:     "/data/mangashelf",
			MongoURI:       "mongodb://localhost:27017",
			MongoDatabase:  "mangashelf",
			ConnectTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			JWTExpiresIn:       "7d",
			RefreshTTL:         7 * 24 * time.Hour,
			SessionStore:       SessionStoreBadger,
			OTPTTL:             10 * time.Minute,
			ResetTokenTTL:      10 * time.Minute,
			ResendInterval:     time.Minute,
			MinPasswordEntropy: 40,
			RateLimitReqs:      100,
			RateLimitWindow:    time.Minute,
			CORSOrigins:        []string{"http://localhost:3000"},
		},
		Email: EmailConfig{
			SMTPPort:  587,
			From:      "Mangashelf <no-reply@mangashelf.local>",
			ClientURL: "http://localhost:3000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// the environment, in that order of increasing priority, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// MANGADEX_API_URL -> mangadex.api_url, NODE_ENV -> server.environment, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
// Values that are already slices (from YAML) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config paths.
// Aliases (PORT/HTTP_PORT, NODE_ENV/ENVIRONMENT, MANGADEX_API/MANGADEX_API_URL)
// resolve to the same path.
var envMappings = map[string]string{
	"port":                     "server.port",
	"http_port":                "server.port",
	"http_host":                "server.host",
	"server_timeout":           "server.timeout",
	"shutdown_timeout":         "server.shutdown_timeout",
	"node_env":                 "server.environment",
	"environment":              "server.environment",
	"mangadex_api_url":         "mangadex.api_url",
	"mangadex_api":             "mangadex.api_url",
	"mangadex_uploads_url":     "mangadex.uploads_url",
	"mangadex_user_agent":      "mangadex.user_agent",
	"mangadex_timeout":         "mangadex.timeout",
	"mangadex_min_delay":       "mangadex.min_delay",
	"mangadex_queue_size":      "mangadex.queue_size",
	"mangadex_language":        "mangadex.default_language",
	"mangadex_breaker_enabled": "mangadex.breaker_enabled",
	"cache_backend":            "cache.backend",
	"cache_ttl":                "cache.ttl",
	"cache_cleanup_interval":   "cache.cleanup_interval",
	"redis_addr":               "cache.redis_addr",
	"redis_password":           "cache.redis_password",
	"redis_db":                 "cache.redis_db",
	"redis_prefix":             "cache.redis_prefix",
	"database_driver":          "database.driver",
	"badger_path":              "database.badger_path",
	"badger_in_memory":         "database.badger_in_memory",
	"mongodb_uri":              "database.mongo_uri",
	"mongodb_database":         "database.mongo_database",
	"database_connect_timeout": "database.connect_timeout",
	"jwt_secret":               "security.jwt_secret",
	"jwt_expires_in":           "security.jwt_expires_in",
	"refresh_token_ttl":        "security.refresh_ttl",
	"session_store":            "security.session_store",
	"otp_ttl":                  "security.otp_ttl",
	"reset_token_ttl":          "security.reset_token_ttl",
	"otp_resend_interval":      "security.resend_interval",
	"min_password_entropy":     "security.min_password_entropy",
	"rate_limit_requests":      "security.rate_limit_reqs",
	"rate_limit_window":        "security.rate_limit_window",
	"disable_rate_limit":       "security.rate_limit_disabled",
	"cors_origins":             "security.cors_origins",
	"smtp_host":                "email.smtp_host",
	"smtp_port":                "email.smtp_port",
	"smtp_user":                "email.smtp_user",
	"smtp_password":            "email.smtp_password",
	"email_from":               "email.from",
	"client_url":               "email.client_url",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
	"log_caller":               "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path.
// Unmapped names return "" so koanf skips them.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
