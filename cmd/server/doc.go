// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package main is the entry point for the Mangashelf server.
//
// Mangashelf is the backend of a manga reading site. It fronts the public
// MangaDex API: every upstream call goes through one FIFO queue that keeps a
// minimum gap between calls, and successful answers are cached for a short
// TTL. On top of the proxy it runs a small account system with email
// verification codes, JWT access tokens, rotating refresh cookies and
// password reset links.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional config.yaml, environment (Koanf v2)
//  2. Storage: BadgerDB (embedded) or MongoDB for users, BadgerDB or memory for sessions
//  3. Auth: JWT manager, SMTP sender, account service
//  4. Upstream: response cache (memory or Redis), request queue, MangaDex client and circuit breaker
//  5. HTTP: Chi router with CORS, rate limiting, security headers and Swagger UI
//  6. Supervisor tree: queue, cache sweeper, session sweeper and HTTP server
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables
//   - Config file (CONFIG_PATH, config.yaml or /etc/mangashelf/config.yaml)
//   - Built-in defaults
//
// Commonly set variables:
//   - PORT: listen port (default 5000)
//   - NODE_ENV: development, staging or production
//   - JWT_SECRET: 32+ character secret for token signing (required)
//   - JWT_EXPIRES_IN: access token lifetime such as 3600, 90m or 7d (default 7d)
//   - MANGADEX_MIN_DELAY: gap between upstream calls (default 250ms)
//   - MANGADEX_LANGUAGE: default language for titles and descriptions (default vi)
//   - CACHE_BACKEND: memory or redis, with REDIS_ADDR
//   - DATABASE_DRIVER: badger or mongo, with BADGER_PATH or MONGODB_URI
//   - SESSION_STORE: memory or badger
//   - SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, EMAIL_FROM
//   - CLIENT_URL: frontend base URL used in password reset links
//   - CORS_ORIGINS: comma-separated allowed origins
//
// Without SMTP_HOST the server logs outgoing mail instead of sending it.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests (SHUTDOWN_TIMEOUT, default 10s)
//   - Fails queued upstream calls that never started
//   - Closes the cache, the user store and BadgerDB
//
// # Example Usage
//
// Development with an in-memory database:
//
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export BADGER_IN_MEMORY=true
//	./mangashelf
//
// Production with MongoDB and Redis:
//
//	export NODE_ENV=production
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export DATABASE_DRIVER=mongo
//	export MONGODB_URI=mongodb://mongo:27017
//	export CACHE_BACKEND=redis
//	export REDIS_ADDR=redis:6379
//	export SMTP_HOST=smtp.example.com
//	export CORS_ORIGINS=https://manga.example.com
//	./mangashelf
package main
