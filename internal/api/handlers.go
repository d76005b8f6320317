// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"context"
	"time"

	"github.com/tomtom215/mangashelf/internal/auth"
	"github.com/tomtom215/mangashelf/internal/cache"
	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/mangadex"
	"github.com/tomtom215/mangashelf/internal/middleware"
)

// QueueStats is the part of limiter.Queue the admin and health routes read.
type QueueStats interface {
	Len() int
	MinDelay() time.Duration
}

// BreakerState reports the MangaDex circuit breaker state ("closed",
// "half-open", "open").
type BreakerState interface {
	State() string
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handler. Gateway, Reshaper, Auth and
// Config are required; the rest only feed the admin and health routes.
type Deps struct {
	Config   *config.Config
	Gateway  *mangadex.Gateway
	Reshaper *mangadex.Reshaper
	Auth     *auth.Service

	Cache   cache.Cacher
	Queue   QueueStats
	Breaker BreakerState
	Store   Pinger
	Perf    *middleware.PerformanceMonitor
}

// Handler holds the route handlers.
type Handler struct {
	config    *config.Config
	gateway   *mangadex.Gateway
	reshaper  *mangadex.Reshaper
	auth      *auth.Service
	cache     cache.Cacher
	queue     QueueStats
	breaker   BreakerState
	store     Pinger
	perfMon   *middleware.PerformanceMonitor
	cookies   cookieSettings
	startTime time.Time
}

// NewHandler creates the handler set.
func NewHandler(d Deps) *Handler {
	return &Handler{
		config:    d.Config,
		gateway:   d.Gateway,
		reshaper:  d.Reshaper,
		auth:      d.Auth,
		cache:     d.Cache,
		queue:     d.Queue,
		breaker:   d.Breaker,
		store:     d.Store,
		perfMon:   d.Perf,
		cookies:   newCookieSettings(d.Config),
		startTime: time.Now(),
	}
}

// defaultLanguage is the language used when a request names none.
func (h *Handler) defaultLanguage() string {
	if lang := h.config.MangaDex.DefaultLanguage; lang != "" {
		return lang
	}
	return "vi"
}
