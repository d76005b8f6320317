// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/mangashelf/internal/auth"
	"github.com/tomtom215/mangashelf/internal/middleware"
	"github.com/tomtom215/mangashelf/internal/users"
)

// Router wires handlers and middleware into a chi.Router.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. Authentication failures are rendered in the
// API envelope.
func NewRouter(handler *Handler, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          auth.NewMiddleware(handler.auth.Tokens(), WriteError),
		chiMiddleware: chiMW,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(AccessLog)
	r.Use(Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)
	if router.handler.perfMon != nil {
		r.Use(router.handler.perfMon.Middleware)
	}
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Route("/health", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitHealth())
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			r.Route("/manga", func(r chi.Router) {
				r.Get("/", router.handler.SearchManga)
				r.Get("/popular", router.handler.PopularManga)
				r.Get("/latest", router.handler.LatestManga)
				r.Get("/tags", router.handler.ListTags)
				r.Get("/{id}", router.handler.GetManga)
				r.Get("/{id}/feed", router.handler.GetMangaFeed)
			})
			r.Get("/chapter/{id}", router.handler.GetChapter)
			r.Get("/at-home/server/{id}", router.handler.GetAtHomeServer)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(NoStore)

			// Strict limits on everything that mails or checks a secret.
			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitAuth())
				r.Post("/signup", router.handler.Signup)
				r.Post("/verify-email", router.handler.VerifyEmail)
				r.Post("/resend-otp", router.handler.ResendOTP)
				r.Post("/forgot-password", router.handler.ForgotPassword)
				r.Post("/reset-password/{token}", router.handler.ResetPassword)
			})
			r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)

			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimit())
				r.Post("/refresh", router.handler.Refresh)
				r.Post("/logout", router.handler.Logout)
				r.With(router.auth.Authenticate).Get("/me", router.handler.Me)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(NoStore)
			r.Use(router.auth.RequireRole(users.RoleAdmin))
			r.Get("/stats", router.handler.AdminStats)
			r.Delete("/cache", router.handler.ClearCache)
		})
	})

	return r
}
