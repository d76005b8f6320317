// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Mangashelf API exposes MangaDex browsing and reader accounts.
//
// @title Mangashelf API
// @version 1.0
// @description Reading-site backend that proxies the MangaDex API and manages reader accounts.
// @description
// @description ## Upstream Access
// @description
// @description All MangaDex calls share one queue with a minimum delay between calls.
// @description Successful catalog answers are cached for a few minutes; at-home server answers are never cached.
// @description
// @description ## Authentication
// @description
// @description `/auth/login` and `/auth/verify-email` return a short-lived JWT access token in the body
// @description and set an HTTP-only `refreshToken` cookie scoped to `/api/auth`.
// @description Send the access token as `Authorization: Bearer <token>`.
// @description
// @description ## Error Responses
// @description
// @description All responses use one envelope:
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {
// @description     "code": "VALIDATION_ERROR",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "meta": {
// @description     "request_id": "3f1c...",
// @description     "timestamp": "2026-10-16T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/mangashelf/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:5000
// @BasePath /api
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token as "Bearer <token>". Obtain via /api/auth/login.
//
// @tag.name Health
// @tag.description Liveness and readiness probes
//
// @tag.name Manga
// @tag.description MangaDex catalog, feeds, chapters and image servers
//
// @tag.name Auth
// @tag.description Signup, email verification, login, refresh and password reset
//
// @tag.name Chapters
// @tag.description Chapter metadata and page image URLs
//
// @tag.name Admin
// @tag.description Cache and upstream statistics (admin role)
package main
