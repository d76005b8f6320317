// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

/*
Package api implements the HTTP surface of Mangashelf.

Every route answers with the same envelope, on success and on error:

	{
	  "success": true,
	  "data": {...},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3,
	           "pagination": {"total": 120, "count": 12, "offset": 0, "limit": 12, "has_more": true}}
	}

	{
	  "success": false,
	  "error": {"code": "VALIDATION_ERROR", "message": "...", "details": {...}, "request_id": "..."},
	  "meta": {...}
	}

Route groups:

  - /api/manga, /api/chapter, /api/at-home: MangaDex reads through the
    cached, paced Gateway
  - /api/auth: signup, email verification, login, refresh, logout and
    password reset
  - /api/admin: cache and runtime statistics (admin role)
  - /api/health: liveness and readiness probes

Handlers never talk to MangaDex or the user store directly; they depend on
the Gateway and on auth.Service, both injected through Deps.
*/
package api
