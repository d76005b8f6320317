// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package services adapts Mangashelf components to suture.Service.
//
// Most long-running parts already have a Serve(ctx) error method and join
// the tree directly (limiter.Queue, cache.Cache, auth.SessionSweeper). The
// HTTP server does not, so HTTPServerService turns its blocking
// ListenAndServe/Shutdown pair into a context-driven Serve.
package services
