// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package mangadex talks to the MangaDex REST API.
//
// Client does the HTTP work, BreakerClient adds a circuit breaker, and
// Gateway composes a Fetcher with the response cache and the request queue:
//
//	gw := mangadex.NewGateway(mangadex.NewBreakerClient(client), queue, cache)
//	body, err := gw.Call(ctx, "/manga", params, cacheKey)
//
// The reshape functions flatten MangaDex entities into the shapes the API
// serves.
package mangadex

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/mangashelf/internal/cache"
	"github.com/tomtom215/mangashelf/internal/limiter"
	"github.com/tomtom215/mangashelf/internal/logging"
)

// Gateway is the call-or-fetch helper: cache first, then one paced
// upstream request, then store.
type Gateway struct {
	fetcher Fetcher
	queue   *limiter.Queue
	cache   cache.Cacher
	group   singleflight.Group
}

// NewGateway wires a fetcher to the queue and cache. The queue must be
// served by the caller (normally the supervisor).
func NewGateway(fetcher Fetcher, queue *limiter.Queue, c cache.Cacher) *Gateway {
	return &Gateway{fetcher: fetcher, queue: queue, cache: c}
}

// Call returns the payload for path+params. A non-empty cacheKey is checked
// first and filled on success; an empty one bypasses the cache. Failures are
// returned as *UpstreamError and never retried.
func (g *Gateway) Call(ctx context.Context, path string, params url.Values, cacheKey string) ([]byte, error) {
	if cacheKey == "" {
		return g.fetch(ctx, path, params)
	}

	if body, ok := g.cached(cacheKey); ok {
		logging.Ctx(ctx).Trace().Str("key", cacheKey).Msg("MangaDex cache hit")
		return body, nil
	}

	// Concurrent misses for the same key share one queued request. The
	// shared fetch outlives any single caller, so it runs without the
	// caller's cancellation.
	ch := g.group.DoChan(cacheKey, func() (interface{}, error) {
		body, err := g.fetch(context.WithoutCancel(ctx), path, params)
		if err != nil {
			return nil, err
		}
		g.cache.Set(cacheKey, body)
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, wrapUpstream(path, ctx.Err())
	}
}

// Invalidate drops a cached payload.
func (g *Gateway) Invalidate(cacheKey string) {
	g.cache.Delete(cacheKey)
}

func (g *Gateway) cached(key string) ([]byte, bool) {
	v, ok := g.cache.Get(key)
	if !ok {
		return nil, false
	}
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	default:
		return nil, false
	}
}

func (g *Gateway) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	v, err := g.queue.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return g.fetcher.Get(ctx, path, params)
	})
	if err != nil {
		ue := wrapUpstream(path, err)
		logging.Ctx(ctx).Warn().Err(err).Str("path", path).Int("status", ue.Status).Msg("MangaDex call failed")
		return nil, ue
	}
	body, ok := v.([]byte)
	if !ok {
		return nil, wrapUpstream(path, fmt.Errorf("unexpected result type %T", v))
	}
	return body, nil
}

// CallJSON is Call followed by decoding into T. A payload that does not
// decode is evicted so the next call refetches it.
func CallJSON[T any](ctx context.Context, g *Gateway, path string, params url.Values, cacheKey string) (*T, error) {
	body, err := g.Call(ctx, path, params, cacheKey)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		if cacheKey != "" {
			g.Invalidate(cacheKey)
		}
		return nil, wrapUpstream(path, fmt.Errorf("failed to decode response: %w", err))
	}
	return &out, nil
}
