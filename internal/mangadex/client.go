// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package mangadex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/logging"
	"github.com/tomtom215/mangashelf/internal/metrics"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
const maxErrorBodySize = 64 * 1024 // 64KB

// maxResponseSize caps successful payloads; a 500-chapter feed is well below it.
const maxResponseSize = 16 << 20

// readBodyForError reads the response body for error reporting (max 64KB)
// Returns the body content or a placeholder message if reading fails
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Fetcher performs a GET against the MangaDex API and returns the raw JSON.
// Client and BreakerClient implement it; tests substitute their own.
type Fetcher interface {
	Get(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// StatusError is a non-2xx answer from MangaDex.
type StatusError struct {
	Path   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Path, e.Status, string(e.Body))
}

// Detail returns the first error detail from a MangaDex error body, if any.
func (e *StatusError) Detail() string {
	var body struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil || len(body.Errors) == 0 {
		return ""
	}
	if body.Errors[0].Detail != "" {
		return body.Errors[0].Detail
	}
	return body.Errors[0].Title
}

// Client is a plain HTTP client for the MangaDex REST API. It does no
// retrying, caching or pacing; Gateway adds those.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	maxBody   int64
}

// NewClient creates a MangaDex client. A zero timeout means 30 seconds.
func NewClient(cfg *config.MangaDexConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.APIURL, "/"),
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Timeout: timeout,
		},
		maxBody: maxResponseSize,
	}
}

// Get requests path (for example "/manga/{id}") with the given query.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	endpoint := endpointLabel(path)
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	metrics.RecordUpstreamCall(endpoint, resp.StatusCode, time.Since(start))
	logging.Ctx(ctx).Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("MangaDex request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Path: path, Status: resp.StatusCode, Body: readBodyForError(resp.Body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", path, ErrResponseTooLarge, c.maxBody)
	}
	return body, nil
}

// endpointLabel replaces UUID path segments with {id} to bound metric cardinality.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if _, err := uuid.Parse(s); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
