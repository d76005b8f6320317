// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

/*
Package metrics provides the Prometheus collectors for Mangashelf.

All collectors are registered with the default registry through promauto,
prefixed with "mangashelf_" and exposed at /metrics:

	curl http://localhost:5000/metrics

# Available Metrics

API:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Response cache (cache_type is "memory" or "redis"):
  - cache_hits_total, cache_misses_total, cache_evictions_total
  - cache_entries

Upstream queue and MangaDex calls:
  - limiter_queue_depth
  - limiter_wait_seconds
  - limiter_tasks_total{outcome}
  - upstream_requests_total{endpoint,status}
  - upstream_request_duration_seconds{endpoint}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result}

Accounts:
  - auth_events_total{event,result}
  - user_store_operations_total{backend,operation,result}

Process:
  - app_info{version,go_version}

Endpoint labels are chi route patterns ("/api/manga/{id}"), never raw paths,
so label cardinality stays bounded.
*/
package metrics
