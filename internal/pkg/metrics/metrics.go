// Package metrics defines the agent's Prometheus collectors. They register
// with the default registry at init time through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every agent metric.
const Namespace = "ableconnect"

// ── Remote gateway ────────────────────────────────────────────────────────────

// GatewayRequestsTotal counts backend calls.
// Labels:
//   - endpoint: logical operation (e.g. "gigs.create")
//   - outcome: "ok", "application_error" or "connectivity"
var GatewayRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "gateway_requests_total",
		Help:      "Total number of backend calls, by endpoint and outcome.",
	},
	[]string{"endpoint", "outcome"},
)

// GatewayRequestDuration measures backend round trips, including failures.
var GatewayRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Duration of backend calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"endpoint"},
)

// ── Accessor ──────────────────────────────────────────────────────────────────

// AccessorResultsTotal counts accessor operations by where the result came from.
// Labels:
//   - operation: e.g. "listing.create", "feed.like"
//   - source: "api", "local" or "error"
var AccessorResultsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "accessor_results_total",
		Help:      "Total number of accessor operations, by operation and result source.",
	},
	[]string{"operation", "source"},
)

// AccessorFallbacksTotal counts connectivity failures answered from the local cache.
var AccessorFallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "accessor_fallbacks_total",
		Help:      "Total number of operations served by the local cache after a connectivity failure.",
	},
	[]string{"operation"},
)

// InFlightRejectionsTotal counts writes rejected because an identical one was running.
var InFlightRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "inflight_rejections_total",
		Help:      "Total number of writes rejected by the in-flight guard.",
	},
	[]string{"operation"},
)

// ── Local cache ───────────────────────────────────────────────────────────────

// CacheErrorsTotal counts local cache failures.
// Labels:
//   - slot: cache slot name
//   - kind: "read", "write", "decode" or "invalid"
var CacheErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_errors_total",
		Help:      "Total number of local cache errors, by slot and kind.",
	},
	[]string{"slot", "kind"},
)
