// Package metrics defines and registers all custom Prometheus metrics for the
// donation tracking gateway. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at import time; the
// router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "donation_tracking"

// ── Transition metrics ────────────────────────────────────────────────────────

// TransitionsTotal counts successfully applied status transitions.
// Label:
//   - to: the status reached (e.g. "En camino", "Entregado")
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of donation status transitions applied.",
	},
	[]string{"to"},
)

// TransitionErrorsTotal counts rejected or rolled-back transitions.
// Label:
//   - reason: short description of the failure (e.g. "missing_location", "invalid_transition", "rolled_back")
var TransitionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transition_errors_total",
		Help:      "Total number of donation transitions that failed validation or were rolled back.",
	},
	[]string{"reason"},
)

// TransitionDuration measures a transition end-to-end, including the backend
// round trip.
// Label:
//   - outcome: "applied", "rejected" or "rolled_back"
var TransitionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transition_duration_seconds",
		Help:      "Duration of a transition from request to backend confirmation.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// ── Tracking metrics ──────────────────────────────────────────────────────────

// RefreshesTotal counts tracking collection refresh triggers.
// Label:
//   - trigger: "request", "signal" or "reconnect"
var RefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refreshes_total",
		Help:      "Total number of tracking collection refreshes, by trigger.",
	},
	[]string{"trigger"},
)

// RefreshErrorsTotal counts refreshes that failed and kept stale data.
var RefreshErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_errors_total",
		Help:      "Total number of tracking refreshes that failed and served last-known-good data.",
	},
)

// LiveReconnectsTotal counts push channel reconnects.
var LiveReconnectsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_reconnects_total",
		Help:      "Total number of live channel reconnects.",
	},
)

// ── Geo metrics ───────────────────────────────────────────────────────────────

// LocationFixesTotal counts acquired location fixes.
// Label:
//   - source: "device-precise", "ip-approximate" or "default-fallback"
var LocationFixesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_fixes_total",
		Help:      "Total number of location fixes acquired, by fallback tier.",
	},
	[]string{"source"},
)

// RouteFallbacksTotal counts route computations degraded to the straight
// waypoint path.
var RouteFallbacksTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_fallbacks_total",
		Help:      "Total number of route computations that fell back to the straight waypoint path.",
	},
)
