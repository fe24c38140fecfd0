// Package metrics defines and registers all custom Prometheus metrics for the
// tag position API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tagposition"

// ── Lookup metrics ────────────────────────────────────────────────────────────

// LookupsTotal counts position lookups served by the dispatch layer.
// Labels:
//   - vendor: the resolved vendor tag (e.g. "mt01"), or "unavailable"
//   - outcome: "ok" or the error kind (e.g. "transport", "not_found")
var LookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "Total number of position lookups, by vendor and outcome.",
	},
	[]string{"vendor", "outcome"},
)

// VendorRequestDuration measures a single outbound vendor call.
// Labels:
//   - vendor: the vendor tag
//   - operation: "lookup", "login" or "list_page"
var VendorRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "vendor_request_duration_seconds",
		Help:      "Duration of outbound vendor HTTP calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"vendor", "operation"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionLoginsTotal counts session logins.
// Labels:
//   - vendor: the vendor tag
//   - result: "success" or "failure"
var SessionLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_logins_total",
		Help:      "Total number of vendor session logins, by result.",
	},
	[]string{"vendor", "result"},
)

// ── Listing metrics ───────────────────────────────────────────────────────────

// ListingsPartialTotal counts bulk listings that stopped before the last page.
var ListingsPartialTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_partial_total",
		Help:      "Total number of bulk listings returned incomplete.",
	},
	[]string{"vendor"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditDroppedTotal counts audit entries discarded because a worker queue was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of lookup audit entries dropped on a full queue.",
	},
)

// AuditQueueDepth tracks the number of audit entries waiting in each worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit entries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
