// Package metrics is the single source of truth for the service's Prometheus
// metric names, labels and help strings. Metrics are registered with the
// default registry via promauto at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_rates"

// RatesCreatedTotal counts successfully created rate records.
var RatesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rates_created_total",
		Help:      "Total number of hourly rate records created.",
	},
)

// RatesUpdatedTotal counts successful in-place rate updates.
var RatesUpdatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rates_updated_total",
		Help:      "Total number of hourly rate records updated.",
	},
)

// RateWriteErrorsTotal counts failed writes.
// Labels:
//   - op: "create" or "update"
//   - reason: short failure class (e.g. "duplicate_date", "invalid_input", "store")
var RateWriteErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_write_errors_total",
		Help:      "Total number of rejected or failed rate writes.",
	},
	[]string{"op", "reason"},
)

// RosterCacheTotal counts roster projection cache lookups by result (hit/miss).
var RosterCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roster_cache_total",
		Help:      "Total number of roster cache lookups, labelled by result.",
	},
	[]string{"result"},
)
