// Package metrics defines all custom Prometheus metrics for the scheduling
// API. It is the single source of truth for metric names, labels, and help
// strings. Metrics register themselves with the default registry via
// promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scheduling"

// ChatRequestsTotal counts parsed chat requests by intent.
// Label:
//   - intent: create_appointment, cancel_appointment, reschedule_appointment, get_availability
var ChatRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_requests_total",
		Help:      "Total number of chat requests successfully parsed, by intent.",
	},
	[]string{"intent"},
)

// ParseFailuresTotal counts chat requests the parsing oracle could not turn
// into a valid structured request.
var ParseFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_failures_total",
		Help:      "Total number of chat requests rejected by the parsing oracle.",
	},
)

// OutcomesTotal counts scheduling outcomes.
// Label:
//   - status: scheduled, conflict, cancelled, rescheduled, available, unavailable
var OutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_total",
		Help:      "Total number of scheduling outcomes, by result status.",
	},
	[]string{"status"},
)

// RequestErrorsTotal counts requests that failed with a domain or store error.
// Label:
//   - reason: short description (e.g. "worker_not_found", "past_appointment", "store_error")
var RequestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_errors_total",
		Help:      "Total number of scheduling requests that failed, by reason.",
	},
	[]string{"reason"},
)

// SchedulingDuration measures how long handling a parsed request takes,
// from dispatch to outcome.
// Label:
//   - intent: the request intent
var SchedulingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Duration of scheduling request handling, by intent.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"intent"},
)
