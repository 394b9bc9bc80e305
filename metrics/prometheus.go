// Package metrics defines the Prometheus-compatible counters and timers
// the Entity Store and Operation Handlers report through, served at
// /metrics alongside the registry's own health endpoint.
package metrics

import (
	"github.com/docker/go-metrics"
	dbprom "github.com/prometheus/client_golang/prometheus"

	"github.com/distribution/drawbridge/utils"
)

// NamespacePrefix is the namespace every drawbridge metric is registered
// under.
const NamespacePrefix = "drawbridge"

var (
	// StoreNamespace holds counters for the Entity Store's Create outcomes.
	StoreNamespace = metrics.NewNamespace(NamespacePrefix, "store", nil)
	// HandlerNamespace holds counters for the Operation Handlers' access
	// decisions.
	HandlerNamespace = metrics.NewNamespace(NamespacePrefix, "handler", nil)
)

var (
	// EntitiesCreated counts successful Store.Create calls, labeled by
	// entity kind (user, repository, tag, tree).
	EntitiesCreated = StoreNamespace.NewLabeledCounter("entities_created_total",
		"Number of entities successfully created, by entity kind.", "kind")

	// DigestMismatches counts Store.Create calls rejected because the
	// streamed content's hash disagreed with the declared digest-set.
	DigestMismatches = StoreNamespace.NewLabeledCounter("digest_mismatches_total",
		"Number of creates rejected for a content digest mismatch, by entity kind.", "kind")

	// UnauthorizedAttempts counts requests the access check rejected,
	// labeled by resource kind.
	UnauthorizedAttempts = HandlerNamespace.NewLabeledCounter("unauthorized_attempts_total",
		"Number of requests rejected as unauthorized, by resource kind.", "kind")
)

// RequestDurationSeconds is a raw client_golang summary rather than a
// go-metrics LabeledTimer, so the request-logging middleware can report
// latency distributions through utils.PrometheusObserveDuration exactly
// as the teacher's helper of that name was written to be called.
var RequestDurationSeconds = dbprom.NewSummaryVec(dbprom.SummaryOpts{
	Namespace: utils.PrometheusNamespace,
	Subsystem: "handler",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency in seconds, by resource kind and method.",
}, []string{"kind", "method"})

func init() {
	metrics.Register(StoreNamespace)
	metrics.Register(HandlerNamespace)
	dbprom.MustRegister(RequestDurationSeconds)
}
