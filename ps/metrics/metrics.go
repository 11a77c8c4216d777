// Package metrics holds the prometheus collectors of the push/pull engine.
// Serving the registry is left to the embedding process.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	WorkerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinyps",
			Subsystem: "worker",
			Name:      "requests_total",
			Help:      "Counter of push/pull requests issued.",
		}, []string{"kind"})

	WorkerResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinyps",
			Subsystem: "worker",
			Name:      "responses_total",
			Help:      "Counter of response messages received.",
		})

	WorkerSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinyps",
			Subsystem: "worker",
			Name:      "skipped_destinations_total",
			Help:      "Counter of destinations skipped because they were sent no keys.",
		})

	WorkerMergedKeys = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinyps",
			Subsystem: "worker",
			Name:      "merged_keys_total",
			Help:      "Counter of keys re-assembled by pull merges.",
		})

	ServerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinyps",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Counter of requests dispatched to the server handle.",
		}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(WorkerRequests)
	prometheus.MustRegister(WorkerResponses)
	prometheus.MustRegister(WorkerSkipped)
	prometheus.MustRegister(WorkerMergedKeys)
	prometheus.MustRegister(ServerRequests)
}
