// Package metrics registers the Prometheus collectors for the spawn/claim
// engine and the economy operations. Exposed on /metrics by the HTTP server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Spawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spawns_published_total",
			Help: "Spawns published, by rarity tier",
		},
		[]string{"rarity"},
	)
	Claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_attempts_total",
			Help: "Claim resolutions, by outcome",
		},
		[]string{"outcome"},
	)
	EconomyOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_operations_total",
			Help: "Economy operations, by operation and result",
		},
		[]string{"operation", "result"},
	)
)

func init() {
	prometheus.MustRegister(Spawns)
	prometheus.MustRegister(Claims)
	prometheus.MustRegister(EconomyOps)
}
