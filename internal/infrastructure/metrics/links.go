package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCreated = "created"
	OutcomeReused  = "reused"
	OutcomeFailed  = "failed"
)

var (
	linksGenerateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "links_generate_total",
			Help: "Link generation requests by outcome",
		},
		[]string{"outcome"},
	)

	keyCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "links_key_collisions_total",
			Help: "Inserts rejected by the unique key constraint",
		},
	)
)

// LinkGenerated counts one generate call with the given outcome.
func LinkGenerated(outcome string) {
	linksGenerateTotal.WithLabelValues(outcome).Inc()
}

// KeyCollision counts one rejected key candidate.
func KeyCollision() {
	keyCollisionsTotal.Inc()
}
