package warns

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DevTeady/EmiliaHikari/core/metrics"
)

var (
	warnsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "warns_issued_total",
		Help:      "Warnings recorded, by source",
	}, []string{"source"})

	escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "warn_escalations_total",
		Help:      "Kicks and bans attempted after reaching the warn limit",
	}, []string{"action", "result"})

	filterMatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "warn_filter_matches_total",
		Help:      "Messages that matched a keyword filter",
	})
)
