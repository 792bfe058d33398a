package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_dispatches_total",
			Help: "Total webhook dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)

	claimConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_claim_conflicts_total",
			Help: "Due jobs skipped because another instance won the claim",
		},
	)

	inFlightDispatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_in_flight_dispatches",
			Help: "Webhook dispatches currently in flight",
		},
	)

	purgedExecutionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_purged_executions_total",
			Help: "Execution records removed by the retention purge",
		},
	)
)
