package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LedgerEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_ledger_entries_total",
			Help: "Committed points ledger entries by kind",
		},
		[]string{"kind"}, // earned|spent|credit|debit
	)

	RequestTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_request_transitions_total",
			Help: "Loyalty request state changes by target status and source",
		},
		[]string{"status", "source"}, // pending|approved|rejected|completed|deleted , admin|customer|sweeper
	)

	SweeperRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_sweeper_runs_total",
			Help: "Expiry sweeper cycles by result",
		},
		[]string{"result"}, // ok|error
	)

	OutboxRelayedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_outbox_relayed_total",
			Help: "Outbox events handed to Kafka by result",
		},
		[]string{"result"}, // published|failed
	)

	NotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_notifications_total",
			Help: "Events fanned out to real-time subscribers",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		LedgerEntriesTotal,
		RequestTransitionsTotal,
		SweeperRunsTotal,
		OutboxRelayedTotal,
		NotificationsTotal,
	)
}
