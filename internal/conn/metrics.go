package conn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "conn",
		Name:      "opened_total",
		Help:      "Total sockets opened.",
	})

	dialFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "conn",
		Name:      "dial_failures_total",
		Help:      "Total failed connection attempts.",
	})

	reconnectsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "conn",
		Name:      "reconnects_scheduled_total",
		Help:      "Total reconnect attempts scheduled after a close.",
	})

	staleSignals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "conn",
		Name:      "stale_signals_total",
		Help:      "Signals dropped because their socket was replaced.",
	})

	framesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "conn",
		Name:      "frames_received_total",
		Help:      "Total inbound frames.",
	})

	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "conn",
		Name:      "frames_sent_total",
		Help:      "Total outbound frames.",
	})
)
