package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "client",
		Name:      "events_applied_total",
		Help:      "Inbound events applied, by kind.",
	}, []string{"kind"})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "client",
		Name:      "frames_dropped_total",
		Help:      "Inbound frames dropped because they did not decode.",
	})

	staleDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "client",
		Name:      "stale_signals_dropped_total",
		Help:      "Connection signals dropped because their generation was replaced.",
	})

	commandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "client",
		Name:      "commands_sent_total",
		Help:      "Outbound commands written, by type.",
	}, []string{"type"})

	commandsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "client",
		Name:      "commands_failed_total",
		Help:      "Outbound commands that could not be written, by type.",
	}, []string{"type"})

	flushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panes",
		Subsystem: "client",
		Name:      "stream_flushes_total",
		Help:      "Streaming delta batches committed by the flush timer.",
	})

	loopLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "panes",
		Subsystem: "client",
		Name:      "loop_step_seconds",
		Help:      "Time spent applying one loop step.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)
