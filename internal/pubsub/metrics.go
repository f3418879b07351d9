package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "panes",
	Subsystem: "pubsub",
	Name:      "dropped_total",
	Help:      "Values dropped because a subscriber buffer was full.",
}, []string{"topic"})
