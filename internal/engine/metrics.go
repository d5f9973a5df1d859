package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for metricDropped. A dropped packet is the listener's only
// user-visible failure mode, so each cause gets its own series.
const (
	dropUnknownPort   = "unknown_port"
	dropPoolExhausted = "pool_exhausted"
	dropPoolError     = "pool_error"
	dropNoResponse    = "no_response"
)

var (
	metricReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snmpsim_listener_packets_received_total",
		Help: "Datagrams read off the fleet's UDP sockets",
	})

	metricResponded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snmpsim_listener_responses_total",
		Help: "Responses written back to clients",
	})

	metricDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snmpsim_listener_dropped_total",
		Help: "Inbound packets dropped without a response, by reason",
	}, []string{"reason"})
)
