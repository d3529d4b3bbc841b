package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fanoutRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_fanout_requests_total",
		Help: "Group fan-out resolutions by outcome.",
	}, []string{"outcome"})

	fanoutUnknownMembers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_fanout_unknown_members_total",
		Help: "Members degraded to offline because their presence lookup failed.",
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courier_websocket_connections",
		Help: "Live websocket connections on this node.",
	})

	presenceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_presence_lookups_total",
		Help: "Presence lookups served, by endpoint.",
	}, []string{"endpoint"})
)
