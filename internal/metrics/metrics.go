package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkboard_active_rooms",
		Help: "Number of rooms with at least one participant",
	})

	ActiveParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkboard_active_participants",
		Help: "Number of joined participants across all rooms",
	})

	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkboard_actions_total",
		Help: "Actions applied to room state, by kind",
	}, []string{"action"})

	NoopActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkboard_noop_actions_total",
		Help: "Undo or redo requests that had nothing to act on",
	}, []string{"action"})

	Rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkboard_rejected_messages_total",
		Help: "Inbound messages rejected at the boundary, by reason",
	}, []string{"reason"})

	EvictedPeers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkboard_evicted_peers_total",
		Help: "Connections dropped because their outbound queue was full",
	})

	BroadcastBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkboard_broadcast_bytes_total",
		Help: "Bytes queued to peers by room broadcasts",
	})

	HistoryLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inkboard_history_snapshot_strokes",
		Help:    "Strokes carried by full-history broadcasts",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)
