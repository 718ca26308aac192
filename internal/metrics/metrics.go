// Package metrics exposes the coordinator's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meet_rooms_active",
		Help: "Rooms with at least one member.",
	})

	ParticipantsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meet_participants_active",
		Help: "Participants currently joined to a room.",
	})

	StreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meet_streams_active",
		Help: "Published streams currently registered.",
	})

	EventsIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meet_signal_events_in_total",
		Help: "Inbound signaling events by type.",
	}, []string{"type"})

	NotificationsOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meet_notifications_out_total",
		Help: "Outbound notification events by type.",
	}, []string{"type"})

	EngineFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meet_engine_failures_total",
		Help: "Media engine calls that returned an error or timed out.",
	})
)
