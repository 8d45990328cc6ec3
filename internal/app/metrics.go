package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rundown",
		Name:      "rooms",
		Help:      "Number of open rooms.",
	})

	MembersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rundown",
		Name:      "members",
		Help:      "Number of members currently in a room.",
	})

	AppMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rundown",
		Name:      "app_messages_total",
		Help:      "App messages relayed, by addressing.",
	}, []string{"to"})

	DroppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rundown",
		Name:      "dropped_frames_total",
		Help:      "Signaling frames dropped on backpressure, by action taken.",
	}, []string{"action"})

	TrackEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rundown",
		Name:      "track_events_total",
		Help:      "Remote track lifecycle events, by kind and event.",
	}, []string{"kind", "event"})

	RecordingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rundown",
		Name:      "recording_events_total",
		Help:      "Recording and live streaming control requests, by type.",
	}, []string{"type"})
)
