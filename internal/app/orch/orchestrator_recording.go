package orch

import (
	"encoding/json"

	"github.com/dkeye/Rundown/internal/app"
	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

// The room keeps the state of its outbound AV pipeline: whether a recording
// and a live stream run, and the layout they render. Every change is
// reported to all members.

func (o *Orchestrator) StartRecording(sid core.SessionID, layout json.RawMessage) error {
	return o.updateRecording(sid, domain.MsgTypeStartRecording, func(rec *domain.Recording) error {
		if rec.Recording {
			return ErrAlreadyActive
		}
		rec.Recording = true
		rec.Layout = layout
		rec.StartedBy = domain.UserID(sid)
		return nil
	}, domain.MsgTypeRecordingStarted)
}

func (o *Orchestrator) UpdateRecording(sid core.SessionID, layout json.RawMessage) error {
	return o.updateRecording(sid, domain.MsgTypeUpdateRecording, func(rec *domain.Recording) error {
		if !rec.Recording {
			return ErrNotActive
		}
		rec.Layout = layout
		return nil
	}, "")
}

func (o *Orchestrator) StopRecording(sid core.SessionID) error {
	return o.updateRecording(sid, domain.MsgTypeStopRecording, func(rec *domain.Recording) error {
		if !rec.Recording {
			return ErrNotActive
		}
		rec.Recording = false
		if !rec.LiveStreaming {
			rec.Layout = nil
		}
		return nil
	}, domain.MsgTypeRecordingStopped)
}

func (o *Orchestrator) StartLiveStreaming(sid core.SessionID, rtmpURL string, layout json.RawMessage) error {
	if rtmpURL == "" {
		return ErrNoRTMPURL
	}
	return o.updateRecording(sid, domain.MsgTypeStartLiveStreaming, func(rec *domain.Recording) error {
		if rec.LiveStreaming {
			return ErrAlreadyActive
		}
		rec.LiveStreaming = true
		rec.RtmpURL = rtmpURL
		rec.Layout = layout
		rec.StartedBy = domain.UserID(sid)
		return nil
	}, domain.MsgTypeLiveStreamingStarted)
}

func (o *Orchestrator) UpdateLiveStreaming(sid core.SessionID, layout json.RawMessage) error {
	return o.updateRecording(sid, domain.MsgTypeUpdateLiveStreaming, func(rec *domain.Recording) error {
		if !rec.LiveStreaming {
			return ErrNotActive
		}
		rec.Layout = layout
		return nil
	}, "")
}

func (o *Orchestrator) StopLiveStreaming(sid core.SessionID) error {
	return o.updateRecording(sid, domain.MsgTypeStopLiveStreaming, func(rec *domain.Recording) error {
		if !rec.LiveStreaming {
			return ErrNotActive
		}
		rec.LiveStreaming = false
		rec.RtmpURL = ""
		if !rec.Recording {
			rec.Layout = nil
		}
		return nil
	}, domain.MsgTypeLiveStreamingStopped)
}

// updateRecording applies change to the room of sid and, when event is set,
// reports it to every member including sid.
func (o *Orchestrator) updateRecording(sid core.SessionID, req string, change func(*domain.Recording) error, event string) error {
	room, ok := o.roomOf(sid)
	if !ok {
		return ErrNotInRoom
	}
	app.RecordingEvents.WithLabelValues(req).Inc()

	if err := room.ModifyRecording(change); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("request", req).Msg("recording request rejected")
		return err
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.Room().Name)).Str("request", req).Msg("recording state changed")

	if event != "" {
		o.publish(room, "", domain.RecordingEventMessage{Type: event})
	}
	return nil
}

// Recording returns the AV pipeline state of a room.
func (o *Orchestrator) Recording(name domain.RoomName) (domain.Recording, bool) {
	room, ok := o.Rooms.Get(name)
	if !ok {
		return domain.Recording{}, false
	}
	return room.Recording(), true
}
