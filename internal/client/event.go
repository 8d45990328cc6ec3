package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Rundown/internal/domain"
)

var ErrUnknownEvent = errors.New("unknown event")

// Event is one server message as seen by the session loop.
type Event struct {
	Type string
	// SessionID is the local id on joined and the departed one on participant-left.
	SessionID   string
	Participant domain.Participant
	Track       domain.TrackInfo
	App         domain.AppMessage
	// Request is the rejected request on recording-error.
	Request string
	Error   string
}

// parseFrame decodes a server frame into events. A joined frame expands into
// the joined event followed by one participant-joined per member already in
// the room, each carrying its sticky user data.
func parseFrame(data []byte) ([]Event, error) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case domain.MsgTypeJoined:
		var m domain.JoinedMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		events := make([]Event, 0, len(m.Participants)+1)
		events = append(events, Event{Type: domain.MsgTypeJoined, SessionID: m.SessionID})
		for _, p := range m.Participants {
			events = append(events, Event{Type: domain.MsgTypeParticipantJoined, Participant: p})
		}
		return events, nil

	case domain.MsgTypeParticipantJoined:
		var m domain.ParticipantMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return []Event{{Type: env.Type, Participant: m.Participant}}, nil

	case domain.MsgTypeParticipantLeft:
		var m domain.ParticipantLeftMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return []Event{{Type: env.Type, SessionID: m.SessionID}}, nil

	case domain.MsgTypeAppMessage:
		var m domain.AppMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return []Event{{Type: env.Type, App: m}}, nil

	case domain.MsgTypeTrackStarted, domain.MsgTypeTrackStopped:
		var m domain.TrackMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		ev := Event{Type: env.Type, Track: m.Track}
		if m.Participant != nil {
			ev.Participant = *m.Participant
		}
		return []Event{ev}, nil

	case domain.MsgTypeRecordingStarted,
		domain.MsgTypeRecordingStopped,
		domain.MsgTypeRecordingError,
		domain.MsgTypeLiveStreamingStarted,
		domain.MsgTypeLiveStreamingStopped:
		var m domain.RecordingEventMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return []Event{{Type: env.Type, Request: m.Request, Error: m.Error}}, nil

	case domain.MsgTypeError:
		var m domain.ErrorMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return []Event{{Type: env.Type, Error: m.Code + ": " + m.Message}}, nil

	case domain.MsgTypeLeft, domain.MsgTypePong:
		return []Event{{Type: env.Type}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
}
