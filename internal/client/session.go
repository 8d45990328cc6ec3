package client

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/authority"
	"github.com/dkeye/Rundown/internal/domain"
)

var ErrLeft = errors.New("removed from the room")

// Session owns a Controller and feeds it, one at a time, the events of the
// call and the commands of the local user.
type Session struct {
	ctrl   *authority.Controller
	events <-chan Event
	cmds   chan func(*authority.Controller)
	logger zerolog.Logger
}

func NewSession(ctrl *authority.Controller, events <-chan Event, logger zerolog.Logger) *Session {
	return &Session{
		ctrl:   ctrl,
		events: events,
		cmds:   make(chan func(*authority.Controller)),
		logger: logger.With().Str("module", "client.session").Logger(),
	}
}

// Run processes events and commands until ctx is done or the call ends.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.events:
			if !ok {
				return ErrClosed
			}
			if err := s.dispatch(ev); err != nil {
				return err
			}
		case fn := <-s.cmds:
			fn(s.ctrl)
		}
	}
}

// Do runs fn on the session loop and waits for it to finish.
func (s *Session) Do(ctx context.Context, fn func(*authority.Controller)) error {
	done := make(chan struct{})
	cmd := func(c *authority.Controller) {
		defer close(done)
		fn(c)
	}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) dispatch(ev Event) error {
	switch ev.Type {
	case domain.MsgTypeJoined:
		s.logger.Info().Str("sid", ev.SessionID).Msg("joined")
		s.ctrl.OnJoined()
	case domain.MsgTypeParticipantJoined:
		s.ctrl.OnParticipantJoined(ev.Participant)
	case domain.MsgTypeParticipantLeft:
		s.ctrl.OnParticipantLeft(ev.SessionID)
	case domain.MsgTypeAppMessage:
		s.ctrl.OnAppMessage(ev.App)
	case domain.MsgTypeTrackStarted:
		s.ctrl.OnTrackStarted(ev.Participant, ev.Track)
	case domain.MsgTypeTrackStopped:
		s.ctrl.OnTrackStopped(ev.Track)
	case domain.MsgTypeRecordingStarted:
		s.ctrl.OnRecordingStarted()
	case domain.MsgTypeRecordingStopped:
		s.ctrl.OnRecordingStopped()
	case domain.MsgTypeRecordingError:
		if domain.IsLiveStreamingRequest(ev.Request) {
			s.ctrl.OnLiveStreamingError(ev.Error)
		} else {
			s.ctrl.OnRecordingError(ev.Error)
		}
	case domain.MsgTypeLiveStreamingStarted:
		s.ctrl.OnLiveStreamingStarted()
	case domain.MsgTypeLiveStreamingStopped:
		s.ctrl.OnLiveStreamingStopped()
	case domain.MsgTypeError:
		s.logger.Warn().Str("error", ev.Error).Msg("server rejected a request")
	case domain.MsgTypeLeft:
		return ErrLeft
	}
	return nil
}
