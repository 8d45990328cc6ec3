package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Rundown/internal/app"
	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

// RelayAppMessage forwards opaque app data from sid to one member of its
// room, or to every other member when to is domain.BroadcastRecipient.
// Delivery is best effort.
func (o *Orchestrator) RelayAppMessage(sid core.SessionID, to string, data json.RawMessage) error {
	room, ok := o.roomOf(sid)
	if !ok {
		return ErrNotInRoom
	}
	msg := domain.AppMessage{Type: domain.MsgTypeAppMessage, FromID: string(sid), Data: data}

	if to == "" || to == domain.BroadcastRecipient {
		app.AppMessages.WithLabelValues("broadcast").Inc()
		o.publish(room, sid, msg)
		return nil
	}

	frame, err := frameOf(msg)
	if err != nil {
		return err
	}
	app.AppMessages.WithLabelValues("unicast").Inc()
	if err := room.SendTo(core.SessionID(to), frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("to", to).Msg("app message not delivered")
		if errors.Is(err, core.ErrMemberNotFound) {
			return ErrNoRecipient
		}
		return err
	}
	return nil
}

// SetUserData replaces sid's sticky payload. It is handed to everyone who
// joins the room afterwards.
func (o *Orchestrator) SetUserData(sid core.SessionID, data json.RawMessage) error {
	room, ok := o.roomOf(sid)
	if !ok {
		return ErrNotInRoom
	}
	return room.SetUserData(sid, data)
}
