// Package orch wires rooms, sessions and media relays together and fans
// signaling events out to room members.
package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Rundown/internal/app"
	"github.com/dkeye/Rundown/internal/app/sfu"
	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInRoom     = errors.New("not in a room")
	ErrNoRecipient   = errors.New("recipient not in room")
	ErrAlreadyActive = errors.New("already active")
	ErrNotActive     = errors.New("not active")
	ErrNoRTMPURL     = errors.New("rtmp url required")
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Relays   *sfu.RelayManager
}

func frameOf(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}

// roomOf resolves the room sid is in.
func (o *Orchestrator) roomOf(sid core.SessionID) (core.RoomService, bool) {
	roomName, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, false
	}
	return o.Rooms.Get(roomName)
}

// Broadcast sends v to every member of sid's room except sid.
func (o *Orchestrator) Broadcast(sid core.SessionID, v any) {
	room, ok := o.roomOf(sid)
	if !ok {
		return
	}
	o.publish(room, sid, v)
}

// BroadcastRoom sends v to every member of the room.
func (o *Orchestrator) BroadcastRoom(name domain.RoomName, v any) {
	room, ok := o.Rooms.Get(name)
	if !ok {
		return
	}
	o.publish(room, "", v)
}

func (o *Orchestrator) publish(room core.RoomService, from core.SessionID, v any) {
	data, err := frameOf(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal broadcast")
		return
	}
	res := room.Broadcast(from, data)
	o.onDropped(room, res.Dropped)
}

func (o *Orchestrator) onDropped(room core.RoomService, dropped []core.MemberSession) {
	if len(dropped) == 0 {
		return
	}
	if o.Policy == nil {
		app.DroppedFrames.WithLabelValues("none").Add(float64(len(dropped)))
		return
	}
	for _, slow := range dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			app.DroppedFrames.WithLabelValues("kick").Inc()
			for _, snap := range o.Registry.MembersOfRoom(room.Room().Name) {
				if snap.Session == slow {
					log.Warn().Str("module", "orch").Str("sid", string(snap.SID)).Msg("kicking slow member")
					o.Registry.Cancel(snap.SID)
				}
			}
		case app.MarkSlow, app.DropFrame, app.NoAction:
			app.DroppedFrames.WithLabelValues("drop").Inc()
		}
	}
}
