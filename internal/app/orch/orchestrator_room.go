package orch

import (
	"context"

	"github.com/dkeye/Rundown/internal/app"
	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join moves sid into roomName, announces it to the members already there
// and returns the room. Members already in the room, with their user data,
// are the caller's to report to sid.
func (o *Orchestrator) Join(sid core.SessionID, roomName domain.RoomName) (core.RoomService, bool) {
	if from, _, ok := o.Registry.RoomOf(sid); ok {
		o.Leave(sid)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(from)).Msg("left previous room")
	}
	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return nil, false
	}
	// A rejoin starts with a clean record.
	session.Meta().UserData = nil

	room := o.Rooms.GetOrCreate(roomName)
	room.AddMember(sid, session)
	o.Registry.UpdateRoom(sid, roomName)
	app.MembersGauge.Inc()
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomName)).Msg("added to room")

	if p, ok := room.Participant(sid); ok {
		o.Broadcast(sid, domain.ParticipantMessage{Type: domain.MsgTypeParticipantJoined, Participant: p})
	}
	return room, true
}

// Leave takes sid out of its room and tells the remaining members.
func (o *Orchestrator) Leave(sid core.SessionID) {
	roomName, _, ok := o.Registry.RoomOf(sid)
	o.KickBySID(sid)
	if ok {
		o.BroadcastRoom(roomName, domain.ParticipantLeftMessage{
			Type:      domain.MsgTypeParticipantLeft,
			SessionID: string(sid),
		})
	}
}

func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.cleanupMedia(sid)
	o.cleanupMembership(sid)
}

func (o *Orchestrator) cleanupMembership(sid core.SessionID) {
	roomName, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	if room, ok := o.Rooms.Get(roomName); ok {
		room.RemoveMember(sid)
		app.MembersGauge.Dec()
	}
	o.Registry.RemoveRoom(sid)
}

// EvictRoom disconnects every member and drops the room.
func (o *Orchestrator) EvictRoom(name domain.RoomName) bool {
	if _, ok := o.Rooms.Get(name); !ok {
		return false
	}
	for _, snap := range o.Registry.MembersOfRoom(name) {
		o.KickBySID(snap.SID)
		if sig := snap.Session.Signal(); sig != nil {
			if f, err := frameOf(map[string]string{"type": domain.MsgTypeLeft}); err == nil {
				_ = sig.TrySend(f)
			}
		}
	}
	o.Rooms.StopRoom(name)
	log.Info().Str("module", "orch").Str("room", string(name)).Msg("room evicted")
	return true
}

// Connect binds a new signaling session to sid. A previous connection with
// the same token leaves its room and is canceled.
func (o *Orchestrator) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	if _, _, ok := o.Registry.RoomOf(sid); ok {
		o.Leave(sid)
	}
	o.Registry.BindSignal(sid, sess, cancel)
}

// Disconnect is called when sid's signaling connection is gone.
func (o *Orchestrator) Disconnect(sid core.SessionID, sess core.MemberSession) {
	if cur, ok := o.Registry.GetSession(sid); ok && cur != sess {
		// Replaced by a newer connection with the same token.
		return
	}
	o.Leave(sid)
	o.Registry.Unbind(sid, sess)
}
