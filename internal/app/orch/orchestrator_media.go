package orch

import (
	"context"

	"github.com/dkeye/Rundown/internal/app"
	"github.com/dkeye/Rundown/internal/app/sfu"
	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) BindMediaHandlers(mc core.MediaConnection, sid core.SessionID) {
	mc.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		o.OnTrack(trackCtx, sid, track)
	})
	mc.OnClosed(func() { o.OnMediaDisconnect(sid) })
}

func (o *Orchestrator) OnMediaDisconnect(sid core.SessionID) {
	o.cleanupMedia(sid)
}

func (o *Orchestrator) cleanupMedia(sid core.SessionID) {
	if o.Relays != nil {
		stopped := o.Relays.StopRelay(sid)

		roomName, _, ok := o.Registry.RoomOf(sid)
		if ok {
			for _, snap := range o.Registry.MembersOfRoom(roomName) {
				o.Relays.MarkSubscriberDelete(snap.SID, sid)
			}
			for _, info := range stopped {
				o.announceTrack(sid, domain.MsgTypeTrackStopped, info)
			}
		}
	}

	if sess, ok := o.Registry.GetSession(sid); ok {
		if mc := sess.Media(); mc != nil {
			sess.UpdateMedia(nil)
			mc.Close()
		}
	}
}

// OnTrack is called when a new remote media track appears for a given session.
func (o *Orchestrator) OnTrack(ctx context.Context, sid core.SessionID, track *webrtc.TrackRemote) {
	if o.Relays == nil {
		return
	}
	if sess, ok := o.Registry.GetSession(sid); !ok || sess.Media() == nil {
		return
	}
	if replaced := o.Relays.StartRelay(ctx, sid, track); replaced != nil {
		o.announceTrack(sid, domain.MsgTypeTrackStopped, *replaced)
	}

	roomName, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		log.Info().
			Str("module", "sfu").
			Str("sid", string(sid)).
			Msg("OnTrack: no room for sid")
		return
	}

	// Subscribe all existing members in the room to this publisher.
	for _, snap := range o.Registry.MembersOfRoom(roomName) {
		if snap.SID == sid {
			continue
		}
		pc := snap.Session.Media()
		if pc == nil {
			continue
		}
		if err := o.Relays.Subscribe(sid, snap.SID, pc, track); err != nil {
			log.Error().Err(err).Str("module", "sfu").Str("src", string(sid)).Str("dst", string(snap.SID)).Msg("subscribe")
			continue
		}
		o.renegotiate(snap.SID, snap.Session)
	}
	o.announceTrack(sid, domain.MsgTypeTrackStarted, sfu.TrackInfoOf(track))
}

// OnMediaReady is called when MediaConnection is attached to the session (offer/answer done).
// It subscribes this user to all existing relays in the same room and
// reports the tracks already published there.
func (o *Orchestrator) OnMediaReady(sid core.SessionID) {
	if o.Relays == nil {
		return
	}
	room, ok := o.roomOf(sid)
	if !ok {
		return
	}

	// If there is no media connection yet, nothing to do.
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return
	}
	mc := sess.Media()
	if mc == nil {
		return
	}

	subscribed := false
	for _, snap := range o.Registry.MembersOfRoom(room.Room().Name) {
		if snap.SID == sid {
			continue
		}
		for _, src := range o.Relays.SrcTracks(snap.SID) {
			if err := o.Relays.Subscribe(snap.SID, sid, mc, src); err != nil {
				log.Error().Err(err).Str("module", "sfu").Str("src", string(snap.SID)).Str("dst", string(sid)).Msg("subscribe")
				continue
			}
			subscribed = true
		}
		p, ok := room.Participant(snap.SID)
		if !ok {
			continue
		}
		for _, info := range o.Relays.Published(snap.SID) {
			o.sendTo(room, sid, trackMessage(domain.MsgTypeTrackStarted, p, info))
		}
	}
	if subscribed {
		o.renegotiate(sid, sess)
	}
}

// renegotiate offers the member's peer connection its new outgoing tracks.
func (o *Orchestrator) renegotiate(sid core.SessionID, sess core.MemberSession) {
	mc, sig := sess.Media(), sess.Signal()
	if mc == nil || sig == nil {
		return
	}
	offer, err := mc.CreateAndSetOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "sfu").Str("sid", string(sid)).Msg("renegotiation offer")
		return
	}
	frame, err := frameOf(map[string]string{"type": domain.MsgTypeOffer, "sdp": offer.SDP})
	if err != nil {
		return
	}
	if err := sig.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "sfu").Str("sid", string(sid)).Msg("renegotiation offer not sent")
	}
}

func trackMessage(typ string, p domain.Participant, info domain.TrackInfo) domain.TrackMessage {
	// Tracks are announced without the sticky payload.
	p.UserData = nil
	return domain.TrackMessage{Type: typ, Participant: &p, Track: info}
}

// announceTrack tells sid's room mates that one of sid's tracks started or stopped.
func (o *Orchestrator) announceTrack(sid core.SessionID, typ string, info domain.TrackInfo) {
	room, ok := o.roomOf(sid)
	if !ok {
		return
	}
	p, ok := room.Participant(sid)
	if !ok {
		p = domain.Participant{SessionID: string(sid)}
	}
	app.TrackEvents.WithLabelValues(info.Kind, typ).Inc()
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("kind", info.Kind).Str("track_id", info.ID).Msg(typ)
	o.publish(room, sid, trackMessage(typ, p, info))
}

func (o *Orchestrator) sendTo(room core.RoomService, to core.SessionID, v any) {
	frame, err := frameOf(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal")
		return
	}
	if err := room.SendTo(to, frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("to", string(to)).Msg("send")
	}
}
