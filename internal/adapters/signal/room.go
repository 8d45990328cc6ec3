package signal

import (
	"encoding/json"

	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleJoin admits sid into a room under the given name. When a token is
// configured for that name the client must present it.
func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p domain.JoinMessage
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, domain.ErrCodeBadPayload, "join needs a room")
		return
	}
	if len(p.Room) > domain.MaxRoomNameLen {
		p.Room = p.Room[:domain.MaxRoomNameLen]
	}

	if p.Name != "" {
		if want := ctl.opts.RoomTokens[p.Name]; want != "" && p.Token != want {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Name).Msg("join rejected: bad token")
			ctl.sendError(conn, domain.ErrCodeBadToken, "invalid token for "+p.Name)
			return
		}
		if err := ctl.Orch.Registry.UpdateUsername(sid, p.Name); err != nil {
			ctl.sendError(conn, domain.ErrCodeInvalidName, err.Error())
			return
		}
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join")
	room, ok := ctl.Orch.Join(sid, domain.RoomName(p.Room))
	if !ok {
		ctl.sendError(conn, domain.ErrCodeNotInRoom, "no session for join")
		return
	}

	others := make([]domain.Participant, 0, room.MemberCount())
	for _, part := range room.Participants() {
		if part.SessionID != string(sid) {
			others = append(others, part)
		}
	}
	ctl.sendJSON(conn, domain.JoinedMessage{
		Type:         domain.MsgTypeJoined,
		SessionID:    string(sid),
		Room:         room.Room().ID,
		RoomName:     room.Room().Name,
		Participants: others,
	})
}

// handleLeave exits the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(sid)
	ctl.sendJSON(conn, domain.Envelope{Type: domain.MsgTypeLeft})
}
