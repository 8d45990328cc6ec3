package signal

import (
	"encoding/json"

	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad rename payload")
		ctl.sendError(conn, domain.ErrCodeBadPayload, "malformed rename")
		return
	}
	if err := ctl.Orch.Registry.UpdateUsername(sid, p.Name); err != nil {
		ctl.sendError(conn, domain.ErrCodeInvalidName, err.Error())
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(sid, conn)
}

func (ctl *SignalWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	user := ctl.Orch.Registry.GetOrCreateUser(sid)

	resp := struct {
		Type      string          `json:"type"`
		SessionID string          `json:"session_id"`
		Username  string          `json:"username"`
		Room      domain.RoomID   `json:"room,omitempty"`
		RoomName  domain.RoomName `json:"room_name,omitempty"`
	}{
		Type:      domain.MsgTypeWhoAmI,
		SessionID: string(sid),
		Username:  user.Username,
	}
	if name, _, ok := ctl.Orch.Registry.RoomOf(sid); ok {
		if room, ok := ctl.Orch.Rooms.Get(name); ok {
			resp.RoomName = name
			resp.Room = room.Room().ID
		}
	}
	ctl.sendJSON(conn, resp)
}
