package signal

import (
	"encoding/json"

	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleAppMessage(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	if !ctl.limiter.Allow(domain.UserID(sid)) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("app message rate limited")
		ctl.sendError(conn, domain.ErrCodeRateLimited, "too many app messages")
		return
	}
	var p domain.SendAppMessage
	if err := json.Unmarshal(data, &p); err != nil || len(p.Data) == 0 {
		log.Error().Err(err).Str("module", "signal").Msg("bad app-message payload")
		ctl.sendError(conn, domain.ErrCodeBadPayload, "app-message needs data")
		return
	}
	if err := ctl.Orch.RelayAppMessage(sid, p.To, p.Data); err != nil {
		ctl.sendError(conn, errorCode(err), err.Error())
	}
}

func (ctl *SignalWSController) handleSetUserData(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p domain.SetUserDataMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad set-user-data payload")
		ctl.sendError(conn, domain.ErrCodeBadPayload, "malformed set-user-data")
		return
	}
	if err := ctl.Orch.SetUserData(sid, p.Data); err != nil {
		ctl.sendError(conn, errorCode(err), err.Error())
	}
}
