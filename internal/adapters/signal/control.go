package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Rundown/internal/app/orch"
	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, domain.Envelope{Type: domain.MsgTypePong})
}

// handleRecording drives the room's recording and live stream. Failures are
// reported to the requester as recording-error naming the request.
func (ctl *SignalWSController) handleRecording(
	sid core.SessionID,
	conn *WsSignalConn,
	typ string,
	data []byte,
) {
	var p domain.RecordingMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", typ).Msg("bad recording payload")
		ctl.sendError(conn, domain.ErrCodeBadPayload, "malformed "+typ)
		return
	}

	var err error
	switch typ {
	case domain.MsgTypeStartRecording:
		err = ctl.Orch.StartRecording(sid, p.Layout)
	case domain.MsgTypeUpdateRecording:
		err = ctl.Orch.UpdateRecording(sid, p.Layout)
	case domain.MsgTypeStopRecording:
		err = ctl.Orch.StopRecording(sid)
	case domain.MsgTypeStartLiveStreaming:
		err = ctl.Orch.StartLiveStreaming(sid, p.RtmpURL, p.Layout)
	case domain.MsgTypeUpdateLiveStreaming:
		err = ctl.Orch.UpdateLiveStreaming(sid, p.Layout)
	case domain.MsgTypeStopLiveStreaming:
		err = ctl.Orch.StopLiveStreaming(sid)
	}
	if err == nil {
		return
	}
	if errors.Is(err, orch.ErrNotInRoom) {
		ctl.sendError(conn, errorCode(err), err.Error())
		return
	}
	ctl.sendJSON(conn, domain.RecordingEventMessage{
		Type:    domain.MsgTypeRecordingError,
		Request: typ,
		Error:   typ + ": " + err.Error(),
	})
}

// errorCode maps orchestrator errors onto wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, orch.ErrNotInRoom):
		return domain.ErrCodeNotInRoom
	case errors.Is(err, orch.ErrNoRecipient):
		return domain.ErrCodeNoRecipient
	case errors.Is(err, orch.ErrAlreadyActive):
		return domain.ErrCodeAlreadyInUse
	case errors.Is(err, orch.ErrNotActive):
		return domain.ErrCodeNotActive
	case errors.Is(err, orch.ErrNoRTMPURL):
		return domain.ErrCodeNoRtmpURL
	default:
		return domain.ErrCodeBadPayload
	}
}
