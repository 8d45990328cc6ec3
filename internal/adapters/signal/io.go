package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Info().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, sess core.MemberSession, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Orch.Disconnect(sid, sess)
		ctl.limiter.Forget(domain.UserID(sid))
	}()

	// Pongs must arrive within two ping periods.
	deadline := 2 * ctl.opts.PingPeriod
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		if ctx.Err() != nil {
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
		ctl.handleSignal(sid, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.sendError(c, domain.ErrCodeBadPayload, "malformed message")
		return
	}

	switch env.Type {
	case domain.MsgTypeJoin:
		ctl.handleJoin(sid, c, data)
	case domain.MsgTypeLeave:
		ctl.handleLeave(sid, c)
	case domain.MsgTypePing:
		ctl.handlePing(c)
	case domain.MsgTypeRename:
		ctl.handleRename(sid, c, data)
	case domain.MsgTypeWhoAmI:
		ctl.handleWhoAmI(sid, c)
	case domain.MsgTypeAppMessage:
		ctl.handleAppMessage(sid, c, data)
	case domain.MsgTypeSetUserData:
		ctl.handleSetUserData(sid, c, data)
	case domain.MsgTypeOffer:
		ctl.handleOffer(sid, c, data)
	case domain.MsgTypeAnswer:
		ctl.handleAnswer(sid, c, data)
	case domain.MsgTypeCandidate:
		ctl.handleCandidate(sid, c, data)
	case domain.MsgTypeStartRecording,
		domain.MsgTypeUpdateRecording,
		domain.MsgTypeStopRecording,
		domain.MsgTypeStartLiveStreaming,
		domain.MsgTypeUpdateLiveStreaming,
		domain.MsgTypeStopLiveStreaming:
		ctl.handleRecording(sid, c, env.Type, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON")
	}
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, code, message string) {
	ctl.sendJSON(c, domain.NewErrorMessage(code, message))
}
