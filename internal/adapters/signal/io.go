package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/metrics"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
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

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Coord.Disconnect(context.Background(), sid)
		ctl.joinLimiter.Forget(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

func (ctl *Controller) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.respondErrCode(c, "", codeBadPayload)
		return
	}
	metrics.EventsIn.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case "join-room":
		ctl.handleJoinRoom(ctx, sid, c, env, data)
	case "leave-room":
		ctl.handleLeaveRoom(ctx, sid, c, env)
	case "create-transport":
		ctl.handleCreateTransport(ctx, sid, c, env, data)
	case "connect-transport":
		ctl.handleConnectTransport(ctx, sid, c, env, data)
	case "create-producer":
		ctl.handleCreateProducer(ctx, sid, c, env, data)
	case "consume":
		ctl.handleConsume(ctx, sid, c, env, data)
	case "media-state-update":
		ctl.handleMediaState(ctx, sid, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.respondErrCode(c, env.ID, codeBadPayload)
	}
}

func (ctl *Controller) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

func (ctl *Controller) respond(c *WsSignalConn, id string, data any) {
	ctl.sendJSON(c, response{Type: "response", ID: id, OK: true, Data: data})
}

func (ctl *Controller) respondErr(c *WsSignalConn, id string, err error) {
	ctl.respondErrCode(c, id, errorCode(err))
}

func (ctl *Controller) respondErrCode(c *WsSignalConn, id, code string) {
	ctl.sendJSON(c, response{Type: "response", ID: id, OK: false, Error: code})
}
