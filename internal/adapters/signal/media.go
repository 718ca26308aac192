package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *Controller) handleCreateTransport(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	env envelope,
	data []byte,
) {
	var p createTransportPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-transport payload")
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}

	desc, err := ctl.Coord.CreateTransport(ctx, sid, p.Producing)
	if err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	ctl.respond(conn, env.ID, desc)
}

func (ctl *Controller) handleConnectTransport(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	env envelope,
	data []byte,
) {
	var p connectTransportPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad connect-transport payload")
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}
	if p.TransportID == "" {
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}

	if err := ctl.Coord.ConnectTransport(ctx, sid, core.TransportID(p.TransportID), p.DTLSParameters); err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	ctl.respond(conn, env.ID, nil)
}

func (ctl *Controller) handleCreateProducer(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	env envelope,
	data []byte,
) {
	var p createProducerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-producer payload")
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}
	kind, err := domain.ParseKind(p.Kind)
	if err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	if p.TransportID == "" {
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}

	h, err := ctl.Coord.Produce(ctx, sid, core.TransportID(p.TransportID), kind, p.RTPParameters)
	if err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	ctl.respond(conn, env.ID, createProducerResult{StreamID: h})
}

func (ctl *Controller) handleConsume(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	env envelope,
	data []byte,
) {
	var p consumePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad consume payload")
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}
	if p.TransportID == "" || p.StreamID == "" {
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}

	desc, err := ctl.Coord.Consume(ctx, sid, core.TransportID(p.TransportID), core.Handle(p.StreamID), p.Capabilities)
	if err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	ctl.respond(conn, env.ID, desc)
}

// media-state-update is fire-and-forget; failures are logged, never
// answered.
func (ctl *Controller) handleMediaState(
	ctx context.Context,
	sid core.SessionID,
	data []byte,
) {
	var p mediaStatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad media-state payload")
		return
	}
	kind, err := domain.ParseKind(p.Kind)
	if err != nil {
		log.Warn().Str("module", "signal").Str("kind", p.Kind).Msg("media-state unknown kind")
		return
	}

	if err := ctl.Coord.SetMediaState(ctx, sid, kind, p.Enabled); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("media-state update")
	}
}
