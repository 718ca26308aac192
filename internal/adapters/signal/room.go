package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *Controller) handleJoinRoom(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	env envelope,
	data []byte,
) {
	var p joinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}
	if p.RoomID == "" {
		ctl.respondErrCode(conn, env.ID, codeBadPayload)
		return
	}
	participant, err := domain.NewParticipant(domain.ParticipantID(p.ParticipantID), p.Username)
	if err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	if !ctl.joinLimiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join rate limited")
		ctl.respondErrCode(conn, env.ID, codeRateLimited)
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Str("participant", p.ParticipantID).Msg("join")
	caps, err := ctl.Coord.Join(ctx, sid, domain.RoomID(p.RoomID), participant.ID, participant.Username)
	if err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	ctl.respond(conn, env.ID, joinRoomResult{EngineCapabilities: caps})

	// The response above goes straight to the send channel; flushing
	// the pending queue after it keeps the stream replay behind the
	// capabilities on the wire.
	if sess, ok := ctl.Coord.Registry.Get(sid); ok {
		if err := sess.MarkReady(); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("pending flush")
		}
	}
}

func (ctl *Controller) handleLeaveRoom(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	env envelope,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	if err := ctl.Coord.Leave(ctx, sid); err != nil {
		ctl.respondErr(conn, env.ID, err)
		return
	}
	ctl.respond(conn, env.ID, nil)
}
