package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
)

// member resolves the joined identity behind a connection, failing
// with ErrNotJoined for events received before join completes.
func (c *Coordinator) member(sid core.SessionID) (*core.Session, domain.RoomID, domain.ParticipantID, error) {
	sess, ok := c.Registry.Get(sid)
	if !ok {
		return nil, "", "", core.ErrNotJoined
	}
	roomID, pid, ok := sess.Member()
	if !ok {
		return nil, "", "", core.ErrNotJoined
	}
	return sess, roomID, pid, nil
}

func (c *Coordinator) CreateTransport(ctx context.Context, sid core.SessionID, producing bool) (*core.TransportDescription, error) {
	sess, roomID, _, err := c.member(sid)
	if err != nil {
		return nil, err
	}

	l := c.lockRoom(roomID)
	defer l.Unlock()
	if _, _, ok := sess.Member(); !ok {
		return nil, core.ErrNotJoined
	}

	ectx, cancel := c.engineCtx(ctx)
	defer cancel()
	desc, err := c.Engine.CreateTransport(ectx, roomID, producing)
	if err != nil {
		metrics.EngineFailures.Inc()
		return nil, engineErr(err)
	}
	return desc, nil
}

func (c *Coordinator) ConnectTransport(ctx context.Context, sid core.SessionID, id core.TransportID, dtlsParams json.RawMessage) error {
	sess, roomID, _, err := c.member(sid)
	if err != nil {
		return err
	}

	l := c.lockRoom(roomID)
	defer l.Unlock()
	if _, _, ok := sess.Member(); !ok {
		return core.ErrNotJoined
	}

	ectx, cancel := c.engineCtx(ctx)
	defer cancel()
	if err := c.Engine.ConnectTransport(ectx, id, dtlsParams); err != nil {
		metrics.EngineFailures.Inc()
		return engineErr(err)
	}
	return nil
}

// Produce creates the engine-side stream and registers it. A second
// produce of the same kind replaces the prior stream; the replaced
// handle is closed before the new mapping is visible, never leaked.
func (c *Coordinator) Produce(ctx context.Context, sid core.SessionID, id core.TransportID, kind domain.Kind, rtpParams json.RawMessage) (core.Handle, error) {
	sess, roomID, pid, err := c.member(sid)
	if err != nil {
		return "", err
	}

	l := c.lockRoom(roomID)
	defer l.Unlock()
	if _, _, ok := sess.Member(); !ok {
		return "", core.ErrNotJoined
	}

	ectx, cancel := c.engineCtx(ctx)
	defer cancel()
	h, err := c.Engine.CreateProducer(ectx, id, kind, rtpParams)
	if err != nil {
		metrics.EngineFailures.Inc()
		return "", engineErr(err)
	}

	prior, replaced := c.Streams.Register(pid, kind, h)
	if replaced {
		c.closeHandle(ctx, prior)
	} else {
		metrics.StreamsActive.Inc()
	}

	// A state toggled before producing is remembered and applied once
	// the stream appears.
	if !c.States.GetState(pid, kind) {
		pctx, pcancel := c.engineCtx(ctx)
		if err := c.Engine.Pause(pctx, h); err != nil {
			metrics.EngineFailures.Inc()
			log.Warn().Err(err).Str("module", "app.coordinator").Str("stream", string(h)).Msg("pause on produce")
		}
		pcancel()
	}

	c.notify(roomID, pid, core.NewNewStream(h, pid, sess.Username(), kind), "new-stream")
	return h, nil
}

// Consume binds an engine consumer to another member's stream. At
// most one consumption link exists per (consumer, source, kind); a
// repeat call returns the existing consumer without touching the
// engine.
func (c *Coordinator) Consume(ctx context.Context, sid core.SessionID, id core.TransportID, streamID core.Handle, capabilities json.RawMessage) (*core.ConsumerDescription, error) {
	sess, roomID, pid, err := c.member(sid)
	if err != nil {
		return nil, err
	}

	l := c.lockRoom(roomID)
	defer l.Unlock()
	if _, _, ok := sess.Member(); !ok {
		return nil, core.ErrNotJoined
	}

	info, ok := c.Streams.Lookup(streamID)
	if !ok {
		return nil, core.ErrStreamNotFound
	}
	if sourceRoom, ok := c.Rooms.RoomOf(info.Owner); !ok || sourceRoom != roomID {
		return nil, core.ErrStreamNotFound
	}
	if info.Owner == pid {
		return nil, core.ErrOwnStream
	}

	if desc, ok := c.Streams.Link(pid, info.Owner, info.Kind); ok {
		if desc.StreamID == streamID {
			return desc, nil
		}
		// The link points at a replaced stream; rebuild it.
		c.closeHandle(ctx, desc.ID)
	}

	ectx, cancel := c.engineCtx(ctx)
	defer cancel()
	desc, err := c.Engine.CreateConsumer(ectx, roomID, id, streamID, capabilities)
	if err != nil {
		metrics.EngineFailures.Inc()
		return nil, engineErr(err)
	}
	desc.ParticipantID = info.Owner
	desc.Kind = info.Kind

	c.Streams.AddLink(pid, info.Owner, info.Kind, desc)
	return desc, nil
}

// SetMediaState records the flag, pauses or resumes the engine
// stream when one exists and announces the change either way, so a
// late toggle is still replayed to future members.
func (c *Coordinator) SetMediaState(ctx context.Context, sid core.SessionID, kind domain.Kind, enabled bool) error {
	sess, roomID, pid, err := c.member(sid)
	if err != nil {
		return err
	}

	l := c.lockRoom(roomID)
	defer l.Unlock()
	if _, _, ok := sess.Member(); !ok {
		return core.ErrNotJoined
	}

	c.States.SetState(pid, kind, enabled)

	if h, ok := c.Streams.StreamOf(pid, kind); ok {
		ectx, cancel := c.engineCtx(ctx)
		op, name := c.Engine.Pause, "pause"
		if enabled {
			op, name = c.Engine.Resume, "resume"
		}
		if err := op(ectx, h); err != nil {
			metrics.EngineFailures.Inc()
			log.Warn().Err(err).Str("module", "app.coordinator").Str("stream", string(h)).Str("op", name).Msg("media state")
		}
		cancel()
	}

	c.notify(roomID, pid, core.NewMediaStateChange(pid, kind, enabled), "media-state-change")
	return nil
}
