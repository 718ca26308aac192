package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
)

// Coordinator owns the protocol state machine behind every signaling
// connection. Each inbound event validates connection state, mutates
// the registries, issues media engine calls and fans notifications
// out to affected peers.
//
// All mutations and engine calls for a single room are serialized
// through that room's lock; events for different rooms proceed fully
// in parallel.
type Coordinator struct {
	Registry *Registry
	Rooms    *RoomRegistry
	Streams  *StreamRegistry
	States   *MediaStateTracker
	Engine   core.MediaEngine

	// EngineTimeout bounds every engine call so a stalled engine
	// cannot wedge a room's event queue.
	EngineTimeout time.Duration

	mu    sync.Mutex
	locks map[domain.RoomID]*sync.Mutex
}

func NewCoordinator(reg *Registry, rooms *RoomRegistry, streams *StreamRegistry, states *MediaStateTracker, engine core.MediaEngine, engineTimeout time.Duration) *Coordinator {
	return &Coordinator{
		Registry:      reg,
		Rooms:         rooms,
		Streams:       streams,
		States:        states,
		Engine:        engine,
		EngineTimeout: engineTimeout,
		locks:         make(map[domain.RoomID]*sync.Mutex),
	}
}

// lockRoom acquires the room's serialization lock and returns it
// held. The last leave drops a lock from the map while a waiter may
// still be queued on it, so after acquiring we re-check that the lock
// is still the one in the map and start over on the current one
// otherwise. Two events for one room never run under different locks.
func (c *Coordinator) lockRoom(roomID domain.RoomID) *sync.Mutex {
	for {
		c.mu.Lock()
		l, ok := c.locks[roomID]
		if !ok {
			l = &sync.Mutex{}
			c.locks[roomID] = l
		}
		c.mu.Unlock()

		l.Lock()

		c.mu.Lock()
		current := c.locks[roomID]
		c.mu.Unlock()
		if current == l {
			return l
		}
		l.Unlock()
	}
}

func (c *Coordinator) dropRoomLock(roomID domain.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, roomID)
}

func (c *Coordinator) engineCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.EngineTimeout)
}

func engineErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrEngineTimeout
	}
	return fmt.Errorf("%w: %v", core.ErrEngine, err)
}

// Join registers the participant, obtains the room router and its
// capabilities, announces the joiner and replays the existing
// members' streams to it as (new-stream, media-state-change) pairs in
// join order, audio before video.
func (c *Coordinator) Join(ctx context.Context, sid core.SessionID, roomID domain.RoomID, pid domain.ParticipantID, username string) (json.RawMessage, error) {
	sess, ok := c.Registry.Get(sid)
	if !ok {
		return nil, core.ErrNotJoined
	}
	if sess.State() != core.SessionUnjoined {
		return nil, core.ErrAlreadyInRoom
	}
	if _, ok := c.Rooms.RoomOf(pid); ok {
		return nil, core.ErrAlreadyInRoom
	}

	l := c.lockRoom(roomID)
	defer l.Unlock()

	ectx, cancel := c.engineCtx(ctx)
	defer cancel()
	if err := c.Engine.CreateRouter(ectx, roomID); err != nil {
		metrics.EngineFailures.Inc()
		return nil, engineErr(err)
	}
	caps, err := c.Engine.Capabilities(ectx, roomID)
	if err != nil {
		metrics.EngineFailures.Inc()
		c.closeRouterIfEmpty(roomID)
		return nil, engineErr(err)
	}

	existing, err := c.Rooms.Join(roomID, pid, username)
	if err != nil {
		c.closeRouterIfEmpty(roomID)
		return nil, err
	}
	if err := sess.Join(roomID, pid, username); err != nil {
		c.Rooms.Leave(roomID, pid)
		c.closeRouterIfEmpty(roomID)
		return nil, err
	}
	c.Registry.BindParticipant(pid, sid)

	metrics.ParticipantsActive.Inc()
	if len(existing) == 0 {
		metrics.RoomsActive.Inc()
	}

	c.notify(roomID, pid, core.NewParticipantJoined(pid, username), "participant-joined")

	for _, m := range existing {
		for _, kind := range domain.Kinds() {
			h, ok := c.Streams.StreamOf(m.ID, kind)
			if !ok {
				continue
			}
			c.deliver(sess, core.NewNewStream(h, m.ID, m.Username, kind), "new-stream")
			c.deliver(sess, core.NewMediaStateChange(m.ID, kind, c.States.GetState(m.ID, kind)), "media-state-change")
		}
	}

	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(roomID)).Str("participant", string(pid)).Msg("joined")
	return caps, nil
}

// Leave removes the participant and closes everything it owned or
// targeted. Explicit leave and abrupt disconnect share this path;
// running it twice is safe.
func (c *Coordinator) Leave(ctx context.Context, sid core.SessionID) error {
	sess, ok := c.Registry.Get(sid)
	if !ok {
		return nil
	}
	roomID, _, ok := sess.Member()
	if !ok {
		return nil
	}

	l := c.lockRoom(roomID)
	defer l.Unlock()

	roomID, pid, ok := sess.Leave()
	if !ok {
		// Disconnect raced an explicit leave; the first one cleaned up.
		return nil
	}

	handles := c.Streams.RemoveParticipantStreams(pid)
	metrics.StreamsActive.Sub(float64(len(handles)))
	handles = append(handles, c.Streams.RemoveParticipantLinks(pid)...)
	c.States.Forget(pid)
	c.Registry.UnbindParticipant(pid)

	// Cleanup is best-effort: a failed close is logged and treated as
	// success so the rest of the room's resources are not leaked.
	for _, h := range handles {
		c.closeHandle(ctx, h)
	}

	empty := c.Rooms.Leave(roomID, pid)
	metrics.ParticipantsActive.Dec()

	c.notify(roomID, pid, core.NewParticipantLeft(pid), "participant-left")

	if empty {
		ectx, cancel := c.engineCtx(ctx)
		if err := c.Engine.CloseRouter(ectx, roomID); err != nil {
			metrics.EngineFailures.Inc()
			log.Warn().Err(err).Str("module", "app.coordinator").Str("room", string(roomID)).Msg("close router")
		}
		cancel()
		c.dropRoomLock(roomID)
		metrics.RoomsActive.Dec()
	}

	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(roomID)).Str("participant", string(pid)).Msg("left")
	return nil
}

// Disconnect reacts to a dropped connection; cleanup is identical to
// an explicit leave.
func (c *Coordinator) Disconnect(ctx context.Context, sid core.SessionID) {
	if err := c.Leave(ctx, sid); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("sid", string(sid)).Msg("disconnect cleanup")
	}
	c.Registry.Unbind(sid)
}

func (c *Coordinator) closeHandle(ctx context.Context, h core.Handle) {
	ectx, cancel := c.engineCtx(ctx)
	defer cancel()
	if err := c.Engine.Close(ectx, h); err != nil {
		metrics.EngineFailures.Inc()
		log.Warn().Err(err).Str("module", "app.coordinator").Str("handle", string(h)).Msg("close handle")
	}
}

// closeRouterIfEmpty undoes router creation when a join failed before
// any membership was recorded.
func (c *Coordinator) closeRouterIfEmpty(roomID domain.RoomID) {
	if _, ok := c.Rooms.Get(roomID); ok {
		return
	}
	ectx, cancel := context.WithTimeout(context.Background(), c.EngineTimeout)
	defer cancel()
	if err := c.Engine.CloseRouter(ectx, roomID); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("room", string(roomID)).Msg("close unused router")
	}
	c.dropRoomLock(roomID)
}

// notify fans an event out to every room member except one.
func (c *Coordinator) notify(roomID domain.RoomID, except domain.ParticipantID, event any, typ string) {
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal event")
		return
	}
	for _, m := range c.Rooms.Members(roomID) {
		if m.ID == except {
			continue
		}
		sess, ok := c.Registry.SessionOf(m.ID)
		if !ok {
			continue
		}
		if err := sess.Deliver(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").Str("participant", string(m.ID)).Str("type", typ).Msg("notify dropped")
			continue
		}
		metrics.NotificationsOut.WithLabelValues(typ).Inc()
	}
}

func (c *Coordinator) deliver(sess *core.Session, event any, typ string) {
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal event")
		return
	}
	if err := sess.Deliver(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("type", typ).Msg("deliver dropped")
		return
	}
	metrics.NotificationsOut.WithLabelValues(typ).Inc()
}
