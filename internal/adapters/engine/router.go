package engine

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type transport struct {
	id        core.TransportID
	pc        *webrtc.PeerConnection
	producing bool
}

// producer is an engine-side stream slot. The relay is nil until the
// remote track actually arrives on the producing transport; consumers
// attached before that are parked in pending.
type producer struct {
	handle    core.Handle
	kind      domain.Kind
	transport core.TransportID

	mu      sync.Mutex
	relay   *relay
	paused  bool
	pending map[core.Handle]*outTrack
}

func (p *producer) bind(rel *relay) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.relay = rel
	rel.paused.Store(p.paused)
	for h, ot := range p.pending {
		rel.addOut(h, ot)
	}
	p.pending = nil
}

func (p *producer) attach(h core.Handle, ot *outTrack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.relay != nil {
		p.relay.addOut(h, ot)
		return
	}
	if p.pending == nil {
		p.pending = make(map[core.Handle]*outTrack)
	}
	p.pending[h] = ot
}

func (p *producer) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = paused
	if p.relay != nil {
		p.relay.paused.Store(paused)
	}
}

func (p *producer) srcCodec() (webrtc.RTPCodecCapability, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.relay == nil {
		return webrtc.RTPCodecCapability{}, false
	}
	return p.relay.src.Codec().RTPCodecCapability, true
}

func (p *producer) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.relay != nil {
		p.relay.stop()
		p.relay = nil
	}
	p.pending = nil
}

type consumer struct {
	handle   core.Handle
	producer core.Handle
	out      *outTrack
	sender   *webrtc.RTPSender
	pc       *webrtc.PeerConnection
}

// router is the per-room routing context transports, producers and
// consumers are created against.
type router struct {
	id     domain.RoomID
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	transports map[core.TransportID]*transport
	producers  map[core.Handle]*producer
	consumers  map[core.Handle]*consumer
}

func newRouter(parent context.Context, id domain.RoomID) *router {
	ctx, cancel := context.WithCancel(parent)
	return &router{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		transports: make(map[core.TransportID]*transport),
		producers:  make(map[core.Handle]*producer),
		consumers:  make(map[core.Handle]*consumer),
	}
}

// bindTrack matches an arrived remote track to the unbound producer
// of the same kind on the same transport and starts its relay.
func (r *router) bindTrack(tid core.TransportID, track *webrtc.TrackRemote) {
	kind := domain.KindVideo
	if track.Kind() == webrtc.RTPCodecTypeAudio {
		kind = domain.KindAudio
	}

	r.mu.RLock()
	var slot *producer
	for _, p := range r.producers {
		if p.transport == tid && p.kind == kind {
			slot = p
			break
		}
	}
	r.mu.RUnlock()

	if slot == nil {
		log.Warn().Str("module", "engine").Str("room", string(r.id)).Str("kind", string(kind)).Msg("track without producer slot")
		return
	}

	logger := log.With().
		Str("module", "engine").
		Str("room", string(r.id)).
		Str("stream", string(slot.handle)).
		Logger()

	relayCtx, cancel := context.WithCancel(r.ctx)
	rel := newRelay(track, cancel)
	slot.bind(rel)

	logger.Info().Msg("starting relay loop")
	go rel.loop(relayCtx, &logger)
}

func (r *router) close() {
	r.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.producers {
		p.stop()
	}
	for _, t := range r.transports {
		if err := t.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "engine").Str("room", string(r.id)).Msg("close transport")
		}
	}
	r.transports = make(map[core.TransportID]*transport)
	r.producers = make(map[core.Handle]*producer)
	r.consumers = make(map[core.Handle]*consumer)
}
