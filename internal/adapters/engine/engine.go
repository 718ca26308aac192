// Package engine implements the media engine capability set on top
// of pion. Each room gets a router; producing transports feed RTP
// relays that fan out to consumer tracks. No session semantics live
// here.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

var (
	ErrRouterNotFound    = errors.New("router not found")
	ErrTransportNotFound = errors.New("transport not found")
	ErrProducerNotFound  = errors.New("producer not found")
	ErrHandleNotFound    = errors.New("handle not found")
	ErrNotProducing      = errors.New("transport is not producing")
)

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

type codecCapability struct {
	MimeType  string `json:"mimeType"`
	ClockRate uint32 `json:"clockRate"`
	Channels  uint16 `json:"channels,omitempty"`
}

func codecForKind(kind domain.Kind) webrtc.RTPCodecCapability {
	if kind == domain.KindAudio {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	}
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
}

// Engine implements core.MediaEngine in-process.
type Engine struct {
	ctx context.Context
	cfg webrtc.Configuration

	mu      sync.RWMutex
	routers map[domain.RoomID]*router
}

func New(ctx context.Context, cfg webrtc.Configuration) *Engine {
	return &Engine{
		ctx:     ctx,
		cfg:     cfg,
		routers: make(map[domain.RoomID]*router),
	}
}

// CreateRouter is idempotent per room.
func (e *Engine) CreateRouter(_ context.Context, room domain.RoomID) error {
	e.mu.RLock()
	_, ok := e.routers[room]
	e.mu.RUnlock()
	if ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.routers[room]; !ok {
		e.routers[room] = newRouter(e.ctx, room)
		log.Info().Str("module", "engine").Str("room", string(room)).Msg("router created")
	}
	return nil
}

func (e *Engine) CloseRouter(_ context.Context, room domain.RoomID) error {
	e.mu.Lock()
	r, ok := e.routers[room]
	if ok {
		delete(e.routers, room)
	}
	e.mu.Unlock()
	if !ok {
		return ErrRouterNotFound
	}
	r.close()
	log.Info().Str("module", "engine").Str("room", string(room)).Msg("router closed")
	return nil
}

func (e *Engine) Capabilities(_ context.Context, room domain.RoomID) (json.RawMessage, error) {
	if _, err := e.router(room); err != nil {
		return nil, err
	}
	caps := struct {
		Codecs []codecCapability `json:"codecs"`
	}{
		Codecs: []codecCapability{
			{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		},
	}
	return json.Marshal(caps)
}

func (e *Engine) router(room domain.RoomID) (*router, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.routers[room]
	if !ok {
		return nil, ErrRouterNotFound
	}
	return r, nil
}

// CreateTransport builds a PeerConnection and returns its gathered
// offer for the client to answer via ConnectTransport. Producing
// transports get recvonly transceivers and feed the router's relays.
func (e *Engine) CreateTransport(ctx context.Context, room domain.RoomID, producing bool) (*core.TransportDescription, error) {
	r, err := e.router(room)
	if err != nil {
		return nil, err
	}

	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		return nil, err
	}
	tid := core.TransportID(uuid.NewString())

	if producing {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
				_ = pc.Close()
				return nil, err
			}
		}
		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			log.Info().
				Str("module", "engine").
				Str("room", string(room)).
				Str("kind", track.Kind().String()).
				Str("track_id", track.ID()).
				Msg("remote track received")
			r.bindTrack(tid, track)
		})
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return nil, err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		_ = pc.Close()
		return nil, ctx.Err()
	}

	raw, err := json.Marshal(pc.LocalDescription())
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	r.mu.Lock()
	r.transports[tid] = &transport{id: tid, pc: pc, producing: producing}
	r.mu.Unlock()

	log.Info().Str("module", "engine").Str("room", string(room)).Str("transport", string(tid)).Bool("producing", producing).Msg("transport created")
	return &core.TransportDescription{ID: tid, Producing: producing, Offer: raw}, nil
}

// ConnectTransport applies the client's answer.
func (e *Engine) ConnectTransport(_ context.Context, id core.TransportID, dtlsParams json.RawMessage) error {
	t, _, err := e.transport(id)
	if err != nil {
		return err
	}
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(dtlsParams, &answer); err != nil {
		return err
	}
	return t.pc.SetRemoteDescription(answer)
}

func (e *Engine) transport(id core.TransportID) (*transport, *router, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.routers {
		r.mu.RLock()
		t, ok := r.transports[id]
		r.mu.RUnlock()
		if ok {
			return t, r, nil
		}
	}
	return nil, nil, ErrTransportNotFound
}

// CreateProducer reserves a stream slot; the relay starts when the
// remote track of that kind arrives on the transport.
func (e *Engine) CreateProducer(_ context.Context, id core.TransportID, kind domain.Kind, _ json.RawMessage) (core.Handle, error) {
	t, r, err := e.transport(id)
	if err != nil {
		return "", err
	}
	if !t.producing {
		return "", ErrNotProducing
	}

	h := core.Handle(uuid.NewString())
	r.mu.Lock()
	r.producers[h] = &producer{handle: h, kind: kind, transport: id}
	r.mu.Unlock()

	log.Info().Str("module", "engine").Str("transport", string(id)).Str("stream", string(h)).Str("kind", string(kind)).Msg("producer created")
	return h, nil
}

// CreateConsumer attaches a local fan-out track for the stream to the
// consuming transport.
func (e *Engine) CreateConsumer(_ context.Context, room domain.RoomID, id core.TransportID, stream core.Handle, _ json.RawMessage) (*core.ConsumerDescription, error) {
	r, err := e.router(room)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	t, tok := r.transports[id]
	p, pok := r.producers[stream]
	r.mu.RUnlock()
	if !tok {
		return nil, ErrTransportNotFound
	}
	if !pok {
		return nil, ErrProducerNotFound
	}

	codec, ok := p.srcCodec()
	if !ok {
		codec = codecForKind(p.kind)
	}

	h := core.Handle(uuid.NewString())
	local, err := webrtc.NewTrackLocalStaticRTP(codec, uuid.NewString(), "meet-"+string(room))
	if err != nil {
		return nil, err
	}
	sender, err := t.pc.AddTrack(local)
	if err != nil {
		return nil, err
	}

	out := newOutTrack(local)
	p.attach(h, out)

	r.mu.Lock()
	r.consumers[h] = &consumer{handle: h, producer: stream, out: out, sender: sender, pc: t.pc}
	r.mu.Unlock()

	params, err := json.Marshal(codecCapability{MimeType: codec.MimeType, ClockRate: codec.ClockRate, Channels: codec.Channels})
	if err != nil {
		return nil, err
	}

	log.Info().Str("module", "engine").Str("room", string(room)).Str("consumer", string(h)).Str("stream", string(stream)).Msg("consumer created")
	return &core.ConsumerDescription{ID: h, StreamID: stream, RTPParameters: params}, nil
}

func (e *Engine) Pause(_ context.Context, h core.Handle) error {
	return e.setState(h, true)
}

func (e *Engine) Resume(_ context.Context, h core.Handle) error {
	return e.setState(h, false)
}

func (e *Engine) setState(h core.Handle, paused bool) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.routers {
		r.mu.RLock()
		p, pok := r.producers[h]
		c, cok := r.consumers[h]
		r.mu.RUnlock()
		if pok {
			p.setPaused(paused)
			return nil
		}
		if cok {
			if paused {
				c.out.MarkPaused()
			} else {
				c.out.MarkOk()
			}
			return nil
		}
	}
	return ErrHandleNotFound
}

// Close tears down a producer or consumer handle. Closing an unknown
// handle is an error; the coordinator treats it as success during
// cleanup.
func (e *Engine) Close(_ context.Context, h core.Handle) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.routers {
		r.mu.Lock()
		if p, ok := r.producers[h]; ok {
			delete(r.producers, h)
			r.mu.Unlock()
			p.stop()
			return nil
		}
		if c, ok := r.consumers[h]; ok {
			delete(r.consumers, h)
			r.mu.Unlock()
			c.out.MarkDelete()
			if err := c.pc.RemoveTrack(c.sender); err != nil {
				log.Warn().Err(err).Str("module", "engine").Str("consumer", string(h)).Msg("remove track")
			}
			return nil
		}
		r.mu.Unlock()
	}
	return ErrHandleNotFound
}
