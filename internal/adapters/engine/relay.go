package engine

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/dkeye/Meet/internal/core"
)

// relay reads RTP from one produced remote track and forwards it to
// every consumer's outTrack. A paused producer keeps reading but
// drops packets, so the RTP session stays alive across mute cycles.
type relay struct {
	src *webrtc.TrackRemote

	mu   sync.RWMutex
	outs map[core.Handle]*outTrack

	paused atomic.Bool
	cancel context.CancelFunc
}

func newRelay(src *webrtc.TrackRemote, cancel context.CancelFunc) *relay {
	return &relay{
		src:    src,
		outs:   make(map[core.Handle]*outTrack),
		cancel: cancel,
	}
}

func (r *relay) loop(ctx context.Context, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, marking all out tracks for delete")
			r.markAllDelete()
			return
		default:
		}
		pkt, _, err := r.src.ReadRTP()
		if err != nil {
			logger.Error().Err(err).Msg("relay read RTP error, stopping")
			r.markAllDelete()
			return
		}
		if r.paused.Load() {
			continue
		}
		r.forward(pkt, logger)
	}
}

func (r *relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	snapshot := make(map[core.Handle]*outTrack, len(r.outs))
	r.mu.RLock()
	maps.Copy(snapshot, r.outs)
	r.mu.RUnlock()

	dirty := make([]core.Handle, 0, len(snapshot))
	for h, ot := range snapshot {
		switch ot.State() {
		case trackStateDelete:
			dirty = append(dirty, h)
		case trackStatePaused:
		case trackStateOk:
			if err := ot.track.WriteRTP(pkt); err != nil {
				logger.Error().
					Err(err).
					Str("consumer", string(h)).
					Msg("relay write RTP error, marking outtrack as delete")
				ot.MarkDelete()
				dirty = append(dirty, h)
			}
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *relay) cleanupDeleted(dirty []core.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range dirty {
		delete(r.outs, h)
	}
}

func (r *relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outs {
		ot.MarkDelete()
	}
}

func (r *relay) addOut(h core.Handle, ot *outTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outs[h] = ot
}

func (r *relay) stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.markAllDelete()
}
