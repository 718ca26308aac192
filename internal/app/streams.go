package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// StreamInfo resolves a stream handle back to its owner and kind.
type StreamInfo struct {
	Owner domain.ParticipantID
	Kind  domain.Kind
}

type linkKey struct {
	consumer domain.ParticipantID
	source   domain.ParticipantID
	kind     domain.Kind
}

// StreamRegistry maps participant identity to published stream
// handles and consumption links to consumer handles. Pure
// bookkeeping, no engine calls; the caller closes every handle this
// registry hands back.
type StreamRegistry struct {
	mu       sync.RWMutex
	streams  map[domain.ParticipantID]map[domain.Kind]core.Handle
	byHandle map[core.Handle]StreamInfo
	links    map[linkKey]*core.ConsumerDescription
}

func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		streams:  make(map[domain.ParticipantID]map[domain.Kind]core.Handle),
		byHandle: make(map[core.Handle]StreamInfo),
		links:    make(map[linkKey]*core.ConsumerDescription),
	}
}

// Register inserts the mapping for (participant, kind) and returns
// the prior handle when one is being replaced, so the caller can
// close it. A handle is never silently dropped.
func (r *StreamRegistry) Register(pid domain.ParticipantID, kind domain.Kind, h core.Handle) (core.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds, ok := r.streams[pid]
	if !ok {
		kinds = make(map[domain.Kind]core.Handle, 2)
		r.streams[pid] = kinds
	}
	prior, replaced := kinds[kind]
	if replaced {
		delete(r.byHandle, prior)
	}
	kinds[kind] = h
	r.byHandle[h] = StreamInfo{Owner: pid, Kind: kind}
	log.Info().Str("module", "app.streams").Str("participant", string(pid)).Str("kind", string(kind)).Str("stream", string(h)).Bool("replaced", replaced).Msg("stream registered")
	return prior, replaced
}

func (r *StreamRegistry) StreamOf(pid domain.ParticipantID, kind domain.Kind) (core.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.streams[pid][kind]
	return h, ok
}

// StreamsOf returns the participant's kind to handle mapping, used
// during cleanup.
func (r *StreamRegistry) StreamsOf(pid domain.ParticipantID) map[domain.Kind]core.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.Kind]core.Handle, len(r.streams[pid]))
	for kind, h := range r.streams[pid] {
		out[kind] = h
	}
	return out
}

// Lookup resolves a handle to its owning participant and kind.
func (r *StreamRegistry) Lookup(h core.Handle) (StreamInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byHandle[h]
	return info, ok
}

// RemoveParticipantStreams removes both kinds atomically and returns
// the removed handles for the caller to close.
func (r *StreamRegistry) RemoveParticipantStreams(pid domain.ParticipantID) []core.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := r.streams[pid]
	out := make([]core.Handle, 0, len(kinds))
	for _, h := range kinds {
		delete(r.byHandle, h)
		out = append(out, h)
	}
	delete(r.streams, pid)
	return out
}

// Link returns the existing consumption link for the triple, if any.
func (r *StreamRegistry) Link(consumer, source domain.ParticipantID, kind domain.Kind) (*core.ConsumerDescription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.links[linkKey{consumer, source, kind}]
	return desc, ok
}

// AddLink stores the consumption link for the triple, overwriting a
// stale one. At most one link per triple exists.
func (r *StreamRegistry) AddLink(consumer, source domain.ParticipantID, kind domain.Kind, desc *core.ConsumerDescription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[linkKey{consumer, source, kind}] = desc
	log.Info().Str("module", "app.streams").Str("consumer", string(consumer)).Str("source", string(source)).Str("kind", string(kind)).Msg("consumption link added")
}

// RemoveParticipantLinks drops every link the participant is on
// either side of and returns the consumer handles for the caller to
// close.
func (r *StreamRegistry) RemoveParticipantLinks(pid domain.ParticipantID) []core.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Handle
	for key, desc := range r.links {
		if key.consumer == pid || key.source == pid {
			out = append(out, desc.ID)
			delete(r.links, key)
		}
	}
	return out
}
